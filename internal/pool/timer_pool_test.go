package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerPool(t *testing.T) {
	t.Run("Get and Put", func(t *testing.T) {
		require := require.New(t)

		timer := GetTimer(10 * time.Millisecond)
		require.NotNil(timer)
		<-timer.C
		PutTimer(timer)

		timer = GetTimer(10 * time.Millisecond)
		require.NotNil(timer)
		select {
		case <-timer.C:
		case <-time.After(time.Second):
			t.Fatal("reused timer did not fire")
		}
		PutTimer(timer)
	})

	t.Run("Put Active Timer", func(t *testing.T) {
		timer := GetTimer(50 * time.Millisecond)
		PutTimer(timer)

		begin := time.Now()
		timer = GetTimer(200 * time.Millisecond)
		defer PutTimer(timer)

		fired := <-timer.C
		if fired.Sub(begin) < 180*time.Millisecond {
			t.Errorf("timer fired after %v, want ~200ms", fired.Sub(begin))
		}
	})

	t.Run("Put nil", func(t *testing.T) {
		require.NotPanics(t, func() { PutTimer(nil) })
	})

	t.Run("Concurrency", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				timer := GetTimer(5 * time.Millisecond)
				defer PutTimer(timer)
				<-timer.C
			}()
		}
		wg.Wait()
	})
}
