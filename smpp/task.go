package smpp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-smpp/logger"
)

// TaskFunc performs one iteration of a task. It returns true to keep running, false to stop.
type TaskFunc func() bool

// TaskCancelFunc is called when a task goroutine exits, for cleanup.
type TaskCancelFunc func()

// TaskManager manages the goroutines of one session: the frame dispatcher, the sender,
// the deliver handler and the interval tasks.
//
// All tasks share a context derived from the parent passed to NewTaskManager. Stop cancels
// it; Wait blocks until every task has returned.
//
// Example Usage:
//
//	taskMgr := smpp.NewTaskManager(ctx, logger)
//
//	_ = taskMgr.Start("myTask", func() bool {
//	    // ... task logic ...
//	    return true // Return true to continue running, false to stop
//	}, nil)
//
//	taskMgr.Stop()
//	taskMgr.Wait()
type TaskManager struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  logger.Logger
	count   atomic.Int32
	tickers sync.Map // map[string]*time.Ticker
}

// NewTaskManager creates a new TaskManager with the given context as the parent context and logger.
func NewTaskManager(ctx context.Context, l logger.Logger) *TaskManager {
	mgr := &TaskManager{logger: l}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

// Context returns the context shared by all tasks. It is canceled by Stop.
func (mgr *TaskManager) Context() context.Context {
	return mgr.ctx
}

// Start runs taskFunc in a loop on a new goroutine until it returns false or the manager stops.
// cancelFunc, if not nil, runs when the goroutine exits.
func (mgr *TaskManager) Start(name string, taskFunc TaskFunc, cancelFunc TaskCancelFunc) error {
	mgr.logger.Debug("start task", "name", name)

	return mgr.spawn(name, func() {
		if cancelFunc != nil {
			defer cancelFunc()
		}

		for {
			select {
			case <-mgr.ctx.Done():
				return
			default:
				if !mgr.callWithRecover(name, taskFunc) {
					return
				}
			}
		}
	})
}

// StartConsumer starts a goroutine that passes every value received from inputChan to taskFunc.
// It stops when taskFunc returns false, the channel is closed, or the manager stops.
func StartConsumer[T any](mgr *TaskManager, name string, inputChan <-chan T, taskFunc func(T) bool, cancelFunc TaskCancelFunc) error {
	mgr.logger.Debug("start consumer task", "name", name)

	if inputChan == nil {
		return errors.New("input channel is nil")
	}

	return mgr.spawn(name, func() {
		if cancelFunc != nil {
			defer cancelFunc()
		}

		for {
			select {
			case <-mgr.ctx.Done():
				return
			case v, ok := <-inputChan:
				if !ok {
					mgr.logger.Debug("input channel closed", "name", name)
					return
				}
				// a panicking handler skips the value and keeps consuming
				cont := true
				mgr.callWithRecover(name, func() bool {
					cont = taskFunc(v)
					return cont
				})
				if !cont {
					return
				}
			}
		}
	})
}

// StartInterval runs taskFunc every interval until it returns false or the manager stops.
func (mgr *TaskManager) StartInterval(name string, taskFunc TaskFunc, interval time.Duration) error {
	mgr.logger.Debug("start interval task", "name", name, "interval", interval)

	if interval <= 0 {
		return fmt.Errorf("invalid interval: %v", interval)
	}

	ticker := time.NewTicker(interval)
	if _, loaded := mgr.tickers.LoadOrStore(name, ticker); loaded {
		ticker.Stop()
		return fmt.Errorf("interval task %s already exists", name)
	}

	err := mgr.spawn(name, func() {
		defer func() {
			ticker.Stop()
			mgr.tickers.Delete(name)
		}()

		for {
			select {
			case <-mgr.ctx.Done():
				return
			case <-ticker.C:
				if !mgr.callWithRecover(name, taskFunc) {
					return
				}
			}
		}
	})
	if err != nil {
		ticker.Stop()
		mgr.tickers.Delete(name)
	}

	return err
}

// Stop signals all running goroutines to exit.
func (mgr *TaskManager) Stop() {
	mgr.tickers.Range(func(_, value any) bool {
		if ticker, ok := value.(*time.Ticker); ok {
			ticker.Stop()
		}
		return true
	})

	mgr.cancel()
}

// Wait waits for all goroutines to terminate.
func (mgr *TaskManager) Wait() {
	mgr.wg.Wait()
}

// TaskCount returns the number of currently running goroutines.
func (mgr *TaskManager) TaskCount() int {
	return int(mgr.count.Load())
}

func (mgr *TaskManager) spawn(name string, body func()) error {
	select {
	case <-mgr.ctx.Done():
		return fmt.Errorf("start %s: task manager already stopped", name)
	default:
	}

	mgr.wg.Add(1)
	mgr.count.Add(1)

	go func() {
		defer func() {
			mgr.count.Add(-1)
			mgr.wg.Done()
			mgr.logger.Debug(name+" task terminated", "task_count", mgr.TaskCount())
		}()

		body()
	}()

	return nil
}

// callWithRecover calls fn with panic protection. A panic stops the task.
func (mgr *TaskManager) callWithRecover(name string, fn func() bool) (cont bool) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task", "name", name, "panic", r)
			cont = false
		}
	}()

	return fn()
}
