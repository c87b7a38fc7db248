package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-smpp/smpp"
)

type fakeSource struct {
	metrics smpp.SessionMetrics
	state   smpp.SessionState
}

func (f *fakeSource) ID() string { return "sess-1" }
func (f *fakeSource) Credentials() smpp.Credentials { return smpp.Credentials{Provider: "acme"} }
func (f *fakeSource) State() smpp.SessionState { return f.state }
func (f *fakeSource) Metrics() *smpp.SessionMetrics { return &f.metrics }

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.Metric, len(families))
	for _, mf := range families {
		require.Len(t, mf.GetMetric(), 1)
		out[mf.GetName()] = mf.GetMetric()[0]
	}

	return out
}

func TestSessionCollector(t *testing.T) {
	require := require.New(t)

	src := &fakeSource{state: smpp.StateBound}
	src.metrics.SubmitSendCount.Add(5)
	src.metrics.SubmitOKCount.Add(3)
	src.metrics.SubmitErrCount.Add(1)
	src.metrics.SubmitInflightCount.Add(1)
	src.metrics.OrphanRespCount.Add(2)

	reg := prometheus.NewRegistry()
	unregister, err := RegisterSession(reg, src)
	require.NoError(err)

	metrics := gather(t, reg)
	require.Len(metrics, 12)

	require.InDelta(5, metrics["smpp_submit_sent_total"].GetCounter().GetValue(), 0)
	require.InDelta(3, metrics["smpp_submit_accepted_total"].GetCounter().GetValue(), 0)
	require.InDelta(1, metrics["smpp_submit_failed_total"].GetCounter().GetValue(), 0)
	require.InDelta(2, metrics["smpp_response_orphan_total"].GetCounter().GetValue(), 0)
	require.InDelta(1, metrics["smpp_submit_inflight"].GetGauge().GetValue(), 0)
	require.InDelta(float64(smpp.StateBound), metrics["smpp_session_state"].GetGauge().GetValue(), 0)

	labels := map[string]string{}
	for _, lp := range metrics["smpp_submit_sent_total"].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	require.Equal(map[string]string{"provider": "acme", "session_id": "sess-1"}, labels)

	// live values are read at collection time
	src.metrics.SubmitOKCount.Add(1)
	src.state = smpp.StateClosed
	metrics = gather(t, reg)
	require.InDelta(4, metrics["smpp_submit_accepted_total"].GetCounter().GetValue(), 0)
	require.InDelta(float64(smpp.StateClosed), metrics["smpp_session_state"].GetGauge().GetValue(), 0)

	// the same session cannot be registered twice
	_, err = RegisterSession(reg, src)
	require.Error(err)

	unregister()
	families, err := reg.Gather()
	require.NoError(err)
	require.Empty(families)
}
