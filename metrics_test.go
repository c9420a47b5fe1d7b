package swarm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nulib/swarm-tools/internal/swarmtest"
)

func TestMetricsRecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	fail := MustAgentFunction("fail", "Fails.",
		func(context.Context, map[string]interface{}) (interface{}, error) {
			return nil, errors.New("nope")
		}, nil)
	agent := NewAgent("Metered").AddFunctions(echoFunction(t), fail)

	client := swarmtest.NewMockClient(
		swarmtest.ToolCalls(
			swarmtest.Call("c1", "echo", map[string]string{"text": "a"}),
			swarmtest.Call("c2", "fail", "{}"),
		),
		swarmtest.Text("done"),
	)

	_, err = NewSwarm(client, WithMetrics(metrics)).Run(context.Background(), agent, hello(), RunOptions{ExecuteTools: true})
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.completions.WithLabelValues("Metered", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.toolCalls.WithLabelValues("echo", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.toolCalls.WithLabelValues("fail", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.toolDuration))
}

func TestMetricsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeCompletion("agent", nil)
		m.observeToolCall("tool", time.Time{}, errors.New("x"))
	})
}
