package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gathered(t *testing.T, m *Metrics) map[string]float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			name := mf.GetName()
			for _, lp := range metric.GetLabel() {
				name += "/" + lp.GetValue()
			}
			switch {
			case metric.GetCounter() != nil:
				out[name] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				out[name] = metric.GetGauge().GetValue()
			}
		}
	}
	return out
}

func TestMetricsRecord(t *testing.T) {
	m := New()

	m.Command("add")
	m.Command("add")
	m.Command("buy")
	m.DecodeError()
	m.Fill(5, 50)
	m.Fill(2, 22)
	m.Book(3, 14)
	m.Published(true)
	m.Published(false)

	got := gathered(t, m)
	assert.Equal(t, 2.0, got["askbook_commands_total/add"])
	assert.Equal(t, 1.0, got["askbook_commands_total/buy"])
	assert.Equal(t, 1.0, got["askbook_decode_errors_total"])
	assert.Equal(t, 2.0, got["askbook_fills_total"])
	assert.Equal(t, 7.0, got["askbook_filled_shares_total"])
	assert.Equal(t, 72.0, got["askbook_cost_total"])
	assert.Equal(t, 3.0, got["askbook_resting_orders"])
	assert.Equal(t, 14.0, got["askbook_resting_shares"])
	assert.Equal(t, 1.0, got["askbook_published_total/ok"])
	assert.Equal(t, 1.0, got["askbook_published_total/error"])
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Fill(5, 50)

	path := filepath.Join(t.TempDir(), "askbook.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "askbook_cost_total 50")
}

func TestWriteTextfileBadDir(t *testing.T) {
	m := New()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.Error(t, err)
}
