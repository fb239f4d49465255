package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCounters(t *testing.T) {
	m := New()

	m.RecordSample(0.1)
	m.RecordSample(0.2)
	m.RecordCheckpoint("start")
	m.RecordCheckpoint("turn")
	m.RecordCheckpoint("turn")
	m.RecordLap()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.samples))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkpoints.WithLabelValues("turn")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkpoints.WithLabelValues("start")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.laps))
}

func TestEngineAndRecordMetrics(t *testing.T) {
	m := New()

	m.UpdateEngineRisk(12.5)
	m.RecordEngineFailure()
	m.RecordImprovement("lap")
	m.RecordPersistError()
	m.RecordRaceFinished()

	assert.Equal(t, 12.5, testutil.ToFloat64(m.engineRisk))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.engineFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordImprovements.WithLabelValues("lap")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persistErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.racesFinished))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RecordLap()
	path := filepath.Join(t.TempDir(), "schneider.prom")

	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "schneider_session_laps_completed_total 1")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordSample(1)
		m.RecordCheckpoint("turn")
		m.RecordLap()
		m.RecordRaceFinished()
		m.RecordEngineFailure()
		m.UpdateEngineRisk(3)
		m.RecordImprovement("race")
		m.RecordPersistError()
	})
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
	assert.Nil(t, m.Registry())
}
