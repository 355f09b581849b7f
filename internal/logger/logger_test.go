package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("run_id", "r1").Info("pass complete", "created", 3)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "pass complete", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "r1", fields["run_id"])
	assert.EqualValues(t, 3, fields["created"])
}

func TestOrNop(t *testing.T) {
	assert.NotPanics(t, func() { OrNop(nil).Warn("ignored") })
}
