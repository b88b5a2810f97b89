package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	tracer *MethodTracer
}

func (w *widget) Refresh() {
	w.tracer.MethodEntered()
	defer w.tracer.MethodExited()
}

func TestMethodTracerNamesCaller(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)

	w := &widget{tracer: NewMethodTracer(logrus.NewEntry(logger))}
	w.Refresh()

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "method entered", entries[0].Message)
	assert.Equal(t, "method exited", entries[1].Message)
	assert.Equal(t, "widget.Refresh", entries[0].Data["method"])
	assert.Equal(t, "widget.Refresh", entries[1].Data["method"])
	assert.Equal(t, logrus.TraceLevel, entries[0].Level)
}

func TestMethodTracerSilentAboveTrace(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	w := &widget{tracer: NewMethodTracer(logrus.NewEntry(logger))}
	w.Refresh()

	assert.Empty(t, hook.AllEntries())
}

func TestNewFormats(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(&buf, "warn", "json")
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger.WithField("component", "test").Warn("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "test", line["component"])
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	logger := NewWithOutput(&bytes.Buffer{}, "chatty", "text")
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	_, ok := logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}
