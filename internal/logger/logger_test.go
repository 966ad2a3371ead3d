package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-grades/internal/logger"
)

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.WithQuiet(), logger.WithWriter(&buf))
	ctx := logger.WithLogger(context.Background(), l)
	ctx = logger.WithValues(ctx, "course", 7)

	logger.Info(ctx, "evaluated", "subjects", 3)
	logger.Debug(ctx, "hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "evaluated", rec["msg"])
	assert.Equal(t, float64(7), rec["course"])
	assert.Equal(t, float64(3), rec["subjects"])
}

func TestLoggerDebugText(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.WithQuiet(), logger.WithDebug(), logger.WithFormat("text"), logger.WithWriter(&buf))
	l.Debug("plan compiled", "model", 2)
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "model=2")
}

func TestFromContextDefault(t *testing.T) {
	assert.NotNil(t, logger.FromContext(context.Background()))
}
