package logger

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBuild_WritesRotatedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "log", "order.log")
	l, cleanup := NewWithRotate("info", false, FileRotate{Enable: true, Filename: file, MaxSizeMB: 1}, time.FixedZone("", 8*3600))

	l.Info("dish created", zap.String("name", "Burger"))
	l.Debug("below level")
	cleanup()

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, "dish created")
	assert.Contains(t, out, "Burger")
	assert.NotContains(t, out, "below level")
	assert.NotContains(t, out, "\x1b[", "no color codes in file")
}

func TestBuild_BadLevelFallsBackToInfo(t *testing.T) {
	l, cleanup := New("nonsense", true)
	defer cleanup()
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestToStdLoggerAndRedirect(t *testing.T) {
	file := filepath.Join(t.TempDir(), "std.log")
	l, cleanup := Build(Options{Level: "debug", JSON: true, Rotate: FileRotate{Enable: true, Filename: file}})

	std, err := ToStdLogger(l, zapcore.WarnLevel)
	require.NoError(t, err)
	std.Println("from std logger")

	undo := RedirectStdLog(l, zapcore.InfoLevel)
	log.Println("from global log")
	undo()

	_, _ = ToWriter(l, zapcore.DebugLevel).Write([]byte("from writer\n"))
	cleanup()

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"level":"warn"`)
	assert.Contains(t, lines[0], "from std logger")
	assert.Contains(t, lines[1], "from global log")
	assert.Contains(t, lines[2], "from writer")
}
