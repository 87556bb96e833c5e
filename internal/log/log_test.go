package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/framesmith/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"DEBUG", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := parseLevel(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}

	for _, input := range []string{"invalid", "trace", ""} {
		_, err := parseLevel(input)
		assert.Error(t, err, input)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(config.LogConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	l.WithField("rule", "arp").Info("reply sent")
	l.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "reply sent", entry["msg"])
	assert.Equal(t, "arp", entry["rule"])
	assert.Equal(t, "info", entry["level"])
	assert.False(t, l.IsDebugEnabled())
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud", Format: "json"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New(config.LogConfig{Level: "info", Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New(config.LogConfig{Level: "info", Format: "text", File: config.FileOutputConfig{Enabled: true}}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNewWithFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framesmith.log")
	var buf bytes.Buffer
	l, err := New(config.LogConfig{
		Level:  "debug",
		Format: "text",
		File: config.FileOutputConfig{
			Enabled:  true,
			Path:     path,
			Rotation: config.RotationConfig{MaxSizeMB: 1, MaxBackups: 1},
		},
	}, &buf)
	require.NoError(t, err)

	l.WithError(errors.New("boom")).Debug("build failed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "build failed")
	assert.Contains(t, string(data), "boom")
	assert.Contains(t, buf.String(), "build failed")
}

func TestPatternFormatter(t *testing.T) {
	f := newFormatter("%time [%level] %field %msg", "15:04:05")
	entry := &logrus.Entry{
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "frame dropped",
		Data:    logrus.Fields{"stage": "build", "rule": "swap", "n": 3},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "03:04:05 [warning] n=3,rule=swap,stage=build frame dropped", string(out))
}

func TestPatternFormatterDefaults(t *testing.T) {
	f := newFormatter("", "")
	assert.Equal(t, config.DefaultLogPattern, f.pattern)
	assert.Equal(t, config.DefaultLogTime, f.time)

	out, err := newFormatter("%caller %func", "").Format(&logrus.Entry{})
	require.NoError(t, err)
	assert.Equal(t, "unknown unknown", string(out))
}

func TestInitReplacesGlobal(t *testing.T) {
	before := GetLogger()
	t.Cleanup(func() { SetLogger(before) })

	require.NoError(t, Init(config.LogConfig{Level: "error", Format: "pattern"}))
	assert.NotSame(t, before, GetLogger())
	assert.False(t, GetLogger().IsInfoEnabled())
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("ignored")
	assert.False(t, l.IsInfoEnabled())
}
