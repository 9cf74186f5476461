package telemetry

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevelRecognizesStandardNames(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"Warn":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseLevel(raw), "raw=%q", raw)
	}
}

func TestParseLevelDefaultsToInfoForUnknownName(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewReturnsUsableLoggerForBothFormats(t *testing.T) {
	assert.NotNil(t, New("info", "text"))
	assert.NotNil(t, New("info", "json"))
	assert.NotNil(t, New("info", "unknown-format-falls-back-to-json"))
}
