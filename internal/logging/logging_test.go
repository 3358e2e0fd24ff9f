package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewLevelParsing(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tc := range tests {
		log := New(Config{Level: tc.in})
		require.Equal(t, tc.want, log.GetLevel(), "level %q", tc.in)
	}
}

func TestWriterSelection(t *testing.T) {
	_, pretty := writer(Config{Pretty: true}).(zerolog.ConsoleWriter)
	require.True(t, pretty)

	_, console := writer(Config{Format: "console"}).(zerolog.ConsoleWriter)
	require.True(t, console)

	_, structured := writer(Config{Format: "json"}).(zerolog.ConsoleWriter)
	require.False(t, structured)
}
