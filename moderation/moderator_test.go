package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// Dictionary words are long enough not to collide with common short words.
func TestModerator_Censor(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mod, err := NewModerator([]string{"spammer", "phishing", "scam"}, replacementChar, log)
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Single word keeps surrounding spaces",
			input:    "you are a spammer right",
			expected: "you are a ******* right",
			words:    []string{"spammer"},
		},
		{
			name:     "Repeated word",
			input:    "scam scam",
			expected: "**** ****",
			words:    []string{"scam", "scam"},
		},
		{
			name:     "Leet speak with dotted noise",
			input:    "pure 5.c.4.m here",
			expected: "pure ******* here",
			words:    []string{"scam"},
		},
		{
			name:     "Uppercase with dashes",
			input:    "P-H-I-S-H-I-N-G alert",
			expected: "*************** alert",
			words:    []string{"phishing"},
		},
		{
			name:     "Accented neighbours are untouched",
			input:    "déjà vu, encore un scam",
			expected: "déjà vu, encore un ****",
			words:    []string{"scam"},
		},
		{
			name:     "Trailing punctuation survives",
			input:    "what a scam.",
			expected: "what a ****.",
			words:    []string{"scam"},
		},
		{
			name:     "Clean chat",
			input:    "see you in the room",
			expected: "see you in the room",
			words:    nil,
		},
		{
			name:     "Empty content",
			input:    "",
			expected: "",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content)
			req.Equal(tt.words, words)
		})
	}
}

func TestModerator_Ignores_Punctuation_Only_Words(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given a dictionary polluted with noise
	mod, err := NewModerator([]string{"...", "--", "", "scam"}, replacementChar, log)
	req.NoError(err)

	// Then real words are still censored
	content, words := mod.Censor("not a scam")
	req.Equal("not a ****", content)
	req.Equal([]string{"scam"}, words)

	// And punctuation is left alone
	content, words = mod.Censor("wait...")
	req.Equal("wait...", content)
	req.Nil(words)
}

func TestModerator_NoWords_IsNoop(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	mod, err := NewModerator([]string{"", "???"}, replacementChar, log)
	req.NoError(err)

	content, words := mod.Censor("what a scam")
	req.Equal("what a scam", content)
	req.Nil(words)

	// A nil moderator behaves the same
	var none *Moderator
	content, words = none.Censor("what a scam")
	req.Equal("what a scam", content)
	req.Nil(words)
}

func TestModerator_Language(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator(nil, replacementChar, logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(err)

	req.Equal("fr", mod.Language("Bonjour à tous, je suis très content de vous retrouver dans cette salle de discussion ce matin"))
}
