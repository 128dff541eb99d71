package internal

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	var config Config

	_, err := env.UnmarshalFromEnviron(&config)

	req.NoError(err)
	req.Equal(8080, config.Port)
	req.Equal(256, config.ConnectionBufferSize)
	req.Equal(60*time.Second, config.PongTimeout)
	req.Equal("*", config.CharReplacement)
	req.Empty(config.JournalFilepath)
}

func TestConfig_From_Environment(t *testing.T) {
	req := require.New(t)
	t.Setenv("PORT", "9000")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("CENSORED_WORDS", "foo,bar")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)

	req.NoError(err)
	req.Equal("127.0.0.1:9000", config.Address())
	req.Equal(3*time.Second, config.WriteTimeout)
	req.Equal("foo,bar", config.CensoredWords)
	req.Equal([]string{"https://a.example.com", "https://b.example.com"}, config.Origins())
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	_, err = CharacterRune("**")
	req.Error(err)
	_, err = CharacterRune("")
	req.Error(err)
}
