package moderation

import (
	"chat-relay/errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestCensoredLoader_LoadAll(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{
		"censored/en.txt":       {Data: []byte("badger\r\nsnake\n\n# comment\n")},
		"censored/fr.txt":       {Data: []byte("blaireau\nbadger\n")},
		"censored/README.md":    {Data: []byte("ignored")},
		"censored/nested/x.txt": {Data: []byte("ignored")},
	}

	data, err := NewCensoredLoader(fsys).LoadAll("censored")

	req.NoError(err)
	req.Equal([]string{"badger", "blaireau", "snake"}, data.Words)
	req.ElementsMatch([]string{"en", "fr"}, data.Languages)
}

func TestCensoredLoader_LoadAll_Empty(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{"censored/en.txt": {Data: []byte("\n\n")}}

	_, err := NewCensoredLoader(fsys).LoadAll("censored")

	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestSplitWords(t *testing.T) {
	req := require.New(t)
	req.Equal([]string{"badger", "snake"}, SplitWords(" badger, ,snake ,"))
	req.Nil(SplitWords(""))
}
