package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContext(t *testing.T) {
	assert.Equal(t, "persona", BuildContext("persona", ""))
	assert.Equal(t, "persona\n\ncorpus", BuildContext("persona", "corpus"))
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("ctx", "Como vender mais?")
	assert.Equal(t, "ctx\n\nUser: Como vender mais?\nAssistant:", got)
}

func TestLoadPersona(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		p, err := LoadPersona("")
		require.NoError(t, err)
		assert.Equal(t, DefaultPersona, p)
	})

	t.Run("override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "persona.txt")
		require.NoError(t, os.WriteFile(path, []byte("  Você é um mentor.\n"), 0o644))

		p, err := LoadPersona(path)
		require.NoError(t, err)
		assert.Equal(t, "Você é um mentor.", p)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "persona.txt")
		require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))

		_, err := LoadPersona(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPersona(filepath.Join(t.TempDir(), "none.txt"))
		assert.Error(t, err)
	})
}

func TestQuickPrompts(t *testing.T) {
	require.Len(t, QuickPrompts, 3)
	for _, qp := range QuickPrompts {
		assert.NotEmpty(t, qp.Label)
		assert.NotEmpty(t, qp.Text)
	}
}
