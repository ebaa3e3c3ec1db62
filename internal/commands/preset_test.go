package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/diogo/glmchat/internal/errors"
)

func TestPresetCommands(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, "preset", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Customer service assistant")
	assert.Contains(t, out, "Technical advisor")

	out, err = execute(t, "preset", "add", "Pirate", "Answer like a pirate.")
	require.NoError(t, err)
	assert.Contains(t, out, "Preset 'Pirate' added and selected")
	assert.Equal(t, "Answer like a pirate.", env.session(t).Settings().SystemPrompt())

	_, err = execute(t, "--raw", "hello")
	require.NoError(t, err)
	msgs := env.backend.lastRequest().Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "Answer like a pirate.", msgs[0].Content)

	_, err = execute(t, "preset", "edit", "pirate", "--name", "Corsair", "Answer like a corsair.")
	require.NoError(t, err)
	out, err = execute(t, "preset", "show", "corsair")
	require.NoError(t, err)
	assert.Contains(t, out, "Answer like a corsair.")

	_, err = execute(t, "preset", "use", "Technical advisor")
	require.NoError(t, err)
	assert.Equal(t, "2", env.session(t).Settings().SelectedPreset)

	_, err = execute(t, "preset", "delete", "corsair")
	require.NoError(t, err)
	_, err = execute(t, "preset", "delete", "1")
	require.NoError(t, err)

	_, err = execute(t, "preset", "delete", "2")
	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrPresetRequired)
}

func TestPresetAdd_FromFile(t *testing.T) {
	env := newTestEnv(t)

	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("Be brief.\n"), 0o644))

	_, err := execute(t, "preset", "add", "Brief", "-f", path)
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", env.session(t).Settings().SystemPrompt())
}

func TestPresetAdd_EmptyContent(t *testing.T) {
	newTestEnv(t)

	_, err := execute(t, "preset", "add", "Nothing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content cannot be empty")
}

func TestPreset_UnknownReference(t *testing.T) {
	newTestEnv(t)

	_, err := execute(t, "preset", "use", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preset 'nope' not found")
}
