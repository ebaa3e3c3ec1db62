package commands

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogo/glmchat/internal/config"
)

func TestConfigSet_ChatSetting(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, "config", "set", "temperature", "0.3")
	require.NoError(t, err)
	assert.Equal(t, "temperature = 0.3\n", out)
	assert.InDelta(t, 0.3, env.session(t).Settings().Temperature, 1e-9)

	out, err = execute(t, "config", "set", "api_key", "sk-abcdef123456")
	require.NoError(t, err)
	assert.NotContains(t, out, "sk-abcdef")
	assert.Contains(t, out, "3456")
	assert.Equal(t, "sk-abcdef123456", env.session(t).Settings().APIKey)
}

func TestConfigSet_ChatSettingInvalid(t *testing.T) {
	env := newTestEnv(t)

	_, err := execute(t, "config", "set", "temperature", "3")
	require.Error(t, err)
	assert.InDelta(t, config.DefaultSettings().Temperature, env.session(t).Settings().Temperature, 1e-9)
}

func TestConfigSet_FileOption(t *testing.T) {
	newTestEnv(t)

	_, err := execute(t, "config", "set", "markdown.width", "100")
	require.NoError(t, err)

	loaded, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 100, loaded.Markdown.Width)
}

func TestConfigSet_UnknownKey(t *testing.T) {
	newTestEnv(t)

	_, err := execute(t, "config", "set", "colour", "blue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
}

func TestConfigInit(t *testing.T) {
	newTestEnv(t)

	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Config written to")

	path, err := config.GetConfigPath()
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	out, err = execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Config already exists")
}

func TestConfigShow_MasksKey(t *testing.T) {
	newTestEnv(t)

	out, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "api_key = ********-key")
	assert.NotContains(t, out, "test-key")
	assert.Contains(t, out, "preset = Customer service assistant")
}

func TestConfigModels(t *testing.T) {
	newTestEnv(t)

	out, err := execute(t, "config", "models")
	require.NoError(t, err)
	assert.Contains(t, out, "* glm-4.1v-thinking-flash")
	assert.Contains(t, out, "cogvideox-flash")
}
