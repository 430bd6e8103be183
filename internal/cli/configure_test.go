package cli

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/harun/chatrelay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureCommand(t *testing.T) {
	t.Run("help text", func(t *testing.T) {
		out, err := execute(t, "", "configure", "--help")
		require.NoError(t, err)
		assert.Contains(t, out, "interactive configuration wizard")
	})

	t.Run("saves answers", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "chatrelay.yaml")
		answers := strings.Join([]string{
			"echo",                 // backend
			"amazon.nova-pro-v1:0", // model
			"sqlite",               // store
			"9001",                 // port
			"warn",                 // log level
		}, "\n") + "\n"

		out, err := execute(t, answers, "configure", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration saved to: "+path)

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "echo", cfg.Backend.Kind)
		assert.Equal(t, "amazon.nova-pro-v1:0", cfg.Backend.DefaultModel)
		assert.Equal(t, "sqlite", cfg.Store.Kind)
		assert.Equal(t, 9001, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})
}
