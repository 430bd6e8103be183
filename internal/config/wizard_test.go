package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardRun(t *testing.T) {
	t.Run("accepts defaults", func(t *testing.T) {
		in := strings.NewReader(strings.Repeat("\n", 6))
		var out bytes.Buffer

		cfg, err := NewWizard(in, &out).Run()

		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().Backend, cfg.Backend)
		assert.Equal(t, "file", cfg.Store.Kind)
		assert.Contains(t, out.String(), "Configuration complete!")
	})

	t.Run("re-prompts on invalid answers", func(t *testing.T) {
		answers := strings.Join([]string{
			"openai",               // invalid backend
			"echo",                 // backend
			"amazon.nova-pro-v1:0", // model
			"dynamodb",             // store
			"",                     // missing table
			"chat-sessions",        // table
			"chat-projects",        // projects table
			"abc",                  // invalid port
			"9000",                 // port
			"debug",                // log level
		}, "\n") + "\n"
		var out bytes.Buffer

		cfg, err := NewWizard(strings.NewReader(answers), &out).Run()

		require.NoError(t, err)
		assert.Equal(t, "echo", cfg.Backend.Kind)
		assert.Equal(t, "amazon.nova-pro-v1:0", cfg.Backend.DefaultModel)
		assert.Equal(t, "dynamodb", cfg.Store.Kind)
		assert.Equal(t, "chat-sessions", cfg.Store.Dynamo.SessionsTable)
		assert.Equal(t, "chat-projects", cfg.Store.Dynamo.ProjectsTable)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, 3, strings.Count(out.String(), "Error:"))
	})

	t.Run("input ends early", func(t *testing.T) {
		_, err := NewWizard(strings.NewReader(""), &bytes.Buffer{}).Run()
		assert.Error(t, err)
	})
}
