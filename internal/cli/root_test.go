package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetCommandState clears flag values left over from a previous Execute on
// the shared command tree.
func resetCommandState() {
	cfgFile, logLevel = "", "info"
	renderFile, renderModel, renderMode, renderMessages = "", "", "", nil
	catalogJSON = false
	stopTimeout = 30
	servePort, serveBackend = 0, ""

	if f := rootCmd.PersistentFlags().Lookup("log-level"); f != nil {
		f.Changed = false
	}
	for _, c := range append(rootCmd.Commands(), rootCmd) {
		for _, name := range []string{"help", "version"} {
			if f := c.Flags().Lookup(name); f != nil {
				_ = f.Value.Set("false")
				f.Changed = false
			}
		}
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetCommandState()
	t.Cleanup(resetCommandState)

	cmd := GetRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

// writeTestConfig writes a config file that keeps all state under a temp dir
func writeTestConfig(t *testing.T, extra map[string]interface{}) string {
	t.Helper()
	dir := t.TempDir()

	cfg := map[string]interface{}{
		"data_dir": dir,
		"backend":  map[string]interface{}{"kind": "echo"},
	}
	for k, v := range extra {
		cfg[k] = v
	}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "chatrelay.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRootCommand(t *testing.T) {
	t.Run("version flag", func(t *testing.T) {
		out, err := execute(t, "", "--version")
		require.NoError(t, err)

		assert.Contains(t, out, "chatrelay version")
		assert.Contains(t, out, GetVersion())
	})

	t.Run("help flag", func(t *testing.T) {
		out, err := execute(t, "", "--help")
		require.NoError(t, err)

		assert.Contains(t, out, "chatrelay")
		assert.Contains(t, out, "Bedrock")
	})

	t.Run("global flags", func(t *testing.T) {
		cmd := GetRootCmd()

		configFlag := cmd.PersistentFlags().Lookup("config")
		require.NotNil(t, configFlag)
		assert.Equal(t, "", configFlag.DefValue)

		logLevelFlag := cmd.PersistentFlags().Lookup("log-level")
		require.NotNil(t, logLevelFlag)
		assert.Equal(t, "info", logLevelFlag.DefValue)
	})

	t.Run("subcommands registered", func(t *testing.T) {
		names := map[string]bool{}
		for _, c := range GetRootCmd().Commands() {
			names[c.Name()] = true
		}
		for _, want := range []string{"serve", "stop", "status", "render", "personas", "models", "version", "configure"} {
			assert.True(t, names[want], "missing command %s", want)
		}
	})
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "chatrelay version "+GetVersion()+"\n", out)
}

func TestGetVersion(t *testing.T) {
	version := GetVersion()
	assert.NotEmpty(t, version)
	assert.True(t, strings.HasPrefix(version, "0."))
}

func TestLoadConfigRejectsInvalidLogLevel(t *testing.T) {
	path := writeTestConfig(t, nil)

	_, err := execute(t, "", "personas", "--config", path, "--log-level", "chatty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
