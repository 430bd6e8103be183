package persona

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, cfg Config) *Resolver {
	t.Helper()
	cfg.Logger = zerolog.Nop()
	r, err := NewResolver(cfg)
	require.NoError(t, err)
	return r
}

func TestResolver_DefaultPersonas(t *testing.T) {
	r := newTestResolver(t, Config{})

	general, err := r.Resolve(TagGeneralAssistant)
	require.NoError(t, err)
	assert.True(t, general.HasText())
	assert.Contains(t, general.Text, "asistente experto en AWS")

	architect, err := r.Resolve(TagArchitectInterview)
	require.NoError(t, err)
	assert.True(t, architect.HasText())
	assert.Contains(t, architect.Text, "arquitecto de soluciones AWS")

	empty, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, TagGeneralAssistant, empty.Tag)
}

func TestResolver_LegacyAliases(t *testing.T) {
	r := newTestResolver(t, Config{})

	inst, err := r.Resolve("arquitecto")
	require.NoError(t, err)
	assert.Equal(t, TagArchitectInterview, inst.Tag)

	inst, err = r.Resolve("chat-libre")
	require.NoError(t, err)
	assert.Equal(t, TagGeneralAssistant, inst.Tag)
}

func TestResolver_UnknownPersona(t *testing.T) {
	t.Run("strict policy fails", func(t *testing.T) {
		r := newTestResolver(t, Config{Policy: PolicyStrict})

		_, err := r.Resolve("pirate")
		var unknown *UnknownPersonaError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "pirate", unknown.Tag)
	})

	t.Run("fallback policy uses default", func(t *testing.T) {
		r := newTestResolver(t, Config{Policy: PolicyFallback})

		inst, err := r.Resolve("pirate")
		require.NoError(t, err)
		assert.Equal(t, TagGeneralAssistant, inst.Tag)
	})
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, p)

	_, err = ParsePolicy("lenient")
	assert.Error(t, err)
}

func writeCatalog(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "personas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reviewer.txt"), []byte("Review the design.\n"), 0644))

	path := writeCatalog(t, dir, `
default: reviewer
personas:
  - tag: reviewer
    file: reviewer.txt
    token_profile: compact
    aliases: [revisor]
  - tag: general-assistant
    text: You are a helpful AWS assistant.
`)

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "reviewer", c.Default())
	assert.Equal(t, []string{TagArchitectInterview, TagGeneralAssistant, "reviewer"}, c.Tags())

	inst, ok := c.lookup("revisor")
	require.True(t, ok)
	assert.Equal(t, "Review the design.", inst.Text)
	assert.Equal(t, "compact", inst.TokenProfile)

	inst, ok = c.lookup(TagGeneralAssistant)
	require.True(t, ok)
	assert.Equal(t, "You are a helpful AWS assistant.", inst.Text)
}

func TestLoadCatalog_OverlayCanClearInstruction(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, `
personas:
  - tag: general-assistant
`)

	c, err := LoadCatalog(path)
	require.NoError(t, err)

	inst, ok := c.lookup(TagGeneralAssistant)
	require.True(t, ok)
	assert.False(t, inst.HasText())
}

func TestLoadCatalog_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"missing tag", "personas:\n  - text: hi\n", "tag is required"},
		{"text and file", "personas:\n  - tag: a\n    text: x\n    file: y.txt\n", "mutually exclusive"},
		{"missing file", "personas:\n  - tag: a\n    file: nope.txt\n", "failed to read instruction file"},
		{"unknown default", "default: ghost\n", "default persona ghost"},
		{"bad yaml", "personas: [", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCatalog(t, t.TempDir(), tt.content)
			_, err := LoadCatalog(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestResolver_ReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, "personas:\n  - tag: a\n    text: first\n")

	r := newTestResolver(t, Config{CatalogPath: path})
	inst, err := r.Resolve("a")
	require.NoError(t, err)
	assert.Equal(t, "first", inst.Text)

	writeCatalog(t, dir, "personas: [")
	assert.Error(t, r.Reload())

	inst, err = r.Resolve("a")
	require.NoError(t, err)
	assert.Equal(t, "first", inst.Text)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, "personas:\n  - tag: a\n    text: first\n")

	r := newTestResolver(t, Config{CatalogPath: path})
	w, err := NewWatcher(r, 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	writeCatalog(t, dir, "personas:\n  - tag: a\n    text: second\n")

	select {
	case <-w.Reloaded():
	case <-time.After(5 * time.Second):
		t.Fatal("catalog was not reloaded")
	}

	inst, err := r.Resolve("a")
	require.NoError(t, err)
	assert.Equal(t, "second", inst.Text)
}

func TestNewWatcher_RequiresCatalogFile(t *testing.T) {
	r := newTestResolver(t, Config{})
	_, err := NewWatcher(r, 0)
	assert.Error(t, err)
}
