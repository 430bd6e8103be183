package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFamily(t *testing.T) {
	tests := []struct {
		id       string
		expected Family
	}{
		{"anthropic.claude-3-haiku-20240307-v1:0", FamilyClaude},
		{"anthropic.claude-3-5-sonnet-20241022-v2:0", FamilyClaude},
		{"us.anthropic.claude-3-5-sonnet-20241022-v2:0", FamilyClaude},
		{"amazon.nova-pro-v1:0", FamilyNova},
		{"eu.amazon.nova-lite-v1:0", FamilyNova},
		{"amazon.titan-text-express-v1", FamilyTitan},
		{"meta.llama3-70b-instruct-v1:0", FamilyGeneric},
		{"anthropic.other", FamilyGeneric},
		{"", FamilyGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveFamily(tt.id))
		})
	}
}

func TestFamily_CanParse(t *testing.T) {
	assert.True(t, FamilyClaude.CanParse())
	assert.True(t, FamilyNova.CanParse())
	assert.True(t, FamilyTitan.CanParse())
	assert.False(t, FamilyGeneric.CanParse())
}

func TestFamily_RawLastTurn(t *testing.T) {
	assert.True(t, FamilyTitan.RawLastTurn())
	assert.False(t, FamilyClaude.RawLastTurn())
	assert.False(t, FamilyNova.RawLastTurn())
	assert.False(t, FamilyGeneric.RawLastTurn())
}

func TestFor_SelectsAdapter(t *testing.T) {
	assert.Equal(t, FamilyClaude, For("anthropic.claude-v2", StandardProfile).Family())
	assert.Equal(t, FamilyNova, For("amazon.nova-micro-v1:0", StandardProfile).Family())
	assert.Equal(t, FamilyTitan, For("amazon.titan-text-lite-v1", StandardProfile).Family())
	assert.Equal(t, FamilyGeneric, For("cohere.command-r-v1:0", StandardProfile).Family())
}

func TestProfileByName(t *testing.T) {
	p, err := ProfileByName("")
	require.NoError(t, err)
	assert.Equal(t, StandardProfile, p)

	p, err = ProfileByName("compact")
	require.NoError(t, err)
	assert.Equal(t, 4000, p.MaxTokens)

	_, err = ProfileByName("huge")
	assert.Error(t, err)
	assert.Equal(t, []string{"compact", "standard"}, ProfileNames())
}

func TestModels_FamiliesResolved(t *testing.T) {
	for _, m := range Models {
		assert.NotEqual(t, "generic", m.Family, m.ID)
	}

	m, ok := LookupModel(DefaultModelID)
	require.True(t, ok)
	assert.Equal(t, "claude", m.Family)

	_, ok = LookupModel("nope")
	assert.False(t, ok)
}
