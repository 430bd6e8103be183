package persona

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/general-assistant.txt
var generalAssistantText string

//go:embed defaults/architect-interview.txt
var architectInterviewText string

// Catalog is an immutable set of persona instructions
type Catalog struct {
	defaultTag string
	entries    map[string]Instruction
	aliases    map[string]string
}

// DefaultCatalog returns the personas that ship with the binary. The legacy
// mode names chat-libre and arquitecto are accepted as aliases.
func DefaultCatalog() *Catalog {
	return &Catalog{
		defaultTag: TagGeneralAssistant,
		entries: map[string]Instruction{
			TagGeneralAssistant: {
				Tag:  TagGeneralAssistant,
				Text: strings.TrimRight(generalAssistantText, "\n"),
			},
			TagArchitectInterview: {
				Tag:  TagArchitectInterview,
				Text: strings.TrimRight(architectInterviewText, "\n"),
			},
		},
		aliases: map[string]string{
			"chat-libre": TagGeneralAssistant,
			"arquitecto": TagArchitectInterview,
		},
	}
}

// catalogFile is the on-disk overlay format
type catalogFile struct {
	Default  string        `yaml:"default"`
	Personas []personaFile `yaml:"personas"`
}

type personaFile struct {
	Tag          string   `yaml:"tag"`
	Text         string   `yaml:"text"`
	File         string   `yaml:"file"`
	TokenProfile string   `yaml:"token_profile"`
	Aliases      []string `yaml:"aliases"`
}

// LoadCatalog reads a YAML catalog and overlays it on the defaults. Text
// files are resolved relative to the catalog's directory.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse persona catalog %s: %w", path, err)
	}

	c := DefaultCatalog()
	dir := filepath.Dir(path)

	for i, p := range file.Personas {
		if p.Tag == "" {
			return nil, fmt.Errorf("persona %d: tag is required", i)
		}
		if p.Text != "" && p.File != "" {
			return nil, fmt.Errorf("persona %s: text and file are mutually exclusive", p.Tag)
		}

		text := p.Text
		if p.File != "" {
			textPath := p.File
			if !filepath.IsAbs(textPath) {
				textPath = filepath.Join(dir, textPath)
			}
			raw, err := os.ReadFile(textPath)
			if err != nil {
				return nil, fmt.Errorf("persona %s: failed to read instruction file: %w", p.Tag, err)
			}
			text = strings.TrimRight(string(raw), "\n")
		}

		c.entries[p.Tag] = Instruction{Tag: p.Tag, Text: text, TokenProfile: p.TokenProfile}
		for _, alias := range p.Aliases {
			c.aliases[alias] = p.Tag
		}
	}

	if file.Default != "" {
		c.defaultTag = file.Default
	}
	if _, ok := c.lookup(c.defaultTag); !ok {
		return nil, fmt.Errorf("default persona %s is not defined", c.defaultTag)
	}

	return c, nil
}

// lookup resolves aliases and returns the instruction for tag
func (c *Catalog) lookup(tag string) (Instruction, bool) {
	if canonical, ok := c.aliases[tag]; ok {
		tag = canonical
	}
	inst, ok := c.entries[tag]
	return inst, ok
}

// Default returns the tag used for requests that name no persona
func (c *Catalog) Default() string {
	return c.defaultTag
}

// Tags returns the canonical persona tags, sorted
func (c *Catalog) Tags() []string {
	tags := make([]string, 0, len(c.entries))
	for tag := range c.entries {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Instructions returns every instruction, sorted by tag
func (c *Catalog) Instructions() []Instruction {
	out := make([]Instruction, 0, len(c.entries))
	for _, tag := range c.Tags() {
		out = append(out, c.entries[tag])
	}
	return out
}
