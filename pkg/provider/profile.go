package provider

import (
	"fmt"
	"sort"
)

// Profile is a named set of generation constants. The constants are fixed per
// profile and never taken from the inbound request.
type Profile struct {
	Name             string  `json:"name"`
	MaxTokens        int     `json:"max_tokens"`
	GenericMaxTokens int     `json:"generic_max_tokens"`
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"top_p"`
}

var (
	// StandardProfile is used by the chat entry point.
	StandardProfile = Profile{
		Name:             "standard",
		MaxTokens:        4096,
		GenericMaxTokens: 4000,
		Temperature:      0.7,
		TopP:             0.9,
	}

	// CompactProfile keeps the 4000 token budget of the architect entry point.
	CompactProfile = Profile{
		Name:             "compact",
		MaxTokens:        4000,
		GenericMaxTokens: 4000,
		Temperature:      0.7,
		TopP:             0.9,
	}
)

var profiles = map[string]Profile{
	StandardProfile.Name: StandardProfile,
	CompactProfile.Name:  CompactProfile,
}

// ProfileByName looks up a named profile. An empty name selects StandardProfile.
func ProfileByName(name string) (Profile, error) {
	if name == "" {
		return StandardProfile, nil
	}
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown token profile: %s (must be one of: %v)", name, ProfileNames())
	}
	return p, nil
}

// ProfileNames returns the known profile names, sorted
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
