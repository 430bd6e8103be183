package provider

import "strings"

// Family is the closed set of backend wire formats
type Family int

const (
	FamilyGeneric Family = iota
	FamilyClaude
	FamilyNova
	FamilyTitan
)

// familyPrefixes is checked in order; the first match wins.
var familyPrefixes = []struct {
	prefix string
	family Family
}{
	{"anthropic.claude", FamilyClaude},
	{"amazon.nova", FamilyNova},
	{"amazon.titan", FamilyTitan},
}

// Cross-region inference profiles prefix the model id with a geography,
// e.g. "us.anthropic.claude-3-5-sonnet-20241022-v2:0".
var inferenceProfileRegions = []string{"us.", "eu.", "apac.", "us-gov.", "global."}

// ResolveFamily maps a backend identifier to its wire-format family.
func ResolveFamily(backendID string) Family {
	id := stripInferenceProfile(backendID)
	for _, fp := range familyPrefixes {
		if strings.HasPrefix(id, fp.prefix) {
			return fp.family
		}
	}
	return FamilyGeneric
}

func stripInferenceProfile(backendID string) string {
	for _, region := range inferenceProfileRegions {
		if strings.HasPrefix(backendID, region) {
			return strings.TrimPrefix(backendID, region)
		}
	}
	return backendID
}

// String returns the family name used in logs and metrics
func (f Family) String() string {
	switch f {
	case FamilyClaude:
		return "claude"
	case FamilyNova:
		return "nova"
	case FamilyTitan:
		return "titan"
	default:
		return "generic"
	}
}

// CanParse reports whether responses of this family can be normalized.
func (f Family) CanParse() bool {
	return f != FamilyGeneric
}

// RawLastTurn reports whether the family takes a single prompt drawn from
// the last turn of the un-normalized history.
func (f Family) RawLastTurn() bool {
	return f == FamilyTitan
}
