package persona

import "fmt"

const (
	TagGeneralAssistant   = "general-assistant"
	TagArchitectInterview = "architect-interview"
)

// Policy decides what happens when a tag is not in the catalog
type Policy string

const (
	// PolicyStrict fails unknown tags with UnknownPersonaError
	PolicyStrict Policy = "strict"
	// PolicyFallback resolves unknown tags to the default persona
	PolicyFallback Policy = "fallback"
)

// ParsePolicy validates a policy name. Empty selects PolicyStrict.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyFallback:
		return PolicyFallback, nil
	default:
		return "", fmt.Errorf("invalid persona policy: %s (must be: strict, fallback)", s)
	}
}

// Instruction is the instruction text bound to a persona tag. Empty Text means
// the persona sends no instruction.
type Instruction struct {
	Tag          string `json:"tag" yaml:"tag"`
	Text         string `json:"-" yaml:"-"`
	TokenProfile string `json:"tokenProfile,omitempty" yaml:"token_profile"`
}

// HasText reports whether the persona carries instruction text
func (i Instruction) HasText() bool {
	return i.Text != ""
}

// UnknownPersonaError is returned for tags missing from the catalog
type UnknownPersonaError struct {
	Tag string
}

func (e *UnknownPersonaError) Error() string {
	return fmt.Sprintf("unknown persona: %s", e.Tag)
}
