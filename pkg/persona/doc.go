// Package persona resolves persona tags to the fixed instruction text that
// guides the backend for a conversation.
//
// Invariants:
// - Instructions are immutable once loaded; a reload swaps the whole catalog.
// - Unknown tags fail with UnknownPersonaError under PolicyStrict.
//
// Usage:
//
//	resolver, _ := persona.NewResolver(persona.Config{Policy: persona.PolicyStrict})
//	inst, _ := resolver.Resolve("architect-interview")
//	_ = inst.Text
package persona
