// Package provider translates the internal conversation model into the
// request bodies of the Bedrock model families and normalizes their response
// bodies back into plain text.
//
// Invariants:
//   - The family is resolved once per backend id; adapters never re-inspect the id.
//   - Adapters are stateless and safe for concurrent use.
//   - Only the Claude, Nova and Titan families can parse responses. The generic
//     fallback builds requests but fails every parse with UnsupportedBackendError.
//
// Usage:
//
//	adapter := provider.For("amazon.nova-pro-v1:0", provider.StandardProfile)
//	payload, _ := adapter.BuildRequest(msgs, instruction)
//	// ... invoke the backend with payload ...
//	result, _ := adapter.ParseResponse(body)
//	_ = result.Text
package provider
