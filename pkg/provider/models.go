package provider

// Model describes a backend model offered to clients
type Model struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Provider          string `json:"provider"`
	Family            string `json:"family"`
	MaxTokens         int    `json:"maxTokens"`
	SupportsStreaming bool   `json:"supportsStreaming"`
}

// DefaultModelID is used when a request does not name a backend
const DefaultModelID = "anthropic.claude-3-haiku-20240307-v1:0"

// Models is the catalog of Bedrock models the router is known to work with.
// Requests are not restricted to it.
var Models = []Model{
	newModel("anthropic.claude-3-5-sonnet-20241022-v2:0", "Claude 3.5 Sonnet v2", "anthropic", 8192, true),
	newModel("anthropic.claude-3-haiku-20240307-v1:0", "Claude 3 Haiku", "anthropic", 4096, true),
	newModel("anthropic.claude-3-sonnet-20240229-v1:0", "Claude 3 Sonnet", "anthropic", 4096, true),
	newModel("amazon.titan-text-premier-v1:0", "Titan Text Premier", "amazon", 32000, false),
	newModel("amazon.titan-text-express-v1", "Titan Text Express", "amazon", 8000, false),
	newModel("amazon.titan-text-lite-v1", "Titan Text Lite", "amazon", 4000, false),
	newModel("amazon.nova-pro-v1:0", "Nova Pro", "amazon", 60000, true),
	newModel("amazon.nova-lite-v1:0", "Nova Lite", "amazon", 300000, true),
	newModel("amazon.nova-micro-v1:0", "Nova Micro", "amazon", 128000, true),
}

func newModel(id, name, vendor string, maxTokens int, streaming bool) Model {
	return Model{
		ID:                id,
		Name:              name,
		Provider:          vendor,
		Family:            ResolveFamily(id).String(),
		MaxTokens:         maxTokens,
		SupportsStreaming: streaming,
	}
}

// LookupModel returns the catalog entry for id
func LookupModel(id string) (Model, bool) {
	for _, m := range Models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}
