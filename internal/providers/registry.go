// Package providers implements the LLM backends halcyon can talk to.
// Every supported service exposes an OpenAI-compatible chat-completions
// endpoint, so one HTTP client covers them all.
package providers

// Spec describes one known service: its default endpoint and model.
type Spec struct {
	Name           string
	DefaultAPIBase string
	DefaultModel   string
}

var specs = []Spec{
	{
		Name:           "groq",
		DefaultAPIBase: "https://api.groq.com/openai/v1",
		DefaultModel:   "llama-3.3-70b-versatile",
	},
	{
		Name:           "mistral",
		DefaultAPIBase: "https://api.mistral.ai/v1",
		DefaultModel:   "mistral-large-latest",
	},
	{
		Name:           "openai",
		DefaultAPIBase: "https://api.openai.com/v1",
		DefaultModel:   "gpt-4o-mini",
	},
	{
		Name:           "chutes",
		DefaultAPIBase: "https://llm.chutes.ai/v1",
		DefaultModel:   "deepseek-ai/DeepSeek-V3",
	},
}

// FindByName returns the spec for a service name, or nil.
func FindByName(name string) *Spec {
	for i := range specs {
		if specs[i].Name == name {
			return &specs[i]
		}
	}
	return nil
}

// Names lists all known service names.
func Names() []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.Name
	}
	return out
}
