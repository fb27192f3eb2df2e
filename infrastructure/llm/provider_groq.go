package llm

const (
	// GroqDefaultModel is used when no model is configured.
	GroqDefaultModel = "llama-3.3-70b-versatile"

	// GroqDefaultBaseURL is Groq's OpenAI-compatible endpoint.
	GroqDefaultBaseURL = "https://api.groq.com/openai/v1"
)

func init() {
	RegisterProviderFactory("groq", newGroqProvider)
}

// newGroqProvider creates a provider for Groq's API. Groq speaks the OpenAI
// chat completion protocol, so this reuses the OpenAI-compatible provider
// with Groq's endpoint as the default base URL.
func newGroqProvider(config ClientConfig) (CoreLLM, error) {
	if config.BaseURL == "" {
		config.BaseURL = GroqDefaultBaseURL
	}
	return newOpenAICompatibleProvider("groq", GroqDefaultModel, config)
}
