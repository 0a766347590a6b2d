package anthropic

const (
	DefaultBaseURL = "https://api.anthropic.com"
	APIVersion     = "2023-06-01"
)

type Config struct {
	BaseURL string
	APIKey  string
}

func NewConfig(baseURL, apiKey string) Config {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return Config{
		BaseURL: baseURL,
		APIKey:  apiKey,
	}
}
