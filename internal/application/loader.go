package application

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/structured-trts/sentenca/internal/domain"
)

// ConfigLoader parses and validates run configurations. Struct tags cover
// field-level constraints; semantic checks cover the relationships between
// sections that tags cannot express.
type ConfigLoader struct {
	validator *validator.Validate
}

// NewConfigLoader creates a loader with the validation rules registered.
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{validator: validator.New()}
}

// LoadFromFile reads, parses, and validates a configuration file.
func (cl *ConfigLoader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return cl.load(data)
}

// LoadFromReader parses and validates a configuration from any reader.
func (cl *ConfigLoader) LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return cl.load(data)
}

func (cl *ConfigLoader) load(data []byte) (*Config, error) {
	config, err := cl.parseYAML(data)
	if err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := cl.validator.Struct(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := cl.validateSemantics(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// parseYAML decodes in strict mode so configuration typos fail instead of
// being silently ignored.
func (cl *ConfigLoader) parseYAML(data []byte) (*Config, error) {
	var config Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &config, nil
}

// validateSemantics enforces the cross-section rules: model names must be
// unique, every model's provider must be configured, and the claim
// vocabulary must build.
func (cl *ConfigLoader) validateSemantics(config *Config) error {
	seen := make(map[string]struct{}, len(config.Models))
	for _, m := range config.Models {
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("duplicate model name %q", m.Name)
		}
		seen[m.Name] = struct{}{}

		if _, ok := config.Providers[m.Provider]; !ok {
			return fmt.Errorf("model %q references provider %q which has no providers entry", m.Name, m.Provider)
		}
	}

	for name := range config.Providers {
		switch name {
		case "openai", "anthropic", "google", "groq":
		default:
			return fmt.Errorf("unknown provider %q in providers section", name)
		}
	}

	if _, err := domain.NewVocabulary(config.ClaimVocabulary); err != nil {
		return fmt.Errorf("invalid claim vocabulary: %w", err)
	}

	return nil
}

// PromptTemplate returns the template text for the run: the contents of the
// configured file, or the fallback when no path is set.
func (c *Config) PromptTemplate(fallback string) (string, error) {
	if c.Prompt.TemplatePath == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(filepath.Clean(c.Prompt.TemplatePath))
	if err != nil {
		return "", fmt.Errorf("failed to read prompt template: %w", err)
	}
	return string(data), nil
}
