// Package config loads the engine's ambient configuration from the process
// environment into a form the rest of the engine never has to special-case.
package config

import (
	"log"
	"os"
	"sync"
)

// Verbose and Debug gate the two logging tiers used throughout the engine,
// mirroring the teacher's package-global flags set once from the CLI.
var (
	Verbose bool
	Debug   bool

	mu sync.Mutex
)

// DebugLog prints a debug-tier message when Debug is enabled.
func DebugLog(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if Debug {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// VerboseLog prints a verbose-tier message when Verbose (or Debug) is enabled.
func VerboseLog(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if Verbose || Debug {
		log.Printf(format, args...)
	}
}

// EnvConfig holds everything the core reads out of state.config once, at
// process start. The core itself never touches os.Getenv; only this loader
// does.
type EnvConfig struct {
	OpenAIAPIKey string

	AnthropicAPIKey string

	OllamaBaseURL string

	AzureOpenAIBaseURL       string
	AzureOpenAIAPIVersion    string
	AzureOpenAIAPIKey        string
	AzureOpenAIDeploymentName string
	AzureUseManagedIdentity  bool
	AzureClientID            string

	DefaultModel string

	// Missing lists the names of env vars that were unset. Never treated as
	// an error — every field here is optional at the core level.
	Missing []string
}

// Load reads the environment variables named in the spec's external
// interfaces section and returns a populated EnvConfig. It never fails:
// absent variables are recorded in Missing and logged at debug level only.
func Load() *EnvConfig {
	c := &EnvConfig{}

	c.OpenAIAPIKey = c.getenv("OPENAI_API_KEY")
	c.AnthropicAPIKey = c.getenv("ANTHROPIC_API_KEY")
	c.OllamaBaseURL = c.getenv("OLLAMA_BASE_URL")
	c.AzureOpenAIBaseURL = c.getenv("AZURE_OPENAI_BASE_URL")
	c.AzureOpenAIAPIVersion = c.getenv("AZURE_OPENAI_API_VERSION")
	c.AzureOpenAIAPIKey = c.getenv("AZURE_OPENAI_API_KEY")
	c.AzureOpenAIDeploymentName = c.getenv("AZURE_OPENAI_DEPLOYMENT_NAME")
	c.AzureClientID = c.getenv("AZURE_CLIENT_ID")
	c.DefaultModel = c.getenv("DEFAULT_MODEL")

	if v := c.getenv("AZURE_USE_MANAGED_IDENTITY"); v == "true" || v == "1" {
		c.AzureUseManagedIdentity = true
	}

	if c.OllamaBaseURL == "" {
		c.OllamaBaseURL = "http://localhost:11434"
	}

	if len(c.Missing) > 0 {
		DebugLog("[Config] environment variables not set: %v", c.Missing)
	}

	return c
}

func (c *EnvConfig) getenv(name string) string {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		c.Missing = append(c.Missing, name)
		return ""
	}
	return v
}

// ToState returns the key/value pairs Load() produced, in the shape the
// state container's config namespace expects (see utils/state).
func (c *EnvConfig) ToState() map[string]interface{} {
	return map[string]interface{}{
		"openai_api_key":               c.OpenAIAPIKey,
		"anthropic_api_key":            c.AnthropicAPIKey,
		"ollama_base_url":              c.OllamaBaseURL,
		"azure_openai_base_url":        c.AzureOpenAIBaseURL,
		"azure_openai_api_version":     c.AzureOpenAIAPIVersion,
		"azure_openai_api_key":         c.AzureOpenAIAPIKey,
		"azure_openai_deployment_name": c.AzureOpenAIDeploymentName,
		"azure_use_managed_identity":   c.AzureUseManagedIdentity,
		"azure_client_id":              c.AzureClientID,
		"default_model":                c.DefaultModel,
	}
}
