package llms

import (
	"fmt"

	"github.com/clio-ai/clio/pkg/config"
)

// NewProvider builds the provider named by the config.
func NewProvider(cfg *config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "", providerMistral:
		return NewMistralProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
