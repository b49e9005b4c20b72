package llmclient

import (
	aopt "github.com/anthropics/anthropic-sdk-go/option"
	oopt "github.com/openai/openai-go/option"
)

func anthropicOptions(cfg ProviderConfig) []aopt.RequestOption {
	if cfg.BaseURL == "" {
		return nil
	}
	return []aopt.RequestOption{aopt.WithBaseURL(cfg.BaseURL)}
}

func openAIOptions(cfg ProviderConfig) []oopt.RequestOption {
	if cfg.BaseURL == "" {
		return nil
	}
	return []oopt.RequestOption{oopt.WithBaseURL(cfg.BaseURL)}
}
