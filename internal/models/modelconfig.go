package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ModelConfig holds provider and sampling parameters of a mask or of the
// application-wide defaults.
type ModelConfig struct {
	Model                          string  `json:"model" yaml:"model"`
	ProviderName                   string  `json:"providerName" yaml:"provider_name"`
	Temperature                    float64 `json:"temperature" yaml:"temperature"`
	TopP                           float64 `json:"top_p" yaml:"top_p"`
	MaxTokens                      int     `json:"max_tokens" yaml:"max_tokens"`
	PresencePenalty                float64 `json:"presence_penalty" yaml:"presence_penalty"`
	FrequencyPenalty               float64 `json:"frequency_penalty" yaml:"frequency_penalty"`
	SendMemory                     bool    `json:"sendMemory" yaml:"send_memory"`
	HistoryMessageCount            int     `json:"historyMessageCount" yaml:"history_message_count"`
	CompressMessageLengthThreshold int     `json:"compressMessageLengthThreshold" yaml:"compress_message_length_threshold"`
}

// DefaultModelConfig returns the configuration used when nothing else is set.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Model:                          "gpt-4o-mini",
		ProviderName:                   "OpenAI",
		Temperature:                    0.5,
		TopP:                           1,
		MaxTokens:                      4000,
		SendMemory:                     true,
		HistoryMessageCount:            4,
		CompressMessageLengthThreshold: 1000,
	}
}

// Validate checks parameter ranges.
func (c ModelConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&c.TopP, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.MaxTokens, validation.Min(0)),
		validation.Field(&c.PresencePenalty, validation.Min(-2.0), validation.Max(2.0)),
		validation.Field(&c.FrequencyPenalty, validation.Min(-2.0), validation.Max(2.0)),
		validation.Field(&c.HistoryMessageCount, validation.Min(0)),
		validation.Field(&c.CompressMessageLengthThreshold, validation.Min(0)),
	)
}
