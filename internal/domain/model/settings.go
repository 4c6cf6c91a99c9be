package model

import (
	"fmt"

	"stock-metadata-generator/internal/domain"
)

// GenerationSettings is threaded unchanged through one batch run.
// Word-count ranges are soft targets given to the model; the hard bounds
// live on PlatformConfig.
type GenerationSettings struct {
	TitleWordsMin int `json:"title_words_min" yaml:"title_words_min"`
	TitleWordsMax int `json:"title_words_max" yaml:"title_words_max"`
	DescWordsMin  int `json:"desc_words_min" yaml:"desc_words_min"`
	DescWordsMax  int `json:"desc_words_max" yaml:"desc_words_max"`
	KeywordsMin   int `json:"keywords_min" yaml:"keywords_min"`
	KeywordsMax   int `json:"keywords_max" yaml:"keywords_max"`

	Silhouette            bool `json:"silhouette" yaml:"silhouette"`
	WhiteBackground       bool `json:"white_background" yaml:"white_background"`
	TransparentBackground bool `json:"transparent_background" yaml:"transparent_background"`
	SingleWordKeywords    bool `json:"single_word_keywords" yaml:"single_word_keywords"`
	TitleCase             bool `json:"title_case" yaml:"title_case"`

	CustomPromptEnabled bool   `json:"custom_prompt_enabled" yaml:"custom_prompt_enabled"`
	CustomPrompt        string `json:"custom_prompt" yaml:"custom_prompt"`

	ProhibitedWordsEnabled bool     `json:"prohibited_words_enabled" yaml:"prohibited_words_enabled"`
	ProhibitedWords        []string `json:"prohibited_words" yaml:"prohibited_words"`
}

func DefaultSettings() GenerationSettings {
	return GenerationSettings{
		TitleWordsMin:      8,
		TitleWordsMax:      15,
		DescWordsMin:       12,
		DescWordsMax:       30,
		KeywordsMin:        30,
		KeywordsMax:        49,
		SingleWordKeywords: true,
	}
}

// Validate rejects inverted or negative ranges.
func (s GenerationSettings) Validate() error {
	ranges := []struct {
		name     string
		min, max int
	}{
		{"title words", s.TitleWordsMin, s.TitleWordsMax},
		{"description words", s.DescWordsMin, s.DescWordsMax},
		{"keywords", s.KeywordsMin, s.KeywordsMax},
	}
	for _, r := range ranges {
		if r.min < 0 || r.max <= 0 || r.min > r.max {
			return fmt.Errorf("%w: %s range %d-%d", domain.ErrInvalidArgument, r.name, r.min, r.max)
		}
	}
	return nil
}
