package model

import "time"

// NewsSource is a publisher feed. Articles hold a pointer to their source;
// one NewsSource is shared by every article it produced.
type NewsSource struct {
	Name             string     `json:"name" yaml:"name"`
	URL              string     `json:"url" yaml:"url"`
	Category         Category   `json:"category" yaml:"category"`
	ReliabilityScore float64    `json:"reliability_score" yaml:"reliability_score"`
	Language         string     `json:"language,omitempty" yaml:"language"`
	IsActive         bool       `json:"is_active" yaml:"is_active"`
	LastUpdated      *time.Time `json:"last_updated,omitempty" yaml:"-"`
}

// Lang returns the source language, defaulting to English.
func (s *NewsSource) Lang() string {
	if s == nil || s.Language == "" {
		return "en"
	}
	return s.Language
}
