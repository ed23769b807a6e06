package models

import (
	"encoding/json"
	"strings"
)

// SearchPage is one page of the registry's add-on search endpoint.
type SearchPage struct {
	Count    int            `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []SearchResult `json:"results"`
}

// SearchResult is the subset of a registry add-on object the pipeline reads.
type SearchResult struct {
	GUID              string         `json:"guid"`
	Slug              string         `json:"slug,omitempty"`
	Name              LocalizedText  `json:"name"`
	AverageDailyUsers int64          `json:"average_daily_users"`
	CurrentVersion    CurrentVersion `json:"current_version"`
}

type CurrentVersion struct {
	Version string      `json:"version"`
	File    VersionFile `json:"file"`
}

type VersionFile struct {
	URL string `json:"url"`
}

// LocalizedText is a per-locale string map. The registry returns a plain
// string instead when a single language was requested; that form is kept
// under the empty key.
type LocalizedText map[string]string

func (t *LocalizedText) UnmarshalJSON(b []byte) error {
	if strings.TrimSpace(string(b)) == "null" {
		*t = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*t = LocalizedText{"": single}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*t = m
	return nil
}

// Pick returns the value for lang, then the untagged value, then fallback.
func (t LocalizedText) Pick(lang, fallback string) string {
	if v := strings.TrimSpace(t[lang]); v != "" {
		return v
	}
	if v := strings.TrimSpace(t[""]); v != "" {
		return v
	}
	return fallback
}
