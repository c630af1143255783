// Package model defines the domain types shared across the monitor.
package model

import "fmt"

// Study is a single posting scraped from an OpsPortal study listing.
// Instances are built fresh each cycle and never mutated after construction.
type Study struct {
	Name          string            `json:"name"`
	URL           string            `json:"url"`
	CategoryID    int               `json:"category_id"`
	CategoryLabel string            `json:"category_label"`
	Details       map[string]string `json:"details,omitempty"`
}

// Identity returns the dedup key for the study. Two studies with the same
// category, name, and URL are the same real-world posting; Details are
// ignored so cosmetic column changes never re-alert.
func (s Study) Identity() string {
	return fmt.Sprintf("%d:%s:%s", s.CategoryID, s.Name, s.URL)
}

// SeenRecord wraps a study with the timestamp of its first detection.
type SeenRecord struct {
	FirstSeen string `json:"first_seen"`
	Study     Study  `json:"study"`
}

// StoreState is the persisted seen-store document.
type StoreState struct {
	Seen      map[string]SeenRecord `json:"seen"`
	LastCheck string                `json:"last_check,omitempty"`
}
