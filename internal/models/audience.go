package models

import "time"

// Audience is a named, frozen set of property IDs captured from a filter
// result. Audiences live in per-session memory only and are never written
// back to disk.
type Audience struct {
	Name        string    `json:"name"`
	PropertyIDs []string  `json:"property_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

// Size returns the number of properties in the audience.
func (a *Audience) Size() int {
	return len(a.PropertyIDs)
}

// Contains reports whether the audience holds the given property ID.
func (a *Audience) Contains(id string) bool {
	for _, pid := range a.PropertyIDs {
		if pid == id {
			return true
		}
	}
	return false
}

// IDSet returns the audience's property IDs as a set for fast exclusion
// checks during filtering.
func (a *Audience) IDSet() map[string]struct{} {
	set := make(map[string]struct{}, len(a.PropertyIDs))
	for _, pid := range a.PropertyIDs {
		set[pid] = struct{}{}
	}
	return set
}
