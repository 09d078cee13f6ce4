package models

import "time"

// Profile is a browser profile directory owned by one session slot
type Profile struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	SeedPath  string    `json:"-"` // archive the directory was seeded from, if any
	CreatedAt time.Time `json:"createdAt"`
}
