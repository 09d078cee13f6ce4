package models

import "fmt"

// SiteEntry is one input site of an analysis run
type SiteEntry struct {
	Site      string `json:"site"`
	SiteIndex int    `json:"siteIndex"`
	URL       string `json:"url"`
}

// NewSiteEntries builds one entry per site, keeping input order
func NewSiteEntries(sites []string) []SiteEntry {
	entries := make([]SiteEntry, 0, len(sites))
	for i, site := range sites {
		entries = append(entries, SiteEntry{
			Site:      site,
			SiteIndex: i,
			URL:       fmt.Sprintf("http://%s/", site),
		})
	}
	return entries
}

// SiteStatus summarizes the outcome of one site across all browsers
type SiteStatus struct {
	Site      string                 `json:"site"`
	SiteIndex int                    `json:"siteIndex"`
	Failures  map[BrowserKind]string `json:"failures"`
}
