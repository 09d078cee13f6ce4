package models

import "fmt"

// BrowserKind identifies one browser configuration under comparison
type BrowserKind string

const (
	BrowserFoxhound    BrowserKind = "foxhound"
	BrowserFirefox     BrowserKind = "firefox"
	BrowserFirefoxNoPS BrowserKind = "firefox-nops"
	BrowserBrave       BrowserKind = "brave"
	BrowserBraveAggr   BrowserKind = "brave-aggr"
)

// BrowserKinds lists every supported kind in roster order
var BrowserKinds = []BrowserKind{
	BrowserFoxhound,
	BrowserFirefox,
	BrowserFirefoxNoPS,
	BrowserBrave,
	BrowserBraveAggr,
}

// ParseBrowserKind validates a kind read from configuration
func ParseBrowserKind(s string) (BrowserKind, error) {
	for _, kind := range BrowserKinds {
		if string(kind) == s {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown browser kind %q", s)
}

// Signature returns the two-letter prefix used in session names (tf1, ff2, ...)
func (k BrowserKind) Signature() string {
	switch k {
	case BrowserFoxhound:
		return "tf"
	case BrowserFirefox:
		return "ff"
	case BrowserFirefoxNoPS:
		return "fx"
	case BrowserBrave:
		return "br"
	case BrowserBraveAggr:
		return "bx"
	}
	return "??"
}

// IsFirefox reports whether the kind is driven through the remote firefox agent
func (k BrowserKind) IsFirefox() bool {
	return k == BrowserFoxhound || k == BrowserFirefox || k == BrowserFirefoxNoPS
}

// RunID names one of the repeated runs of a (site, session) pair
type RunID string

const (
	RunA RunID = "A"
	RunB RunID = "B"
)

// RunIDs lists the runs performed per (site, session) pair
var RunIDs = []RunID{RunA, RunB}
