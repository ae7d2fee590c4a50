// Package session carries the acting viewer's identity.
//
// Identity is an explicit value handed to the engine, never ambient global
// state; swapping viewers goes through the engine's SwitchViewer so all
// per-viewer state is invalidated together.
package session

import "strconv"

// fallbackUserID is used when no viewer was configured at startup.
const fallbackUserID = 1

// Viewer identifies the acting user for REST calls and like bookkeeping.
type Viewer struct {
	UserID   uint
	Username string
}

// DefaultViewer returns the fallback identity used when none is configured.
func DefaultViewer() Viewer {
	return Viewer{UserID: fallbackUserID}
}

// Anonymous reports whether the viewer carries no identity at all.
func (v Viewer) Anonymous() bool {
	return v.UserID == 0
}

// QueryValue renders the user id the way the REST boundary expects it.
func (v Viewer) QueryValue() string {
	return strconv.FormatUint(uint64(v.UserID), 10)
}
