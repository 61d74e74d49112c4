// Package state provides filesystem-backed storage implementations.
package state

import "github.com/user/clawrelay/internal/types"

// Compile-time interface compliance checks.
var _ types.ThreadStore = (*ThreadStore)(nil)
var _ types.TraceLog = (*TraceLog)(nil)
var _ types.FingerprintStore = (*FingerprintStore)(nil)
