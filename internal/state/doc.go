// Package state provides filesystem-backed storage implementations.
package state

import "github.com/user/artifactdl/internal/types"

// Compile-time interface compliance checks.
var _ types.PayloadStore = (*FileStore)(nil)
var _ types.PayloadStore = (*BoltStore)(nil)
var _ types.HistoryStore = (*HistoryStore)(nil)
