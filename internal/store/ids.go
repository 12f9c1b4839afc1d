package store

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns prefix-<uuid>. IDs are generated client-side before any
// remote confirmation, so they must be globally unique across devices, not
// just within one store.
func NewID(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}
