// Package domain contains entity without logic, just meta-data
package domain

import "github.com/google/uuid"

// ConnID identifies one live signaling connection. It is never reused
// while the connection is open.
type ConnID string

// NewConnID is a tiny helper to avoid ad-hoc id generation in adapters.
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}
