// Package store keeps login challenges and sessions.
//
// Error contract: a missing or expired entry is sentinel.ErrNotFound, a
// second revoke is ErrSessionRevoked, and backend faults wrap
// sentinel.ErrUnavailable.
package store

import (
	"fmt"

	"dim/internal/sentinel"
)

var ErrSessionRevoked = fmt.Errorf("session has been revoked: %w", sentinel.ErrInvalidState)
