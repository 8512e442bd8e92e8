package guestcount

import (
	"fmt"
	"strings"

	"github.com/wedanddone/wedanddone-backend/pkg/enums"
)

// ChangeRequestPath is where a locked edit is redirected.
const ChangeRequestPath = "/api/v1/guest-count/change-requests"

// LockedError is returned by SetCount while the count is latched. It is an
// expected outcome: callers surface it and route the couple to a change request.
type LockedError struct {
	Reasons []enums.LockReason
}

func (e *LockedError) Error() string {
	labels := make([]string, 0, len(e.Reasons))
	for _, reason := range e.Reasons {
		labels = append(labels, reason.Label())
	}
	source := "a confirmed booking"
	if len(labels) > 0 {
		source = strings.Join(labels, " and ")
	}
	return fmt.Sprintf("guest count is locked by %s; request a change instead", source)
}

// ReasonStrings returns the raw reason tags for API details.
func (e *LockedError) ReasonStrings() []string {
	out := make([]string, 0, len(e.Reasons))
	for _, reason := range e.Reasons {
		out = append(out, reason.String())
	}
	return out
}
