package guestcount

import "github.com/wedanddone/wedanddone-backend/pkg/enums"

// Merge reconciles a guest session's state with an account's at sign-up.
// A locked side keeps its value, the account first: a latched count only
// moves through an approved change request. Otherwise a zero value counts as
// unset and loses to a set one, and when both are set the most recently
// updated wins, ties going to the account. Lock reasons are the union of
// both, account reasons first.
func Merge(guest, account State) State {
	guest = guest.normalized()
	account = account.normalized()

	out := account.Clone()
	switch {
	case account.Locked:
	case guest.Locked:
		out.Value = guest.Value
	case account.Value == 0 && guest.Value != 0:
		out.Value = guest.Value
	case account.Value != 0 && guest.Value != 0 && guest.UpdatedAt.After(account.UpdatedAt):
		out.Value = guest.Value
	}
	for _, reason := range guest.LockReasons {
		if !out.HasReason(reason) {
			out.LockReasons = append(out.LockReasons, reason)
		}
	}
	out.Locked = len(out.LockReasons) > 0
	if guest.UpdatedAt.After(out.UpdatedAt) {
		out.UpdatedAt = guest.UpdatedAt
	}
	if out.LockReasons == nil {
		out.LockReasons = []enums.LockReason{}
	}
	return out
}
