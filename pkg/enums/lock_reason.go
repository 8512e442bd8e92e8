package enums

import "fmt"

// LockReason tags the booking that latched the guest count.
type LockReason string

const (
	LockReasonVenue           LockReason = "venue"
	LockReasonPlanner         LockReason = "planner"
	LockReasonCatering        LockReason = "catering"
	LockReasonDessert         LockReason = "dessert"
	LockReasonVenueCatering   LockReason = "venue_catering"
	LockReasonFinalSubmission LockReason = "final_submission"
)

var validLockReasons = []LockReason{
	LockReasonVenue,
	LockReasonPlanner,
	LockReasonCatering,
	LockReasonDessert,
	LockReasonVenueCatering,
	LockReasonFinalSubmission,
}

var lockReasonLabels = map[LockReason]string{
	LockReasonVenue:           "your venue booking",
	LockReasonPlanner:         "your planner booking",
	LockReasonCatering:        "your Yum Yum catering booking",
	LockReasonDessert:         "your Yum Yum dessert booking",
	LockReasonVenueCatering:   "your venue's in-house catering",
	LockReasonFinalSubmission: "your final guest count submission",
}

// String implements fmt.Stringer.
func (r LockReason) String() string {
	return string(r)
}

// Label names the booking behind the lock in customer facing copy.
func (r LockReason) Label() string {
	if label, ok := lockReasonLabels[r]; ok {
		return label
	}
	return string(r)
}

// IsValid reports whether the value is a known LockReason.
func (r LockReason) IsValid() bool {
	for _, candidate := range validLockReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseLockReason converts raw input into a LockReason.
func ParseLockReason(value string) (LockReason, error) {
	for _, candidate := range validLockReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lock reason %q", value)
}

var moduleLockReasons = map[BoutiqueModule]LockReason{
	ModuleVenue:       LockReasonVenue,
	ModulePlanner:     LockReasonPlanner,
	ModuleYumCatering: LockReasonCatering,
	ModuleYumDessert:  LockReasonDessert,
}

// LockReasonFor returns the reason a paid booking of module latches the guest
// count with. Modules that do not price per guest return false.
func (m BoutiqueModule) LockReasonFor() (LockReason, bool) {
	reason, ok := moduleLockReasons[m]
	return reason, ok
}
