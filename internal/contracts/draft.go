package contracts

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wedanddone/wedanddone-backend/pkg/enums"
)

// Draft is a contract still being edited in a wizard. A captured signature is
// bound to the plan fingerprint it was drawn against.
type Draft struct {
	Module       enums.BoutiqueModule
	Total        decimal.Decimal
	PayInFull    bool
	LineItems    []string
	SignatureRef string
	Fingerprint  string
}

// SetPayInFull switches between full payment and deposit. Changing the choice
// discards any signature because it was captured for the other plan.
func (d *Draft) SetPayInFull(payInFull bool) {
	if d.PayInFull == payInFull {
		return
	}
	d.PayInFull = payInFull
	d.ClearSignature()
}

// SetTotal changes the total; a different amount also discards the signature.
func (d *Draft) SetTotal(total decimal.Decimal) {
	if d.Total.Equal(total) {
		return
	}
	d.Total = total
	d.ClearSignature()
}

// CaptureSignature records the signature artifact for the plan identified by fingerprint.
func (d *Draft) CaptureSignature(ref, fingerprint string) {
	d.SignatureRef = strings.TrimSpace(ref)
	d.Fingerprint = strings.TrimSpace(fingerprint)
}

func (d *Draft) ClearSignature() {
	d.SignatureRef = ""
	d.Fingerprint = ""
}

// Signed reports whether a signature is attached.
func (d Draft) Signed() bool {
	return d.SignatureRef != "" && d.Fingerprint != ""
}

// SignedFor reports whether the signature belongs to the plan with fingerprint.
func (d Draft) SignedFor(fingerprint string) bool {
	return d.Signed() && d.Fingerprint == fingerprint
}
