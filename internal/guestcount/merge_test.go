package guestcount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wedanddone/wedanddone-backend/pkg/enums"
)

func TestMerge(t *testing.T) {
	earlier := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	later := earlier.Add(48 * time.Hour)

	tests := []struct {
		name        string
		guest       State
		account     State
		wantValue   int
		wantReasons []enums.LockReason
	}{
		{
			name:        "empty account takes guest value",
			guest:       State{Value: 80, UpdatedAt: earlier},
			account:     State{Value: 0, UpdatedAt: later},
			wantValue:   80,
			wantReasons: []enums.LockReason{},
		},
		{
			name:        "empty guest keeps account value",
			guest:       State{Value: 0, UpdatedAt: later},
			account:     State{Value: 120, UpdatedAt: earlier},
			wantValue:   120,
			wantReasons: []enums.LockReason{},
		},
		{
			name:        "newer guest value wins",
			guest:       State{Value: 95, UpdatedAt: later},
			account:     State{Value: 120, UpdatedAt: earlier},
			wantValue:   95,
			wantReasons: []enums.LockReason{},
		},
		{
			name:        "newer account value wins",
			guest:       State{Value: 95, UpdatedAt: earlier},
			account:     State{Value: 120, UpdatedAt: later},
			wantValue:   120,
			wantReasons: []enums.LockReason{},
		},
		{
			name:        "reasons union",
			guest:       State{Value: 50, LockReasons: []enums.LockReason{enums.LockReasonVenue, enums.LockReasonDessert}, UpdatedAt: earlier},
			account:     State{Value: 60, LockReasons: []enums.LockReason{enums.LockReasonDessert, enums.LockReasonPlanner}, UpdatedAt: later},
			wantValue:   60,
			wantReasons: []enums.LockReason{enums.LockReasonDessert, enums.LockReasonPlanner, enums.LockReasonVenue},
		},
		{
			name:        "locked account ignores newer guest value",
			guest:       State{Value: 200, UpdatedAt: later},
			account:     State{Value: 120, LockReasons: []enums.LockReason{enums.LockReasonVenue}, UpdatedAt: earlier},
			wantValue:   120,
			wantReasons: []enums.LockReason{enums.LockReasonVenue},
		},
		{
			name:        "locked account keeps an unset value",
			guest:       State{Value: 80, UpdatedAt: later},
			account:     State{Value: 0, LockReasons: []enums.LockReason{enums.LockReasonPlanner}, UpdatedAt: earlier},
			wantValue:   0,
			wantReasons: []enums.LockReason{enums.LockReasonPlanner},
		},
		{
			name:        "locked guest value beats newer unlocked account",
			guest:       State{Value: 90, LockReasons: []enums.LockReason{enums.LockReasonCatering}, UpdatedAt: earlier},
			account:     State{Value: 140, UpdatedAt: later},
			wantValue:   90,
			wantReasons: []enums.LockReason{enums.LockReasonCatering},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Merge(tc.guest, tc.account)
			assert.Equal(t, tc.wantValue, got.Value)
			assert.Equal(t, tc.wantReasons, got.LockReasons)
			assert.Equal(t, len(tc.wantReasons) > 0, got.Locked)
			assert.True(t, got.UpdatedAt.Equal(later))
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-5))
	assert.Equal(t, 0, Clamp(0))
	assert.Equal(t, 137, Clamp(137))
	assert.Equal(t, 250, Clamp(250))
	assert.Equal(t, 250, Clamp(9999))
}
