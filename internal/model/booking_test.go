package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(h int) time.Time {
	return time.Date(2025, 1, 10, h, 0, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name                 string
		aIn, aOut, bIn, bOut int
		want                 bool
	}{
		{"identical", 10, 12, 10, 12, true},
		{"inside", 10, 14, 11, 12, true},
		{"containing", 11, 12, 10, 14, true},
		{"left partial", 9, 11, 10, 12, true},
		{"right partial", 11, 13, 10, 12, true},
		{"adjacent after", 12, 14, 10, 12, false},
		{"adjacent before", 8, 10, 10, 12, false},
		{"disjoint", 1, 2, 10, 12, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Overlaps(at(tc.aIn), at(tc.aOut), at(tc.bIn), at(tc.bOut))
			assert.Equal(t, tc.want, got)
			// the predicate is symmetric
			assert.Equal(t, tc.want, Overlaps(at(tc.bIn), at(tc.bOut), at(tc.aIn), at(tc.aOut)))
		})
	}
}

func TestOverlapsMatchesIntervalDefinition(t *testing.T) {
	for aIn := 0; aIn < 8; aIn++ {
		for aOut := aIn + 1; aOut <= 8; aOut++ {
			for bIn := 0; bIn < 8; bIn++ {
				for bOut := bIn + 1; bOut <= 8; bOut++ {
					shared := false
					for h := 0; h < 8; h++ {
						if h >= aIn && h < aOut && h >= bIn && h < bOut {
							shared = true
						}
					}
					assert.Equal(t, shared, Overlaps(at(aIn), at(aOut), at(bIn), at(bOut)),
						"[%d,%d) vs [%d,%d)", aIn, aOut, bIn, bOut)
				}
			}
		}
	}
}

func TestBookingOverlapsRange(t *testing.T) {
	b := Booking{CheckIn: at(10), CheckOut: at(12), Status: BookingBooked}
	assert.True(t, b.OverlapsRange(at(11), at(13)))
	assert.False(t, b.OverlapsRange(at(12), at(14)))
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, RoomSuite.Valid())
	assert.False(t, RoomType("penthouse").Valid())
	assert.True(t, PaymentRefunded.Valid())
	assert.False(t, PaymentStatus("void").Valid())
}
