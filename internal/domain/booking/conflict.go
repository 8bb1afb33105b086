package booking

import (
	"context"
	"fmt"
	"strings"

	"rentspace/internal/domain/listings"
	"rentspace/internal/domain/shared/daterange"
	"rentspace/internal/domain/shared/errkind"
)

var ErrConflict = errkind.New(errkind.Conflict, "booking: dates overlap an existing booking")

// OverlapMode selects how range ends are compared.
type OverlapMode string

const (
	// OverlapInclusiveEnd treats the checkout day as occupied: a stay ending on
	// day X collides with one starting on day X.
	OverlapInclusiveEnd OverlapMode = "inclusive"
	// OverlapExclusiveEnd is the half-open rule, same-day turnover allowed.
	OverlapExclusiveEnd OverlapMode = "exclusive"
)

func ParseOverlapMode(raw string) (OverlapMode, error) {
	switch OverlapMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", OverlapInclusiveEnd:
		return OverlapInclusiveEnd, nil
	case OverlapExclusiveEnd:
		return OverlapExclusiveEnd, nil
	default:
		return "", fmt.Errorf("booking: unknown overlap mode %q", raw)
	}
}

// ConflictDetector finds active bookings that collide with a candidate range.
type ConflictDetector struct {
	Mode OverlapMode
}

func NewConflictDetector(mode OverlapMode) ConflictDetector {
	if mode == "" {
		mode = OverlapInclusiveEnd
	}
	return ConflictDetector{Mode: mode}
}

func (d ConflictDetector) Overlaps(a, b daterange.DateRange) bool {
	if d.Mode == OverlapExclusiveEnd {
		return a.Overlaps(b)
	}
	return a.OverlapsInclusive(b)
}

// probe widens the range so that a half-open repository query also returns
// the neighbours touching it under inclusive comparison.
func (d ConflictDetector) probe(r daterange.DateRange) daterange.DateRange {
	if d.Mode == OverlapExclusiveEnd {
		return r
	}
	return r.Widen(1)
}

// Conflicts returns the active bookings colliding with r, ignoring excludeID.
func (d ConflictDetector) Conflicts(ctx context.Context, repo Repository, listingID listings.ListingID, r daterange.DateRange, excludeID BookingID) ([]*Booking, error) {
	candidates, err := repo.FindOverlapping(ctx, listingID, d.probe(r), excludeID)
	if err != nil {
		return nil, err
	}
	var out []*Booking
	for _, b := range candidates {
		if b == nil || !b.IsActive() || (excludeID != "" && b.ID == excludeID) {
			continue
		}
		if d.Overlaps(b.Range, r) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (d ConflictDetector) HasConflict(ctx context.Context, repo Repository, listingID listings.ListingID, r daterange.DateRange, excludeID BookingID) (bool, error) {
	conflicts, err := d.Conflicts(ctx, repo, listingID, r, excludeID)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}

// Ensure returns ErrConflict when r collides with an active booking.
func (d ConflictDetector) Ensure(ctx context.Context, repo Repository, listingID listings.ListingID, r daterange.DateRange, excludeID BookingID) error {
	conflict, err := d.HasConflict(ctx, repo, listingID, r, excludeID)
	if err != nil {
		return err
	}
	if conflict {
		return ErrConflict
	}
	return nil
}
