package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"owner_stay/internal/domain"
)

// CalendarService produces consistent owner-calendar snapshots. Availability
// and allowance are always fetched together, cached as one value, and only
// ever refreshed from the RMS; nothing in this package patches a snapshot
// locally after a mutation.
type CalendarService struct {
	rms    domain.RMSClient
	cache  domain.Cache
	ledger domain.StayLedger // optional
	rules  domain.OwnerBookingRules
	ttl    time.Duration

	flight singleflight.Group
	now    func() time.Time
}

func NewCalendarService(rms domain.RMSClient, cache domain.Cache, ledger domain.StayLedger, rules domain.OwnerBookingRules, ttl time.Duration) *CalendarService {
	return &CalendarService{rms: rms, cache: cache, ledger: ledger, rules: rules, ttl: ttl, now: time.Now}
}

func (s *CalendarService) Rules() domain.OwnerBookingRules { return s.rules }

// WithClock replaces the wall clock, for tests that freeze time.
func (s *CalendarService) WithClock(now func() time.Time) *CalendarService {
	s.now = now
	return s
}

func snapshotKey(ownerID, cabinID string) string {
	return fmt.Sprintf("snapshot:%s:%s", ownerID, cabinID)
}

// Snapshot returns the merged availability+allowance view for [from, to]
// (inclusive days). Cached reads for a different range count as misses;
// concurrent loads for the same owner/cabin coalesce into one RMS round trip.
func (s *CalendarService) Snapshot(ctx context.Context, ownerID, cabinID string, from, to time.Time) (domain.Snapshot, error) {
	from, to = domain.Day(from), domain.Day(to)
	key := snapshotKey(ownerID, cabinID)

	var cached domain.Snapshot
	if ok, _ := s.cache.Get(ctx, key, &cached); ok && cached.From.Equal(from) && cached.To.Equal(to) {
		return cached, nil
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		snap, err := s.fetch(ctx, ownerID, cabinID, from, to)
		if err != nil {
			return domain.Snapshot{}, err
		}
		_ = s.cache.Set(ctx, key, snap, int(s.ttl.Seconds()))
		return snap, nil
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return v.(domain.Snapshot), nil
}

// Invalidate drops the cached snapshot for one owner/cabin view. Called after
// every successful create/cancel, before the mandatory re-fetch.
func (s *CalendarService) Invalidate(ctx context.Context, ownerID, cabinID string) {
	_ = s.cache.Del(ctx, snapshotKey(ownerID, cabinID))
}

func (s *CalendarService) fetch(ctx context.Context, ownerID, cabinID string, from, to time.Time) (domain.Snapshot, error) {
	now := s.now()

	// availability GET uses an exclusive end on the wire
	avail, err := s.rms.GetAvailability(ctx, cabinID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return domain.Snapshot{}, err
	}

	snap := domain.Snapshot{
		OwnerID:   ownerID,
		CabinID:   cabinID,
		From:      from,
		To:        to,
		Avail:     avail,
		ReadOnly:  s.rms.ReadOnly(),
		FetchedAt: now,
	}

	if snap.ReadOnly {
		// Guest availability still renders; the allowance half is simply
		// absent and every owner action is disabled.
		return snap, nil
	}

	allowance, err := s.rms.GetOwnerAllowance(ctx, ownerID, cabinID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap.Allowance, err = s.reconcileAllowance(ctx, Normalize(allowance), now)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

// reconcileAllowance applies a pending annual reset through the ledger when
// the tracker decides one is due. The RMS copy of the allowance is left
// untouched; the reset is recorded durably and reflected in the snapshot.
func (s *CalendarService) reconcileAllowance(ctx context.Context, a domain.OwnerBookingAllowance, now time.Time) (domain.OwnerBookingAllowance, error) {
	if s.ledger == nil {
		return a, nil
	}

	stored := a.LastResetDate
	if last, ok, err := s.ledger.LastReset(ctx, a.OwnerID, a.CabinID); err == nil && ok && last.After(stored) {
		stored = last
	}

	due, err := ShouldReset(stored, s.rules.ResetDate, now)
	if err != nil || !due {
		return a, err
	}

	reset, err := ApplyReset(a, s.rules.ResetDate, now)
	if err != nil {
		return a, err
	}
	if err := s.ledger.ApplyReset(ctx, a.OwnerID, a.CabinID, reset.LastResetDate); err != nil {
		log.Error().Err(err).
			Str("owner", a.OwnerID).Str("cabin", a.CabinID).
			Msg("allowance reset could not be persisted")
		return a, nil
	}
	log.Info().
		Str("owner", a.OwnerID).Str("cabin", a.CabinID).
		Str("reset_on", domain.DayString(reset.LastResetDate)).
		Msg("annual allowance reset applied")
	return reset, nil
}

// DeriveDayStates computes the render state of every day in the snapshot
// range, first match wins:
// past > guest booked > owner booked > peak blocked > selection > available.
func DeriveDayStates(snap domain.Snapshot, today time.Time, sel Selection) []domain.DayState {
	today = domain.Day(today)
	var out []domain.DayState
	for d := snap.From; !d.After(snap.To); d = d.AddDate(0, 0, 1) {
		ds := domain.DayState{Date: d}
		switch {
		case d.Before(today):
			ds.Kind = domain.DayPast
		default:
			if bd, ok := snap.Avail.BookedOn(d); ok {
				if bd.BookingType == domain.BookingGuest {
					ds.Kind = domain.DayGuestBooked
				} else {
					ds.Kind = domain.DayOwnerBooked
				}
				ds.BookingID = bd.BookingID
				break
			}
			if p, ok := snap.Avail.PeakOn(d); ok {
				ds.Kind = domain.DayPeakBlocked
				ds.PeakID = p.ID
				break
			}
			switch {
			case sel.HasStart() && domain.SameDay(d, sel.Start):
				ds.Kind = domain.DaySelectedStart
			case sel.HasEnd() && domain.SameDay(d, sel.End):
				ds.Kind = domain.DaySelectedEnd
			case sel.Complete() && d.After(sel.Start) && d.Before(sel.End):
				ds.Kind = domain.DayInRange
			default:
				ds.Kind = domain.DayAvailable
			}
		}
		out = append(out, ds)
	}
	return out
}
