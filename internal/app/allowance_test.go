package app_test

import (
	"testing"
	"time"

	"owner_stay/internal/app"
	"owner_stay/internal/domain"
)

func TestResetMath(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	next, err := app.NextResetDate("01-01", now)
	if err != nil {
		t.Fatalf("NextResetDate: %v", err)
	}
	if !next.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("next = %v, want 2025-01-01", next)
	}

	last, err := app.LastResetDate("01-01", now)
	if err != nil {
		t.Fatalf("LastResetDate: %v", err)
	}
	if !last.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("last = %v, want 2024-01-01", last)
	}
}

func TestResetMath_AnchorlaterThisYear(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	next, _ := app.NextResetDate("07-01", now)
	if !next.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("next = %v, want 2024-07-01", next)
	}
	last, _ := app.LastResetDate("07-01", now)
	if !last.Equal(time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("last = %v, want 2023-07-01", last)
	}
}

func TestResetMath_AnchorToday(t *testing.T) {
	// the anniversary itself counts as passed
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	next, _ := app.NextResetDate("01-01", now)
	if next.Year() != 2025 {
		t.Fatalf("next = %v, want 2025 anchor", next)
	}
	last, _ := app.LastResetDate("01-01", now)
	if last.Year() != 2024 {
		t.Fatalf("last = %v, want 2024 anchor", last)
	}
}

func TestShouldReset(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	due, err := app.ShouldReset(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), "01-01", now)
	if err != nil || !due {
		t.Fatalf("expected reset due, got due=%v err=%v", due, err)
	}

	due, err = app.ShouldReset(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "01-01", now)
	if err != nil || due {
		t.Fatalf("expected no reset, got due=%v err=%v", due, err)
	}
}

func TestNormalize_InvariantHolds(t *testing.T) {
	cases := []domain.OwnerBookingAllowance{
		{DaysLimit: 180, DaysUsed: 0},
		{DaysLimit: 180, DaysUsed: 73, DaysRemaining: 999}, // inconsistent input
		{DaysLimit: 180, DaysUsed: 180},
		{DaysLimit: 30, DaysUsed: 12, DaysRemaining: -1},
	}
	for _, c := range cases {
		got := app.Normalize(c)
		if got.DaysUsed+got.DaysRemaining != got.DaysLimit {
			t.Fatalf("invariant broken: %+v", got)
		}
	}
}

func TestApplyReset(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	a := domain.OwnerBookingAllowance{
		OwnerID: "o1", CabinID: "c1", Year: 2024,
		DaysUsed: 140, DaysLimit: 180, DaysRemaining: 40,
		LastResetDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	got, err := app.ApplyReset(a, "01-01", now)
	if err != nil {
		t.Fatalf("ApplyReset: %v", err)
	}
	if got.DaysUsed != 0 || got.DaysRemaining != 180 {
		t.Fatalf("usage not reset: %+v", got)
	}
	if got.DaysUsed+got.DaysRemaining != got.DaysLimit {
		t.Fatalf("invariant broken: %+v", got)
	}
	if got.Year != 2025 || !got.LastResetDate.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("reset boundary wrong: %+v", got)
	}
	if !got.NextResetDate.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("next reset wrong: %+v", got)
	}
}

func TestParseAnchor_Invalid(t *testing.T) {
	for _, bad := range []string{"", "13-01", "01-32", "0101", "jan-01"} {
		if _, err := app.NextResetDate(bad, time.Now()); err == nil {
			t.Fatalf("expected error for anchor %q", bad)
		}
	}
}
