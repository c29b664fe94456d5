package rms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"owner_stay/internal/domain"
)

func testClient(t *testing.T, base string) *Client {
	t.Helper()
	return New(base, "test-key", 100, 5*time.Second)
}

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func TestGetAvailability_ParsesWireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("X-API-Key = %q", got)
		}
		q := r.URL.Query()
		if q.Get("cabinId") != "c1" || q.Get("startDate") != "2025-06-01" {
			t.Errorf("query = %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"bookedDates": [
				{"date":"2025-06-20","bookingType":"guest","bookingId":"g1","guestName":"Lena Berg","nights":3},
				{"date":"2025-06-25","bookingType":"owner","bookingId":"ob1"}
			],
			"peakPeriods": [
				{"id":"midsummer","name":"Midsummer","startDate":"2025-06-19","endDate":"2025-06-22"}
			]
		}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	avail, err := c.GetAvailability(context.Background(), "c1",
		mustDay(t, "2025-06-01"), mustDay(t, "2025-07-01"))
	if err != nil {
		t.Fatalf("GetAvailability: %v", err)
	}
	if len(avail.BookedDates) != 2 {
		t.Fatalf("BookedDates = %+v", avail.BookedDates)
	}
	bd := avail.BookedDates[0]
	if bd.BookingType != domain.BookingGuest || !bd.Date.Equal(mustDay(t, "2025-06-20")) {
		t.Fatalf("first booked date = %+v", bd)
	}
	if bd.GuestName == nil || *bd.GuestName != "Lena Berg" {
		t.Fatalf("guest name = %v", bd.GuestName)
	}
	p := avail.PeakPeriods[0]
	if !p.Covers(mustDay(t, "2025-06-22")) {
		t.Fatal("peak end date must be covered (inclusive)")
	}
	if p.Covers(mustDay(t, "2025-06-23")) {
		t.Fatal("day after peak end must not be covered")
	}
}

func TestGet_RetriesTransientFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"bookedDates":[],"peakPeriods":[]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.GetAvailability(context.Background(), "c1",
		mustDay(t, "2025-06-01"), mustDay(t, "2025-07-01"))
	if err != nil {
		t.Fatalf("expected recovery after retries, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("hits = %d, want 3", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.GetOwnerAllowance(context.Background(), "o1", "c1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGet_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.GetOwnerAllowance(context.Background(), "o1", "c1")
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestCreate_FiresExactlyOnceOn5xx(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"database unavailable"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.CreateOwnerBooking(context.Background(), domain.CreateBookingRequest{
		OwnerID: "o1", CabinID: "c1",
		CheckInDate:  mustDay(t, "2025-06-10"),
		CheckOutDate: mustDay(t, "2025-06-14"),
		Guests:       2,
	})
	var rmsErr *domain.RMSError
	if !errors.As(err, &rmsErr) {
		t.Fatalf("err = %v, want *RMSError", err)
	}
	if rmsErr.Message != "database unavailable" {
		t.Fatalf("message = %q, want verbatim RMS error", rmsErr.Message)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("hits = %d, mutations must never retry", got)
	}
}

func TestCreate_Conflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"success":false,"error":"dates no longer available"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	res, err := c.CreateOwnerBooking(context.Background(), domain.CreateBookingRequest{
		OwnerID: "o1", CabinID: "c1",
		CheckInDate:  mustDay(t, "2025-06-10"),
		CheckOutDate: mustDay(t, "2025-06-14"),
		Guests:       2,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if res.Error != "dates no longer available" {
		t.Fatalf("envelope not decoded on conflict: %+v", res)
	}
}

func TestCreate_RuleRejectionIsDataNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body createBookingDTO
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.CheckInDate != "2025-06-10" {
			t.Errorf("checkInDate = %q", body.CheckInDate)
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"success":false,"validationErrors":["exceeds annual day limit"]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	res, err := c.CreateOwnerBooking(context.Background(), domain.CreateBookingRequest{
		OwnerID: "o1", CabinID: "c1",
		CheckInDate:  mustDay(t, "2025-06-10"),
		CheckOutDate: mustDay(t, "2025-06-14"),
		Guests:       2,
	})
	if err != nil {
		t.Fatalf("rule rejection must not be a transport error: %v", err)
	}
	if res.Success {
		t.Fatal("Success should be false")
	}
	if len(res.ValidationErrors) != 1 || res.ValidationErrors[0] != "exceeds annual day limit" {
		t.Fatalf("validation errors = %v", res.ValidationErrors)
	}
}

func TestCreate_TransportFailureIsOutcomeUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := testClient(t, srv.URL)
	_, err := c.CreateOwnerBooking(context.Background(), domain.CreateBookingRequest{
		OwnerID: "o1", CabinID: "c1",
		CheckInDate:  mustDay(t, "2025-06-10"),
		CheckOutDate: mustDay(t, "2025-06-14"),
		Guests:       2,
	})
	if !errors.Is(err, domain.ErrOutcomeUnknown) {
		t.Fatalf("err = %v, want ErrOutcomeUnknown", err)
	}
}

func TestCancel_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bookings/b1/cancel" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"daysReturned":4,
			"booking":{"id":"b1","cabinId":"c1","bookingType":"owner",
			"checkInDate":"2025-06-10","checkOutDate":"2025-06-14","status":"cancelled"}}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	res, err := c.CancelOwnerBooking(context.Background(), domain.CancelBookingRequest{
		BookingID: "b1", OwnerID: "o1",
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !res.Success || res.DaysReturned != 4 {
		t.Fatalf("result = %+v", res)
	}
	if res.Booking == nil || res.Booking.Nights != 4 {
		t.Fatalf("booking = %+v, nights should be derived when omitted", res.Booking)
	}
}

func TestReadOnlyMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bookedDates":[],"peakPeriods":[]}`))
	}))
	defer srv.Close()

	// base URL but no key: availability still works, owner operations refuse
	c := New(srv.URL, "", 100, 5*time.Second)
	if !c.ReadOnly() {
		t.Fatal("client without a key must be read-only")
	}
	if _, err := c.GetAvailability(context.Background(), "c1",
		mustDay(t, "2025-06-01"), mustDay(t, "2025-07-01")); err != nil {
		t.Fatalf("availability should work without a key: %v", err)
	}
	if _, err := c.GetOwnerAllowance(context.Background(), "o1", "c1"); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("allowance err = %v, want ErrNotConfigured", err)
	}
	if _, err := c.CreateOwnerBooking(context.Background(), domain.CreateBookingRequest{}); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("create err = %v, want ErrNotConfigured", err)
	}

	// no base URL at all
	c = New("", "", 100, 0)
	if _, err := c.GetAvailability(context.Background(), "c1",
		mustDay(t, "2025-06-01"), mustDay(t, "2025-07-01")); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("availability err = %v, want ErrNotConfigured", err)
	}
}

func TestRetryAfterHeaderHonored(t *testing.T) {
	var hits int32
	start := time.Now()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"bookedDates":[],"peakPeriods":[]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.GetAvailability(context.Background(), "c1",
		mustDay(t, "2025-06-01"), mustDay(t, "2025-07-01"))
	if err != nil {
		t.Fatalf("GetAvailability: %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Fatalf("retried after %v, expected to honor Retry-After of 1s", elapsed)
	}
}
