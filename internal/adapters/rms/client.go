// internal/adapters/rms/client.go
package rms

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"owner_stay/internal/adapters/observability"
	"owner_stay/internal/domain"
)

// Client talks to the reservation management system. Reads (availability,
// allowance) retry on 429 and transient 5xx; writes (create, cancel) are
// fired exactly once, because the RMS offers no idempotency key and a blind
// retry could double-book.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

// New builds a client. A missing base URL or API key does not fail
// construction: the client comes up in read-only mode and owner operations
// return ErrNotConfigured, so guest availability can still render.
func New(base, key string, rps int, timeout time.Duration) *Client {
	if rps <= 0 {
		rps = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: timeout},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}
}

func (c *Client) ReadOnly() bool { return c.base == "" || c.key == "" }

// ---- Public API ----

func (c *Client) GetAvailability(ctx context.Context, cabinID string, start, end time.Time) (domain.Availability, error) {
	if c.base == "" {
		return domain.Availability{}, domain.ErrNotConfigured
	}
	url := fmt.Sprintf("%s/availability?cabinId=%s&startDate=%s&endDate=%s",
		c.base, cabinID, domain.DayString(start), domain.DayString(end))
	var out availabilityDTO
	if err := c.get(ctx, "availability", url, &out); err != nil {
		return domain.Availability{}, err
	}
	return out.toDomain()
}

func (c *Client) GetOwnerAllowance(ctx context.Context, ownerID, cabinID string) (domain.OwnerBookingAllowance, error) {
	if c.ReadOnly() {
		return domain.OwnerBookingAllowance{}, domain.ErrNotConfigured
	}
	url := fmt.Sprintf("%s/owner/%s/allowance?cabinId=%s", c.base, ownerID, cabinID)
	var out allowanceDTO
	if err := c.get(ctx, "allowance", url, &out); err != nil {
		return domain.OwnerBookingAllowance{}, err
	}
	return out.toDomain()
}

func (c *Client) CreateOwnerBooking(ctx context.Context, req domain.CreateBookingRequest) (domain.CreateBookingResult, error) {
	if c.ReadOnly() {
		return domain.CreateBookingResult{}, domain.ErrNotConfigured
	}
	body := createBookingDTO{
		OwnerID:         req.OwnerID,
		CabinID:         req.CabinID,
		CheckInDate:     domain.DayString(req.CheckInDate),
		CheckOutDate:    domain.DayString(req.CheckOutDate),
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
	}
	var out mutationEnvelope
	err := c.post(ctx, "create_booking", c.base+"/bookings/owner", body, &out)
	res := domain.CreateBookingResult{
		Success:          out.Success,
		Error:            out.Error,
		ValidationErrors: out.ValidationErrors,
	}
	if out.Booking != nil {
		b, berr := out.Booking.toDomain()
		if berr == nil {
			res.Booking = &b
		}
	}
	return res, err
}

func (c *Client) CancelOwnerBooking(ctx context.Context, req domain.CancelBookingRequest) (domain.CancelBookingResult, error) {
	if c.ReadOnly() {
		return domain.CancelBookingResult{}, domain.ErrNotConfigured
	}
	body := cancelBookingDTO{BookingID: req.BookingID, OwnerID: req.OwnerID, Reason: req.Reason}
	var out mutationEnvelope
	err := c.post(ctx, "cancel_booking", fmt.Sprintf("%s/bookings/%s/cancel", c.base, req.BookingID), body, &out)
	res := domain.CancelBookingResult{
		Success:      out.Success,
		DaysReturned: out.DaysReturned,
		Error:        out.Error,
	}
	if out.Booking != nil {
		b, berr := out.Booking.toDomain()
		if berr == nil {
			res.Booking = &b
		}
	}
	return res, err
}

// ---- Internals ----

// get performs a GET with client-side rate limiting, retries on 429 and
// transient 5xx honoring Retry-After, and decodes JSON into out.
func (c *Client) get(ctx context.Context, endpoint, url string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		c.setHeaders(req)

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("rms", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("rms", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNotFound:
			resp.Body.Close()
			return domain.ErrNotFound

		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return fmt.Errorf("%w: rms rejected credentials (%d)", domain.ErrNotConfigured, resp.StatusCode)

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = &domain.RMSError{Status: resp.StatusCode, Message: fmt.Sprintf("rms returned %d", resp.StatusCode)}
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			return readRMSError(resp)
		}
	}
	return lastErr
}

// post fires a mutation exactly once. Any transport failure after the request
// may have left the socket is reported as ErrOutcomeUnknown: the caller must
// re-fetch rather than assume either outcome.
func (c *Client) post(ctx context.Context, endpoint, url string, body, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("rms", endpoint, 0, time.Since(start))
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", domain.ErrOutcomeUnknown, ctx.Err())
		}
		return fmt.Errorf("%w: %v", domain.ErrOutcomeUnknown, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("rms", endpoint, resp.StatusCode, time.Since(start))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return json.NewDecoder(resp.Body).Decode(out)

	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		// rule rejection with an envelope body; not a transport error
		if derr := json.NewDecoder(resp.Body).Decode(out); derr != nil {
			return &domain.RMSError{Status: resp.StatusCode, Message: "rms rejected the request"}
		}
		return nil

	case http.StatusConflict:
		_ = json.NewDecoder(resp.Body).Decode(out) // best-effort envelope
		return domain.ErrConflict

	case http.StatusNotFound:
		return domain.ErrNotFound

	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: rms rejected credentials (%d)", domain.ErrNotConfigured, resp.StatusCode)

	default:
		return readRMSError(resp)
	}
}

func (c *Client) setHeaders(req *http.Request) {
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "owner-stay/1.0")
}

// readRMSError surfaces the RMS's own error string verbatim when present.
func readRMSError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	var env struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &env) == nil && env.Error != "" {
		return &domain.RMSError{Status: resp.StatusCode, Message: env.Error}
	}
	return &domain.RMSError{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("rms returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b))),
	}
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential delay (200ms, 400ms, 800ms...) with up to
// +50% jitter to avoid thundering herds. crypto/rand keeps it goroutine-safe.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
