// internal/adapters/http_server/handlers.go
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"owner_stay/internal/adapters/observability"
	"owner_stay/internal/app"
	"owner_stay/internal/domain"
)

var validate = validator.New()

type Handlers struct {
	Cal    *app.CalendarService
	Bk     *app.BookingService
	Ledger domain.StayLedger // optional
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/cabins/{cabinID}/calendar", h.getCalendar)
	s.mux.Post("/v1/cabins/{cabinID}/bookings", h.createBooking)
	s.mux.Post("/v1/bookings/{bookingID}/cancel", h.cancelBooking)
	s.mux.Get("/v1/cabins/{cabinID}/ledger", h.listLedger)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// writeError maps the core's error taxonomy onto HTTP. RMS error strings
// pass through verbatim; local validation failures arrive as data, not 5xx.
func writeError(w http.ResponseWriter, err error) {
	var vf *app.ValidationFailedError
	var cw *app.CancelWindowError
	var rmsErr *domain.RMSError

	switch {
	case errors.As(err, &vf):
		writeJSON(w, http.StatusUnprocessableEntity, validationJSON(vf.Result))
	case errors.As(err, &cw):
		writeProblem(w, http.StatusConflict, "Cancellation window closed", cw.Error())
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Dates no longer available", err.Error())
	case errors.Is(err, domain.ErrBusy):
		writeProblem(w, http.StatusConflict, "Request in flight", err.Error())
	case errors.Is(err, domain.ErrNotConfigured):
		writeProblem(w, http.StatusServiceUnavailable, "Owner bookings disabled",
			"owner bookings are unavailable; the calendar is read-only")
	case errors.Is(err, domain.ErrOutcomeUnknown):
		writeProblem(w, http.StatusBadGateway, "Outcome unknown",
			"the reservation system did not confirm the request; the calendar has been refreshed")
	case errors.Is(err, domain.ErrUnavailable):
		writeProblem(w, http.StatusServiceUnavailable, "Reservation system unreachable",
			"please try again in a moment")
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &rmsErr):
		writeProblem(w, http.StatusBadGateway, "Reservation system error",
			rmsErr.Message+" — if this persists, contact support")
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal error", "")
	}
}

// ---- calendar view ----

type allowanceJSON struct {
	Year          int    `json:"year"`
	DaysUsed      int    `json:"daysUsed"`
	DaysLimit     int    `json:"daysLimit"`
	DaysRemaining int    `json:"daysRemaining"`
	LastResetDate string `json:"lastResetDate,omitempty"`
	NextResetDate string `json:"nextResetDate,omitempty"`
}

type dayJSON struct {
	Date      string `json:"date"`
	State     string `json:"state"`
	BookingID string `json:"bookingId,omitempty"`
	PeakID    string `json:"peakId,omitempty"`
}

type calendarResponse struct {
	CabinID    string         `json:"cabinId"`
	From       string         `json:"from"`
	To         string         `json:"to"`
	ReadOnly   bool           `json:"readOnly"`
	FetchedAt  time.Time      `json:"fetchedAt"`
	Allowance  *allowanceJSON `json:"allowance,omitempty"`
	Days       []dayJSON      `json:"days"`
	Validation map[string]any `json:"validation,omitempty"`
}

func (h *Handlers) getCalendar(w http.ResponseWriter, r *http.Request) {
	cabinID := chi.URLParam(r, "cabinID")
	ownerID := r.URL.Query().Get("ownerId")
	if ownerID == "" {
		writeProblem(w, http.StatusBadRequest, "Missing ownerId", "ownerId query parameter is required")
		return
	}

	from, to, err := viewRange(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid date range", err.Error())
		return
	}

	snap, err := h.Cal.Snapshot(r.Context(), ownerID, cabinID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	// optional transient selection, echoed back as day states and a
	// non-committal validation preview
	sel, selErr := selectionFromQuery(r)
	if selErr != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid selection", selErr.Error())
		return
	}

	resp := calendarResponse{
		CabinID:   cabinID,
		From:      domain.DayString(snap.From),
		To:        domain.DayString(snap.To),
		ReadOnly:  snap.ReadOnly,
		FetchedAt: snap.FetchedAt,
	}
	if !snap.ReadOnly {
		resp.Allowance = allowanceToJSON(snap.Allowance)
	}
	for _, ds := range app.DeriveDayStates(snap, time.Now(), sel) {
		resp.Days = append(resp.Days, dayJSON{
			Date:      domain.DayString(ds.Date),
			State:     string(ds.Kind),
			BookingID: ds.BookingID,
			PeakID:    ds.PeakID,
		})
	}
	if sel.Complete() && !snap.ReadOnly {
		v := app.Validate(time.Now(), sel.Start, sel.End, h.Cal.Rules(), snap.Avail, snap.Allowance)
		resp.Validation = validationJSON(v)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---- booking create ----

type createBookingPayload struct {
	OwnerID         string `json:"ownerId" validate:"required"`
	CheckInDate     string `json:"checkInDate" validate:"required,datetime=2006-01-02"`
	CheckOutDate    string `json:"checkOutDate" validate:"required,datetime=2006-01-02"`
	Guests          int    `json:"guests" validate:"required,min=1"`
	SpecialRequests string `json:"specialRequests" validate:"max=2000"`
	StartDate       string `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate         string `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	cabinID := chi.URLParam(r, "cabinID")

	var p createBookingPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := validate.Struct(p); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	checkIn, _ := domain.ParseDate(p.CheckInDate)
	checkOut, _ := domain.ParseDate(p.CheckOutDate)

	from, to := defaultRangeAround(checkIn, p.StartDate, p.EndDate)
	out, err := h.Bk.Create(r.Context(), domain.CreateBookingRequest{
		OwnerID:         p.OwnerID,
		CabinID:         cabinID,
		CheckInDate:     checkIn,
		CheckOutDate:    checkOut,
		Guests:          p.Guests,
		SpecialRequests: p.SpecialRequests,
	}, from, to)
	if err != nil {
		observability.ObserveBooking("create", outcomeLabel(err))
		writeError(w, err)
		return
	}
	observability.ObserveBooking("create", domain.OutcomeSuccess)

	resp := map[string]any{
		"booking": bookingToJSON(out.Booking),
	}
	if len(out.Validation.Warnings) > 0 {
		resp["warnings"] = out.Validation.Warnings
	}
	if out.Snapshot != nil {
		resp["allowance"] = allowanceToJSON(out.Snapshot.Allowance)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ---- booking cancel ----

type cancelBookingPayload struct {
	OwnerID string `json:"ownerId" validate:"required"`
	CabinID string `json:"cabinId" validate:"required"`
	Reason  string `json:"reason" validate:"max=2000"`
}

func (h *Handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")

	var p cancelBookingPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := validate.Struct(p); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}

	today := domain.Day(time.Now())
	out, err := h.Bk.Cancel(r.Context(), domain.CancelBookingRequest{
		BookingID: bookingID,
		OwnerID:   p.OwnerID,
		Reason:    p.Reason,
	}, p.CabinID, today, today.AddDate(0, 0, defaultViewDays))
	if err != nil {
		observability.ObserveBooking("cancel", outcomeLabel(err))
		writeError(w, err)
		return
	}
	observability.ObserveBooking("cancel", domain.OutcomeSuccess)

	resp := map[string]any{
		"success":      true,
		"daysReturned": out.Result.DaysReturned,
	}
	if out.Snapshot != nil {
		// authoritative remaining-days figure comes from the re-fetch, not
		// from daysReturned arithmetic
		resp["allowance"] = allowanceToJSON(out.Snapshot.Allowance)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---- ledger ----

func (h *Handlers) listLedger(w http.ResponseWriter, r *http.Request) {
	if h.Ledger == nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "ledger is not enabled")
		return
	}
	cabinID := chi.URLParam(r, "cabinID")
	ownerID := r.URL.Query().Get("ownerId")
	if ownerID == "" {
		writeProblem(w, http.StatusBadRequest, "Missing ownerId", "ownerId query parameter is required")
		return
	}
	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}

	entries, err := h.Ledger.ListEntries(r.Context(), ownerID, cabinID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		item := map[string]any{
			"id":        e.ID,
			"action":    e.Action,
			"bookingId": e.BookingID,
			"nights":    e.Nights,
			"outcome":   e.Outcome,
			"detail":    e.Detail,
			"createdAt": e.CreatedAt,
		}
		if e.CheckIn != nil {
			item["checkInDate"] = domain.DayString(*e.CheckIn)
		}
		if e.CheckOut != nil {
			item["checkOutDate"] = domain.DayString(*e.CheckOut)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// ---- helpers ----

const defaultViewDays = 365

func viewRange(r *http.Request) (time.Time, time.Time, error) {
	today := domain.Day(time.Now())
	from, to := today, today.AddDate(0, 0, 90)
	var err error
	if s := r.URL.Query().Get("startDate"); s != "" {
		if from, err = domain.ParseDate(s); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if s := r.URL.Query().Get("endDate"); s != "" {
		if to, err = domain.ParseDate(s); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return from, to, nil
}

func selectionFromQuery(r *http.Request) (app.Selection, error) {
	var sel app.Selection
	var err error
	if s := r.URL.Query().Get("selStart"); s != "" {
		if sel.Start, err = domain.ParseDate(s); err != nil {
			return app.Selection{}, err
		}
	}
	if s := r.URL.Query().Get("selEnd"); s != "" {
		if sel.End, err = domain.ParseDate(s); err != nil {
			return app.Selection{}, err
		}
	}
	return sel, nil
}

// defaultRangeAround picks the snapshot window validated against: the
// caller's explicit view range when given, otherwise a year around check-in.
func defaultRangeAround(checkIn time.Time, startDate, endDate string) (time.Time, time.Time) {
	today := domain.Day(time.Now())
	from, to := today, domain.Day(checkIn).AddDate(0, 0, defaultViewDays)
	if startDate != "" {
		if d, err := domain.ParseDate(startDate); err == nil {
			from = d
		}
	}
	if endDate != "" {
		if d, err := domain.ParseDate(endDate); err == nil {
			to = d
		}
	}
	return from, to
}

func allowanceToJSON(a domain.OwnerBookingAllowance) *allowanceJSON {
	out := &allowanceJSON{
		Year:          a.Year,
		DaysUsed:      a.DaysUsed,
		DaysLimit:     a.DaysLimit,
		DaysRemaining: a.DaysRemaining,
	}
	if !a.LastResetDate.IsZero() {
		out.LastResetDate = domain.DayString(a.LastResetDate)
	}
	if !a.NextResetDate.IsZero() {
		out.NextResetDate = domain.DayString(a.NextResetDate)
	}
	return out
}

func bookingToJSON(b domain.RMSBooking) map[string]any {
	return map[string]any{
		"id":           b.ID,
		"cabinId":      b.CabinID,
		"bookingType":  string(b.BookingType),
		"checkInDate":  domain.DayString(b.CheckInDate),
		"checkOutDate": domain.DayString(b.CheckOutDate),
		"nights":       b.Nights,
		"status":       b.Status,
	}
}

func validationJSON(v domain.ValidationResult) map[string]any {
	out := map[string]any{
		"valid":           v.Valid,
		"errors":          v.Errors,
		"warnings":        v.Warnings,
		"nightsRequested": v.NightsRequested,
		"daysRemaining":   v.DaysRemaining,
	}
	if len(v.ConflictingDates) > 0 {
		days := make([]string, 0, len(v.ConflictingDates))
		for _, d := range v.ConflictingDates {
			days = append(days, domain.DayString(d))
		}
		out["conflictingDates"] = days
	}
	return out
}

func outcomeLabel(err error) string {
	if errors.Is(err, domain.ErrConflict) {
		return domain.OutcomeConflict
	}
	var vf *app.ValidationFailedError
	if errors.As(err, &vf) {
		return "rejected"
	}
	return domain.OutcomeError
}
