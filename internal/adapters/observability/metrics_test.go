package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsExposition(t *testing.T) {
	reg := InitRegistry()

	ObserveHTTP("/v1/cabins/{cabinID}/calendar", http.MethodGet, 200, 12*time.Millisecond)
	ObserveExternal("rms", "availability", 200, 40*time.Millisecond)
	ObserveCache("redis", "hit")
	ObserveBooking("create", "success")

	srv := httptest.NewServer(MetricsHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	out := string(body)

	for _, want := range []string{
		"ownerstay_http_requests_total",
		"ownerstay_rms_requests_total",
		"ownerstay_cache_events_total",
		"ownerstay_booking_outcomes_total",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %s", want)
		}
	}
}
