package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"owner_stay/internal/domain"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	RMSBase     string
	RMSKey      string
	RMSTimeout  time.Duration
	RMSRPS      int
	CacheTTL    time.Duration
	Rules       domain.OwnerBookingRules
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	abool := func(k string, def bool) bool {
		if v := os.Getenv(k); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
		return def
	}

	rules := domain.DefaultRules()
	rules.AnnualDayLimit = atoi("OWNER_ANNUAL_DAY_LIMIT", rules.AnnualDayLimit)
	rules.MinNights = atoi("OWNER_MIN_NIGHTS", rules.MinNights)
	rules.MaxNights = atoi("OWNER_MAX_NIGHTS", rules.MaxNights)
	rules.AdvanceBookingHours = atoi("OWNER_ADVANCE_HOURS", rules.AdvanceBookingHours)
	rules.CancellationHours = atoi("OWNER_CANCELLATION_HOURS", rules.CancellationHours)
	rules.PeakPeriodsBlocked = abool("OWNER_PEAK_BLOCKED", rules.PeakPeriodsBlocked)
	rules.ResetDate = env("OWNER_RESET_DATE", rules.ResetDate)

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", ""),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		RMSBase:     env("RMS_BASE_URL", ""),
		RMSKey:      env("RMS_API_KEY", ""),
		RMSTimeout:  time.Duration(atoi("RMS_TIMEOUT_SECONDS", 30)) * time.Second,
		RMSRPS:      atoi("RMS_RPS", 5),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		Rules:       rules,
	}
	if c.RMSBase == "" || c.RMSKey == "" {
		log.Warn().Msg("RMS_BASE_URL/RMS_API_KEY not set; owner bookings run read-only")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
