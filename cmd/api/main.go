package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "owner_stay/internal/adapters/http_server"
	"owner_stay/internal/adapters/observability"
	redisad "owner_stay/internal/adapters/redis"
	"owner_stay/internal/adapters/rms"
	"owner_stay/internal/app"
	"owner_stay/internal/domain"
	"owner_stay/internal/shared"
	mysqlrepo "owner_stay/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// stay ledger is optional; without it, audit rows and allowance resets
	// are skipped but the calendar keeps working
	var ledger domain.StayLedger
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("stay ledger database ok")
		ledger = mysqlrepo.New(db)
	} else {
		log.Warn().Msg("MYSQL_DSN not set; stay ledger disabled")
	}

	// deps
	client := rms.New(cfg.RMSBase, cfg.RMSKey, cfg.RMSRPS, cfg.RMSTimeout)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	cal := app.NewCalendarService(client, cache, ledger, cfg.Rules, cfg.CacheTTL)
	bk := app.NewBookingService(client, cal, ledger)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Cal: cal, Bk: bk, Ledger: ledger})

	log.Info().Str("addr", cfg.HTTPAddr).Bool("read_only", client.ReadOnly()).Msg("owner calendar API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
