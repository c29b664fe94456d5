//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"owner_stay/internal/domain"
	mysqlrepo "owner_stay/internal/storage/mysql"
)

func migrationsDir(t *testing.T) string {
	t.Helper()
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		return dir
	}
	return filepath.Join("..", "..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("migrations dir %s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func TestLedger_MySQL_RecordResetAndList(t *testing.T) {
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=ownerstay",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "ownerstay")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	ctx := context.Background()

	checkIn := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	checkOut := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)

	// Arrange: one create round-trip, one cancel, and a reset-only row
	if err := repo.Record(ctx, domain.LedgerEntry{
		OwnerID: "o1", CabinID: "c1",
		Action: domain.LedgerCreate, BookingID: "b1",
		CheckIn: &checkIn, CheckOut: &checkOut, Nights: 4,
		Outcome: domain.OutcomeSuccess,
	}); err != nil {
		t.Fatalf("Record create: %v", err)
	}
	if err := repo.Record(ctx, domain.LedgerEntry{
		OwnerID: "o1", CabinID: "c1",
		Action: domain.LedgerCancel, BookingID: "b1",
		CheckIn: &checkIn, CheckOut: &checkOut, Nights: 4,
		Outcome: domain.OutcomeConflict, Detail: "already cancelled upstream",
	}); err != nil {
		t.Fatalf("Record cancel: %v", err)
	}
	if err := repo.Record(ctx, domain.LedgerEntry{
		OwnerID: "o1", CabinID: "c1",
		Action: domain.LedgerReset, Outcome: domain.OutcomeSuccess,
	}); err != nil {
		t.Fatalf("Record reset: %v", err)
	}

	// Assert: list is owner/cabin scoped, newest first, limit honored
	entries, err := repo.ListEntries(ctx, "o1", "c1", 10)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	for _, e := range entries {
		if e.ID == "" {
			t.Fatalf("missing generated id: %+v", e)
		}
	}
	var create domain.LedgerEntry
	for _, e := range entries {
		if e.Action == domain.LedgerCreate {
			create = e
		}
	}
	if create.BookingID != "b1" || create.Nights != 4 {
		t.Fatalf("create entry = %+v", create)
	}
	if create.CheckIn == nil || !create.CheckIn.Equal(checkIn) {
		t.Fatalf("check_in round-trip = %v", create.CheckIn)
	}

	if other, err := repo.ListEntries(ctx, "o2", "c1", 10); err != nil || len(other) != 0 {
		t.Fatalf("ListEntries for other owner = %v, %v", other, err)
	}
	if limited, err := repo.ListEntries(ctx, "o1", "c1", 1); err != nil || len(limited) != 1 {
		t.Fatalf("ListEntries limit = %v, %v", limited, err)
	}

	// Resets: none yet, then one, and re-applying the same anniversary is
	// a no-op rather than an error
	if _, ok, err := repo.LastReset(ctx, "o1", "c1"); err != nil || ok {
		t.Fatalf("LastReset before apply = ok=%v err=%v", ok, err)
	}
	resetOn := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.ApplyReset(ctx, "o1", "c1", resetOn); err != nil {
		t.Fatalf("ApplyReset: %v", err)
	}
	if err := repo.ApplyReset(ctx, "o1", "c1", resetOn); err != nil {
		t.Fatalf("ApplyReset twice: %v", err)
	}
	last, ok, err := repo.LastReset(ctx, "o1", "c1")
	if err != nil || !ok {
		t.Fatalf("LastReset: ok=%v err=%v", ok, err)
	}
	if !last.Equal(resetOn) {
		t.Fatalf("LastReset = %v, want %v", last, resetOn)
	}

	// a later anniversary wins
	if err := repo.ApplyReset(ctx, "o1", "c1", resetOn.AddDate(1, 0, 0)); err != nil {
		t.Fatalf("ApplyReset next year: %v", err)
	}
	last, _, _ = repo.LastReset(ctx, "o1", "c1")
	if !last.Equal(resetOn.AddDate(1, 0, 0)) {
		t.Fatalf("LastReset = %v", last)
	}
}
