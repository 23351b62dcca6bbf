package db

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/ruleblocks/internal/execution"
	"github.com/solatis/ruleblocks/internal/types"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := Open("sqlite://" + filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func migratedStore(t *testing.T) *Store {
	t.Helper()
	database := openTestDB(t)
	if _, err := MigrateUp(database); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	store, err := NewStore(database)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"unsupported scheme", "mysql://localhost/db", true},
		{"sqlite without path", "sqlite://", true},
		{"malformed url", "://nope", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database, err := Open(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if database != nil {
				database.Close()
			}
		})
	}

	t.Run("sqlite file", func(t *testing.T) {
		database := openTestDB(t)
		if database.DriverName() != DriverSQLite {
			t.Errorf("expected driver %s, got %s", DriverSQLite, database.DriverName())
		}
	})
}

func TestDataSource(t *testing.T) {
	tests := []struct {
		url        string
		wantDriver string
		wantDSN    string
	}{
		{"sqlite://runs.db", DriverSQLite, "runs.db?" + sqliteParams},
		{"sqlite://data/runs.db", DriverSQLite, "data/runs.db?" + sqliteParams},
		{"sqlite:///var/lib/runs.db", DriverSQLite, "/var/lib/runs.db?" + sqliteParams},
		{"postgres://app@localhost:5432/rb?sslmode=disable", DriverPostgres, "postgres://app@localhost:5432/rb?sslmode=disable"},
		{"postgresql://localhost/rb", DriverPostgres, "postgresql://localhost/rb"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			driver, dsn, err := dataSource(tt.url)
			if err != nil {
				t.Fatalf("dataSource(%q) error = %v", tt.url, err)
			}
			if driver != tt.wantDriver || dsn != tt.wantDSN {
				t.Errorf("dataSource(%q) = %s %s, want %s %s", tt.url, driver, dsn, tt.wantDriver, tt.wantDSN)
			}
		})
	}
}

func TestMigrations(t *testing.T) {
	database := openTestDB(t)

	if err := RequireMigrations(database); err == nil {
		t.Fatal("expected pending migrations before MigrateUp")
	}

	applied, err := MigrateUp(database)
	if err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if applied == 0 {
		t.Fatal("expected at least one migration applied")
	}

	again, err := MigrateUp(database)
	if err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}
	if again != 0 {
		t.Errorf("expected no migrations on second run, got %d", again)
	}

	statuses, err := MigrateStatus(database)
	if err != nil {
		t.Fatalf("MigrateStatus failed: %v", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			t.Errorf("migration %s not applied", s.ID)
		}
		if s.AppliedAt == nil {
			t.Errorf("migration %s has no applied_at", s.ID)
		}
	}

	if err := RequireMigrations(database); err != nil {
		t.Errorf("RequireMigrations after MigrateUp: %v", err)
	}

	t.Run("checksum mismatch", func(t *testing.T) {
		if _, err := database.Exec("UPDATE migrations SET checksum = 'tampered'"); err != nil {
			t.Fatal(err)
		}
		if _, err := MigrateUp(database); err == nil {
			t.Error("expected checksum validation error")
		}
	})
}

func TestSplitStatements(t *testing.T) {
	script := "-- leading comment\nCREATE TABLE a (x INTEGER);\n\n-- another\nCREATE INDEX i ON a (x);\n"
	got := splitStatements(script)
	want := []string{"CREATE TABLE a (x INTEGER)", "CREATE INDEX i ON a (x)"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitStatements = %q, want %q", got, want)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := migratedStore(t)
	ctx := context.Background()

	errs := []execution.ErrorEntry{
		{Name: "sku", BlockIndex: 3, Value: "x", Code: types.CodeIsInt, Template: types.MsgIsInt},
		{Name: "lines", BlockIndex: 7, Value: nil, Code: types.CodeCountBetween, Template: types.MsgCountBetween, Params: []any{1, 50}},
	}
	report := NewRunReport("order", "bafkrei-test", false, errs)

	if err := store.SaveRun(ctx, report); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := store.GetRun(ctx, report.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.RuleSet != "order" || got.Fingerprint != "bafkrei-test" || got.OK {
		t.Errorf("unexpected run header %+v", got)
	}
	if got.ErrorCount != 2 || len(got.Errors) != 2 {
		t.Fatalf("expected 2 errors, got count=%d len=%d", got.ErrorCount, len(got.Errors))
	}
	if !got.CreatedAt.Equal(report.CreatedAt.Truncate(time.Microsecond)) {
		t.Errorf("created_at %v, want %v", got.CreatedAt, report.CreatedAt)
	}

	first := got.Errors[0]
	if first.Name != "sku" || first.BlockIndex != 3 || first.Code != types.CodeIsInt || first.Value != "x" {
		t.Errorf("unexpected first error %+v", first)
	}
	second := got.Errors[1]
	if second.Value != nil {
		t.Errorf("expected nil value, got %v", second.Value)
	}
	// JSON decoding yields float64 numbers
	if !reflect.DeepEqual(second.Params, []any{float64(1), float64(50)}) {
		t.Errorf("unexpected params %v", second.Params)
	}
}

func TestStoreGetRunNotFound(t *testing.T) {
	store := migratedStore(t)

	_, err := store.GetRun(context.Background(), types.NewRunID())
	if !errors.Is(err, types.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestStoreListRuns(t *testing.T) {
	store := migratedStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	sets := []string{"sku", "flag", "sku", "sku"}
	for i, name := range sets {
		r := NewRunReport(name, "fp", true, nil)
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun %d failed: %v", i, err)
		}
	}

	tests := []struct {
		name    string
		ruleSet string
		limit   int
		want    int
	}{
		{"all", "", 0, 4},
		{"filtered", "sku", 10, 3},
		{"limited", "sku", 2, 2},
		{"unknown set", "order", 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := store.ListRuns(ctx, tt.ruleSet, tt.limit)
			if err != nil {
				t.Fatalf("ListRuns failed: %v", err)
			}
			if len(runs) != tt.want {
				t.Fatalf("expected %d runs, got %d", tt.want, len(runs))
			}
			for i := 1; i < len(runs); i++ {
				if runs[i].CreatedAt.After(runs[i-1].CreatedAt) {
					t.Errorf("runs not newest first at %d", i)
				}
			}
			for _, r := range runs {
				if r.Errors != nil {
					t.Errorf("ListRuns should not load errors")
				}
			}
		})
	}
}

func TestEncodeJSON(t *testing.T) {
	got, err := encodeJSON(make(chan int))
	if err != nil {
		t.Fatalf("encodeJSON failed: %v", err)
	}
	if got == "" || got[0] != '"' {
		t.Errorf("expected quoted fallback, got %s", got)
	}
}
