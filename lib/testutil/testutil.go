package testutil

import (
	"database/sql"
	"testing"

	"gradeway-backend/lib/telemetry"

	_ "modernc.org/sqlite"
)

type ServiceParams struct {
	Name     string
	DbSchema string
}

type Setup struct {
	DB *sql.DB
}

// SetupService provides the boilerplate every service test needs: slog
// and telemetry initialized once, plus an in-memory database with the
// service's schema applied.
func SetupService(t *testing.T, params ServiceParams) (Setup, func()) {
	cleanupTelemetry := telemetry.SetupForTesting("test:" + params.Name)

	database, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if params.DbSchema != "" {
		_, err = database.Exec(params.DbSchema)
		if err != nil {
			t.Fatal(err)
		}
	}

	return Setup{DB: database}, func() {
		database.Close()
		cleanupTelemetry()
	}
}
