package db

import (
	"testing"

	"attendance-tracker/internal/platform/config"
)

func TestDSN(t *testing.T) {
	got := DSN(config.DatabaseConfig{Host: "db", Port: 3307, Username: "u", Password: "p", DBName: "attendance"})
	want := "u:p@tcp(db:3307)/attendance?timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC"
	if got != want {
		t.Fatalf("DSN = %q\nwant %q", got, want)
	}
}
