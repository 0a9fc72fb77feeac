package storage

import (
	"testing"

	"github.com/kuhlman-labs/sonar-collector/internal/config"
)

func TestNewDialectDialer(t *testing.T) {
	tests := []struct {
		name    string
		dbType  string
		wantErr bool
	}{
		{"sqlite", "sqlite", false},
		{"postgres", DBTypePostgres, false},
		{"postgresql", DBTypePostgreSQL, false},
		{"sqlserver", "sqlserver", false},
		{"mssql", "mssql", false},
		{"unknown", "mysql", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DatabaseConfig{
				Type: tt.dbType,
				DSN:  "test-dsn",
			}

			dialer, err := NewDialectDialer(cfg)

			if tt.wantErr {
				if err == nil {
					t.Error("NewDialectDialer() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("NewDialectDialer() unexpected error: %v", err)
				return
			}

			if dialer == nil {
				t.Error("NewDialectDialer() returned nil dialer")
			}
		})
	}
}

func TestSQLiteDialect_Dialect(t *testing.T) {
	d := &SQLiteDialect{cfg: config.DatabaseConfig{DSN: "test.db"}}

	dialector := d.Dialect()

	if dialector == nil {
		t.Error("Dialect() returned nil")
	}
}

func TestSQLiteDialect_Dialect_WithExistingParams(t *testing.T) {
	d := &SQLiteDialect{cfg: config.DatabaseConfig{DSN: "test.db?mode=memory"}}

	dialector := d.Dialect()

	if dialector == nil {
		t.Error("Dialect() returned nil")
	}
}

func TestSQLiteDialect_Dialect_WithExistingParseTime(t *testing.T) {
	d := &SQLiteDialect{cfg: config.DatabaseConfig{DSN: "test.db?_parseTime=true"}}

	dialector := d.Dialect()

	if dialector == nil {
		t.Error("Dialect() returned nil")
	}
}

func TestPostgresDialect_Dialect(t *testing.T) {
	d := &PostgresDialect{cfg: config.DatabaseConfig{DSN: "postgresql://test"}}

	dialector := d.Dialect()

	if dialector == nil {
		t.Error("Dialect() returned nil")
	}
}

func TestSQLServerDialect_Dialect(t *testing.T) {
	d := &SQLServerDialect{cfg: config.DatabaseConfig{DSN: "sqlserver://test"}}

	dialector := d.Dialect()

	if dialector == nil {
		t.Error("Dialect() returned nil")
	}
}
