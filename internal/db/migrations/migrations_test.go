package migrations

import (
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestAll_OrderAndCompleteness(t *testing.T) {
	all := All()
	if len(all) != 2 {
		t.Fatalf("Migration count = %d, want 2", len(all))
	}

	expected := []string{"001_initial_schema", "002_retention_policies"}
	for i, migration := range all {
		if migration.Name != expected[i] {
			t.Errorf("Migration[%d] = %s, want %s", i, migration.Name, expected[i])
		}
		if strings.TrimSpace(migration.UpSQL) == "" {
			t.Errorf("Migration %s has empty UpSQL", migration.Name)
		}
		if strings.TrimSpace(migration.DownSQL) == "" {
			t.Errorf("Migration %s has empty DownSQL", migration.Name)
		}
	}
}

func TestInitialSchema_CoversCoreTables(t *testing.T) {
	for _, want := range []string{"observations", "ingest_stats", "session_id", "hex_ident", "altitude_m"} {
		if !strings.Contains(InitialSchema.UpSQL, want) {
			t.Errorf("InitialSchema.UpSQL missing %q", want)
		}
	}
}

func TestMigrator_Initialize(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock DB: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := New(db).Initialize(); err != nil {
		t.Errorf("Initialize() failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestMigrator_MigrateAppliesPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock DB: %v", err)
	}
	defer db.Close()

	migration := &Migration{
		ID:      "099_test",
		Name:    "099_test",
		UpSQL:   "CREATE TABLE test_table (id INT)",
		DownSQL: "DROP TABLE test_table",
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT name FROM migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE test_table").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO migrations").
		WithArgs("099_test").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := New(db).Migrate([]*Migration{migration}); err != nil {
		t.Errorf("Migrate() failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestMigrator_MigrateSkipsApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock DB: %v", err)
	}
	defer db.Close()

	migration := &Migration{
		ID:    "099_test",
		Name:  "099_test",
		UpSQL: "CREATE TABLE test_table (id INT)",
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT name FROM migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("099_test"))

	if err := New(db).Migrate([]*Migration{migration}); err != nil {
		t.Errorf("Migrate() failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestMigrator_RollbackNothingApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock DB: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT name FROM migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	if err := New(db).Rollback(All()); err == nil {
		t.Error("Expected error when no migrations are applied")
	}
}
