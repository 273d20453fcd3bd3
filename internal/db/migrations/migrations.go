package migrations

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

// Migration is one versioned schema change
type Migration struct {
	ID        string
	Name      string
	UpSQL     string
	DownSQL   string
	CreatedAt time.Time
}

// All lists every migration in apply order
func All() []*Migration {
	return []*Migration{
		InitialSchema,
		RetentionPolicies,
	}
}

// Migrator applies and rolls back migrations
type Migrator struct {
	db *sql.DB
}

// New creates a new Migrator
func New(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// Initialize creates the migrations bookkeeping table
func (m *Migrator) Initialize() error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	_, err := m.db.Exec(query)
	return err
}

// Applied returns the set of migration names already applied
func (m *Migrator) Applied() (map[string]bool, error) {
	rows, err := m.db.Query(`SELECT name FROM migrations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// run executes migration SQL and its bookkeeping update in one
// transaction.
func (m *Migrator) run(migration *Migration, migrationSQL, recordQuery string, recordArgs ...interface{}) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			log.Printf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	if _, err := tx.Exec(migrationSQL); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", migration.Name, err)
	}
	if _, err := tx.Exec(recordQuery, recordArgs...); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", migration.Name, err)
	}
	return tx.Commit()
}

// Apply applies a single migration
func (m *Migrator) Apply(migration *Migration) error {
	return m.run(
		migration,
		migration.UpSQL,
		`INSERT INTO migrations (name) VALUES ($1)`,
		migration.Name,
	)
}

// Revert rolls back a single migration
func (m *Migrator) Revert(migration *Migration) error {
	return m.run(
		migration,
		migration.DownSQL,
		`DELETE FROM migrations WHERE name = $1`,
		migration.Name,
	)
}

// Migrate applies all pending migrations in order
func (m *Migrator) Migrate(migrations []*Migration) error {
	if err := m.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	applied, err := m.Applied()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, migration := range migrations {
		if applied[migration.Name] {
			continue
		}
		if err := m.Apply(migration); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Name, err)
		}
		log.Printf("Applied migration: %s", migration.Name)
	}
	return nil
}

// Rollback rolls back the most recently applied migration
func (m *Migrator) Rollback(migrations []*Migration) error {
	applied, err := m.Applied()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	var last *Migration
	for i := len(migrations) - 1; i >= 0; i-- {
		if applied[migrations[i].Name] {
			last = migrations[i]
			break
		}
	}
	if last == nil {
		return fmt.Errorf("no migrations to rollback")
	}

	if err := m.Revert(last); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", last.Name, err)
	}
	log.Printf("Rolled back migration: %s", last.Name)
	return nil
}
