package main

import (
	"database/sql"
	"flag"
	"log"
	"os"

	_ "github.com/lib/pq"
	"github.com/saviobatista/adsb-tracker/internal/db/migrations"
)

func main() {
	dbURL := flag.String("db", os.Getenv("DB_CONN_STR"), "Database connection string")
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	flag.Parse()

	if *dbURL == "" {
		log.Printf("Database connection string required (-db flag or DB_CONN_STR)")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Printf("Failed to ping database: %v", err)
		os.Exit(1)
	}

	migrator := migrations.New(db)

	if *rollback {
		if err := migrator.Rollback(migrations.All()); err != nil {
			log.Printf("Failed to rollback migration: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := migrator.Migrate(migrations.All()); err != nil {
		log.Printf("Failed to apply migrations: %v", err)
		os.Exit(1)
	}
}
