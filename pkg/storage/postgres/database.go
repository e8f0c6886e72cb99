package postgres

import (
	"database/sql"
	"fmt"

	"signalcore/config"

	_ "github.com/lib/pq"
)

// CreateDatabase connects to the postgres server and creates the database if
// it doesn't exist.
func CreateDatabase(cfg config.PostgresConfig, env string) error {
	// Connect to the maintenance DB; the target may not exist yet.
	admin := cfg
	admin.DBName = "postgres"
	db, err := sql.Open("postgres", admin.DSN(env))
	if err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	defer db.Close()

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1);`
	if err := db.QueryRow(query, cfg.DBName).Scan(&exists); err != nil {
		return fmt.Errorf("check db exists failed: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE %s", cfg.DBName)); err != nil {
		return fmt.Errorf("create db failed: %w", err)
	}
	return nil
}
