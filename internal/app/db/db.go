package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens a gorm connection to PostgreSQL, retrying until the
// database is reachable. The container setup starts the database and the
// API at the same time, so the first attempts may fail.
func Connect(dsn string) (*gorm.DB, error) {
	maxRetries := 10
	retryInterval := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		log.Printf("INFO: connecting to database (attempt %d/%d)...", i+1, maxRetries)
		conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			log.Printf("WARNING: failed to open database connection: %v. Retrying in %s...", err, retryInterval)
			time.Sleep(retryInterval)
			continue
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return nil, fmt.Errorf("unwrap sql.DB: %w", err)
		}
		if err := sqlDB.Ping(); err != nil {
			sqlDB.Close()
			log.Printf("WARNING: failed to ping database: %v. Retrying in %s...", err, retryInterval)
			time.Sleep(retryInterval)
			continue
		}

		log.Printf("INFO: connected to database")
		return conn, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d retries", maxRetries)
}
