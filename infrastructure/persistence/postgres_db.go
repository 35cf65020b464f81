package persistence

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"newsroom/infrastructure/configuration"

	_ "github.com/lib/pq"
)

// NewPostgreSQLDB opens the primary store and verifies connectivity.
func NewPostgreSQLDB() (*sql.DB, error) {
	cfg := configuration.C.Database.Psql
	if cfg.Host == "" {
		return nil, fmt.Errorf("postgres host not configured")
	}

	q := url.Values{}
	q.Set("sslmode", cfg.SSLMode)
	u := &url.URL{Scheme: "postgres", Host: fmt.Sprintf("%s:%s", cfg.Host, cfg.Port), Path: "/" + cfg.Name}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	u.RawQuery = q.Encode()

	db, err := sql.Open("postgres", u.String())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
