// Package mysql connects to the marketplace's production MySQL database.
// The schema is owned by the marketplace backend, so no migrations run here.
package mysql

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dfryer1193/agromedia/shared/db"
	driver "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
)

const (
	driverName = "mysql"
	maxRetries = 5
)

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewMySQLConfig parses dsn and forces parseTime so timestamps scan into time.Time.
func NewMySQLConfig(dsn string) (*MySQLConfig, error) {
	parsed, err := driver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	parsed.ParseTime = true

	return &MySQLConfig{
		DSN:             parsed.FormatDSN(),
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}, nil
}

type MySQLDB struct {
	cfg   *MySQLConfig
	db    *sql.DB
	sleep func(time.Duration)
}

var _ db.Database = (*MySQLDB)(nil)

func NewMySQLDB(cfg *MySQLConfig) *MySQLDB {
	return &MySQLDB{cfg: cfg, sleep: time.Sleep}
}

// Connect opens the pool, retrying the initial ping with a linear backoff.
func (m *MySQLDB) Connect() error {
	if m.db != nil {
		return fmt.Errorf("database already connected")
	}

	conn, err := sql.Open(driverName, m.cfg.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(m.cfg.MaxOpenConns)
	conn.SetMaxIdleConns(m.cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(m.cfg.ConnMaxLifetime)

	for i := 0; i < maxRetries; i++ {
		if err = conn.Ping(); err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("MySQL ping failed")
		if i < maxRetries-1 {
			m.sleep(time.Second * time.Duration(i+1))
		}
	}
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to ping database after %d attempts: %w", maxRetries, err)
	}

	m.db = conn
	return nil
}

func (m *MySQLDB) Close() error {
	if m.db == nil {
		return nil
	}

	err := m.db.Close()
	m.db = nil
	return err
}

func (m *MySQLDB) DB() *sql.DB {
	return m.db
}

func (m *MySQLDB) Driver() string {
	return driverName
}
