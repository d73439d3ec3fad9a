package checkpoint

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql

	"github.com/nivelo-ai/leadrouter/pkg/models"
)

//go:embed migrations
var migrationsFS embed.FS

// PostgresConfig holds Postgres connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadPostgresConfigFromEnv loads Postgres configuration from DB_* environment
// variables.
func LoadPostgresConfigFromEnv() (PostgresConfig, error) {
	port, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
	if err != nil {
		return PostgresConfig{}, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maxOpen, _ := strconv.Atoi(getEnvOrDefault("DB_MAX_OPEN_CONNS", "10"))
	maxIdle, _ := strconv.Atoi(getEnvOrDefault("DB_MAX_IDLE_CONNS", "5"))

	return PostgresConfig{
		Host:            getEnvOrDefault("DB_HOST", "localhost"),
		Port:            port,
		User:            getEnvOrDefault("DB_USER", "leadrouter"),
		Password:        os.Getenv("DB_PASSWORD"),
		Database:        getEnvOrDefault("DB_NAME", "leadrouter"),
		SSLMode:         getEnvOrDefault("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}, nil
}

// DSN builds the pgx-compatible connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// PostgresStore persists conversation state as JSONB rows in a single
// conversation_states table. Migrations are embedded and applied on startup.
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewPostgresStore opens a connection pool, applies pending migrations, and
// returns the store. ttl of zero keeps state forever.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, ttl time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db, cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db, ttl: ttl}, nil
}

// NewPostgresStoreFromDB wraps an existing connection pool and applies
// migrations. Useful for tests that manage their own database.
func NewPostgresStoreFromDB(db *sql.DB, dbName string, ttl time.Duration) (*PostgresStore, error) {
	if err := runMigrations(db, dbName); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &PostgresStore{db: db, ttl: ttl}, nil
}

// runMigrations applies pending migrations using golang-migrate with the
// embedded migration files.
func runMigrations(db *sql.DB, dbName string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, dbName, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Close only the source driver. m.Close() would also close the database
	// driver, which closes the shared *sql.DB.
	if err := sourceDriver.Close(); err != nil {
		return fmt.Errorf("close migration source: %w", err)
	}
	return nil
}

// Load implements Store. Rows past their expiry are treated as absent.
func (s *PostgresStore) Load(ctx context.Context, threadID string) (*models.ConversationState, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM conversation_states
		 WHERE thread_id = $1 AND (expires_at IS NULL OR expires_at > now())`,
		threadID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load thread %s: %w", threadID, err)
	}

	var state models.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode thread %s state: %w", threadID, err)
	}
	return &state, nil
}

// Save implements Store via upsert; the single statement is atomic with
// respect to concurrent readers.
func (s *PostgresStore) Save(ctx context.Context, threadID string, state *models.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode thread %s state: %w", threadID, err)
	}

	var expiresAt sql.NullTime
	if s.ttl != 0 {
		expiresAt = sql.NullTime{Time: time.Now().UTC().Add(s.ttl), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversation_states (thread_id, state, updated_at, expires_at)
		 VALUES ($1, $2, now(), $3)
		 ON CONFLICT (thread_id)
		 DO UPDATE SET state = EXCLUDED.state,
		               updated_at = EXCLUDED.updated_at,
		               expires_at = EXCLUDED.expires_at`,
		threadID, data, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("save thread %s: %w", threadID, err)
	}
	return nil
}

// Health implements Store.
func (s *PostgresStore) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SweepExpired implements Sweeper: it deletes rows whose expiry has passed.
func (s *PostgresStore) SweepExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_states WHERE expires_at IS NOT NULL AND expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("sweep expired states: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

// DB exposes the underlying pool for health endpoints and tests.
func (s *PostgresStore) DB() *sql.DB { return s.db }
