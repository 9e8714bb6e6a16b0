package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Manager owns the local database and the repositories built on it.
type Manager struct {
	db       *bun.DB
	sessions *ProviderSessions
}

// Open opens the sqlite database at dsn (":memory:" or a file path) and
// creates the schema.
func Open(ctx context.Context, dsn, projectID, slot string) (*Manager, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps :memory: alive
	sqldb.SetMaxOpenConns(1)

	m := NewManager(bun.NewDB(sqldb, sqlitedialect.New()), projectID, slot)
	if err := m.Migrate(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

// NewManager wraps an existing connection.
func NewManager(db *bun.DB, projectID, slot string) *Manager {
	return &Manager{
		db:       db,
		sessions: NewProviderSessions(db, projectID, slot),
	}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}
	if m.sessions == nil {
		return errors.New("repository sessions should be initialized")
	}
	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// Migrate creates missing tables.
func (m *Manager) Migrate(ctx context.Context) error {
	_, err := m.db.NewCreateTable().
		Model((*ProviderSessionModel)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create provider_sessions: %w", err)
	}
	return nil
}

func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m *Manager) Sessions() *ProviderSessions {
	return m.sessions
}

func (m *Manager) Close() error {
	return m.db.Close()
}
