package client

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore keeps the session in a local SQLite file so it survives
// restarts of the calling program.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path and applies the
// embedded migrations.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migrate session db: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session (id, token, principal_id, identifier, role, display_name, expires_at, saved_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			principal_id = excluded.principal_id,
			identifier = excluded.identifier,
			role = excluded.role,
			display_name = excluded.display_name,
			expires_at = excluded.expires_at,
			saved_at = excluded.saved_at
	`, sess.Token, sess.PrincipalID, sess.Identifier, sess.Role, sess.DisplayName,
		sess.ExpiresAt.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (Session, error) {
	var (
		sess      Session
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT token, principal_id, identifier, role, display_name, expires_at
		FROM session WHERE id = 1
	`).Scan(&sess.Token, &sess.PrincipalID, &sess.Identifier, &sess.Role, &sess.DisplayName, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	sess.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return sess, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
