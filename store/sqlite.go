// Package store persists sessions and turn records in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tbxark/onboard/agent"
	"github.com/tbxark/onboard/types"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements agent.SessionStore and agent.TurnRecorder.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var (
	_ agent.SessionStore = (*SQLiteStore)(nil)
	_ agent.TurnRecorder = (*SQLiteStore)(nil)
)

// NewSQLite opens (and creates if needed) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		checkpoint TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_state ON sessions(state);

	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		before_position TEXT NOT NULL,
		after_position TEXT NOT NULL,
		kind TEXT NOT NULL,
		reason TEXT,
		utterance TEXT NOT NULL,
		reply TEXT,
		outcome_json TEXT NOT NULL,
		at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, sess *types.Session) error {
	data, err := s.encode(sess)
	if err != nil {
		return err
	}
	query := `INSERT INTO sessions (id, state, checkpoint, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query, sess.ID, string(sess.State), data, sess.CreatedAt.UnixMilli(), sess.UpdatedAt.UnixMilli())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return agent.ErrSessionExists
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*types.Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT checkpoint FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, agent.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return decodeCheckpoint([]byte(data))
}

func (s *SQLiteStore) Put(ctx context.Context, sess *types.Session) error {
	data, err := s.encode(sess)
	if err != nil {
		return err
	}
	query := `UPDATE sessions SET state = ?, checkpoint = ?, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, string(sess.State), data, sess.UpdatedAt.UnixMilli(), sess.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return agent.ErrSessionNotFound
	}
	return nil
}

func (s *SQLiteStore) Record(ctx context.Context, rec types.TurnRecord) error {
	outcome, err := sonic.MarshalString(rec.Outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	var kind, reason string
	if rec.Outcome != nil {
		kind = string(rec.Outcome.Kind)
		reason = string(rec.Outcome.Reason())
	}
	query := `
	INSERT INTO turns (session_id, before_position, after_position, kind, reason, utterance, reply, outcome_json, at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		rec.SessionID, rec.Before.String(), rec.After.String(),
		kind, nullable(reason), rec.Utterance, nullable(rec.Reply),
		outcome, rec.At.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// Turns lists the recorded turns of a session, oldest first.
func (s *SQLiteStore) Turns(ctx context.Context, sessionID string) ([]types.TurnRecord, error) {
	query := `
		SELECT session_id, utterance, reply, outcome_json, at
		FROM turns WHERE session_id = ? ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var out []types.TurnRecord
	for rows.Next() {
		var (
			rec     types.TurnRecord
			reply   sql.NullString
			outcome string
			at      int64
		)
		if err := rows.Scan(&rec.SessionID, &rec.Utterance, &reply, &outcome, &at); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		if err := sonic.UnmarshalString(outcome, &rec.Outcome); err != nil {
			return nil, fmt.Errorf("unmarshal outcome: %w", err)
		}
		if rec.Outcome != nil {
			rec.Before = rec.Outcome.From
			rec.After = rec.Outcome.To
		}
		rec.Reply = reply.String
		rec.At = time.UnixMilli(at).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) encode(sess *types.Session) (string, error) {
	data, err := sonic.MarshalString(types.Checkpoint{
		Version:   types.CheckpointVersion,
		Session:   sess,
		Timestamp: s.now(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	return data, nil
}

func decodeCheckpoint(data []byte) (*types.Session, error) {
	var checkpoint types.Checkpoint
	if err := sonic.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	if checkpoint.Version != types.CheckpointVersion {
		return nil, fmt.Errorf("incompatible checkpoint version: %s (expected %s)", checkpoint.Version, types.CheckpointVersion)
	}
	if checkpoint.Session == nil {
		return nil, errors.New("checkpoint has no session")
	}
	if checkpoint.Session.Vehicles == nil {
		checkpoint.Session.Vehicles = []types.Vehicle{}
	}
	return checkpoint.Session, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
