package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"

	"meetings-service/internal/schedule"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS meetings (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	creator_id  INTEGER NOT NULL REFERENCES users(id),
	start_ts    INTEGER NOT NULL,
	end_ts      INTEGER NOT NULL,
	description TEXT,
	is_private  BOOLEAN NOT NULL DEFAULT 0,
	repeat_type TEXT NOT NULL DEFAULT 'none',
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS invitations (
	meeting_id INTEGER NOT NULL REFERENCES meetings(id),
	invitee_id INTEGER NOT NULL REFERENCES users(id),
	answer     BOOLEAN,
	PRIMARY KEY (meeting_id, invitee_id)
);
CREATE INDEX IF NOT EXISTS invitations_invitee_idx ON invitations (invitee_id);
CREATE INDEX IF NOT EXISTS meetings_creator_idx ON meetings (creator_id);
`

const sqliteMeetingColumns = `m.id, m.creator_id, u.name, m.start_ts, m.end_ts, m.description, m.is_private, m.repeat_type`

// SQLite backs the service with a single-file (or in-memory) database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens path, creating parent directories as needed. ":memory:"
// gives a private database that lives as long as the store.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps :memory: databases shared and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() {
	s.db.Close()
}

func (s *SQLite) CreateUser(ctx context.Context, name, passwordHash string) (*User, error) {
	u := &User{Name: name, PasswordHash: passwordHash}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, password_hash) VALUES (?, ?)`, name, passwordHash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, fmt.Errorf("user %q: %w", name, ErrAlreadyExists)
		}
		return nil, err
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *SQLite) UserByName(ctx context.Context, name string) (*User, error) {
	u := &User{}
	err := s.db.QueryRowContext(ctx, `SELECT id, name, password_hash FROM users WHERE name = ?`, name).
		Scan(&u.ID, &u.Name, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *SQLite) CreateMeeting(ctx context.Context, m *Meeting, inviteeIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO meetings (creator_id, start_ts, end_ts, description, is_private, repeat_type)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.CreatorID, m.Start, m.End, m.Description, m.IsPrivate, string(m.Repetition()))
	if err != nil {
		return err
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	for _, id := range uniqueIDs(inviteeIDs) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO invitations (meeting_id, invitee_id) VALUES (?, ?)`, m.ID, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLite) MeetingByID(ctx context.Context, id int64) (*Meeting, error) {
	meetings, err := s.queryMeetings(ctx, `SELECT `+sqliteMeetingColumns+`
		FROM meetings m JOIN users u ON u.id = m.creator_id
		WHERE m.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(meetings) == 0 {
		return nil, fmt.Errorf("meeting %d: %w", id, ErrNotFound)
	}
	return &meetings[0], nil
}

func (s *SQLite) Invitation(ctx context.Context, meetingID, inviteeID int64) (*Invitation, error) {
	var inv Invitation
	var answer sql.NullBool
	err := s.db.QueryRowContext(ctx, `SELECT i.meeting_id, i.invitee_id, u.name, i.answer
		FROM invitations i JOIN users u ON u.id = i.invitee_id
		WHERE i.meeting_id = ? AND i.invitee_id = ?`, meetingID, inviteeID).
		Scan(&inv.MeetingID, &inv.InviteeID, &inv.InviteeName, &answer)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invitation %d/%d: %w", meetingID, inviteeID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	inv.Answer = nullBool(answer)
	return &inv, nil
}

func (s *SQLite) SetInvitationAnswer(ctx context.Context, meetingID, inviteeID int64, answer bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE invitations SET answer = ? WHERE meeting_id = ? AND invitee_id = ?`,
		answer, meetingID, inviteeID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("invitation %d/%d: %w", meetingID, inviteeID, ErrNotFound)
	}
	return nil
}

func (s *SQLite) MeetingsForUsers(ctx context.Context, userIDs []int64, start int64) ([]Meeting, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	in := placeholders(len(userIDs))
	q := `SELECT ` + sqliteMeetingColumns + `
		FROM meetings m JOIN users u ON u.id = m.creator_id
		WHERE (m.creator_id IN (` + in + `) OR EXISTS (
		        SELECT 1 FROM invitations i
		        WHERE i.meeting_id = m.id AND i.invitee_id IN (` + in + `)
		          AND (i.answer IS NULL OR i.answer <> 0)))
		  AND (m.end_ts > ? OR m.repeat_type <> 'none')
		ORDER BY m.id`
	args := make([]any, 0, 2*len(userIDs)+1)
	for range 2 {
		for _, id := range userIDs {
			args = append(args, id)
		}
	}
	args = append(args, start)
	return s.queryMeetings(ctx, q, args...)
}

func (s *SQLite) UserMeetingsForRange(ctx context.Context, userID, start, end int64) ([]Meeting, error) {
	q := `SELECT ` + sqliteMeetingColumns + `
		FROM meetings m JOIN users u ON u.id = m.creator_id
		WHERE (m.creator_id = ? OR EXISTS (
		        SELECT 1 FROM invitations i
		        WHERE i.meeting_id = m.id AND i.invitee_id = ?
		          AND (i.answer IS NULL OR i.answer <> 0)))
		  AND m.start_ts < ?
		  AND (m.end_ts > ? OR m.repeat_type <> 'none')
		ORDER BY m.start_ts, m.id`
	return s.queryMeetings(ctx, q, userID, userID, end, start)
}

func (s *SQLite) queryMeetings(ctx context.Context, q string, args ...any) ([]Meeting, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var out []Meeting
	for rows.Next() {
		var m Meeting
		var desc sql.NullString
		var repeat string
		if err := rows.Scan(&m.ID, &m.CreatorID, &m.CreatorName, &m.Start, &m.End,
			&desc, &m.IsPrivate, &repeat); err != nil {
			rows.Close()
			return nil, err
		}
		if desc.Valid {
			m.Description = &desc.String
		}
		m.Repeat = schedule.RepeatType(repeat)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// release the only connection before the next query
	rows.Close()
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]any, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	invRows, err := s.db.QueryContext(ctx, `SELECT i.meeting_id, i.invitee_id, u.name, i.answer
		FROM invitations i JOIN users u ON u.id = i.invitee_id
		WHERE i.meeting_id IN (`+placeholders(len(ids))+`)
		ORDER BY i.meeting_id, i.invitee_id`, ids...)
	if err != nil {
		return nil, err
	}
	defer invRows.Close()

	var invs []Invitation
	for invRows.Next() {
		var inv Invitation
		var answer sql.NullBool
		if err := invRows.Scan(&inv.MeetingID, &inv.InviteeID, &inv.InviteeName, &answer); err != nil {
			return nil, err
		}
		inv.Answer = nullBool(answer)
		invs = append(invs, inv)
	}
	if err := invRows.Err(); err != nil {
		return nil, err
	}
	attachInvitations(out, invs)
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nullBool(b sql.NullBool) *bool {
	if !b.Valid {
		return nil
	}
	v := b.Bool
	return &v
}
