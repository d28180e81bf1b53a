package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"meetings-service/internal/schedule"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	name          VARCHAR(30) NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS meetings (
	id          BIGSERIAL PRIMARY KEY,
	creator_id  BIGINT NOT NULL REFERENCES users(id),
	start_ts    BIGINT NOT NULL,
	end_ts      BIGINT NOT NULL,
	description VARCHAR(200),
	is_private  BOOLEAN NOT NULL DEFAULT FALSE,
	repeat_type VARCHAR(20) NOT NULL DEFAULT 'none',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS invitations (
	meeting_id BIGINT NOT NULL REFERENCES meetings(id),
	invitee_id BIGINT NOT NULL REFERENCES users(id),
	answer     BOOLEAN,
	PRIMARY KEY (meeting_id, invitee_id)
);
CREATE INDEX IF NOT EXISTS invitations_invitee_idx ON invitations (invitee_id);
CREATE INDEX IF NOT EXISTS meetings_creator_idx ON meetings (creator_id);
`

const pgMeetingColumns = `m.id, m.creator_id, u.name, m.start_ts, m.end_ts, m.description, m.is_private, m.repeat_type`

type Postgres struct {
	DB *pgxpool.Pool
}

func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}
	return &Postgres{DB: pool}, nil
}

func (p *Postgres) Close() {
	p.DB.Close()
}

func (p *Postgres) CreateUser(ctx context.Context, name, passwordHash string) (*User, error) {
	// Check if the name is taken
	var existingID int64
	err := p.DB.QueryRow(ctx, `SELECT id FROM users WHERE name=$1`, name).Scan(&existingID)
	if err == nil {
		return nil, fmt.Errorf("user %q: %w", name, ErrAlreadyExists)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	u := &User{Name: name, PasswordHash: passwordHash}
	q := `INSERT INTO users (name, password_hash) VALUES ($1,$2) RETURNING id`
	if err := p.DB.QueryRow(ctx, q, name, passwordHash).Scan(&u.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("user %q: %w", name, ErrAlreadyExists)
		}
		return nil, err
	}
	return u, nil
}

func (p *Postgres) UserByName(ctx context.Context, name string) (*User, error) {
	u := &User{}
	err := p.DB.QueryRow(ctx, `SELECT id, name, password_hash FROM users WHERE name=$1`, name).
		Scan(&u.ID, &u.Name, &u.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (p *Postgres) CreateMeeting(ctx context.Context, m *Meeting, inviteeIDs []int64) error {
	tx, err := p.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	q := `INSERT INTO meetings (creator_id, start_ts, end_ts, description, is_private, repeat_type)
	      VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`
	err = tx.QueryRow(ctx, q,
		m.CreatorID, m.Start, m.End, m.Description, m.IsPrivate, string(m.Repetition()),
	).Scan(&m.ID)
	if err != nil {
		return err
	}

	for _, id := range uniqueIDs(inviteeIDs) {
		if _, err := tx.Exec(ctx,
			`INSERT INTO invitations (meeting_id, invitee_id) VALUES ($1,$2)`, m.ID, id); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (p *Postgres) MeetingByID(ctx context.Context, id int64) (*Meeting, error) {
	q := `SELECT ` + pgMeetingColumns + `
	      FROM meetings m JOIN users u ON u.id = m.creator_id
	      WHERE m.id=$1`
	rows, err := p.DB.Query(ctx, q, id)
	if err != nil {
		return nil, err
	}
	meetings, err := p.collectMeetings(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(meetings) == 0 {
		return nil, fmt.Errorf("meeting %d: %w", id, ErrNotFound)
	}
	return &meetings[0], nil
}

func (p *Postgres) Invitation(ctx context.Context, meetingID, inviteeID int64) (*Invitation, error) {
	inv := &Invitation{}
	q := `SELECT i.meeting_id, i.invitee_id, u.name, i.answer
	      FROM invitations i JOIN users u ON u.id = i.invitee_id
	      WHERE i.meeting_id=$1 AND i.invitee_id=$2`
	err := p.DB.QueryRow(ctx, q, meetingID, inviteeID).
		Scan(&inv.MeetingID, &inv.InviteeID, &inv.InviteeName, &inv.Answer)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("invitation %d/%d: %w", meetingID, inviteeID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (p *Postgres) SetInvitationAnswer(ctx context.Context, meetingID, inviteeID int64, answer bool) error {
	res, err := p.DB.Exec(ctx,
		`UPDATE invitations SET answer=$1 WHERE meeting_id=$2 AND invitee_id=$3`,
		answer, meetingID, inviteeID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("invitation %d/%d: %w", meetingID, inviteeID, ErrNotFound)
	}
	return nil
}

func (p *Postgres) MeetingsForUsers(ctx context.Context, userIDs []int64, start int64) ([]Meeting, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	q := `SELECT ` + pgMeetingColumns + `
	      FROM meetings m JOIN users u ON u.id = m.creator_id
	      WHERE (m.creator_id = ANY($1) OR EXISTS (
	              SELECT 1 FROM invitations i
	              WHERE i.meeting_id = m.id AND i.invitee_id = ANY($1) AND i.answer IS DISTINCT FROM FALSE))
	        AND (m.end_ts > $2 OR m.repeat_type <> 'none')
	      ORDER BY m.id`
	rows, err := p.DB.Query(ctx, q, userIDs, start)
	if err != nil {
		return nil, err
	}
	return p.collectMeetings(ctx, rows)
}

func (p *Postgres) UserMeetingsForRange(ctx context.Context, userID, start, end int64) ([]Meeting, error) {
	q := `SELECT ` + pgMeetingColumns + `
	      FROM meetings m JOIN users u ON u.id = m.creator_id
	      WHERE (m.creator_id = $1 OR EXISTS (
	              SELECT 1 FROM invitations i
	              WHERE i.meeting_id = m.id AND i.invitee_id = $1 AND i.answer IS DISTINCT FROM FALSE))
	        AND m.start_ts < $3
	        AND (m.end_ts > $2 OR m.repeat_type <> 'none')
	      ORDER BY m.start_ts, m.id`
	rows, err := p.DB.Query(ctx, q, userID, start, end)
	if err != nil {
		return nil, err
	}
	return p.collectMeetings(ctx, rows)
}

func (p *Postgres) collectMeetings(ctx context.Context, rows pgx.Rows) ([]Meeting, error) {
	defer rows.Close()

	var out []Meeting
	for rows.Next() {
		var m Meeting
		var repeat string
		if err := rows.Scan(&m.ID, &m.CreatorID, &m.CreatorName, &m.Start, &m.End,
			&m.Description, &m.IsPrivate, &repeat); err != nil {
			return nil, err
		}
		m.Repeat = schedule.RepeatType(repeat)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]int64, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	q := `SELECT i.meeting_id, i.invitee_id, u.name, i.answer
	      FROM invitations i JOIN users u ON u.id = i.invitee_id
	      WHERE i.meeting_id = ANY($1)
	      ORDER BY i.meeting_id, i.invitee_id`
	invRows, err := p.DB.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer invRows.Close()

	var invs []Invitation
	for invRows.Next() {
		var inv Invitation
		if err := invRows.Scan(&inv.MeetingID, &inv.InviteeID, &inv.InviteeName, &inv.Answer); err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	if err := invRows.Err(); err != nil {
		return nil, err
	}
	attachInvitations(out, invs)
	return out, nil
}
