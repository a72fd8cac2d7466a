// Package datastore talks to the hosted Postgres project that backs the
// dashboard's profiles, project log and settings.
package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// codeInvalidText is Postgres invalid_text_representation. The connectivity
// probe treats it as a live connection.
const codeInvalidText = "22P02"

var ErrNotFound = errors.New("record not found")

type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Email    string `json:"email"`
}

type Project struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	ClientName   string    `json:"client_name"`
	EventType    string    `json:"event_type"`
	EventCode    string    `json:"event_code"`
	InvoiceNo    string    `json:"invoice_number"`
	Amount       string    `json:"amount"`
	Deliverables []string  `json:"deliverables"`
	CreatedAt    time.Time `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetProfile(ctx context.Context, id string) (*Profile, error) {
	query := `
		SELECT id, COALESCE(username, ''), COALESCE(full_name, ''), COALESCE(role, ''), COALESCE(email, '')
		FROM profiles
		WHERE id = $1
	`

	var p Profile
	err := s.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Username, &p.FullName, &p.Role, &p.Email)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// InsertProject adds p to the project log and fills its id and created_at.
func (s *Store) InsertProject(ctx context.Context, p *Project) error {
	query := `
		INSERT INTO projects (name, client_name, event_type, event_code, invoice_number, amount, deliverables)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		p.Name,
		p.ClientName,
		p.EventType,
		p.EventCode,
		p.InvoiceNo,
		p.Amount,
		pq.Array(p.Deliverables),
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// ListProjects returns the newest projects first.
func (s *Store) ListProjects(ctx context.Context, limit int) ([]Project, error) {
	query := `
		SELECT id, name, client_name, event_type, event_code, invoice_number, amount, deliverables, created_at
		FROM projects
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.ClientName,
			&p.EventType,
			&p.EventCode,
			&p.InvoiceNo,
			&p.Amount,
			pq.Array(&p.Deliverables),
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return out, nil
}

func (s *Store) CountProjects(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM projects`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return n, nil
}

// UpdateSettings replaces the settings document for id.
func (s *Store) UpdateSettings(ctx context.Context, id string, settings map[string]any) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE settings SET data = $2, updated_at = now() WHERE id = $1`, id, data)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSettings returns the settings document for id.
func (s *Store) GetSettings(ctx context.Context, id string) (map[string]any, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM settings WHERE id = $1`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	out := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}
	return out, nil
}

// CheckConnection reports whether the store answers queries. An
// invalid-text error still proves the round trip and counts as connected.
func (s *Store) CheckConnection(ctx context.Context) bool {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM profiles`).Scan(&n)
	if err == nil {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeInvalidText {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == codeInvalidText {
		return true
	}
	return false
}
