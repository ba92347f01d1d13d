package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soaringjerry/Tally/internal/models"
)

// PostgresStore keeps the same documents as SQLiteStore in jsonb columns.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	if url == "" {
		return nil, errors.New("TALLY_DATABASE_URL is required")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// EnsureSchema creates the tables if they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
CREATE TABLE IF NOT EXISTS surveys (
	id text primary key,
	title text not null,
	created_at timestamptz not null,
	document jsonb not null
);

CREATE TABLE IF NOT EXISTS responses (
	seq bigserial unique,
	id text primary key,
	survey_id text not null references surveys(id) on delete cascade,
	user_email text,
	submitted_at timestamptz not null,
	time_expired boolean not null default false,
	document jsonb not null
);

CREATE INDEX IF NOT EXISTS responses_survey_submitted_idx ON responses(survey_id, submitted_at desc);
`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) CreateSurvey(ctx context.Context, sv *models.Survey) error {
	doc, err := json.Marshal(sv)
	if err != nil {
		return fmt.Errorf("encode survey: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO surveys (id, title, created_at, document) VALUES ($1,$2,$3,$4)`,
		sv.ID, sv.Title, sv.CreatedAt, doc)
	return err
}

func (s *PostgresStore) UpdateSurvey(ctx context.Context, sv *models.Survey) (bool, error) {
	doc, err := json.Marshal(sv)
	if err != nil {
		return false, fmt.Errorf("encode survey: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE surveys SET title=$1, document=$2 WHERE id=$3`, sv.Title, doc, sv.ID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) GetSurvey(ctx context.Context, id string) (*models.Survey, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM surveys WHERE id=$1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sv models.Survey
	if err := json.Unmarshal(doc, &sv); err != nil {
		return nil, fmt.Errorf("decode survey %s: %w", id, err)
	}
	return &sv, nil
}

func (s *PostgresStore) ListSurveys(ctx context.Context) ([]*models.Survey, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, document FROM surveys ORDER BY created_at desc, id asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*models.Survey{}
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		var sv models.Survey
		if err := json.Unmarshal(doc, &sv); err != nil {
			log.Printf("postgres store: decode survey %s: %v", id, err)
			continue
		}
		out = append(out, &sv)
	}
	return out, rows.Err()
}

// DeleteSurvey counts and removes the survey in one transaction; responses go with it
// through the foreign key cascade.
func (s *PostgresStore) DeleteSurvey(ctx context.Context, id string) (int, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback(ctx)
	var n int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM responses WHERE survey_id=$1`, id).Scan(&n); err != nil {
		return 0, false, err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM surveys WHERE id=$1`, id)
	if err != nil {
		return 0, false, err
	}
	if tag.RowsAffected() == 0 {
		return 0, false, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (s *PostgresStore) SaveResponse(ctx context.Context, r *models.Response) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	var email *string
	if r.UserEmail != "" {
		email = &r.UserEmail
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO responses (id, survey_id, user_email, submitted_at, time_expired, document)
VALUES ($1,$2,$3,$4,$5,$6)`,
		r.ID, r.SurveyID, email, r.SubmittedAt, r.TimeExpired, doc)
	return err
}

func (s *PostgresStore) ListResponses(ctx context.Context, surveyID string) ([]*models.Response, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, document FROM responses WHERE survey_id=$1 ORDER BY submitted_at desc, seq desc`, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*models.Response{}
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		var r models.Response
		if err := json.Unmarshal(doc, &r); err != nil {
			log.Printf("postgres store: decode response %s: %v", id, err)
			continue
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
