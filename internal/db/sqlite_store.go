package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soaringjerry/Tally/internal/models"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore persists surveys and responses as JSON documents with a few indexed
// columns for ordering and cascade deletes.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// OpenSQLite opens (creating if needed) the database at path, migrates it and returns
// the store. The caller owns the returned *sql.DB.
func OpenSQLite(path, migrationsDir string) (*SQLiteStore, *sql.DB, error) {
	if path == "" {
		return nil, nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000&_foreign_keys=on", filepath.ToSlash(path))
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := RunMigrations(conn, migrationsDir); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	st, err := NewSQLiteStore(conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return st, conn, nil
}

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		log.Printf("sqlite store: %s: %v", prefix, err)
	}
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func (s *SQLiteStore) CreateSurvey(ctx context.Context, sv *models.Survey) error {
	doc, err := json.Marshal(sv)
	if err != nil {
		return fmt.Errorf("encode survey: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO surveys (id, title, created_at, document) VALUES (?, ?, ?, ?)`,
		sv.ID, sv.Title, formatTime(sv.CreatedAt), string(doc))
	return err
}

func (s *SQLiteStore) UpdateSurvey(ctx context.Context, sv *models.Survey) (bool, error) {
	doc, err := json.Marshal(sv)
	if err != nil {
		return false, fmt.Errorf("encode survey: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE surveys SET title = ?, document = ? WHERE id = ?`, sv.Title, string(doc), sv.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteStore) GetSurvey(ctx context.Context, id string) (*models.Survey, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM surveys WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sv models.Survey
	if err := json.Unmarshal([]byte(doc), &sv); err != nil {
		return nil, fmt.Errorf("decode survey %s: %w", id, err)
	}
	return &sv, nil
}

func (s *SQLiteStore) ListSurveys(ctx context.Context) ([]*models.Survey, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, document FROM surveys ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*models.Survey{}
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		var sv models.Survey
		if err := json.Unmarshal([]byte(doc), &sv); err != nil {
			s.logErr("decode survey "+id, err)
			continue
		}
		out = append(out, &sv)
	}
	return out, rows.Err()
}

// DeleteSurvey removes the survey and its responses in one transaction.
func (s *SQLiteStore) DeleteSurvey(ctx context.Context, id string) (int, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = tx.Rollback() }()
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM responses WHERE survey_id = ?`, id).Scan(&n); err != nil {
		return 0, false, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM responses WHERE survey_id = ?`, id); err != nil {
		return 0, false, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM surveys WHERE id = ?`, id)
	if err != nil {
		return 0, false, err
	}
	if found, _ := res.RowsAffected(); found == 0 {
		return 0, false, nil
	}
	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (s *SQLiteStore) SaveResponse(ctx context.Context, r *models.Response) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	var email sql.NullString
	if r.UserEmail != "" {
		email = sql.NullString{String: r.UserEmail, Valid: true}
	}
	expired := 0
	if r.TimeExpired {
		expired = 1
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO responses (id, survey_id, user_email, submitted_at, time_expired, document) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.SurveyID, email, formatTime(r.SubmittedAt), expired, string(doc))
	return err
}

// ListResponses returns responses newest first; ties keep reverse insertion order.
func (s *SQLiteStore) ListResponses(ctx context.Context, surveyID string) ([]*models.Response, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, document FROM responses WHERE survey_id = ? ORDER BY submitted_at DESC, rowid DESC`, surveyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*models.Response{}
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		var r models.Response
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			s.logErr("decode response "+id, err)
			continue
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
