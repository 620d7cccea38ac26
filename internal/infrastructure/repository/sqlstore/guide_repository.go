package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS study_guides (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	source_key TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	flashcards TEXT NOT NULL DEFAULT '[]',
	artifacts TEXT NOT NULL DEFAULT '{}',
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_study_guides_status_updated ON study_guides(status, updated_at);
`

const selectColumns = `id, filename, mime_type, source_key, summary, flashcards, artifacts, status, error_message, created_at, updated_at`

type GuideRepository struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

func NewGuideRepository(db *sql.DB, driver string) *GuideRepository {
	return &GuideRepository{
		db:     db,
		driver: normalizeDriver(driver),
		now:    time.Now,
	}
}

func (r *GuideRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if r.driver == DriverPostgres {
		// Serialize bootstrap DDL across api/worker startups.
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLock); err != nil {
			return fmt.Errorf("acquire schema lock: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *GuideRepository) Create(ctx context.Context, guide *domain.StudyGuide) error {
	flashcards, artifacts, err := encodeContent(guide.Flashcards, guide.Artifacts)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, rebind(r.driver, `
INSERT INTO study_guides (`+selectColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
`),
		guide.ID, guide.Filename, guide.MimeType, guide.SourceKey, guide.Summary, flashcards, artifacts,
		string(guide.Status), guide.Error, formatTime(guide.CreatedAt), formatTime(guide.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert study guide: %w", err)
	}
	return nil
}

func (r *GuideRepository) GetByID(ctx context.Context, id string) (*domain.StudyGuide, error) {
	row := r.db.QueryRowContext(ctx, rebind(r.driver, `
SELECT `+selectColumns+`
FROM study_guides
WHERE id = ?
`), id)

	guide, err := scanGuide(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.WrapError(domain.ErrNotFound, "get_study_guide", fmt.Errorf("study guide not found: %s", id))
	}
	return guide, err
}

func (r *GuideRepository) LatestReady(ctx context.Context) (*domain.StudyGuide, error) {
	row := r.db.QueryRowContext(ctx, rebind(r.driver, `
SELECT `+selectColumns+`
FROM study_guides
WHERE status = ?
ORDER BY updated_at DESC, created_at DESC
LIMIT 1
`), string(domain.GuideReady))

	guide, err := scanGuide(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.WrapError(domain.ErrNotFound, "latest_study_guide", fmt.Errorf("no processed study guide yet"))
	}
	return guide, err
}

func (r *GuideRepository) UpdateStatus(ctx context.Context, id string, status domain.GuideStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, rebind(r.driver, `
UPDATE study_guides
SET status = ?, error_message = ?, updated_at = ?
WHERE id = ?
`), string(status), errMessage, formatTime(r.now()), id)
	if err != nil {
		return fmt.Errorf("update study guide status: %w", err)
	}
	return ensureAffected(res, "update_study_guide_status", id)
}

func (r *GuideRepository) SaveResult(ctx context.Context, id string, content domain.StudyContent, artifacts map[domain.ArtifactKind]string) error {
	flashcards, artifactsJSON, err := encodeContent(content.Flashcards, artifacts)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, rebind(r.driver, `
UPDATE study_guides
SET summary = ?, flashcards = ?, artifacts = ?, status = ?, error_message = '', updated_at = ?
WHERE id = ?
`), content.Summary, flashcards, artifactsJSON, string(domain.GuideReady), formatTime(r.now()), id)
	if err != nil {
		return fmt.Errorf("save study guide result: %w", err)
	}
	return ensureAffected(res, "save_study_guide_result", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGuide(row rowScanner) (*domain.StudyGuide, error) {
	var (
		guide                       domain.StudyGuide
		status                      string
		flashcardsRaw, artifactsRaw string
		createdAtRaw, updatedAtRaw  string
	)
	err := row.Scan(
		&guide.ID, &guide.Filename, &guide.MimeType, &guide.SourceKey, &guide.Summary,
		&flashcardsRaw, &artifactsRaw, &status, &guide.Error, &createdAtRaw, &updatedAtRaw,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan study guide: %w", err)
	}

	if err := json.Unmarshal([]byte(flashcardsRaw), &guide.Flashcards); err != nil {
		return nil, fmt.Errorf("unmarshal flashcards: %w", err)
	}
	if err := json.Unmarshal([]byte(artifactsRaw), &guide.Artifacts); err != nil {
		return nil, fmt.Errorf("unmarshal artifacts: %w", err)
	}
	if guide.CreatedAt, err = parseTime(createdAtRaw); err != nil {
		return nil, err
	}
	if guide.UpdatedAt, err = parseTime(updatedAtRaw); err != nil {
		return nil, err
	}
	guide.Status = domain.GuideStatus(status)
	return &guide, nil
}

func encodeContent(flashcards []domain.Flashcard, artifacts map[domain.ArtifactKind]string) (string, string, error) {
	if flashcards == nil {
		flashcards = []domain.Flashcard{}
	}
	if artifacts == nil {
		artifacts = map[domain.ArtifactKind]string{}
	}
	cardsJSON, err := json.Marshal(flashcards)
	if err != nil {
		return "", "", fmt.Errorf("marshal flashcards: %w", err)
	}
	artifactsJSON, err := json.Marshal(artifacts)
	if err != nil {
		return "", "", fmt.Errorf("marshal artifacts: %w", err)
	}
	return string(cardsJSON), string(artifactsJSON), nil
}

func ensureAffected(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, op, fmt.Errorf("study guide not found: %s", id))
	}
	return nil
}
