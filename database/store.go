package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mbolis/freewill-survey/model"
)

// TimestampLayout is the format of the submission timestamp. Values are
// always UTC so that string order is chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

const selectResponse = `
	SELECT id, timestamp, responses, scores, metadata, created_at, updated_at, COALESCE(version, 1)
	FROM responses`

// Insert stores a new submission stamped with the current time and returns
// its identifier.
func (s *Store) Insert(ctx context.Context, sub model.Submission) (int64, error) {
	responses, err := encodeDocument(sub.Responses)
	if err != nil {
		return 0, model.Persistence("db.insert.encode_responses", err)
	}
	scores, err := encodeDocument(sub.Scores)
	if err != nil {
		return 0, model.Persistence("db.insert.encode_scores", err)
	}
	metadata, err := encodeDocument(sub.Metadata)
	if err != nil {
		return 0, model.Persistence("db.insert.encode_metadata", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO responses (timestamp, responses, scores, metadata)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		s.now().UTC().Format(TimestampLayout),
		responses,
		scores,
		metadata,
	).Scan(&id)
	if err != nil {
		return 0, model.Persistence("db.insert", err)
	}
	return id, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*model.SurveyResponse, error) {
	row := s.db.QueryRowContext(ctx, selectResponse+` WHERE id = ?`, id)
	r, err := scanResponse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("db.get_response")
	}
	if err != nil {
		return nil, model.Persistence("db.get_response", err)
	}
	return r, nil
}

// GetAll returns every stored response in insertion order.
func (s *Store) GetAll(ctx context.Context) ([]model.SurveyResponse, error) {
	rows, err := s.db.QueryContext(ctx, selectResponse+` ORDER BY id`)
	if err != nil {
		return nil, model.Persistence("db.get_responses", err)
	}
	defer rows.Close()

	responses := []model.SurveyResponse{}
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, model.Persistence("db.get_responses.scan", err)
		}
		responses = append(responses, *r)
	}
	if err = rows.Err(); err != nil {
		return nil, model.Persistence("db.get_responses", err)
	}
	return responses, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResponse(row scanner) (*model.SurveyResponse, error) {
	r := model.SurveyResponse{}
	var responses, scores, metadata string
	var createdAt, updatedAt sql.NullTime
	err := row.Scan(
		&r.ID, &r.Timestamp,
		&responses, &scores, &metadata,
		&createdAt, &updatedAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}

	if err = decodeDocument(responses, &r.Responses); err != nil {
		return nil, fmt.Errorf("corrupt responses in row %d: %w", r.ID, err)
	}
	if err = decodeDocument(scores, &r.Scores); err != nil {
		return nil, fmt.Errorf("corrupt scores in row %d: %w", r.ID, err)
	}
	if err = decodeDocument(metadata, &r.Metadata); err != nil {
		return nil, fmt.Errorf("corrupt metadata in row %d: %w", r.ID, err)
	}
	r.CreatedAt = createdAt.Time
	r.UpdatedAt = updatedAt.Time
	return &r, nil
}

func (s *Store) CountResponses(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM responses`).Scan(&n)
	if err != nil {
		return 0, model.Persistence("db.count_responses", err)
	}
	return n, nil
}

// LatestTimestamp returns the greatest submission timestamp, or false when
// the table is empty.
func (s *Store) LatestTimestamp(ctx context.Context) (string, bool, error) {
	var latest sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(timestamp) FROM responses`).Scan(&latest)
	if err != nil {
		return "", false, model.Persistence("db.latest_timestamp", err)
	}
	return latest.String, latest.Valid, nil
}

// CountByDate counts responses per calendar day of their timestamp. Rows
// whose timestamp SQLite cannot read as a date are left out.
func (s *Store) CountByDate(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(timestamp) AS day, COUNT(*)
		FROM responses
		GROUP BY day
		ORDER BY day DESC`)
	if err != nil {
		return nil, model.Persistence("db.count_by_date", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var day sql.NullString
		var n int
		if err = rows.Scan(&day, &n); err != nil {
			return nil, model.Persistence("db.count_by_date.scan", err)
		}
		if day.Valid {
			counts[day.String] = n
		}
	}
	if err = rows.Err(); err != nil {
		return nil, model.Persistence("db.count_by_date", err)
	}
	return counts, nil
}

// AllScores returns the scores sub-document of every row in insertion order.
func (s *Store) AllScores(ctx context.Context) ([]map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, scores FROM responses ORDER BY id`)
	if err != nil {
		return nil, model.Persistence("db.get_scores", err)
	}
	defer rows.Close()

	all := []map[string]float64{}
	for rows.Next() {
		var id int64
		var doc string
		if err = rows.Scan(&id, &doc); err != nil {
			return nil, model.Persistence("db.get_scores.scan", err)
		}
		var scores map[string]float64
		if err = decodeDocument(doc, &scores); err != nil {
			return nil, model.Persistence("db.get_scores.decode", fmt.Errorf("corrupt scores in row %d: %w", id, err))
		}
		all = append(all, scores)
	}
	if err = rows.Err(); err != nil {
		return nil, model.Persistence("db.get_scores", err)
	}
	return all, nil
}
