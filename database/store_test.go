package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/mbolis/freewill-survey/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "survey_responses.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sub := model.Submission{
		Responses: map[string]int{"q1": 3, "q2": 5},
		Scores:    map[string]float64{"empathy": 2.5, "agency": 4},
		Metadata: map[string]any{
			"source":   "web",
			"duration": json.Number("12.5"),
			"complete": true,
			"device":   map[string]any{"os": "linux"},
		},
	}
	id, err := s.Insert(ctx, sub)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != id {
		t.Fatalf("want id %d, got %d", id, got.ID)
	}
	if !reflect.DeepEqual(got.Responses, sub.Responses) {
		t.Fatalf("responses mismatch: %v", got.Responses)
	}
	if !reflect.DeepEqual(got.Scores, sub.Scores) {
		t.Fatalf("scores mismatch: %v", got.Scores)
	}
	if !reflect.DeepEqual(got.Metadata, sub.Metadata) {
		t.Fatalf("metadata mismatch: %v", got.Metadata)
	}
	if got.Version != 1 {
		t.Fatalf("want version 1, got %d", got.Version)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("audit timestamps not set: %+v", got)
	}
}

func TestLargeIntegerMetadataRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, model.Submission{
		Metadata: map[string]any{"big": int64(9007199254740993), "nested": map[string]any{"n": json.Number("9007199254740993")}},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := s.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Metadata["big"] != json.Number("9007199254740993") {
		t.Fatalf("large integer altered: %#v", got.Metadata["big"])
	}
	nested, _ := got.Metadata["nested"].(map[string]any)
	if nested["n"] != json.Number("9007199254740993") {
		t.Fatalf("nested large integer altered: %#v", got.Metadata["nested"])
	}
}

func TestInsertStampsUTCTimestamp(t *testing.T) {
	s := openTestStore(t)
	loc := time.FixedZone("CEST", 2*60*60)
	s.now = func() time.Time { return time.Date(2025, 9, 18, 1, 30, 0, 0, loc) }

	id, err := s.Insert(context.Background(), model.Submission{})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := s.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Timestamp != "2025-09-17T23:30:00.000000Z" {
		t.Fatalf("unexpected timestamp %q", got.Timestamp)
	}
	if got.Responses == nil || got.Scores == nil || got.Metadata == nil {
		t.Fatalf("nil sub-documents should be stored as empty objects: %+v", got)
	}
}

func TestInsertIDsIncrease(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var last int64
	seen := map[int64]bool{}
	for i := 0; i < 10; i++ {
		id, err := s.Insert(ctx, model.Submission{Responses: map[string]int{"q1": i}})
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if id <= last || seen[id] {
			t.Fatalf("id %d not strictly increasing after %d", id, last)
		}
		seen[id] = true
		last = id
	}
}

func TestGetByIDNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetByID(context.Background(), 42)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetAllInsertionOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty store, got %d rows", len(all))
	}

	for i := 1; i <= 3; i++ {
		if _, err := s.Insert(ctx, model.Submission{Responses: map[string]int{"q": i}}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	all, err = s.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("want 3 rows, got %d", len(all))
	}
	for i, r := range all {
		if r.Responses["q"] != i+1 {
			t.Fatalf("row %d out of order: %v", i, r.Responses)
		}
	}
}

func TestInitializeIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, model.Submission{Scores: map[string]float64{"a": 1}})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	before, _ := s.GetAll(ctx)

	for i := 0; i < 2; i++ {
		if err := s.Initialize(); err != nil {
			t.Fatalf("initialize #%d: %v", i, err)
		}
	}

	after, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("rows changed by initialize:\nbefore %+v\nafter  %+v", before, after)
	}
	if after[0].ID != id {
		t.Fatalf("unexpected id %d", after[0].ID)
	}
}

func TestOpenLegacyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open(driverName, path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	_, err = db.Exec(`
		CREATE TABLE responses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			responses TEXT NOT NULL,
			scores TEXT NOT NULL,
			metadata TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			version INTEGER DEFAULT 1
		);
		INSERT INTO responses (timestamp, responses, scores, metadata)
		VALUES ('2024-03-01T10:00:00.123456', '{"q1": 2}', '{"a": 1.5}', '{}');`)
	if err != nil {
		t.Fatalf("seed legacy: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open legacy: %v", err)
	}
	defer s.Close()

	r, err := s.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("get legacy row: %v", err)
	}
	if r.Timestamp != "2024-03-01T10:00:00.123456" || r.Scores["a"] != 1.5 {
		t.Fatalf("legacy row altered: %+v", r)
	}
}

func TestCorruptRowIsPersistenceError(t *testing.T) {
	s := openTestStore(t)
	_, err := s.db.Exec(`
		INSERT INTO responses (timestamp, responses, scores, metadata)
		VALUES ('2024-03-01T10:00:00Z', 'not json', '{}', '{}')`)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err = s.GetByID(context.Background(), 1)
	if !errors.Is(err, model.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestAggregateQueries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.CountResponses(ctx)
	if err != nil || n != 0 {
		t.Fatalf("count on empty store: %d, %v", n, err)
	}
	if _, ok, err := s.LatestTimestamp(ctx); err != nil || ok {
		t.Fatalf("latest on empty store: ok=%v err=%v", ok, err)
	}

	days := []time.Time{
		time.Date(2025, 9, 17, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 9, 17, 22, 0, 0, 0, time.UTC),
		time.Date(2025, 9, 19, 12, 0, 0, 0, time.UTC),
	}
	for i, d := range days {
		d := d
		s.now = func() time.Time { return d }
		_, err := s.Insert(ctx, model.Submission{Scores: map[string]float64{"a": float64(i)}})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	n, err = s.CountResponses(ctx)
	if err != nil || n != 3 {
		t.Fatalf("count: %d, %v", n, err)
	}
	latest, ok, err := s.LatestTimestamp(ctx)
	if err != nil || !ok || latest != "2025-09-19T12:00:00.000000Z" {
		t.Fatalf("latest: %q ok=%v err=%v", latest, ok, err)
	}
	byDate, err := s.CountByDate(ctx)
	if err != nil {
		t.Fatalf("count by date: %v", err)
	}
	want := map[string]int{"2025-09-17": 2, "2025-09-19": 1}
	if !reflect.DeepEqual(byDate, want) {
		t.Fatalf("by date: want %v, got %v", want, byDate)
	}
	scores, err := s.AllScores(ctx)
	if err != nil {
		t.Fatalf("all scores: %v", err)
	}
	if len(scores) != 3 || scores[2]["a"] != 2 {
		t.Fatalf("unexpected scores: %v", scores)
	}
}
