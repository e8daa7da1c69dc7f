// Package history persists completed scans in SQLite and compares successive
// scans of the same page.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/raysh454/a11ylens/internal/logging"
	"github.com/raysh454/a11ylens/internal/model"
	"github.com/raysh454/a11ylens/internal/utils"
)

//go:embed schema.sql
var schemaFS embed.FS

var ErrScanNotFound = errors.New("scan not found")

// Record is the stored summary of one scan.
type Record struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	CreatedAt     time.Time `json:"created_at"`
	EngineVersion string    `json:"engine_version,omitempty"`
	Violations    int       `json:"violations"`
	Passes        int       `json:"passes"`
	Incomplete    int       `json:"incomplete"`
	Inapplicable  int       `json:"inapplicable"`
	Environment   string    `json:"environment,omitempty"`
}

type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (creating if needed) the database at path.
func Open(path string, logger logging.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	s, err := NewStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore runs migrations from schema.sql against db.
func NewStore(db *sql.DB, logger logging.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	return &Store{db: db, logger: logger.With(logging.Field{Key: "component", Value: "history"})}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save stores res. Saving the same scan id twice is a no-op.
func (s *Store) Save(ctx context.Context, res *model.ScanResult, environment string) (*Record, error) {
	if res == nil || res.ID == "" {
		return nil, fmt.Errorf("scan result without id")
	}
	body, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode scan: %w", err)
	}
	created := res.Timestamp
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	r, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO scans
             (id, url, page_key, created_at, engine_version, violations, passes, incomplete, inapplicable, environment, result_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.URL, utils.PageKey(res.URL), created.UnixNano(), res.EngineVersion,
		len(res.Violations), len(res.Passes), len(res.Incomplete), res.Inapplicable,
		environment, string(body),
	)
	if err != nil {
		return nil, fmt.Errorf("insert scan: %w", err)
	}
	if n, _ := r.RowsAffected(); n > 0 {
		for _, v := range res.Violations {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO scan_violations (scan_id, rule_id, impact, nodes) VALUES (?, ?, ?, ?)`,
				res.ID, v.ID, string(v.Impact), len(v.Nodes),
			); err != nil {
				return nil, fmt.Errorf("insert violation %s: %w", v.ID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Debug("saved scan",
		logging.Field{Key: "id", Value: res.ID},
		logging.Field{Key: "url", Value: res.URL})
	return &Record{
		ID:            res.ID,
		URL:           res.URL,
		CreatedAt:     time.Unix(0, created.UnixNano()).UTC(),
		EngineVersion: res.EngineVersion,
		Violations:    len(res.Violations),
		Passes:        len(res.Passes),
		Incomplete:    len(res.Incomplete),
		Inapplicable:  res.Inapplicable,
		Environment:   environment,
	}, nil
}

// List returns records newest first. url matches by utils.PageKey, so
// fragments and trailing slashes do not split a page's history. An empty url
// lists every page; a limit of zero or less means no limit.
func (s *Store) List(ctx context.Context, url string, limit int) ([]Record, error) {
	q := `SELECT id, url, created_at, engine_version, violations, passes, incomplete, inapplicable, environment
          FROM scans`
	var args []any
	if url != "" {
		q += ` WHERE page_key = ?`
		args = append(args, utils.PageKey(url))
	}
	q += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var r Record
		var created int64
		if err := rows.Scan(&r.ID, &r.URL, &created, &r.EngineVersion,
			&r.Violations, &r.Passes, &r.Incomplete, &r.Inapplicable, &r.Environment); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns the full stored result.
func (s *Store) Get(ctx context.Context, id string) (*model.ScanResult, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT result_json FROM scans WHERE id = ? LIMIT 1`, id).Scan(&body)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrScanNotFound
		}
		return nil, err
	}
	var res model.ScanResult
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return nil, fmt.Errorf("decode scan %s: %w", id, err)
	}
	return &res, nil
}

// RuleChange is a violated rule that appeared or disappeared between scans.
type RuleChange struct {
	ID     string       `json:"id"`
	Impact model.Impact `json:"impact"`
	Nodes  int          `json:"nodes"`
}

type Comparison struct {
	URL        string       `json:"url"`
	PreviousID string       `json:"previous_id,omitempty"`
	LatestID   string       `json:"latest_id"`
	New        []RuleChange `json:"new"`
	Resolved   []RuleChange `json:"resolved"`
	Persisting []RuleChange `json:"persisting"`
}

// CompareLatest compares the two newest scans of url. With a single stored
// scan every violation counts as new.
func (s *Store) CompareLatest(ctx context.Context, url string) (*Comparison, error) {
	recs, err := s.List(ctx, url, 2)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrScanNotFound
	}
	latest, err := s.Get(ctx, recs[0].ID)
	if err != nil {
		return nil, err
	}
	var prev *model.ScanResult
	if len(recs) > 1 {
		if prev, err = s.Get(ctx, recs[1].ID); err != nil {
			return nil, err
		}
	}
	c := Compare(prev, latest)
	return &c, nil
}

// Compare reports violated rules new in latest, resolved since prev, and
// present in both. prev may be nil. Each list is ordered by impact priority,
// then rule id.
func Compare(prev, latest *model.ScanResult) Comparison {
	c := Comparison{New: []RuleChange{}, Resolved: []RuleChange{}, Persisting: []RuleChange{}}
	before := map[string]model.Violation{}
	if prev != nil {
		c.PreviousID = prev.ID
		for _, v := range prev.Violations {
			before[v.ID] = v
		}
	}
	after := map[string]model.Violation{}
	if latest != nil {
		c.URL = latest.URL
		c.LatestID = latest.ID
		for _, v := range latest.Violations {
			after[v.ID] = v
		}
	}

	for id, v := range after {
		rc := RuleChange{ID: id, Impact: v.Impact, Nodes: len(v.Nodes)}
		if _, ok := before[id]; ok {
			c.Persisting = append(c.Persisting, rc)
		} else {
			c.New = append(c.New, rc)
		}
	}
	for id, v := range before {
		if _, ok := after[id]; !ok {
			c.Resolved = append(c.Resolved, RuleChange{ID: id, Impact: v.Impact, Nodes: len(v.Nodes)})
		}
	}
	for _, list := range [][]RuleChange{c.New, c.Resolved, c.Persisting} {
		sortChanges(list)
	}
	return c
}

func sortChanges(list []RuleChange) {
	sort.Slice(list, func(a, b int) bool {
		pa, pb := list[a].Impact.Priority(), list[b].Impact.Priority()
		if pa != pb {
			return pa < pb
		}
		return list[a].ID < list[b].ID
	})
}
