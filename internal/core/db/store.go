package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/ruleblocks/internal/execution"
	"github.com/solatis/ruleblocks/internal/types"
)

// createdAtLayout is fixed-width so text ordering matches time ordering.
const createdAtLayout = "2006-01-02T15:04:05.000000Z"

// DefaultListLimit bounds ListRuns when the caller passes a non-positive limit.
const DefaultListLimit = 100

// RunReport is one recorded validation pass.
type RunReport struct {
	ID          types.RunID
	RuleSet     string
	Fingerprint string
	OK          bool
	ErrorCount  int
	CreatedAt   time.Time
	// Errors is populated by GetRun and SaveRun; ListRuns leaves it nil.
	Errors []execution.ErrorEntry
}

// NewRunReport builds a report with a fresh run ID stamped at now.
func NewRunReport(ruleSet, fingerprint string, ok bool, errs []execution.ErrorEntry) RunReport {
	return RunReport{
		ID:          types.NewRunID(),
		RuleSet:     ruleSet,
		Fingerprint: fingerprint,
		OK:          ok,
		ErrorCount:  len(errs),
		CreatedAt:   time.Now().UTC(),
		Errors:      errs,
	}
}

type runRow struct {
	RunID       string `db:"run_id"`
	RuleSet     string `db:"rule_set"`
	Fingerprint string `db:"fingerprint"`
	OK          bool   `db:"ok"`
	ErrorCount  int    `db:"error_count"`
	CreatedAt   string `db:"created_at"`
}

type errorRow struct {
	Position   int    `db:"position"`
	Name       string `db:"name"`
	BlockIndex int    `db:"block_index"`
	Code       int    `db:"code"`
	Template   string `db:"template"`
	Params     string `db:"params"`
	Value      string `db:"value"`
}

// Store persists validation run reports.
type Store struct {
	db      *sqlx.DB
	queries *Queries
}

// NewStore wraps an open, migrated database.
func NewStore(db *sqlx.DB) (*Store, error) {
	queries, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, queries: queries}, nil
}

// SaveRun writes the run and its ordered errors in one transaction.
func (s *Store) SaveRun(ctx context.Context, r RunReport) error {
	if r.ID == "" {
		return fmt.Errorf("run report has no ID")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = s.queries.ExecTx(ctx, tx, "insert-run",
		string(r.ID), r.RuleSet, r.Fingerprint, r.OK, len(r.Errors),
		r.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.ID, err)
	}

	for i, e := range r.Errors {
		params, err := encodeJSON(e.Params)
		if err != nil {
			return fmt.Errorf("failed to encode params for error %d: %w", i, err)
		}
		value, err := encodeJSON(e.Value)
		if err != nil {
			return fmt.Errorf("failed to encode value for error %d: %w", i, err)
		}
		_, err = s.queries.ExecTx(ctx, tx, "insert-run-error",
			string(r.ID), i, e.Name, e.BlockIndex, int(e.Code), e.Template, params, value,
		)
		if err != nil {
			return fmt.Errorf("failed to insert error %d for run %s: %w", i, r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", r.ID, err)
	}
	return nil
}

// GetRun loads one run with its errors in recorded order.
func (s *Store) GetRun(ctx context.Context, id types.RunID) (*RunReport, error) {
	var row runRow
	if err := s.queries.Get(ctx, "get-run", &row, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", types.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	report, err := row.report()
	if err != nil {
		return nil, err
	}

	var rows []errorRow
	if err := s.queries.Select(ctx, "list-run-errors", &rows, string(id)); err != nil {
		return nil, fmt.Errorf("failed to load errors for run %s: %w", id, err)
	}
	report.Errors = make([]execution.ErrorEntry, 0, len(rows))
	for _, er := range rows {
		entry, err := er.entry()
		if err != nil {
			return nil, fmt.Errorf("run %s error %d: %w", id, er.Position, err)
		}
		report.Errors = append(report.Errors, entry)
	}

	return &report, nil
}

// ListRuns returns the newest runs first, optionally filtered by rule set.
func (s *Store) ListRuns(ctx context.Context, ruleSet string, limit int) ([]RunReport, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var (
		rows []runRow
		err  error
	)
	if ruleSet == "" {
		err = s.queries.Select(ctx, "list-runs", &rows, limit)
	} else {
		err = s.queries.Select(ctx, "list-runs-by-rule-set", &rows, ruleSet, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	reports := make([]RunReport, 0, len(rows))
	for _, row := range rows {
		report, err := row.report()
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (r runRow) report() (RunReport, error) {
	createdAt, err := time.Parse(createdAtLayout, r.CreatedAt)
	if err != nil {
		return RunReport{}, fmt.Errorf("run %s has invalid created_at %q: %w", r.RunID, r.CreatedAt, err)
	}
	return RunReport{
		ID:          types.RunID(r.RunID),
		RuleSet:     r.RuleSet,
		Fingerprint: r.Fingerprint,
		OK:          r.OK,
		ErrorCount:  r.ErrorCount,
		CreatedAt:   createdAt,
	}, nil
}

func (r errorRow) entry() (execution.ErrorEntry, error) {
	var params []any
	if err := json.Unmarshal([]byte(r.Params), &params); err != nil {
		return execution.ErrorEntry{}, fmt.Errorf("invalid params: %w", err)
	}
	var value any
	if err := json.Unmarshal([]byte(r.Value), &value); err != nil {
		return execution.ErrorEntry{}, fmt.Errorf("invalid value: %w", err)
	}
	return execution.ErrorEntry{
		Name:       r.Name,
		BlockIndex: r.BlockIndex,
		Value:      value,
		Code:       types.ErrorCode(r.Code),
		Template:   r.Template,
		Params:     params,
	}, nil
}

// encodeJSON stores values the encoder cannot represent as their fmt rendering.
func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err == nil {
		return string(data), nil
	}
	var unsupported *json.UnsupportedTypeError
	var unsupportedValue *json.UnsupportedValueError
	if errors.As(err, &unsupported) || errors.As(err, &unsupportedValue) {
		data, err = json.Marshal(fmt.Sprint(v))
		return string(data), err
	}
	return "", err
}
