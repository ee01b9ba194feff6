package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"foundation/internal/metrics"
)

// SQLExecutor defines the contract required by repositories for executing SQL queries.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

var (
	markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

	ErrEmptyQuery    = errors.New("sql: empty query")
	ErrMissingMarker = errors.New("sql: marker missing or invalid")
)

// SQLRunner requires every statement to open with a `--sql <uuid>` marker
// line. Each call is logged and timed under that marker.
type SQLRunner struct {
	DB     SQLExecutor
	Logger zerolog.Logger
}

// NewSQLRunner wraps db, usually a *pgxpool.Pool.
func NewSQLRunner(db SQLExecutor, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{DB: db, Logger: logger}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	marker, stmt, err := ExtractMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := time.Now()
	tag, err := r.DB.Exec(ctx, stmt, args...)
	r.observe(marker, "exec", start, err).Int64("rows", tag.RowsAffected()).Send()
	return tag, err
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	marker, stmt, err := ExtractMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	return &timedRow{runner: r, marker: marker, start: time.Now(), row: r.DB.QueryRow(ctx, stmt, args...)}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	marker, stmt, err := ExtractMarker(query)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := r.DB.Query(ctx, stmt, args...)
	if err != nil {
		r.observe(marker, "query", start, err).Send()
		return nil, err
	}
	return &timedRows{Rows: rows, runner: r, marker: marker, start: start}, nil
}

// observe records the statement latency and returns the log event for the
// caller to finish. pgx.ErrNoRows counts as a successful lookup.
func (r *SQLRunner) observe(marker, op string, start time.Time, err error) *zerolog.Event {
	elapsed := time.Since(start)
	result := "ok"
	ev := r.Logger.Debug()
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		result = "no_rows"
	case err != nil:
		result = "error"
		ev = r.Logger.Error().Err(err)
	}
	metrics.SQLStatements.WithLabelValues(marker, result).Observe(elapsed.Seconds())
	return ev.Str("sql", marker).Str("op", op).Dur("elapsed", elapsed)
}

type timedRow struct {
	runner *SQLRunner
	marker string
	start  time.Time
	row    pgx.Row
}

func (t *timedRow) Scan(dest ...any) error {
	err := t.row.Scan(dest...)
	t.runner.observe(t.marker, "query_row", t.start, err).Send()
	return err
}

type timedRows struct {
	pgx.Rows
	runner *SQLRunner
	marker string
	start  time.Time
}

func (t *timedRows) Close() {
	t.Rows.Close()
	t.runner.observe(t.marker, "query", t.start, t.Rows.Err()).Send()
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(dest ...any) error {
	return e.err
}

// ExtractMarker splits a statement into its marker id and the SQL that
// follows the marker line.
func ExtractMarker(query string) (string, string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", "", ErrEmptyQuery
	}
	markerLine, rest, _ := strings.Cut(trimmed, "\n")
	markerLine = strings.TrimSpace(markerLine)
	if !markerRegexp.MatchString(markerLine) {
		return "", "", ErrMissingMarker
	}
	return strings.TrimPrefix(markerLine, "--sql "), strings.TrimSpace(rest), nil
}

var _ SQLExecutor = (*SQLRunner)(nil)
