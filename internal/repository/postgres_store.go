package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"midas/internal/domain/models"
	applogger "midas/pkg/logger"
)

// watermarkTable is the dedicated metadata table; the watermark is
// explicit state rather than max(bucket_start) so a partially-loaded
// tail above it can never masquerade as confirmed data.
const watermarkTable = "ingest_watermarks"

// RetryPolicy bounds the exponential backoff applied to transient
// store errors at the transaction boundary.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// PostgresBarStore implements repository.BarStore on a pgx pool with
// one physical table per (symbol, interval).
type PostgresBarStore struct {
	pool  *pgxpool.Pool
	retry RetryPolicy
	l     *applogger.Logger
}

func NewPostgresBarStore(pool *pgxpool.Pool, retry RetryPolicy, l *applogger.Logger) *PostgresBarStore {
	if retry.InitialBackoff <= 0 {
		retry.InitialBackoff = 500 * time.Millisecond
	}
	if retry.MaxBackoff <= 0 {
		retry.MaxBackoff = 30 * time.Second
	}
	return &PostgresBarStore{pool: pool, retry: retry, l: l}
}

var identRe = regexp.MustCompile(`^[a-z0-9_]+$`)

// TableName builds the physical table identifier, e.g. "btcusdt_5m".
func TableName(symbol string, iv models.Interval) (string, error) {
	name := strings.ToLower(symbol) + "_" + iv.TableSuffix()
	if !identRe.MatchString(name) {
		return "", fmt.Errorf("invalid table identifier %q", name)
	}
	return name, nil
}

// expectedColumns is the column set every bar table must carry.
var expectedColumns = map[string]string{
	"bucket_start": "timestamp with time zone",
	"open":         "double precision",
	"high":         "double precision",
	"low":          "double precision",
	"close":        "double precision",
	"volume":       "double precision",
	"record_count": "bigint",
}

func (s *PostgresBarStore) EnsureTable(ctx context.Context, symbol string, iv models.Interval) error {
	table, err := TableName(symbol, iv)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			bucket_start TIMESTAMPTZ PRIMARY KEY,
			open         DOUBLE PRECISION NOT NULL,
			high         DOUBLE PRECISION NOT NULL,
			low          DOUBLE PRECISION NOT NULL,
			close        DOUBLE PRECISION NOT NULL,
			volume       DOUBLE PRECISION NOT NULL,
			record_count BIGINT NOT NULL
		)`, table))
	if err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	if err := s.verifyColumns(ctx, table); err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			symbol       TEXT NOT NULL,
			interval     TEXT NOT NULL,
			bucket_start TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (symbol, interval)
		)`, watermarkTable))
	if err != nil {
		return fmt.Errorf("create table %s: %w", watermarkTable, err)
	}
	return nil
}

// verifyColumns checks an existing table against the expected column
// set. Wrong types or missing columns are a schema conflict; extra
// columns from older layouts are tolerated.
func (s *PostgresBarStore) verifyColumns(ctx context.Context, table string) error {
	rows, err := s.pool.Query(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1`, table)
	if err != nil {
		return fmt.Errorf("inspect table %s: %w", table, err)
	}
	defer rows.Close()

	got := map[string]string{}
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return fmt.Errorf("inspect table %s: %w", table, err)
		}
		got[name] = typ
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect table %s: %w", table, err)
	}

	for name, want := range expectedColumns {
		have, ok := got[name]
		if !ok {
			return fmt.Errorf("%w: table %s missing column %s", models.ErrSchemaConflict, table, name)
		}
		if have != want {
			return fmt.Errorf("%w: table %s column %s is %s, want %s",
				models.ErrSchemaConflict, table, name, have, want)
		}
	}
	return nil
}

func (s *PostgresBarStore) Watermark(ctx context.Context, symbol string, iv models.Interval) (time.Time, bool, error) {
	var ts time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT bucket_start FROM `+watermarkTable+` WHERE symbol = $1 AND interval = $2`,
		strings.ToLower(symbol), iv.Name,
	).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read watermark: %w", err)
	}
	return ts, true, nil
}

// UpsertBatch writes one batch and advances the watermark in a single
// transaction. Transient errors are retried with bounded exponential
// backoff, always at the whole-transaction boundary; the upsert keys
// make the retry idempotent.
func (s *PostgresBarStore) UpsertBatch(ctx context.Context, symbol string, iv models.Interval, bars []models.Bar, watermark time.Time) error {
	if len(bars) == 0 {
		return nil
	}
	table, err := TableName(symbol, iv)
	if err != nil {
		return err
	}

	op := func() error {
		err := s.upsertTx(ctx, table, strings.ToLower(symbol), iv.Name, bars, watermark)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, models.ErrWatermarkRegression),
			errors.Is(err, models.ErrSchemaConflict),
			errors.Is(err, context.Canceled),
			errors.Is(err, context.DeadlineExceeded):
			return backoff.Permanent(err)
		default:
			if s.l != nil {
				s.l.Warn("transient store error, retrying batch",
					applogger.String("table", table),
					applogger.Error(err),
				)
			}
			return err
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retry.InitialBackoff
	bo.MaxInterval = s.retry.MaxBackoff
	return backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(s.retry.MaxRetries)), ctx))
}

func (s *PostgresBarStore) upsertTx(ctx context.Context, table, symbol, interval string, bars []models.Bar, watermark time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var current time.Time
	err = tx.QueryRow(ctx,
		`SELECT bucket_start FROM `+watermarkTable+` WHERE symbol = $1 AND interval = $2 FOR UPDATE`,
		symbol, interval,
	).Scan(&current)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("lock watermark: %w", err)
	}
	if err == nil && watermark.Before(current) {
		return fmt.Errorf("%w: %s %s stored %s, attempted %s",
			models.ErrWatermarkRegression, symbol, interval,
			current.UTC().Format(time.RFC3339), watermark.UTC().Format(time.RFC3339))
	}

	upsert := fmt.Sprintf(`
		INSERT INTO %s (bucket_start, open, high, low, close, volume, record_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (bucket_start) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			record_count = EXCLUDED.record_count`, table)

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(upsert, b.BucketStart, b.Open, b.High, b.Low, b.Close, b.Volume, b.RecordCount)
	}
	batch.Queue(`
		INSERT INTO `+watermarkTable+` (symbol, interval, bucket_start, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (symbol, interval) DO UPDATE SET
			bucket_start = EXCLUDED.bucket_start,
			updated_at = EXCLUDED.updated_at`,
		symbol, interval, watermark)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert batch %s: %w", table, err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresBarStore) TableStats(ctx context.Context, symbol string, iv models.Interval) (int64, *time.Time, *time.Time, error) {
	table, err := TableName(symbol, iv)
	if err != nil {
		return 0, nil, nil, err
	}

	var count int64
	var min, max *time.Time
	err = s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT COUNT(*), MIN(bucket_start), MAX(bucket_start) FROM %s`, table,
	)).Scan(&count, &min, &max)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("table stats %s: %w", table, err)
	}
	return count, min, max, nil
}

func (s *PostgresBarStore) BucketStarts(ctx context.Context, symbol string, iv models.Interval) ([]time.Time, error) {
	table, err := TableName(symbol, iv)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT bucket_start FROM %s ORDER BY bucket_start ASC`, table))
	if err != nil {
		return nil, fmt.Errorf("bucket starts %s: %w", table, err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("bucket starts %s: %w", table, err)
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

func (s *PostgresBarStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
