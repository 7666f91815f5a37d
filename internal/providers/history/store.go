package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/shell-server/internal/shared/id"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const (
	DefaultLimit = 10
	MaxLimit     = 1000

	// timestamps are stored as fixed-width UTC text so they sort lexically
	timeLayout = "2006-01-02 15:04:05.000"
)

var ErrClosed = errors.New("history store is closed")

// Entry is one recorded execute_shell call.
type Entry struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Output    string    `json:"output"`
	ExitCode  int       `json:"exit_code"`
	Timestamp time.Time `json:"timestamp"`
	Duration  int64     `json:"duration"`
}

// Query selects history rows, newest first. Limit is the maximum number of
// rows; zero selects none.
type Query struct {
	Limit  int
	Filter string
}

// Store is the append-only command history backed by SQLite.
type Store struct {
	db      *sql.DB
	breaker *resilience.Breaker
	metrics *monitoring.Metrics
	logger  *logging.Logger
	now     func() time.Time
}

// Options configures a Store. Zero values are usable.
type Options struct {
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
	Breaker resilience.Settings
}

// Open opens (or creates) the history database at path and runs the
// schema migration.
func Open(path string, opts Options) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// a single connection serialises writers without SQLITE_BUSY retries
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("history")

	settings := opts.Breaker
	if settings.OnStateChange == nil {
		settings.OnStateChange = func(name string, from, to resilience.State) {
			logger.Warn("history breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		}
	}

	return &Store{
		db:      db,
		breaker: resilience.New("history", settings),
		metrics: opts.Metrics,
		logger:  logger,
		now:     time.Now,
	}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS command_history (
			id        TEXT PRIMARY KEY,
			command   TEXT NOT NULL,
			output    TEXT,
			exit_code INTEGER,
			timestamp DATETIME DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now')),
			duration  INTEGER
		)
	`); err != nil {
		return err
	}
	_, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_command_history_timestamp ON command_history (timestamp)")
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append synchronously inserts e. An empty ID gets a fresh UUID and a zero
// Timestamp gets the current time. The stored entry is returned.
func (s *Store) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = id.NewEntryID().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	e.Timestamp = e.Timestamp.UTC().Truncate(time.Millisecond)

	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO command_history (id, command, output, exit_code, timestamp, duration) VALUES (?, ?, ?, ?, ?, ?)",
			e.ID, e.Command, e.Output, e.ExitCode, e.Timestamp.Format(timeLayout), e.Duration,
		)
		return err
	})
	s.metrics.RecordHistoryWrite(err)
	if err != nil {
		s.logger.Error("history append failed", zap.String("entry_id", e.ID), zap.Error(err))
		return Entry{}, fmt.Errorf("append history: %w", err)
	}
	return e, nil
}

// Query returns at most q.Limit entries ordered by timestamp descending.
// Filter is a case-sensitive substring match on the command text.
func (s *Store) Query(ctx context.Context, q Query) ([]Entry, error) {
	limit := NormalizeLimit(q.Limit)
	if limit == 0 {
		return []Entry{}, nil
	}

	entries, err := resilience.Call(ctx, s.breaker, func(ctx context.Context) ([]Entry, error) {
		var (
			rows *sql.Rows
			err  error
		)
		if q.Filter == "" {
			rows, err = s.db.QueryContext(ctx,
				"SELECT id, command, output, exit_code, timestamp, duration FROM command_history ORDER BY timestamp DESC, rowid DESC LIMIT ?",
				limit)
		} else {
			rows, err = s.db.QueryContext(ctx,
				"SELECT id, command, output, exit_code, timestamp, duration FROM command_history WHERE instr(command, ?) > 0 ORDER BY timestamp DESC, rowid DESC LIMIT ?",
				q.Filter, limit)
		}
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		out := make([]Entry, 0, limit)
		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return entries, nil
}

// NormalizeLimit clamps a requested limit into [0, MaxLimit].
func NormalizeLimit(limit int) int {
	switch {
	case limit < 0:
		return 0
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e        Entry
		output   sql.NullString
		exitCode sql.NullInt64
		ts       any
		duration sql.NullInt64
	)
	if err := rows.Scan(&e.ID, &e.Command, &output, &exitCode, &ts, &duration); err != nil {
		return Entry{}, err
	}
	e.Output = output.String
	e.ExitCode = int(exitCode.Int64)
	e.Duration = duration.Int64
	switch v := ts.(type) {
	case time.Time:
		e.Timestamp = v.UTC()
	case string:
		e.Timestamp = parseTimestamp(v)
	case []byte:
		e.Timestamp = parseTimestamp(string(v))
	}
	return e, nil
}

// parseTimestamp accepts our own layout and the ones SQLite itself writes.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{timeLayout, "2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
