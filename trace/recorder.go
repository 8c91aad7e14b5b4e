// Package trace records runtime events to a SQLite database.
//
// A Recorder is an object.Observer: install it with Runtime.SetObserver and
// every signal emission, handler failure and property miss is written to
// the database under the recorder's session id. Several sessions can share
// one database file.
package trace

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/wmbridge/object"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("wmbridge.trace")

//go:embed schema.sql
var schemaSQL string

// Recorder writes runtime events to SQLite.
type Recorder struct {
	db      *sql.DB
	session uuid.UUID
	now     func() time.Time

	mu  sync.Mutex
	err error // first write error
}

// Open creates or opens the trace database at path and starts a new
// session in it.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	r := &Recorder{db: db, now: time.Now}
	r.session, err = uuid.NewV7()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session id: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO sessions (id, started_at) VALUES (?, ?)`,
		r.session.String(), r.now().UnixNano()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	log.Debugf("trace session %s in %s", r.session, path)
	return r, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Session returns the id events are recorded under.
func (r *Recorder) Session() uuid.UUID {
	return r.session
}

// Err returns the first error that occurred while recording, if any.
// Observer methods cannot return errors, so failures are kept here and
// logged.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) exec(query string, args ...any) {
	if _, err := r.db.Exec(query, args...); err != nil {
		log.Errorf("recording event: %s", err)
		r.mu.Lock()
		if r.err == nil {
			r.err = err
		}
		r.mu.Unlock()
	}
}

func handleString(h object.Handle) string {
	if h.IsZero() {
		return ""
	}
	return h.String()
}

// SignalEmitted implements object.Observer.
func (r *Recorder) SignalEmitted(e object.Emission) {
	r.exec(`INSERT INTO emissions (session, at, scope, class, object, signal, handlers)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.session.String(), r.now().UnixNano(), e.Scope.String(), e.Class,
		handleString(e.Object), e.Signal, e.Handlers)
}

// HandlerFailed implements object.Observer.
func (r *Recorder) HandlerFailed(e object.Emission, err error) {
	r.exec(`INSERT INTO failures (session, at, scope, class, object, signal, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.session.String(), r.now().UnixNano(), e.Scope.String(), e.Class,
		handleString(e.Object), e.Signal, err.Error())
}

// PropertyMissed implements object.Observer.
func (r *Recorder) PropertyMissed(m object.Miss) {
	r.exec(`INSERT INTO misses (session, at, class, object, field, assign)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.session.String(), r.now().UnixNano(), m.Class,
		handleString(m.Object), m.Field, m.Assign)
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Emission is a recorded signal emission.
type Emission struct {
	Seq      int64
	At       time.Time
	Scope    string
	Class    string
	Object   string
	Signal   string
	Handlers int
}

// Failure is a recorded handler failure.
type Failure struct {
	Seq    int64
	At     time.Time
	Scope  string
	Class  string
	Object string
	Signal string
	Error  string
}

// Miss is a recorded access to an undeclared field.
type Miss struct {
	Seq    int64
	At     time.Time
	Class  string
	Object string
	Field  string
	Assign bool
}

// Session is a recording session.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time
}

// Sessions lists the sessions in the database, oldest first.
func (r *Recorder) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, started_at FROM sessions ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var id string
		var at int64
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("session id %q: %w", id, err)
		}
		out = append(out, Session{ID: parsed, StartedAt: time.Unix(0, at)})
	}
	return out, rows.Err()
}

// Emissions returns the emissions of session in recording order. An
// empty signal matches every signal.
func (r *Recorder) Emissions(ctx context.Context, session uuid.UUID, signal string) ([]Emission, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT seq, at, scope, class, object, signal, handlers
		FROM emissions WHERE session = ? AND (? = '' OR signal = ?) ORDER BY seq`,
		session.String(), signal, signal)
	if err != nil {
		return nil, fmt.Errorf("query emissions: %w", err)
	}
	defer rows.Close()

	var out []Emission
	for rows.Next() {
		var e Emission
		var at int64
		if err := rows.Scan(&e.Seq, &at, &e.Scope, &e.Class, &e.Object, &e.Signal, &e.Handlers); err != nil {
			return nil, fmt.Errorf("scan emission: %w", err)
		}
		e.At = time.Unix(0, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Failures returns the handler failures of session in recording order.
func (r *Recorder) Failures(ctx context.Context, session uuid.UUID) ([]Failure, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT seq, at, scope, class, object, signal, error
		FROM failures WHERE session = ? ORDER BY seq`, session.String())
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		var at int64
		if err := rows.Scan(&f.Seq, &at, &f.Scope, &f.Class, &f.Object, &f.Signal, &f.Error); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.At = time.Unix(0, at)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Misses returns the field misses of session in recording order.
func (r *Recorder) Misses(ctx context.Context, session uuid.UUID) ([]Miss, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT seq, at, class, object, field, assign
		FROM misses WHERE session = ? ORDER BY seq`, session.String())
	if err != nil {
		return nil, fmt.Errorf("query misses: %w", err)
	}
	defer rows.Close()

	var out []Miss
	for rows.Next() {
		var m Miss
		var at int64
		if err := rows.Scan(&m.Seq, &at, &m.Class, &m.Object, &m.Field, &m.Assign); err != nil {
			return nil, fmt.Errorf("scan miss: %w", err)
		}
		m.At = time.Unix(0, at)
		out = append(out, m)
	}
	return out, rows.Err()
}

// SignalCounts returns how many times each signal was emitted in session,
// across all scopes.
func (r *Recorder) SignalCounts(ctx context.Context, session uuid.UUID) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT signal, COUNT(*) FROM emissions
		WHERE session = ? GROUP BY signal`, session.String())
	if err != nil {
		return nil, fmt.Errorf("query signal counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan signal count: %w", err)
		}
		out[name] = n
	}
	return out, rows.Err()
}
