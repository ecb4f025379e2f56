package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"TroveDesk/internal/logging"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger logging.Logger
	now    func() time.Time
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger logging.Logger) (*SQLiteRecorder, error) {
	logger = logging.OrDiscard(logger)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the service writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_snapshots (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			source    TEXT,
			evro      TEXT,
			wxdai     TEXT,
			gno       TEXT,
			sdai      TEXT,
			wwbtc     TEXT,
			osgno     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_ts ON price_snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS price_failures (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			error_type TEXT,
			message    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_fail_ts ON price_failures(timestamp)`,

		`CREATE TABLE IF NOT EXISTS indexer_probes (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			block     INTEGER,
			healthy   INTEGER,
			message   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_probe_ts ON indexer_probes(timestamp)`,

		`CREATE TABLE IF NOT EXISTS health_transitions (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			from_healthy INTEGER,
			to_healthy   INTEGER,
			message      TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS fallback_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			accessor  TEXT,
			result    TEXT,
			detail    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fallback_ts ON fallback_events(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordPriceSnapshot(snap *PriceSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := snap.Prices
	_, err := r.db.Exec(`INSERT INTO price_snapshots
		(timestamp, source, evro, wxdai, gno, sdai, wwbtc, osgno)
		VALUES (?,?,?,?,?,?,?,?)`,
		r.now().Unix(), snap.Source, p.EVRO, p.WXDAI, p.GNO, p.SDAI, p.WWBTC, p.OSGNO,
	)
	return err
}

func (r *SQLiteRecorder) RecordPriceFailure(evt *PriceFailure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO price_failures (timestamp, error_type, message) VALUES (?,?,?)`,
		r.now().Unix(), evt.ErrorType, evt.Message,
	)
	return err
}

func (r *SQLiteRecorder) RecordIndexerProbe(evt *IndexerProbe) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO indexer_probes (timestamp, block, healthy, message) VALUES (?,?,?,?)`,
		r.now().Unix(), evt.Block, evt.Healthy, evt.Message,
	)
	return err
}

func (r *SQLiteRecorder) RecordHealthTransition(evt *HealthTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO health_transitions
		(timestamp, from_healthy, to_healthy, message) VALUES (?,?,?,?)`,
		r.now().Unix(), evt.FromHealthy, evt.ToHealthy, evt.Message,
	)
	return err
}

func (r *SQLiteRecorder) RecordFallback(evt *FallbackEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO fallback_events (timestamp, accessor, result, detail) VALUES (?,?,?,?)`,
		r.now().Unix(), evt.Accessor, evt.Result, evt.Detail,
	)
	return err
}

// LatestPriceSnapshot returns the most recent snapshot, or nil when none exist.
func (r *SQLiteRecorder) LatestPriceSnapshot() (*PriceSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.db.QueryRow(`SELECT source, evro, wxdai, gno, sdai, wwbtc, osgno
		FROM price_snapshots ORDER BY id DESC LIMIT 1`)
	var snap PriceSnapshot
	p := &snap.Prices
	err := row.Scan(&snap.Source, &p.EVRO, &p.WXDAI, &p.GNO, &p.SDAI, &p.WWBTC, &p.OSGNO)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest price snapshot: %w", err)
	}
	return &snap, nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
