// Package docstore implements the saved-quote document store.
// The SQLite implementation is the durable "remote" store; the memory
// implementation backs tests and local development. Both provide the same
// primitives: point read/write/delete, an ownership-filtered ordered
// query, transactional read-then-write, and a live-query subscription.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/Massy-Haddad/Lucid/internal/domain"
	"github.com/Massy-Haddad/Lucid/internal/ports"
)

// OpenSQLite opens (or creates) the SQLite database at path and applies
// the schema.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// initSchema enables WAL mode and creates the saved_quote table.
func initSchema(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enabling WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS saved_quote (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		text TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '[]',
		background_image TEXT NOT NULL DEFAULT '',
		saved_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_saved_quote_owner
		ON saved_quote(user_id, saved_at DESC);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return nil
}

// SQLiteStoreConfig contains configuration for the SQLite document store.
type SQLiteStoreConfig struct {
	// DB is the open database handle.
	DB *sql.DB

	// Logger is the structured logger.
	Logger *slog.Logger

	// Now is the server clock. Defaults to time.Now. Overridable in tests.
	Now func() time.Time
}

// SQLiteStore implements ports.DocumentStore on SQLite.
//
// Live-query subscriptions are driven by commit notifications: every
// successful Set, Delete, or transaction re-queries the affected owner's
// collection and fans the snapshot out to that owner's subscribers.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	subs    map[int]*subscriber
	nextSub int
}

type subscriber struct {
	userID     string
	onSnapshot func([]domain.SavedQuote)
	onError    func(error)
}

// NewSQLiteStore creates a SQLite-backed document store.
// Panics if DB is nil. Defaults logger to slog.Default() if nil.
func NewSQLiteStore(cfg SQLiteStoreConfig) *SQLiteStore {
	if cfg.DB == nil {
		panic("SQLiteStore: DB is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &SQLiteStore{
		db:     cfg.DB,
		logger: logger.With(slog.String("component", "docstore.SQLiteStore")),
		now:    now,
		subs:   make(map[int]*subscriber),
	}
}

const savedQuoteColumns = "id, user_id, text, author, source, category, tags, background_image, saved_at"

// Get implements ports.DocumentStore.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.SavedQuote, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+savedQuoteColumns+" FROM saved_quote WHERE id = ?", id)

	doc, err := scanSavedQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("saved quote", id)
	}

	if err != nil {
		return nil, fmt.Errorf("reading saved quote: %w", err)
	}

	return doc, nil
}

// Set implements ports.DocumentStore.
func (s *SQLiteStore) Set(ctx context.Context, doc *domain.SavedQuote) error {
	if err := execUpsert(ctx, s.db, doc); err != nil {
		return err
	}

	s.notifyOwner(ctx, doc.UserID)

	return nil
}

// Delete implements ports.DocumentStore. Deleting a missing document is a
// no-op.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	var userID string

	err := s.db.QueryRowContext(ctx,
		"SELECT user_id FROM saved_quote WHERE id = ?", id).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("reading saved quote owner: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM saved_quote WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting saved quote: %w", err)
	}

	s.notifyOwner(ctx, userID)

	return nil
}

// QueryOwned implements ports.DocumentStore.
func (s *SQLiteStore) QueryOwned(ctx context.Context, userID string) ([]domain.SavedQuote, error) {
	return queryOwned(ctx, s.db, userID)
}

// RunTransaction implements ports.DocumentStore. Writes inside fn become
// visible atomically on commit; owners touched by the transaction get a
// subscription notification afterwards.
func (s *SQLiteStore) RunTransaction(ctx context.Context, fn func(tx ports.DocumentTx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	tx := &sqliteTx{ctx: ctx, tx: sqlTx, touched: make(map[string]struct{})}

	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.logger.WarnContext(ctx, "transaction rollback failed", slog.Any("error", rbErr))
		}

		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	for userID := range tx.touched {
		s.notifyOwner(ctx, userID)
	}

	return nil
}

// Subscribe implements ports.DocumentStore. The initial snapshot is
// delivered synchronously before Subscribe returns.
func (s *SQLiteStore) Subscribe(ctx context.Context, userID string, onSnapshot func([]domain.SavedQuote), onError func(error)) (ports.Unsubscribe, error) {
	snapshot, err := s.QueryOwned(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = &subscriber{userID: userID, onSnapshot: onSnapshot, onError: onError}
	s.mu.Unlock()

	onSnapshot(snapshot)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}

	return unsubscribe, nil
}

// ServerTime implements ports.DocumentStore.
func (s *SQLiteStore) ServerTime() time.Time {
	return s.now().UTC()
}

// notifyOwner re-queries the owner's collection and fans it out to that
// owner's subscribers.
func (s *SQLiteStore) notifyOwner(ctx context.Context, userID string) {
	s.mu.Lock()
	targets := make([]*subscriber, 0, len(s.subs))

	for _, sub := range s.subs {
		if sub.userID == userID {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	snapshot, err := s.QueryOwned(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "snapshot query failed",
			slog.String("user_id", userID),
			slog.Any("error", err))

		for _, sub := range targets {
			sub.onError(err)
		}

		return
	}

	for _, sub := range targets {
		sub.onSnapshot(snapshot)
	}
}

// sqliteTx implements ports.DocumentTx on a database/sql transaction.
type sqliteTx struct {
	ctx     context.Context
	tx      *sql.Tx
	touched map[string]struct{}
}

func (t *sqliteTx) Get(id string) (*domain.SavedQuote, error) {
	row := t.tx.QueryRowContext(t.ctx,
		"SELECT "+savedQuoteColumns+" FROM saved_quote WHERE id = ?", id)

	doc, err := scanSavedQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("saved quote", id)
	}

	if err != nil {
		return nil, fmt.Errorf("reading saved quote: %w", err)
	}

	return doc, nil
}

func (t *sqliteTx) Set(doc *domain.SavedQuote) error {
	if err := execUpsert(t.ctx, t.tx, doc); err != nil {
		return err
	}

	t.touched[doc.UserID] = struct{}{}

	return nil
}

func (t *sqliteTx) Delete(id string) error {
	var userID string

	err := t.tx.QueryRowContext(t.ctx,
		"SELECT user_id FROM saved_quote WHERE id = ?", id).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("reading saved quote owner: %w", err)
	}

	if _, err := t.tx.ExecContext(t.ctx,
		"DELETE FROM saved_quote WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting saved quote: %w", err)
	}

	t.touched[userID] = struct{}{}

	return nil
}

// execer covers *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execUpsert(ctx context.Context, db execer, doc *domain.SavedQuote) error {
	tags, err := json.Marshal(doc.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO saved_quote (`+savedQuoteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			text = excluded.text,
			author = excluded.author,
			source = excluded.source,
			category = excluded.category,
			tags = excluded.tags,
			background_image = excluded.background_image,
			saved_at = excluded.saved_at`,
		doc.ID, doc.UserID, doc.Text, doc.Author, doc.Source,
		string(doc.Category), string(tags), doc.BackgroundImage,
		doc.SavedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("writing saved quote: %w", err)
	}

	return nil
}

func queryOwned(ctx context.Context, db *sql.DB, userID string) ([]domain.SavedQuote, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+savedQuoteColumns+" FROM saved_quote WHERE user_id = ? ORDER BY saved_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying saved quotes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []domain.SavedQuote

	for rows.Next() {
		doc, err := scanSavedQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning saved quote: %w", err)
		}

		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating saved quotes: %w", err)
	}

	return docs, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSavedQuote(row rowScanner) (*domain.SavedQuote, error) {
	var (
		doc      domain.SavedQuote
		category string
		tags     string
		savedAt  string
	)

	err := row.Scan(&doc.ID, &doc.UserID, &doc.Text, &doc.Author, &doc.Source,
		&category, &tags, &doc.BackgroundImage, &savedAt)
	if err != nil {
		return nil, err
	}

	doc.Category = domain.Category(category)

	if err := json.Unmarshal([]byte(tags), &doc.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}

	doc.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing saved_at: %w", err)
	}

	return &doc, nil
}
