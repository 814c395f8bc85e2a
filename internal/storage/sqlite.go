package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dshills/contentsearch/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrNotConnected is returned when the store has no open database
	ErrNotConnected = errors.New("storage not connected")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db     *sql.DB
	closed atomic.Bool
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	if s.db == nil || s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	q, err := s.querier()
	if err != nil {
		return nil, err
	}
	tx, err := q.(*sql.DB).BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// querier returns the DB querier, guarding against a missing or closed handle
func (s *SQLiteStorage) querier() (querier, error) {
	if s == nil || s.db == nil || s.closed.Load() {
		return nil, ErrNotConnected
	}
	return s.db, nil
}

// Content operations

// document is the row form of a content item
type document struct {
	collection  string
	id          string
	title       string
	summary     string
	body        string
	popularity  float64
	publishedAt sql.NullInt64
	payload     []byte
}

func toDocument(item types.ContentItem) (*document, error) {
	if err := types.ValidateItem(item); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", item.Kind(), err)
	}

	p := item.Projection()
	doc := &document{
		collection: item.Kind().Collection(),
		id:         p.ID,
		title:      p.Title,
		summary:    p.Text,
		popularity: p.Popularity,
		payload:    payload,
	}
	if !p.Timestamp.IsZero() {
		doc.publishedAt = sql.NullInt64{Int64: p.Timestamp.Unix(), Valid: true}
	}

	switch v := item.(type) {
	case *types.Article:
		doc.body = v.Content
	case *types.LegalDocument:
		doc.body = v.Section
	}
	return doc, nil
}

func upsertItem(ctx context.Context, q querier, item types.ContentItem) error {
	doc, err := toDocument(item)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (collection, id, title, summary, body, popularity, published_at, created_at, updated_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			body = excluded.body,
			popularity = excluded.popularity,
			published_at = excluded.published_at,
			updated_at = excluded.updated_at,
			payload = excluded.payload
	`
	now := time.Now().Unix()
	_, err = q.ExecContext(ctx, query,
		doc.collection, doc.id, doc.title, doc.summary, doc.body,
		doc.popularity, doc.publishedAt, now, now, string(doc.payload))
	if err != nil {
		return fmt.Errorf("failed to upsert %s %s: %w", doc.collection, doc.id, err)
	}
	return nil
}

func getItem(ctx context.Context, q querier, kind types.ContentKind, id string) (types.ContentItem, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownKind, kind)
	}
	var payload string
	err := q.QueryRowContext(ctx,
		"SELECT payload FROM documents WHERE collection = ? AND id = ?",
		kind.Collection(), id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return types.DecodeItem(kind, []byte(payload))
}

func deleteItem(ctx context.Context, q querier, kind types.ContentKind, id string) error {
	result, err := q.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		kind.Collection(), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func listItems(ctx context.Context, q querier, kind types.ContentKind, cq ContentQuery) ([]types.ContentItem, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownKind, kind)
	}

	var sb strings.Builder
	sb.WriteString("SELECT payload FROM documents WHERE collection = ?")
	args := []interface{}{kind.Collection()}

	if pattern := strings.TrimSpace(cq.Pattern); pattern != "" {
		like := "%" + escapeLike(pattern) + "%"
		if cq.TitleOnly {
			sb.WriteString(` AND title LIKE ? ESCAPE '\'`)
			args = append(args, like)
		} else {
			sb.WriteString(` AND (title LIKE ? ESCAPE '\' OR summary LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\')`)
			args = append(args, like, like, like)
		}
	}

	if !cq.Since.IsZero() {
		sb.WriteString(" AND COALESCE(published_at, created_at) >= ?")
		args = append(args, cq.Since.Unix())
	}

	switch cq.Order {
	case OrderPopular:
		sb.WriteString(" ORDER BY popularity DESC, COALESCE(published_at, created_at) DESC, id")
	default:
		sb.WriteString(" ORDER BY COALESCE(published_at, created_at) DESC, id")
	}

	if cq.Limit > 0 {
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, cq.Limit, cq.Offset)
	}

	rows, err := q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind.Collection(), err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]types.ContentItem, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", kind.Collection(), err)
		}
		item, err := types.DecodeItem(kind, []byte(payload))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func countItems(ctx context.Context, q querier, kind types.ContentKind) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE collection = ?", kind.Collection()).Scan(&n)
	return n, err
}

// escapeLike escapes LIKE wildcards so patterns match literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// User operations

func upsertUser(ctx context.Context, q querier, user *types.User) error {
	if user == nil || user.ID == "" {
		return types.ErrMissingID
	}
	interests, err := json.Marshal(nonNil(user.Interests))
	if err != nil {
		return err
	}
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO users (id, name, email, bio, interests, language, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			bio = excluded.bio,
			interests = excluded.interests,
			language = excluded.language
	`
	_, err = q.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.Bio, string(interests), user.Language, createdAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.ID, err)
	}
	return nil
}

func getUser(ctx context.Context, q querier, id string) (*types.User, error) {
	var user types.User
	var interests string
	var createdAt int64
	err := q.QueryRowContext(ctx,
		"SELECT id, name, email, bio, interests, language, created_at FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.Name, &user.Email, &user.Bio, &interests, &user.Language, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(interests), &user.Interests); err != nil {
		return nil, fmt.Errorf("decode interests of user %s: %w", id, err)
	}
	user.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &user, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Key-value operations

func getValue(ctx context.Context, q querier, key string) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return value, err
}

func setValue(ctx context.Context, q querier, key string, value []byte) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func deleteValue(ctx context.Context, q querier, key string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	return err
}

// Status operations

func getStatus(ctx context.Context, q querier) (*Status, error) {
	status := &Status{
		Counts:    make(map[types.ContentKind]int, len(types.AllKinds)),
		BuildMode: BuildMode,
	}

	for _, kind := range types.AllKinds {
		n, err := countItems(ctx, q, kind)
		if err != nil {
			return nil, err
		}
		status.Counts[kind] = n
		status.TotalItems += n
	}

	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&status.Users); err != nil {
		return nil, err
	}

	var lastUpdated sql.NullInt64
	if err := q.QueryRowContext(ctx, "SELECT MAX(updated_at) FROM documents").Scan(&lastUpdated); err != nil {
		return nil, err
	}
	if lastUpdated.Valid {
		status.LastUpdatedAt = time.Unix(lastUpdated.Int64, 0).UTC()
	}

	var version sql.NullString
	err := q.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC, version DESC LIMIT 1").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	status.SchemaVersion = version.String

	// Calculate database size
	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			status.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
		}
	}

	return status, nil
}

// SQLiteStorage methods

func (s *SQLiteStorage) UpsertItem(ctx context.Context, item types.ContentItem) error {
	q, err := s.querier()
	if err != nil {
		return err
	}
	return upsertItem(ctx, q, item)
}

func (s *SQLiteStorage) GetItem(ctx context.Context, kind types.ContentKind, id string) (types.ContentItem, error) {
	q, err := s.querier()
	if err != nil {
		return nil, err
	}
	return getItem(ctx, q, kind, id)
}

func (s *SQLiteStorage) DeleteItem(ctx context.Context, kind types.ContentKind, id string) error {
	q, err := s.querier()
	if err != nil {
		return err
	}
	return deleteItem(ctx, q, kind, id)
}

func (s *SQLiteStorage) ListItems(ctx context.Context, kind types.ContentKind, cq ContentQuery) ([]types.ContentItem, error) {
	q, err := s.querier()
	if err != nil {
		return nil, err
	}
	return listItems(ctx, q, kind, cq)
}

func (s *SQLiteStorage) CountItems(ctx context.Context, kind types.ContentKind) (int, error) {
	q, err := s.querier()
	if err != nil {
		return 0, err
	}
	return countItems(ctx, q, kind)
}

func (s *SQLiteStorage) UpsertUser(ctx context.Context, user *types.User) error {
	q, err := s.querier()
	if err != nil {
		return err
	}
	return upsertUser(ctx, q, user)
}

func (s *SQLiteStorage) GetUser(ctx context.Context, id string) (*types.User, error) {
	q, err := s.querier()
	if err != nil {
		return nil, err
	}
	return getUser(ctx, q, id)
}

func (s *SQLiteStorage) GetValue(ctx context.Context, key string) ([]byte, error) {
	q, err := s.querier()
	if err != nil {
		return nil, err
	}
	return getValue(ctx, q, key)
}

func (s *SQLiteStorage) SetValue(ctx context.Context, key string, value []byte) error {
	q, err := s.querier()
	if err != nil {
		return err
	}
	return setValue(ctx, q, key, value)
}

func (s *SQLiteStorage) DeleteValue(ctx context.Context, key string) error {
	q, err := s.querier()
	if err != nil {
		return err
	}
	return deleteValue(ctx, q, key)
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	q, err := s.querier()
	if err != nil {
		return nil, err
	}
	return getStatus(ctx, q)
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) UpsertItem(ctx context.Context, item types.ContentItem) error {
	return upsertItem(ctx, t.tx, item)
}

func (t *sqliteTx) GetItem(ctx context.Context, kind types.ContentKind, id string) (types.ContentItem, error) {
	return getItem(ctx, t.tx, kind, id)
}

func (t *sqliteTx) DeleteItem(ctx context.Context, kind types.ContentKind, id string) error {
	return deleteItem(ctx, t.tx, kind, id)
}

func (t *sqliteTx) ListItems(ctx context.Context, kind types.ContentKind, cq ContentQuery) ([]types.ContentItem, error) {
	return listItems(ctx, t.tx, kind, cq)
}

func (t *sqliteTx) CountItems(ctx context.Context, kind types.ContentKind) (int, error) {
	return countItems(ctx, t.tx, kind)
}

func (t *sqliteTx) UpsertUser(ctx context.Context, user *types.User) error {
	return upsertUser(ctx, t.tx, user)
}

func (t *sqliteTx) GetUser(ctx context.Context, id string) (*types.User, error) {
	return getUser(ctx, t.tx, id)
}

func (t *sqliteTx) GetValue(ctx context.Context, key string) ([]byte, error) {
	return getValue(ctx, t.tx, key)
}

func (t *sqliteTx) SetValue(ctx context.Context, key string, value []byte) error {
	return setValue(ctx, t.tx, key, value)
}

func (t *sqliteTx) DeleteValue(ctx context.Context, key string) error {
	return deleteValue(ctx, t.tx, key)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	return getStatus(ctx, t.tx)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
