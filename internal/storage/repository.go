package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
	"ledger/internal/log"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width and always UTC so that TEXT comparison orders
// chronologically and substr(date, 1, 7) is the YYYY-MM bucket.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

const transactionColumns = "id, type, amount_cents, description, category, date, created_at, updated_at"

// Connection pragmas applied to every pooled connection.
var defaultPragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database at dsn, checks
// connectivity and applies pending migrations.
func NewSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	dsn = buildDSN(dsn)

	if path := filePath(dsn); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := Migrate(context.Background(), dsn, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return NewRepository(db), nil
}

// NewRepository wraps an already migrated database handle.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Create stores a new transaction built from d.
func (r *SQLiteRepository) Create(ctx context.Context, d core.Draft) (core.Transaction, error) {
	now := r.timestamp()
	t := core.Transaction{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	d.Category = core.NormalizeCategory(d.Category)
	d.Date = d.Date.UTC().Truncate(time.Millisecond)
	d.Apply(&t)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`, category_search) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Type), t.Amount.Cents, t.Description, t.Category,
		formatTime(t.Date), formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
		categorySearchKey(t.Category))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", mapConstraintError(err))
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		log.FieldComponent, log.ComponentStorage,
		log.FieldOperation, log.OpCreate,
		log.FieldTransactionID, t.ID,
		log.FieldType, t.Type,
		log.FieldAmountCents, t.Amount.Cents,
		log.FieldCategory, t.Category)

	return t, nil
}

// FindByID returns core.ErrInvalidID for a malformed id and core.ErrNotFound
// when no row matches.
func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (core.Transaction, error) {
	key, err := parseID(id)
	if err != nil {
		return core.Transaction{}, err
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, key)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", key, err)
	}
	return t, nil
}

// List returns one page of transactions matching f, newest first, along with
// the total number of matches.
func (r *SQLiteRepository) List(ctx context.Context, f core.TransactionFilter, limit, offset int) ([]core.Transaction, int64, error) {
	where, args := buildWhere(f)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions` + where +
		` ORDER BY date DESC, created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	items, err := scanTransactions(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return items, total, nil
}

// Update replaces every mutable field of the transaction with id.
// created_at is preserved; concurrent updates are last-write-wins.
func (r *SQLiteRepository) Update(ctx context.Context, id string, d core.Draft) (core.Transaction, error) {
	key, err := parseID(id)
	if err != nil {
		return core.Transaction{}, err
	}

	d.Category = core.NormalizeCategory(d.Category)
	d.Date = d.Date.UTC().Truncate(time.Millisecond)

	row := r.db.QueryRowContext(ctx,
		`UPDATE transactions
		    SET type = ?, amount_cents = ?, description = ?, category = ?, category_search = ?, date = ?, updated_at = ?
		  WHERE id = ?
		RETURNING `+transactionColumns,
		string(d.Type), d.Amount.Cents, d.Description, d.Category, categorySearchKey(d.Category),
		formatTime(d.Date), formatTime(r.timestamp()), key)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", key, mapConstraintError(err))
	}
	return t, nil
}

// Delete hard-deletes the transaction with id.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, key)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", key, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

func parseID(id string) (string, error) {
	return core.ParseID(id)
}

func buildWhere(f core.TransactionFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(f.Type))
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		clauses = append(clauses, `category_search LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(categorySearchKey(c))+"%")
	}
	if f.StartDate != nil {
		clauses = append(clauses, "date >= ?")
		args = append(args, formatTime(*f.StartDate))
	}
	if f.EndDate != nil {
		clauses = append(clauses, "date <= ?")
		args = append(args, formatTime(*f.EndDate))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                      core.Transaction
		typ                    string
		date, created, updated string
	)
	if err := row.Scan(&t.ID, &typ, &t.Amount.Cents, &t.Description, &t.Category, &date, &created, &updated); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)

	var err error
	if t.Date, err = parseTime(date); err != nil {
		return core.Transaction{}, fmt.Errorf("parse date of %s: %w", t.ID, err)
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at of %s: %w", t.ID, err)
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Transaction{}, fmt.Errorf("parse updated_at of %s: %w", t.ID, err)
	}
	return t, nil
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	items := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// constraintFields maps CHECK constraint names to the payload field they guard.
var constraintFields = map[string]struct{ field, message string }{
	"ck_transactions_type":        {"type", core.MsgInvalidType},
	"ck_transactions_amount":      {"amount", core.MsgInvalidAmount},
	"ck_transactions_description": {"description", core.MsgInvalidDescription},
	"ck_transactions_category":    {"category", core.MsgInvalidCategory},
}

// mapConstraintError turns a CHECK constraint rejection into a
// *core.ValidationError; other errors pass through unchanged.
func mapConstraintError(err error) error {
	if err == nil || !strings.Contains(err.Error(), "CHECK constraint failed") {
		return err
	}
	verr := &core.ValidationError{}
	for name, f := range constraintFields {
		if strings.Contains(err.Error(), name) {
			verr.Add(f.field, f.message, "")
		}
	}
	if len(verr.Fields) == 0 {
		verr.Add("transaction", err.Error(), "")
	}
	return verr
}

// buildDSN turns a bare path into a file: URI and adds the default pragmas
// unless the caller already set some.
func buildDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == ":memory:" {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, p := range defaultPragmas {
		dsn += sep + "_pragma=" + p
		sep = "&"
	}
	return dsn
}

// filePath extracts the on-disk path from a file: DSN, or "" for in-memory databases.
func filePath(dsn string) string {
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return ""
	}
	return path
}
