package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/jokeimport/internal/model"
)

// DBFileName is the SQLite file created under the data directory.
const DBFileName = "jokeimport.db"

// storedTimeFormat is fixed width so imported_at sorts as text.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// NodeDB is the SQLite-backed Store.
type NodeDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

var _ Store = (*NodeDB)(nil)

// Options configures NodeDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// OpenNodeDB opens or creates the node database in dbDir.
func OpenNodeDB(dbDir string, opts Options) (*NodeDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; one connection serialises inserts from
	// concurrent callers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ndb := &NodeDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := ndb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return ndb, nil
}

// Path returns the database file path.
func (ndb *NodeDB) Path() string {
	return ndb.dbPath
}

// Close closes the database connection.
func (ndb *NodeDB) Close() error {
	return ndb.db.Close()
}

// Ping checks the connection.
func (ndb *NodeDB) Ping(ctx context.Context) error {
	return ndb.db.PingContext(ctx)
}

// createTables creates the database schema if it doesn't exist.
func (ndb *NodeDB) createTables() error {
	schema := `
	-- One row per imported joke. field_id is deliberately not unique.
	CREATE TABLE IF NOT EXISTS nodes (
		nid INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		field_content TEXT NOT NULL,
		field_url TEXT NOT NULL,
		field_id TEXT NOT NULL,
		field_created TEXT NOT NULL,
		field_icon_url TEXT,
		field_categories TEXT,
		content_hash TEXT,
		imported_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type);
	CREATE INDEX IF NOT EXISTS idx_nodes_field_id ON nodes(field_id);
	CREATE INDEX IF NOT EXISTS idx_nodes_imported_at ON nodes(imported_at);
	`

	_, err := ndb.db.ExecContext(context.Background(), schema)
	return err
}

// fieldColumns lists the node field map keys in insert column order.
// Column names match the field names.
var fieldColumns = []string{
	model.FieldType,
	model.FieldTitle,
	model.FieldContent,
	model.FieldURL,
	model.FieldID,
	model.FieldCreated,
	model.FieldIconURL,
	model.FieldCategories,
}

// CreateNode inserts a node from its field map. It never updates an existing row.
func (ndb *NodeDB) CreateNode(ctx context.Context, node *model.Node) (string, error) {
	fields := node.Fields()
	categoriesJSON, err := json.Marshal(fields[model.FieldCategories])
	if err != nil {
		return "", fmt.Errorf("failed to serialize categories: %w", err)
	}
	fields[model.FieldCategories] = string(categoriesJSON)

	importedAt := node.ImportedAt
	if importedAt.IsZero() {
		importedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO nodes (type, title, field_content, field_url, field_id, field_created,
		field_icon_url, field_categories, content_hash, imported_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	args := make([]any, 0, len(fieldColumns)+2)
	for _, col := range fieldColumns {
		args = append(args, fields[col])
	}
	args = append(args, node.ContentHash, importedAt.UTC().Format(storedTimeFormat))

	result, err := ndb.db.ExecContext(ctx, query, args...)
	if err != nil {
		return "", fmt.Errorf("failed to insert node: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("failed to read node id: %w", err)
	}
	nid := strconv.FormatInt(id, 10)
	node.NID = nid
	return nid, nil
}

const nodeColumns = `nid, type, title, field_content, field_url, field_id, field_created,
	field_icon_url, field_categories, content_hash, imported_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*model.Node, error) {
	var (
		nid        int64
		node       model.Node
		iconURL    sql.NullString
		categories sql.NullString
		hash       sql.NullString
		importedAt string
	)
	err := row.Scan(&nid, &node.Type, &node.Title, &node.Content, &node.URL, &node.ExternalID,
		&node.Created, &iconURL, &categories, &hash, &importedAt)
	if err != nil {
		return nil, err
	}

	node.NID = strconv.FormatInt(nid, 10)
	node.IconURL = iconURL.String
	node.ContentHash = hash.String
	node.ImportedAt = parseTimestamp(importedAt)
	if categories.Valid && categories.String != "" && categories.String != "null" {
		if err := json.Unmarshal([]byte(categories.String), &node.Categories); err != nil {
			return nil, fmt.Errorf("failed to deserialize categories: %w", err)
		}
	}
	return &node, nil
}

// GetNode loads a node by id.
func (ndb *NodeDB) GetNode(ctx context.Context, nid string) (*model.Node, error) {
	id, err := strconv.ParseInt(nid, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nid)
	}

	row := ndb.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE nid = ?`, id)
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query node: %w", err)
	}
	return node, nil
}

// ListNodes returns nodes of nodeType, most recently imported first.
// A limit of zero or less returns every node.
func (ndb *NodeDB) ListNodes(ctx context.Context, nodeType string, limit, offset int) ([]*model.Node, error) {
	if limit <= 0 {
		limit = -1
	}
	offset = max(offset, 0)

	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE type = ?
	ORDER BY imported_at DESC, nid DESC LIMIT ? OFFSET ?`

	rows, err := ndb.db.QueryContext(ctx, query, nodeType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*model.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nodes: %w", err)
	}
	return nodes, nil
}

// CountNodes returns the number of nodes of nodeType.
func (ndb *NodeDB) CountNodes(ctx context.Context, nodeType string) (int, error) {
	var n int
	if err := ndb.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes WHERE type = ?`, nodeType).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count nodes: %w", err)
	}
	return n, nil
}

// DeleteNodes removes every node of nodeType.
func (ndb *NodeDB) DeleteNodes(ctx context.Context, nodeType string) (int64, error) {
	result, err := ndb.db.ExecContext(ctx, `DELETE FROM nodes WHERE type = ?`, nodeType)
	if err != nil {
		return 0, fmt.Errorf("failed to delete nodes: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted count: %w", err)
	}
	return n, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTimestamp tries each known format and returns zero time if none match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
