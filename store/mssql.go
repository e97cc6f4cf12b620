package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/hugr-lab/target-mssql/catalog"
	"github.com/hugr-lab/target-mssql/sqltype"
)

// DriverName is the database/sql driver registered by go-mssqldb for
// sqlserver:// URLs.
const DriverName = "sqlserver"

const schemaNamesQuery = `SELECT name FROM sys.schemas`

// tableColumnsQuery lists columns with their type parameters, primary key
// membership and IDENTITY property. An empty schema resolves to the
// connection's default schema.
const tableColumnsQuery = `
SELECT
	c.COLUMN_NAME,
	c.DATA_TYPE,
	COALESCE(c.CHARACTER_MAXIMUM_LENGTH, 0),
	COALESCE(CAST(c.NUMERIC_PRECISION AS INT), 0),
	COALESCE(c.NUMERIC_SCALE, 0),
	c.IS_NULLABLE,
	COALESCE(COLUMNPROPERTY(OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME)), c.COLUMN_NAME, 'IsIdentity'), 0),
	CASE WHEN k.COLUMN_NAME IS NULL THEN 0 ELSE 1 END
FROM INFORMATION_SCHEMA.COLUMNS c
LEFT JOIN (
	SELECT ku.TABLE_SCHEMA, ku.TABLE_NAME, ku.COLUMN_NAME
	FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
	JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE ku
		ON tc.CONSTRAINT_NAME = ku.CONSTRAINT_NAME
		AND tc.TABLE_SCHEMA = ku.TABLE_SCHEMA
		AND tc.TABLE_NAME = ku.TABLE_NAME
	WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
) k ON k.TABLE_SCHEMA = c.TABLE_SCHEMA AND k.TABLE_NAME = c.TABLE_NAME AND k.COLUMN_NAME = c.COLUMN_NAME
WHERE c.TABLE_SCHEMA = COALESCE(NULLIF(@p1, ''), SCHEMA_NAME()) AND c.TABLE_NAME = @p2
ORDER BY c.ORDINAL_POSITION`

// MSSQL implements Store on a database/sql pool using go-mssqldb.
type MSSQL struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to SQL Server with a sqlserver:// DSN and verifies the
// connection.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*MSSQL, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewMSSQL(db, logger), nil
}

// NewMSSQL wraps an existing pool.
func NewMSSQL(db *sql.DB, logger *slog.Logger) *MSSQL {
	if logger == nil {
		logger = slog.Default()
	}
	return &MSSQL{db: db, logger: logger}
}

// DB returns the underlying pool.
func (s *MSSQL) DB() *sql.DB {
	return s.db
}

// Close implements Store.
func (s *MSSQL) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SchemaNames implements Store.
func (s *MSSQL) SchemaNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, schemaNamesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query schemas: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan schema name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// TableColumns implements Store. The database part of name is ignored: the
// connection's database is introspected.
func (s *MSSQL) TableColumns(ctx context.Context, name catalog.TableName) ([]catalog.Column, error) {
	rows, err := s.db.QueryContext(ctx, tableColumnsQuery, name.Schema, name.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %s: %w", name, err)
	}
	defer rows.Close()

	var cols []catalog.Column
	for rows.Next() {
		var (
			colName, dataType, nullable string
			length, precision, scale    int
			identity, primaryKey        int
		)
		if err := rows.Scan(&colName, &dataType, &length, &precision, &scale, &nullable, &identity, &primaryKey); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", name, err)
		}
		cols = append(cols, catalog.Column{
			Name:       colName,
			Type:       sqltype.ParseColumnType(dataType, length, precision, scale),
			Nullable:   strings.EqualFold(nullable, "YES"),
			PrimaryKey: primaryKey == 1,
			Identity:   identity == 1,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}

// Exec implements Store.
func (s *MSSQL) Exec(ctx context.Context, query string, args ...any) error {
	return WithTx(ctx, s, func(tx Tx) error {
		_, err := tx.Exec(ctx, query, args...)
		return err
	})
}

// Begin implements Store.
func (s *MSSQL) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx, state: TransactionActive, logger: s.logger}, nil
}

// sqlTx adapts *sql.Tx to Tx.
type sqlTx struct {
	tx     *sql.Tx
	state  TransactionState
	logger *slog.Logger
}

func (t *sqlTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if t.state != TransactionActive {
		return 0, fmt.Errorf("transaction is %s", t.state)
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Row counts are informational; the statement itself succeeded.
		t.logger.Debug("rows affected unavailable", "error", err)
		return 0, nil
	}
	return n, nil
}

func (t *sqlTx) Commit() error {
	if t.state != TransactionActive {
		return nil
	}
	if err := t.tx.Commit(); err != nil {
		t.state = TransactionAborted
		return err
	}
	t.state = TransactionCommitted
	return nil
}

func (t *sqlTx) Rollback() error {
	if t.state != TransactionActive {
		return nil
	}
	t.state = TransactionAborted
	return t.tx.Rollback()
}
