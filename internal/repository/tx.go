package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"

    "github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the repositories translate.
const (
    mysqlErrDuplicateEntry  = 1062
    mysqlErrLockWaitTimeout = 1205
    mysqlErrDeadlock        = 1213
)

type txKey struct{}

// querier is the subset of *sql.DB and *sql.Tx used by the repositories.
type querier interface {
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
    QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxManager runs units of work inside a database transaction.  The
// transaction travels in the context so every repository method called
// with that context joins it.
type TxManager struct {
    db *sql.DB
}

// NewTxManager returns a TxManager bound to db.
func NewTxManager(db *sql.DB) *TxManager { return &TxManager{db: db} }

// WithTx begins a transaction, calls fn with a context carrying it and
// commits when fn returns nil.  Any error from fn rolls the transaction
// back and is returned unchanged.  Nested calls reuse the outer
// transaction.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
    if TxFromContext(ctx) != nil {
        return fn(ctx)
    }
    tx, err := m.db.BeginTx(ctx, nil)
    if err != nil {
        return fmt.Errorf("begin tx: %w", classify(err))
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return fmt.Errorf("commit tx: %w", classify(err))
    }
    committed = true
    return nil
}

// TxFromContext returns the transaction stored by WithTx, or nil.
func TxFromContext(ctx context.Context) *sql.Tx {
    tx, _ := ctx.Value(txKey{}).(*sql.Tx)
    return tx
}

// conn picks the transaction in ctx when present and db otherwise.
func conn(ctx context.Context, db *sql.DB) querier {
    if tx := TxFromContext(ctx); tx != nil {
        return tx
    }
    return db
}

// classify maps driver errors onto the package sentinels.  Errors that
// match none are returned as is.
func classify(err error) error {
    if err == nil {
        return nil
    }
    var me *mysql.MySQLError
    if errors.As(err, &me) {
        switch me.Number {
        case mysqlErrDuplicateEntry:
            return fmt.Errorf("%w: %s", ErrDuplicate, me.Message)
        case mysqlErrLockWaitTimeout, mysqlErrDeadlock:
            return fmt.Errorf("%w: %s", ErrLockTimeout, me.Message)
        }
    }
    return err
}

// classifyLockWait is classify for statements that may block on a row
// lock: an expired caller deadline also counts as a lock timeout.
func classifyLockWait(err error) error {
    if errors.Is(err, context.DeadlineExceeded) {
        return fmt.Errorf("%w: %v", ErrLockTimeout, err)
    }
    return classify(err)
}
