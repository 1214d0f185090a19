package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/deemkeen/kinship/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// DB is the database struct.
type DB struct {
	db     *sql.DB
	logger *zap.Logger
}

const (
	sqlInsertAccount       = `INSERT INTO accounts(id, npid, created_at) VALUES (?, ?, ?)`
	sqlSelectAccountByNpid = `SELECT id, npid, created_at, last_activity FROM accounts WHERE npid = ?`
	sqlSelectAccountExists = `SELECT 1 FROM accounts WHERE npid = ?`
	sqlUpdateLastActivity  = `UPDATE accounts SET last_activity = ? WHERE npid = ?`
	sqlSearchAccounts      = `SELECT npid FROM accounts WHERE instr(lower(npid), ?) > 0 AND npid != ? ORDER BY npid LIMIT ?`
	sqlInsertToken         = `INSERT INTO tokens(token, npid, created_at) VALUES (?, ?, ?)`
	sqlSelectNpidByToken   = `SELECT npid FROM tokens WHERE token = ?`
	sqlDeleteTokensByNpid  = `DELETE FROM tokens WHERE npid = ?`
)

// Open opens (and migrates) the SQLite database at path.
func Open(path string, logger *zap.Logger) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// Every connection would get its own empty in-memory database.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)

		var journalMode string
		if err := sqlDB.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
			logger.Warn("Failed to enable WAL mode", zap.Error(err))
		} else {
			logger.Info("Database journal mode", zap.String("mode", journalMode))
		}
	}

	sqlDB.Exec("PRAGMA synchronous = NORMAL")
	sqlDB.Exec("PRAGMA temp_store = MEMORY")
	sqlDB.Exec("PRAGMA busy_timeout = 5000")

	database := &DB{db: sqlDB, logger: logger}
	if err := database.RunMigrations(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return database, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// CreateAccount registers npid and returns the new account.
func (db *DB) CreateAccount(ctx context.Context, npid string) (*domain.Account, error) {
	acc := &domain.Account{
		Id:        uuid.New(),
		Npid:      npid,
		CreatedAt: time.Unix(time.Now().Unix(), 0),
	}
	err := db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, sqlInsertAccount, acc.Id.String(), acc.Npid, acc.CreatedAt.Unix())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create account %s: %w", npid, err)
	}
	return acc, nil
}

func (db *DB) ReadAccountByNpid(ctx context.Context, npid string) (*domain.Account, error) {
	var (
		acc          domain.Account
		id           string
		createdAt    int64
		lastActivity int64
	)
	err := db.db.QueryRowContext(ctx, sqlSelectAccountByNpid, npid).Scan(&id, &acc.Npid, &createdAt, &lastActivity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	acc.Id, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt account id %q: %w", id, err)
	}
	acc.CreatedAt = time.Unix(createdAt, 0)
	if lastActivity > 0 {
		acc.LastActivity = time.Unix(lastActivity, 0)
	}
	return &acc, nil
}

// UserExists answers the account collaborator question used before every
// relationship operation.
func (db *DB) UserExists(ctx context.Context, npid string) (bool, error) {
	var one int
	err := db.db.QueryRowContext(ctx, sqlSelectAccountExists, npid).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (db *DB) TouchLastActivity(ctx context.Context, npid string, at time.Time) error {
	_, err := db.db.ExecContext(ctx, sqlUpdateLastActivity, at.Unix(), npid)
	return err
}

// SearchAccounts returns npids containing query (case-insensitive), excluding self.
func (db *DB) SearchAccounts(ctx context.Context, query, exclude string, limit int) ([]string, error) {
	rows, err := db.db.QueryContext(ctx, sqlSearchAccounts, strings.ToLower(query), exclude, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	npids := make([]string, 0)
	for rows.Next() {
		var npid string
		if err := rows.Scan(&npid); err != nil {
			return nil, err
		}
		npids = append(npids, npid)
	}
	return npids, rows.Err()
}

// CreateToken issues a bearer token for an existing account.
func (db *DB) CreateToken(ctx context.Context, npid string, token string) error {
	return db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, sqlInsertToken, token, npid, time.Now().Unix())
		return err
	})
}

// ReadNpidByToken resolves a bearer token, returning domain.ErrInvalidToken when unknown.
func (db *DB) ReadNpidByToken(ctx context.Context, token string) (string, error) {
	var npid string
	err := db.db.QueryRowContext(ctx, sqlSelectNpidByToken, token).Scan(&npid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrInvalidToken
	}
	return npid, err
}

func (db *DB) DeleteTokens(ctx context.Context, npid string) error {
	return db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, sqlDeleteTokensByNpid, npid)
		return err
	})
}

// wrapTransaction runs the given function within a transaction, retrying
// while SQLite reports the database as busy.
func (db *DB) wrapTransaction(ctx context.Context, f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		db.logger.Error("error starting transaction", zap.Error(err))
		return err
	}
	for {
		err = f(tx)
		if err != nil {
			serr, ok := err.(*sqlite.Error)
			if ok && serr.Code() == sqlitelib.SQLITE_BUSY && ctx.Err() == nil {
				continue
			}
			tx.Rollback()
			db.logger.Debug("error in transaction", zap.Error(err))
			return err
		}
		err = tx.Commit()
		if err != nil {
			db.logger.Error("error committing transaction", zap.Error(err))
			return err
		}
		break
	}
	return nil
}
