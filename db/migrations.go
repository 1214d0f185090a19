package db

import (
	"context"
	"database/sql"

	"go.uber.org/zap"
)

const (
	sqlCreateAccountsTable = `CREATE TABLE IF NOT EXISTS accounts (
		id TEXT NOT NULL PRIMARY KEY,
		npid TEXT UNIQUE NOT NULL,
		created_at INTEGER NOT NULL,
		last_activity INTEGER DEFAULT 0
	)`

	sqlCreateTokensTable = `CREATE TABLE IF NOT EXISTS tokens (
		token TEXT NOT NULL PRIMARY KEY,
		npid TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`

	sqlCreateTokensIndices = `
		CREATE INDEX IF NOT EXISTS idx_tokens_npid ON tokens(npid);
	`

	// One row per entry in a user's friends / sent / received / blocked lists.
	sqlCreateRelationsTable = `CREATE TABLE IF NOT EXISTS relations (
		id TEXT NOT NULL PRIMARY KEY,
		account_npid TEXT NOT NULL,
		target_npid TEXT NOT NULL,
		kind TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE(account_npid, target_npid, kind)
	)`

	sqlCreateRelationsIndices = `
		CREATE INDEX IF NOT EXISTS idx_relations_account ON relations(account_npid, kind);
		CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target_npid);
	`

	sqlCreateTrophiesTable = `CREATE TABLE IF NOT EXISTS trophies (
		npid TEXT NOT NULL PRIMARY KEY,
		unlocked INTEGER DEFAULT 0,
		bronze INTEGER DEFAULT 0,
		silver INTEGER DEFAULT 0,
		gold INTEGER DEFAULT 0,
		platinum INTEGER DEFAULT 0,
		updated_at INTEGER NOT NULL
	)`
)

// RunMigrations executes all database migrations
func (db *DB) RunMigrations() error {
	return db.wrapTransaction(context.Background(), func(tx *sql.Tx) error {
		if err := db.createTableIfNotExists(tx, sqlCreateAccountsTable, "accounts"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateTokensTable, "tokens"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateRelationsTable, "relations"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateTrophiesTable, "trophies"); err != nil {
			return err
		}

		if _, err := tx.Exec(sqlCreateTokensIndices); err != nil {
			db.logger.Warn("Failed to create tokens indices", zap.Error(err))
		}
		if _, err := tx.Exec(sqlCreateRelationsIndices); err != nil {
			db.logger.Warn("Failed to create relations indices", zap.Error(err))
		}

		return nil
	})
}

func (db *DB) createTableIfNotExists(tx *sql.Tx, createSQL string, tableName string) error {
	_, err := tx.Exec(createSQL)
	if err != nil {
		db.logger.Error("Error creating table", zap.String("table", tableName), zap.Error(err))
		return err
	}
	db.logger.Debug("Table created or already exists", zap.String("table", tableName))
	return nil
}
