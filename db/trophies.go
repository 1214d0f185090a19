package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/deemkeen/kinship/domain"
)

const (
	sqlUpsertTrophies = `INSERT INTO trophies(npid, unlocked, bronze, silver, gold, platinum, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(npid) DO UPDATE SET unlocked = excluded.unlocked, bronze = excluded.bronze, silver = excluded.silver,
		gold = excluded.gold, platinum = excluded.platinum, updated_at = excluded.updated_at`
	sqlSelectTrophies = `SELECT unlocked, bronze, silver, gold, platinum FROM trophies WHERE npid = ?`
)

// UpsertTrophies stores the grade counts reported for npid.
func (db *DB) UpsertTrophies(ctx context.Context, npid string, unlocked, bronze, silver, gold, platinum int64) error {
	return db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, sqlUpsertTrophies, npid, unlocked, bronze, silver, gold, platinum, time.Now().Unix())
		return err
	})
}

// ReadTrophySummary returns a level 1 summary for users without trophies.
func (db *DB) ReadTrophySummary(ctx context.Context, npid string) (domain.TrophySummary, error) {
	var unlocked, bronze, silver, gold, platinum int64
	err := db.db.QueryRowContext(ctx, sqlSelectTrophies, npid).Scan(&unlocked, &bronze, &silver, &gold, &platinum)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewTrophySummary(0, 0, 0, 0, 0), nil
	}
	if err != nil {
		return domain.TrophySummary{}, err
	}
	return domain.NewTrophySummary(unlocked, bronze, silver, gold, platinum), nil
}

func (db *DB) TrophyLevel(ctx context.Context, npid string) (int, error) {
	summary, err := db.ReadTrophySummary(ctx, npid)
	if err != nil {
		return 0, err
	}
	return summary.Level, nil
}
