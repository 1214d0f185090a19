package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/deemkeen/kinship/domain"
	"github.com/google/uuid"
)

const (
	sqlSelectRelations      = `SELECT target_npid, kind, created_at FROM relations WHERE account_npid = ? ORDER BY created_at, rowid`
	sqlSelectRelationTarget = `SELECT target_npid FROM relations WHERE account_npid = ? AND kind = ? ORDER BY created_at, rowid`
	sqlSelectRelationKinds  = `SELECT kind FROM relations WHERE account_npid = ? AND target_npid = ?`
	sqlInsertRelation       = `INSERT OR IGNORE INTO relations(id, account_npid, target_npid, kind, created_at) VALUES (?, ?, ?, ?, ?)`
	sqlDeleteRelation       = `DELETE FROM relations WHERE account_npid = ? AND target_npid = ? AND kind = ?`
)

// ReadFriendsData loads npid's side of the relationship graph.
func (db *DB) ReadFriendsData(ctx context.Context, npid string) (*domain.FriendsData, error) {
	rows, err := db.db.QueryContext(ctx, sqlSelectRelations, npid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	data := &domain.FriendsData{
		Npid:     npid,
		Friends:  []domain.Relation{},
		Sent:     []domain.Relation{},
		Received: []domain.Relation{},
		Blocked:  []domain.Relation{},
	}

	for rows.Next() {
		var (
			target    string
			kind      string
			createdAt int64
		)
		if err := rows.Scan(&target, &kind, &createdAt); err != nil {
			return nil, err
		}
		rel := domain.Relation{Npid: target, At: time.Unix(createdAt, 0)}
		switch domain.RelationKind(kind) {
		case domain.KindFriend:
			data.Friends = append(data.Friends, rel)
		case domain.KindRequestSent:
			data.Sent = append(data.Sent, rel)
		case domain.KindRequestReceived:
			data.Received = append(data.Received, rel)
		case domain.KindBlocked:
			data.Blocked = append(data.Blocked, rel)
		default:
			db.logger.Sugar().Warnf("Ignoring relation of unknown kind %q for %s", kind, npid)
		}
	}

	return data, rows.Err()
}

// FriendsOf returns the npids npid is friends with.
func (db *DB) FriendsOf(ctx context.Context, npid string) ([]string, error) {
	rows, err := db.db.QueryContext(ctx, sqlSelectRelationTarget, npid, string(domain.KindFriend))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	friends := make([]string, 0)
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, err
		}
		friends = append(friends, target)
	}
	return friends, rows.Err()
}

// Relationship classifies b from a's point of view.
func (db *DB) Relationship(ctx context.Context, a, b string) (domain.Relationship, error) {
	rows, err := db.db.QueryContext(ctx, sqlSelectRelationKinds, a, b)
	if err != nil {
		return domain.RelationshipNone, err
	}
	defer rows.Close()

	data := &domain.FriendsData{Npid: a}
	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return domain.RelationshipNone, err
		}
		rel := []domain.Relation{{Npid: b}}
		switch domain.RelationKind(kind) {
		case domain.KindFriend:
			data.Friends = rel
		case domain.KindRequestSent:
			data.Sent = rel
		case domain.KindRequestReceived:
			data.Received = rel
		case domain.KindBlocked:
			data.Blocked = rel
		}
	}
	if err := rows.Err(); err != nil {
		return domain.RelationshipNone, err
	}
	return data.RelationshipTo(b), nil
}

// ApplyRelationChanges applies all changes atomically.
func (db *DB) ApplyRelationChanges(ctx context.Context, changes []domain.RelationChange) error {
	if len(changes) == 0 {
		return nil
	}
	return db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		for _, c := range changes {
			var err error
			switch c.Op {
			case domain.OpInsert:
				_, err = tx.ExecContext(ctx, sqlInsertRelation, uuid.NewString(), c.Account, c.Target, string(c.Kind), c.At.Unix())
			case domain.OpDelete:
				_, err = tx.ExecContext(ctx, sqlDeleteRelation, c.Account, c.Target, string(c.Kind))
			default:
				err = fmt.Errorf("unknown relation op %d", c.Op)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}
