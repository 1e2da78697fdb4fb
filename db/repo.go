package db

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Numbering issues human-readable codes, one call per kit/template creation.
// The production implementation counts through Redis (gateway.RedisNumbering).
type Numbering interface {
	NextCode(ctx context.Context, series, tenantID string) (string, error)
}

// Identity resolves a user id to a display name, failing with a NotFound
// taxonomy error for unknown users.
type Identity interface {
	ResolveUser(ctx context.Context, userID int64) (string, error)
}

// Code series consumed from the Numbering gateway.
const (
	SeriesKit      = "KIT"
	SeriesTemplate = "TPL"
)

type Repo struct {
	DB    *gorm.DB
	Codes Numbering
	Users Identity
}

func NewRepo(db *gorm.DB, codes Numbering, users Identity) *Repo {
	return &Repo{DB: db, Codes: codes, Users: users}
}

// forUpdate adds a row lock on dialects that support it. sqlite (tests)
// serializes writers on its own and rejects FOR UPDATE syntax.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
