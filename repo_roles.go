package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles reads role reference data with its module/permission graph.
type Roles interface {
	repository.Repository[*Role]

	GetByName(ctx context.Context, name string) (*Role, error)

	// GetActiveGraphByName loads an active role with its active modules and
	// all permissions (with owning module) for resolver flattening.
	GetActiveGraphByName(ctx context.Context, name string) (*Role, error)
}

type roles struct {
	repository.Repository[*Role]
	db *bun.DB
}

var (
	_ Roles                        = (*roles)(nil)
	_ repository.Repository[*Role] = (*roles)(nil)
)

func NewRolesRepository(db *bun.DB) Roles {
	repo := repository.NewRepository[*Role](db, repository.ModelHandlers[*Role]{
		NewRecord: func() *Role { return &Role{} },
		GetID: func(r *Role) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Role, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &roles{
		Repository: repo,
		db:         db,
	}
}

func (a *roles) GetByName(ctx context.Context, name string) (*Role, error) {
	record := &Role{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"name": name})
		}
		return nil, err
	}

	return record, nil
}

func (a *roles) GetActiveGraphByName(ctx context.Context, name string) (*Role, error) {
	record := &Role{}
	err := a.db.NewSelect().
		Model(record).
		Relation("Modules", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("mod.is_active")
		}).
		Relation("Permissions").
		Relation("Permissions.Module").
		Where("?TableAlias.name = ?", name).
		Where("?TableAlias.is_active").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"name": name})
		}
		return nil, err
	}

	return record, nil
}
