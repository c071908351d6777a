package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the credential store for user records.
type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error

	// Activate marks the user active, grants the default role, and creates
	// default preferences, all in the caller's transaction. Idempotent for
	// an already active user.
	ActivateTx(ctx context.Context, tx bun.IDB, user *User, roleName string) error

	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error

	// GetWithActiveRoleGraph loads the user with active roles and, per role,
	// active modules and permissions (with owning module) pre-fetched. The
	// flattening and permission liveness rules live in the resolver.
	GetWithActiveRoleGraph(ctx context.Context, id uuid.UUID) (*User, error)

	// GetWithRecoveryGrant loads the user by email and reports whether any
	// of their roles reaches the given module/permission pair.
	GetWithRecoveryGrant(ctx context.Context, email, moduleName, permissionName string) (*User, bool, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return a.Repository.CreateTx(ctx, tx, user)
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	now := time.Now()
	_, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("last_login_at = ?", now).
		Where("id = ?", user.ID).
		Exec(ctx)

	return err
}

func (a *users) ActivateTx(ctx context.Context, tx bun.IDB, user *User, roleName string) error {
	if _, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("is_active = ?", true).
		Where("id = ?", user.ID).
		Exec(ctx); err != nil {
		return err
	}
	user.IsActive = true

	role := &Role{}
	err := tx.NewSelect().
		Model(role).
		Where("?TableAlias.name = ?", roleName).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.NewRecordNotFound().
				WithMetadata(map[string]any{"role": roleName})
		}
		return err
	}

	link := &UserRoleLink{UserID: user.ID, RoleID: role.ID}
	if _, err := tx.NewInsert().
		Model(link).
		On("CONFLICT DO NOTHING").
		Exec(ctx); err != nil {
		return err
	}

	pref := &UserPreference{
		ID:     uuid.New(),
		UserID: user.ID,
		Locale: DefaultLocale,
	}
	if _, err := tx.NewInsert().
		Model(pref).
		On("CONFLICT DO NOTHING").
		Exec(ctx); err != nil {
		return err
	}

	return nil
}

func (a *users) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.SetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *users) SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("password_hash = ?", passwordHash).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

func (a *users) GetWithActiveRoleGraph(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Relation("Roles", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("rol.is_active")
		}).
		Relation("Roles.Modules", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("mod.is_active")
		}).
		Relation("Roles.Permissions").
		Relation("Roles.Permissions.Module").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetWithRecoveryGrant(ctx context.Context, email, moduleName, permissionName string) (*User, bool, error) {
	user, err := a.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}

	hasModule, err := a.db.NewSelect().
		Model((*UserRoleLink)(nil)).
		Join("JOIN roles AS rol ON rol.id = ?TableAlias.role_id AND rol.is_active").
		Join("JOIN role_module_links AS rml ON rml.role_id = ?TableAlias.role_id").
		Join("JOIN modules AS mod ON mod.id = rml.module_id AND mod.is_active").
		Where("?TableAlias.user_id = ?", user.ID).
		Where("mod.name = ?", moduleName).
		Exists(ctx)
	if err != nil {
		return nil, false, err
	}

	hasPermission, err := a.db.NewSelect().
		Model((*UserRoleLink)(nil)).
		Join("JOIN roles AS rol ON rol.id = ?TableAlias.role_id AND rol.is_active").
		Join("JOIN role_permission_links AS rpl ON rpl.role_id = ?TableAlias.role_id").
		Join("JOIN permissions AS prm ON prm.id = rpl.permission_id").
		Where("?TableAlias.user_id = ?", user.ID).
		Where("prm.name = ?", permissionName).
		Exists(ctx)
	if err != nil {
		return nil, false, err
	}

	return user, hasModule && hasPermission, nil
}
