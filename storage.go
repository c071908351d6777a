package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EnsureSchema creates every table the package persists to, including the
// m2m join tables. Safe to call on every boot.
func EnsureSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*User)(nil),
		(*UserToken)(nil),
		(*UserPreference)(nil),
		(*Role)(nil),
		(*Module)(nil),
		(*Permission)(nil),
		(*UserRoleLink)(nil),
		(*RoleModuleLink)(nil),
		(*RolePermissionLink)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}

	return nil
}

// SeedDefaults installs the baseline authorization graph: the guest and
// user roles, the password recovery module, and its two permissions wired
// to the user role. Idempotent; existing rows are left untouched.
func SeedDefaults(ctx context.Context, db *bun.DB) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := ensureRole(ctx, tx, RoleGuest); err != nil {
			return err
		}

		userID, err := ensureRole(ctx, tx, RoleDefault)
		if err != nil {
			return err
		}

		moduleID, err := ensureModule(ctx, tx, ModulePasswordRecovery)
		if err != nil {
			return err
		}

		if err := ensureLink(ctx, tx, &RoleModuleLink{RoleID: userID, ModuleID: moduleID}); err != nil {
			return err
		}

		for _, name := range []string{PermissionPasswordResetRequest, PermissionPasswordResetExecute} {
			permID, err := ensurePermission(ctx, tx, name, moduleID)
			if err != nil {
				return err
			}
			if err := ensureLink(ctx, tx, &RolePermissionLink{RoleID: userID, PermissionID: permID}); err != nil {
				return err
			}
		}

		return nil
	})
}

func ensureRole(ctx context.Context, tx bun.Tx, name string) (uuid.UUID, error) {
	role := &Role{ID: uuid.New(), Name: name, IsActive: true}
	if _, err := tx.NewInsert().
		Model(role).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("seed role %q: %w", name, err)
	}

	existing := new(Role)
	if err := tx.NewSelect().
		Model(existing).
		Where("name = ?", name).
		Scan(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("load role %q: %w", name, err)
	}

	return existing.ID, nil
}

func ensureModule(ctx context.Context, tx bun.Tx, name string) (uuid.UUID, error) {
	module := &Module{ID: uuid.New(), Name: name, IsActive: true}
	if _, err := tx.NewInsert().
		Model(module).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("seed module %q: %w", name, err)
	}

	existing := new(Module)
	if err := tx.NewSelect().
		Model(existing).
		Where("name = ?", name).
		Scan(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("load module %q: %w", name, err)
	}

	return existing.ID, nil
}

func ensurePermission(ctx context.Context, tx bun.Tx, name string, moduleID uuid.UUID) (uuid.UUID, error) {
	perm := &Permission{ID: uuid.New(), Name: name, IsActive: true, ModuleID: &moduleID}
	if _, err := tx.NewInsert().
		Model(perm).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("seed permission %q: %w", name, err)
	}

	existing := new(Permission)
	if err := tx.NewSelect().
		Model(existing).
		Where("name = ?", name).
		Scan(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("load permission %q: %w", name, err)
	}

	return existing.ID, nil
}

func ensureLink(ctx context.Context, tx bun.Tx, link any) error {
	if _, err := tx.NewInsert().
		Model(link).
		On("CONFLICT DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("seed link %T: %w", link, err)
	}
	return nil
}
