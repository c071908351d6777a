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

// UserTokens stores single-purpose tokens. Replace enforces the invariant
// that at most one live row exists per (user, purpose).
type UserTokens interface {
	repository.Repository[*UserToken]

	// Replace deletes any prior row for (userID, purpose) and inserts the
	// new one inside a single transaction.
	Replace(ctx context.Context, userID uuid.UUID, purpose TokenPurpose, token string, expiresAt time.Time) (*UserToken, error)
	ReplaceTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose TokenPurpose, token string, expiresAt time.Time) (*UserToken, error)

	// Find matches the exact persisted token for (userID, token, purpose).
	Find(ctx context.Context, userID uuid.UUID, token string, purpose TokenPurpose) (*UserToken, error)

	// ExistsForPurpose reports whether any live row exists for the pair.
	ExistsForPurpose(ctx context.Context, userID uuid.UUID, purpose TokenPurpose) (bool, error)

	// DeleteForPurpose removes every row for (userID, purpose). Deleting
	// nothing is not an error.
	DeleteForPurpose(ctx context.Context, userID uuid.UUID, purpose TokenPurpose) error
	DeleteForPurposeTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose TokenPurpose) error

	Consume(ctx context.Context, id uuid.UUID) error
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type userTokens struct {
	repository.Repository[*UserToken]
	db *bun.DB
}

var (
	_ UserTokens                        = (*userTokens)(nil)
	_ repository.Repository[*UserToken] = (*userTokens)(nil)
)

func NewUserTokensRepository(db *bun.DB) UserTokens {
	repo := repository.NewRepository[*UserToken](db, repository.ModelHandlers[*UserToken]{
		NewRecord: func() *UserToken { return &UserToken{} },
		GetID: func(t *UserToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *UserToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
	})

	return &userTokens{
		Repository: repo,
		db:         db,
	}
}

func (a *userTokens) Replace(ctx context.Context, userID uuid.UUID, purpose TokenPurpose, token string, expiresAt time.Time) (*UserToken, error) {
	var record *UserToken

	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		record, err = a.ReplaceTx(ctx, tx, userID, purpose, token, expiresAt)
		return err
	})

	return record, err
}

func (a *userTokens) ReplaceTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose TokenPurpose, token string, expiresAt time.Time) (*UserToken, error) {
	if err := a.DeleteForPurposeTx(ctx, tx, userID, purpose); err != nil {
		return nil, err
	}

	record := &UserToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		Purpose:   purpose,
		ExpiresAt: expiresAt,
	}

	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *userTokens) Find(ctx context.Context, userID uuid.UUID, token string, purpose TokenPurpose) (*UserToken, error) {
	record := &UserToken{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.token = ?", token).
		Where("?TableAlias.purpose = ?", purpose).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
					"purpose": purpose,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *userTokens) ExistsForPurpose(ctx context.Context, userID uuid.UUID, purpose TokenPurpose) (bool, error) {
	return a.db.NewSelect().
		Model((*UserToken)(nil)).
		Where("user_id = ?", userID).
		Where("purpose = ?", purpose).
		Where("expires_at > ?", time.Now()).
		Exists(ctx)
}

func (a *userTokens) DeleteForPurpose(ctx context.Context, userID uuid.UUID, purpose TokenPurpose) error {
	return a.DeleteForPurposeTx(ctx, a.db, userID, purpose)
}

func (a *userTokens) DeleteForPurposeTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose TokenPurpose) error {
	_, err := tx.NewDelete().
		Model((*UserToken)(nil)).
		Where("user_id = ?", userID).
		Where("purpose = ?", purpose).
		Exec(ctx)

	return err
}

func (a *userTokens) Consume(ctx context.Context, id uuid.UUID) error {
	return a.ConsumeTx(ctx, a.db, id)
}

func (a *userTokens) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*UserToken)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	return err
}
