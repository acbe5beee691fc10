package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rryowa/authsession/internal/models"
	"github.com/rryowa/authsession/internal/storage"
)

type Storage struct {
	db *sql.DB
	*UserRepository
	*RefreshTokenRepository
}

var _ storage.Storage = (*Storage)(nil)

func NewStorage(db *sql.DB) *Storage {
	return &Storage{
		db:                     db,
		UserRepository:         NewUserRepository(db),
		RefreshTokenRepository: NewRefreshTokenRepository(db),
	}
}

// RotateRefreshToken выполняет ротацию refresh-токена в одной транзакции.
// Старый токен помечается как revoked только если он еще не был отозван,
// иначе транзакция откатывается и новый токен не создается.
func (s *Storage) RotateRefreshToken(ctx context.Context, oldID int64, next models.RefreshToken) (int64, error) {
	var newID int64
	err := WithTx(ctx, s.db, nil, func(ctx context.Context, tx storage.DBTX) error {
		repoTx := NewRefreshTokenRepository(tx)

		revoked, err := repoTx.RevokeRefreshToken(ctx, oldID)
		if err != nil {
			return fmt.Errorf("failed to revoke refresh token in tx: %w", err)
		}
		if !revoked {
			return storage.ErrRefreshTokenNotFound
		}

		newID, err = repoTx.CreateRefreshToken(ctx, next)
		if err != nil {
			return fmt.Errorf("failed to create refresh token in tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newID, nil
}

// WithTx begins a transaction, runs fn and commits on success or rolls back
// on error or panic. Panics are rethrown.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx storage.DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("commit transaction: %w", err)
		}
	}()

	err = fn(ctx, tx)
	return err
}
