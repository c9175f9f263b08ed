package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nft-ticket-marketplace/internal/model"
	apperrors "nft-ticket-marketplace/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultActivityLimit = 50

const activityColumns = `id, operation_id, wallet, action, ticket_id, token_id, hash, outcome, error_kind, created_at`

type ActivityRepository interface {
	// 同一個 operation 重複寫入時回傳既有的紀錄（queue 可能重送）
	Create(ctx context.Context, activity *model.Activity) (*model.Activity, error)
	ListByWallet(ctx context.Context, wallet string, limit int) ([]*model.Activity, error)
	// FindHash 該錢包對某活動最近一次成功交易的 hash
	FindHash(ctx context.Context, wallet string, action model.TxAction, ticketID int64) (string, error)
}

type ActivityRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &ActivityRepositoryImpl{
		pool: pool,
	}
}

func (r *ActivityRepositoryImpl) Create(ctx context.Context, activity *model.Activity) (*model.Activity, error) {
	query := `
		INSERT INTO activities (
			operation_id, wallet, action, ticket_id, token_id, hash, outcome, error_kind
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (operation_id) DO NOTHING
		RETURNING id, created_at
	`

	activity.Wallet = strings.ToLower(activity.Wallet)
	err := r.pool.QueryRow(ctx, query,
		activity.OperationID,
		activity.Wallet,
		activity.Action,
		activity.TicketID,
		activity.TokenID,
		activity.Hash,
		activity.Outcome,
		activity.ErrorKind,
	).Scan(&activity.ID, &activity.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return r.findByOperationID(ctx, activity.OperationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}

	return activity, nil
}

func (r *ActivityRepositoryImpl) findByOperationID(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE operation_id = $1`

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	activity, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[model.Activity])
	if err != nil {
		return nil, fmt.Errorf("failed to load activity %s: %w", id, err)
	}
	return activity, nil
}

func (r *ActivityRepositoryImpl) ListByWallet(ctx context.Context, wallet string, limit int) ([]*model.Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	query := `
		SELECT ` + activityColumns + `
		FROM activities
		WHERE wallet = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, strings.ToLower(wallet), limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Activity])
}

func (r *ActivityRepositoryImpl) FindHash(ctx context.Context, wallet string, action model.TxAction, ticketID int64) (string, error) {
	query := `
		SELECT hash
		FROM activities
		WHERE wallet = $1 AND action = $2 AND ticket_id = $3
		  AND outcome = $4 AND hash IS NOT NULL
		ORDER BY created_at DESC
		LIMIT 1
	`

	var hash string
	err := r.pool.QueryRow(ctx, query, strings.ToLower(wallet), action, ticketID, model.TxPhaseSettled).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperrors.ErrHashUnavailable
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}
