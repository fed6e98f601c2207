package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"inkwellAPI/internal/notification"
	"inkwellAPI/internal/types/currency"
	"inkwellAPI/internal/types/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InkDropService is the ledger: an append-only per-user transaction log plus
// the cached running balance on the users row. The cached balance is written
// in the same transaction as the entry, so the two can never diverge.
type InkDropService struct {
	db            *pgxpool.Pool
	notifications *NotificationService
}

func NewInkDropService(db *pgxpool.Pool, notifications *NotificationService) *InkDropService {
	return &InkDropService{db: db, notifications: notifications}
}

// AddInkDrops credits (positive amount) or debits (negative amount) a user
// and returns the new balance. A debit that would make the balance negative
// fails with currency.ErrInsufficientInkDrops and changes nothing.
func (s *InkDropService) AddInkDrops(ctx context.Context, userID uuid.UUID, amount int, source currency.TransactionSource) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	balance, err := s.AddInkDropsTx(ctx, tx, userID, amount, source)
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return balance, nil
}

// AddInkDropsTx is the ledger mutation other services compose into their own
// transactions, so a streak advance and its payout commit or roll back as one.
func (s *InkDropService) AddInkDropsTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, source currency.TransactionSource) (int, error) {
	return s.appendEntry(ctx, tx, userID, amount, source, nil, nil)
}

// appendEntry locks the user's balance row, checks the overdraft guard before
// any write, then updates the cached balance and appends the entry.
func (s *InkDropService) appendEntry(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int, source currency.TransactionSource, senderID, recipientID *uuid.UUID) (int, error) {
	var balance int
	err := tx.QueryRow(ctx, `SELECT ink_drops FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, user.ErrNotFound
		}
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}

	newBalance := balance + amount
	if newBalance < 0 {
		return 0, currency.ErrInsufficientInkDrops
	}

	_, err = tx.Exec(ctx, `UPDATE users SET ink_drops = $1, updated_at = NOW() WHERE id = $2`, newBalance, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to update balance: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ink_drop_transactions (id, user_id, amount, source, sender_id, recipient_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New(), userID, amount, source, senderID, recipientID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to append transaction: %w", err)
	}

	recordInkDrops(amount, source)
	return newBalance, nil
}

func (s *InkDropService) GetBalance(ctx context.Context, clerkID string) (int, error) {
	var balance int
	err := s.db.QueryRow(ctx, `SELECT ink_drops FROM users WHERE clerk_id = $1`, clerkID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, user.ErrNotFound
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// GetTransactions returns the user's full ledger history, newest first.
func (s *InkDropService) GetTransactions(ctx context.Context, clerkID string) ([]*currency.Transaction, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	query := `
	SELECT id, user_id, amount, source, sender_id, recipient_id, created_at
	FROM ink_drop_transactions
	WHERE user_id = $1
	ORDER BY created_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*currency.Transaction
	for rows.Next() {
		t := &currency.Transaction{}
		err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Source, &t.SenderID, &t.RecipientID, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	if transactions == nil {
		transactions = []*currency.Transaction{}
	}

	return transactions, nil
}

// Purchase credits bought currency onto the caller's balance.
func (s *InkDropService) Purchase(ctx context.Context, clerkID string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("purchase amount must be positive")
	}

	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return 0, err
	}

	return s.AddInkDrops(ctx, userID, amount, currency.SourcePurchase)
}

// Tip moves amount from the caller to recipientUserID minus the platform fee.
// Debit and credit are two entries in one transaction: both land or neither.
func (s *InkDropService) Tip(ctx context.Context, clerkID string, recipientUserID string, amount int) (*currency.TipResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("tip amount must be positive")
	}

	senderID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	recipientID, err := uuid.Parse(recipientUserID)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient user id: %w", err)
	}

	if senderID == recipientID {
		return nil, fmt.Errorf("cannot tip yourself")
	}

	fee, net := currency.SplitTip(amount)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock both balance rows in id order so two crossing tips cannot deadlock.
	rows, err := tx.Query(ctx, `SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`, []uuid.UUID{senderID, recipientID})
	if err != nil {
		return nil, fmt.Errorf("failed to lock users: %w", err)
	}
	locked := 0
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan locked user: %w", err)
		}
		locked++
	}
	rows.Close()
	if locked != 2 {
		return nil, user.ErrNotFound
	}

	senderBalance, err := s.appendEntry(ctx, tx, senderID, -amount, currency.SourceTipSent, nil, &recipientID)
	if err != nil {
		return nil, err
	}

	if _, err = s.appendEntry(ctx, tx, recipientID, net, currency.SourceTipReceived, &senderID, nil); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Tip: %s sent %d ink drops to %s (fee %d)", senderID, amount, recipientID, fee)

	if s.notifications != nil {
		s.notifications.Notify(recipientID, notification.NotificationTipReceived, map[string]any{"amount": net}, net)
	}

	return &currency.TipResult{
		SenderBalance:  senderBalance,
		ServiceFee:     fee,
		AuthorReceived: net,
	}, nil
}

func (s *InkDropService) resolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, user.ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to find user: %w", err)
	}
	return userID, nil
}
