package currency

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInsufficientInkDrops = errors.New("insufficient ink drops")

type TransactionSource string

const (
	SourceStreakCheckIn      TransactionSource = "streak_check_in"
	SourceStreakRestore      TransactionSource = "streak_restore"
	SourceChallengeCompleted TransactionSource = "challenge_completed"
	SourceMilestoneAchieved  TransactionSource = "milestone_achieved"
	SourceReferralBonus      TransactionSource = "referral_bonus"
	SourcePurchase           TransactionSource = "purchase"
	SourceTipSent            TransactionSource = "tip_sent"
	SourceTipReceived        TransactionSource = "tip_received"
	SourceAdminGrant         TransactionSource = "admin_grant"
)

// Transaction is one append-only ledger entry. Positive amounts are
// credits, negative amounts are debits.
type Transaction struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	UserID      uuid.UUID         `json:"user_id" db:"user_id"`
	Amount      int               `json:"amount" db:"amount"`
	Source      TransactionSource `json:"source" db:"source"`
	SenderID    *uuid.UUID        `json:"sender_id,omitempty" db:"sender_id"`
	RecipientID *uuid.UUID        `json:"recipient_id,omitempty" db:"recipient_id"`
	CreatedAt   time.Time         `json:"timestamp" db:"created_at"`
}

// tipFeePercent is the platform's cut of every tip.
const tipFeePercent = 25

// SplitTip returns the platform fee and the amount the recipient keeps.
func SplitTip(amount int) (fee int, net int) {
	fee = amount * tipFeePercent / 100
	return fee, amount - fee
}

type PurchaseRequest struct {
	Amount int `json:"amount"`
}

type TipRequest struct {
	RecipientUserID string `json:"recipient_user_id"`
	Amount          int    `json:"amount"`
}

type TipResult struct {
	SenderBalance  int `json:"sender_balance"`
	ServiceFee     int `json:"service_fee"`
	AuthorReceived int `json:"author_received"`
}

type GrantRequest struct {
	UserID string            `json:"user_id"`
	Amount int               `json:"amount"`
	Source TransactionSource `json:"source"`
}

type BalanceResponse struct {
	Balance int `json:"balance"`
}

type TransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
}
