package services

import (
	"context"

	"github.com/wfunc/andarbahar/persistence"
)

// Ledger reasons recorded against every balance mutation.
const (
	ReasonBetDebit     = "bet_debit"
	ReasonPayoutCredit = "payout_credit"
	ReasonRefund       = "refund"
)

// WalletService wraps the database balance operations with the named
// movements the engines perform. All atomicity lives in
// Database.AdjustBalance; this layer only fixes the ledger vocabulary.
type WalletService struct {
	db persistence.Database
}

func NewWalletService(db persistence.Database) *WalletService {
	return &WalletService{db: db}
}

// DebitBet takes the stake for a bet. betID ties the ledger entry to the
// bet record.
func (s *WalletService) DebitBet(ctx context.Context, userID, amount int64, betID string) (int64, error) {
	return s.db.AdjustBalance(ctx, userID, -amount, ReasonBetDebit, betID)
}

// CreditPayout pays a winning bet. txID is the payout transaction
// identifier guarding against double payment.
func (s *WalletService) CreditPayout(ctx context.Context, userID, amount int64, txID string) (int64, error) {
	return s.db.AdjustBalance(ctx, userID, amount, ReasonPayoutCredit, txID)
}

// RefundBet returns a stake after a bet failed to persist.
func (s *WalletService) RefundBet(ctx context.Context, userID, amount int64, betID string) (int64, error) {
	return s.db.AdjustBalance(ctx, userID, amount, ReasonRefund, betID)
}
