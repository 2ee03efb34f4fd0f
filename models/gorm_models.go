package models

import (
	"time"

	"gorm.io/gorm"
)

// GormUser is the persisted player row. Balance is authoritative here;
// the live store only ever caches game state, never balances.
type GormUser struct {
	gorm.Model
	UserID  int64  `gorm:"uniqueIndex;not null"`
	Name    string `gorm:"not null"`
	Balance int64  `gorm:"not null;default:0"`
	IsAdmin bool   `gorm:"not null;default:false"`
}

// GormBetRecord archives a settled bet once its game completes and the
// live store entry is allowed to expire.
type GormBetRecord struct {
	BetID     string    `gorm:"primaryKey;type:varchar(64)"`
	UserID    int64     `gorm:"not null;index:idx_bet_records_user_id"`
	GameID    string    `gorm:"type:varchar(64);not null;index:idx_bet_records_game_id"`
	Side      string    `gorm:"type:varchar(8);not null"`
	Amount    int64     `gorm:"not null"`
	Round     int       `gorm:"not null"`
	Status    string    `gorm:"type:varchar(16);not null"`
	Payout    int64     `gorm:"not null;default:0"`
	PlacedAt  time.Time `gorm:"not null"`
	SettledAt *time.Time
}

func (GormBetRecord) TableName() string {
	return "bet_records"
}

// GormGameRecord archives a completed game round.
type GormGameRecord struct {
	GameID         string    `gorm:"primaryKey;type:varchar(64)"`
	OpeningCard    string    `gorm:"type:varchar(8);not null"`
	Winner         string    `gorm:"type:varchar(8)"`
	WinningCard    string    `gorm:"type:varchar(8)"`
	TotalCards     int       `gorm:"not null;default:0"`
	TotalAndarBets int64     `gorm:"not null;default:0"`
	TotalBaharBets int64     `gorm:"not null;default:0"`
	Rounds         int       `gorm:"not null;default:1"`
	StartedAt      time.Time `gorm:"not null"`
	CompletedAt    time.Time
}

func (GormGameRecord) TableName() string {
	return "game_records"
}

// GormDealtCard records each deal for audit and display replay.
type GormDealtCard struct {
	gorm.Model
	GameID   string    `gorm:"type:varchar(64);not null;index:idx_dealt_cards_game_id"`
	Card     string    `gorm:"type:varchar(8);not null"`
	Side     string    `gorm:"type:varchar(8);not null"`
	Position int       `gorm:"not null"`
	Winning  bool      `gorm:"not null;default:false"`
	DealtAt  time.Time `gorm:"not null"`
}

func (GormDealtCard) TableName() string {
	return "dealt_cards"
}

// GormBalanceEntry is the debit/credit trail behind every balance
// mutation, so a settlement can always be reconciled after the fact.
type GormBalanceEntry struct {
	gorm.Model
	UserID       int64  `gorm:"not null;index:idx_balance_entries_user_id"`
	Delta        int64  `gorm:"not null"`
	BalanceAfter int64  `gorm:"not null"`
	Reason       string `gorm:"type:varchar(32);not null"` // bet_debit, payout_credit, refund
	RefID        string `gorm:"type:varchar(64);index:idx_balance_entries_ref_id"`
}

func (GormBalanceEntry) TableName() string {
	return "balance_entries"
}
