package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/andarbahar/models"
)

// GormPostgreSQL is the primary Database implementation.
type GormPostgreSQL struct {
	db *gorm.DB
}

func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&models.GormUser{},
		&models.GormBetRecord{},
		&models.GormGameRecord{},
		&models.GormDealtCard{},
		&models.GormBalanceEntry{},
	); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (p *GormPostgreSQL) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var user models.GormUser
	err := p.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	return &models.User{
		ID:      user.UserID,
		Name:    user.Name,
		Balance: user.Balance,
		IsAdmin: user.IsAdmin,
	}, nil
}

func (p *GormPostgreSQL) AdjustBalance(ctx context.Context, userID int64, delta int64, reason, refID string) (int64, error) {
	var newBalance int64

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.GormUser
		// Row lock so concurrent debit and credit for the same user
		// cannot interleave.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}

		if delta < 0 && user.Balance+delta < 0 {
			return ErrInsufficientBalance
		}

		newBalance = user.Balance + delta
		if err := tx.Model(&user).Update("balance", gorm.Expr("balance + ?", delta)).Error; err != nil {
			return err
		}

		entry := models.GormBalanceEntry{
			UserID:       userID,
			Delta:        delta,
			BalanceAfter: newBalance,
			Reason:       reason,
			RefID:        refID,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (p *GormPostgreSQL) SaveBetRecord(ctx context.Context, bet *models.Bet) error {
	record := models.GormBetRecord{
		BetID:     bet.ID,
		UserID:    bet.UserID,
		GameID:    bet.GameID,
		Side:      string(bet.Side),
		Amount:    bet.Amount,
		Round:     bet.Round,
		Status:    string(bet.Status),
		Payout:    bet.Payout,
		PlacedAt:  bet.PlacedAt,
		SettledAt: bet.SettledAt,
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bet_id"}},
		UpdateAll: true,
	}).Create(&record).Error
}

func (p *GormPostgreSQL) SaveGameRecord(ctx context.Context, state *models.GameState) error {
	record := models.GormGameRecord{
		GameID:         state.GameID,
		OpeningCard:    string(state.OpeningCard),
		Winner:         string(state.Winner),
		WinningCard:    string(state.WinningCard),
		TotalCards:     state.TotalCards(),
		TotalAndarBets: state.TotalAndarBets,
		TotalBaharBets: state.TotalBaharBets,
		Rounds:         state.CurrentRound,
		StartedAt:      state.CreatedAt,
		CompletedAt:    state.UpdatedAt,
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}},
		UpdateAll: true,
	}).Create(&record).Error
}

func (p *GormPostgreSQL) SaveDealtCard(ctx context.Context, dealt *models.DealtCard) error {
	record := models.GormDealtCard{
		GameID:   dealt.GameID,
		Card:     string(dealt.Card),
		Side:     string(dealt.Side),
		Position: dealt.Position,
		Winning:  dealt.Winning,
		DealtAt:  dealt.DealtAt,
	}
	return p.db.WithContext(ctx).Create(&record).Error
}

func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
