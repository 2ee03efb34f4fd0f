package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// PostgreSQL driver
	_ "github.com/lib/pq"

	"github.com/wfunc/andarbahar/models"
)

// PostgreSQL is the raw database/sql implementation, kept for
// deployments that run without the ORM layer.
type PostgreSQL struct {
	db *sql.DB
}

func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS gorm_users (
            id SERIAL PRIMARY KEY,
            user_id BIGINT UNIQUE NOT NULL,
            name TEXT NOT NULL DEFAULT '',
            balance BIGINT NOT NULL DEFAULT 0,
            is_admin BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS bet_records (
            bet_id VARCHAR(64) PRIMARY KEY,
            user_id BIGINT NOT NULL,
            game_id VARCHAR(64) NOT NULL,
            side VARCHAR(8) NOT NULL,
            amount BIGINT NOT NULL,
            round INT NOT NULL,
            status VARCHAR(16) NOT NULL,
            payout BIGINT NOT NULL DEFAULT 0,
            placed_at TIMESTAMP NOT NULL,
            settled_at TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS game_records (
            game_id VARCHAR(64) PRIMARY KEY,
            opening_card VARCHAR(8) NOT NULL,
            winner VARCHAR(8),
            winning_card VARCHAR(8),
            total_cards INT NOT NULL DEFAULT 0,
            total_andar_bets BIGINT NOT NULL DEFAULT 0,
            total_bahar_bets BIGINT NOT NULL DEFAULT 0,
            rounds INT NOT NULL DEFAULT 1,
            started_at TIMESTAMP NOT NULL,
            completed_at TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS dealt_cards (
            id SERIAL PRIMARY KEY,
            game_id VARCHAR(64) NOT NULL,
            card VARCHAR(8) NOT NULL,
            side VARCHAR(8) NOT NULL,
            position INT NOT NULL,
            winning BOOLEAN NOT NULL DEFAULT FALSE,
            dealt_at TIMESTAMP NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS balance_entries (
            id SERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            delta BIGINT NOT NULL,
            balance_after BIGINT NOT NULL,
            reason VARCHAR(32) NOT NULL,
            ref_id VARCHAR(64),
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMP
        )`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgreSQL) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := p.db.QueryRowContext(ctx,
		`SELECT user_id, name, balance, is_admin FROM gorm_users WHERE user_id = $1 AND deleted_at IS NULL`,
		userID,
	).Scan(&user.ID, &user.Name, &user.Balance, &user.IsAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (p *PostgreSQL) AdjustBalance(ctx context.Context, userID int64, delta int64, reason, refID string) (int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// Single guarded UPDATE keeps the balance check and the mutation in
	// one atomic statement.
	var newBalance int64
	err = tx.QueryRowContext(ctx,
		`UPDATE gorm_users SET balance = balance + $1, updated_at = CURRENT_TIMESTAMP
         WHERE user_id = $2 AND balance + $1 >= 0
         RETURNING balance`,
		delta, userID,
	).Scan(&newBalance)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the user is missing or the balance guard rejected the
		// debit; disambiguate for the caller.
		var exists bool
		if lookupErr := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM gorm_users WHERE user_id = $1)`, userID,
		).Scan(&exists); lookupErr != nil {
			return 0, lookupErr
		}
		if !exists {
			return 0, ErrRecordNotFound
		}
		return 0, ErrInsufficientBalance
	}
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO balance_entries (user_id, delta, balance_after, reason, ref_id) VALUES ($1, $2, $3, $4, $5)`,
		userID, delta, newBalance, reason, refID,
	); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (p *PostgreSQL) SaveBetRecord(ctx context.Context, bet *models.Bet) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO bet_records (bet_id, user_id, game_id, side, amount, round, status, payout, placed_at, settled_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
         ON CONFLICT (bet_id) DO UPDATE SET status = $7, payout = $8, settled_at = $10`,
		bet.ID, bet.UserID, bet.GameID, string(bet.Side), bet.Amount, bet.Round,
		string(bet.Status), bet.Payout, bet.PlacedAt, bet.SettledAt,
	)
	return err
}

func (p *PostgreSQL) SaveGameRecord(ctx context.Context, state *models.GameState) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO game_records (game_id, opening_card, winner, winning_card, total_cards, total_andar_bets, total_bahar_bets, rounds, started_at, completed_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
         ON CONFLICT (game_id) DO UPDATE SET winner = $3, winning_card = $4, total_cards = $5,
             total_andar_bets = $6, total_bahar_bets = $7, rounds = $8, completed_at = $10`,
		state.GameID, string(state.OpeningCard), string(state.Winner), string(state.WinningCard),
		state.TotalCards(), state.TotalAndarBets, state.TotalBaharBets, state.CurrentRound,
		state.CreatedAt, state.UpdatedAt,
	)
	return err
}

func (p *PostgreSQL) SaveDealtCard(ctx context.Context, dealt *models.DealtCard) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO dealt_cards (game_id, card, side, position, winning, dealt_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		dealt.GameID, string(dealt.Card), string(dealt.Side), dealt.Position, dealt.Winning, dealt.DealtAt,
	)
	return err
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
