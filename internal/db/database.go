package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/calvinwijaya/blackjack-3d/internal/game"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Database is the round history ledger
type Database struct {
	db     *sql.DB
	driver string
}

// Round is one settled round as stored in the ledger
type Round struct {
	ID           string       `json:"id"`
	SessionID    string       `json:"sessionId"`
	Round        int          `json:"round"`
	Bet          int          `json:"bet"`
	Outcome      game.Outcome `json:"outcome"`
	Payout       int          `json:"payout"`
	BalanceAfter int          `json:"balanceAfter"`
	PlayerHand   []game.Card  `json:"playerHand"`
	DealerHand   []game.Card  `json:"dealerHand"`
	PlayerScore  int          `json:"playerScore"`
	DealerScore  int          `json:"dealerScore"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// SessionStats aggregates the ledger for one session
type SessionStats struct {
	SessionID    string    `json:"sessionId"`
	RoundsPlayed int       `json:"roundsPlayed"`
	RoundsWon    int       `json:"roundsWon"`
	RoundsPushed int       `json:"roundsPushed"`
	Blackjacks   int       `json:"blackjacks"`
	TotalBets    int       `json:"totalBets"`
	TotalPayouts int       `json:"totalPayouts"`
	LastPlayed   time.Time `json:"lastPlayed,omitempty"`
}

// DriverFor picks the SQL driver for a DSN: postgres URLs go to lib/pq,
// anything else is treated as a SQLite path
func DriverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite3"
}

// NewDatabase opens the ledger and creates its tables
func NewDatabase(dsn string) (*Database, error) {
	driver := DriverFor(dsn)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	if driver == "sqlite3" {
		// One writer at a time
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := initTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db, driver: driver}, nil
}

// initTables creates the necessary tables if they don't exist
func initTables(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			bet INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			payout INTEGER NOT NULL,
			balance_after INTEGER NOT NULL,
			player_hand TEXT NOT NULL,
			dealer_hand TEXT NOT NULL,
			player_score INTEGER NOT NULL,
			dealer_score INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_session ON rounds (session_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("error creating rounds table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// Driver returns the name of the SQL driver in use
func (d *Database) Driver() string {
	return d.driver
}

// SaveRound inserts a settled round
func (d *Database) SaveRound(ctx context.Context, r *Round) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}

	playerHand, err := json.Marshal(r.PlayerHand)
	if err != nil {
		return err
	}
	dealerHand, err := json.Marshal(r.DealerHand)
	if err != nil {
		return err
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO rounds (id, session_id, round, bet, outcome, payout, balance_after,
			player_hand, dealer_hand, player_score, dealer_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		r.ID, r.SessionID, r.Round, r.Bet, string(r.Outcome), r.Payout, r.BalanceAfter,
		string(playerHand), string(dealerHand), r.PlayerScore, r.DealerScore, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("error saving round: %w", err)
	}
	return nil
}

// GetSessionRounds returns the rounds of a session, newest first
func (d *Database) GetSessionRounds(ctx context.Context, sessionID string, limit int) ([]*Round, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, session_id, round, bet, outcome, payout, balance_after,
			player_hand, dealer_hand, player_score, dealer_score, created_at
		FROM rounds WHERE session_id = $1
		ORDER BY created_at DESC, round DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := []*Round{}
	for rows.Next() {
		var r Round
		var outcome, playerHand, dealerHand string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Round, &r.Bet, &outcome, &r.Payout, &r.BalanceAfter,
			&playerHand, &dealerHand, &r.PlayerScore, &r.DealerScore, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Outcome = game.Outcome(outcome)
		if err := json.Unmarshal([]byte(playerHand), &r.PlayerHand); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(dealerHand), &r.DealerHand); err != nil {
			return nil, err
		}
		rounds = append(rounds, &r)
	}

	return rounds, rows.Err()
}

// GetSessionStats aggregates the ledger for a session
func (d *Database) GetSessionStats(ctx context.Context, sessionID string) (*SessionStats, error) {
	stats := SessionStats{SessionID: sessionID}

	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(bet), 0), COALESCE(SUM(payout), 0)
		FROM rounds WHERE session_id = $1
	`, sessionID).Scan(&stats.RoundsPlayed, &stats.TotalBets, &stats.TotalPayouts)
	if err != nil {
		return nil, fmt.Errorf("error counting rounds: %w", err)
	}

	if err := d.countOutcomes(ctx, &stats); err != nil {
		return nil, err
	}

	err = d.db.QueryRowContext(ctx, `
		SELECT created_at FROM rounds WHERE session_id = $1 ORDER BY created_at DESC LIMIT 1
	`, sessionID).Scan(&stats.LastPlayed)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("error getting last played: %w", err)
	}

	return &stats, nil
}

// countOutcomes fills the win/push/blackjack counters. The rows are closed
// before returning so the next query can reuse the single SQLite connection.
func (d *Database) countOutcomes(ctx context.Context, stats *SessionStats) error {
	rows, err := d.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*) FROM rounds WHERE session_id = $1 GROUP BY outcome
	`, stats.SessionID)
	if err != nil {
		return fmt.Errorf("error counting outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return err
		}
		o := game.Outcome(outcome)
		switch {
		case o.IsWin():
			stats.RoundsWon += n
		case o.IsPush():
			stats.RoundsPushed += n
		}
		if o == game.OutcomePlayerBlackjack {
			stats.Blackjacks += n
		}
	}
	return rows.Err()
}

// RoundRecorder returns a session listener that writes every settled round
// to the ledger. Failures are logged; the session is never affected.
func (d *Database) RoundRecorder(logger *log.Logger) game.Listener {
	return func(e game.Event) {
		if e.Type != game.EventRoundSettled {
			return
		}

		snap := e.Snapshot
		r := &Round{
			SessionID:    e.SessionID,
			Round:        snap.Round,
			Bet:          e.Bet,
			Outcome:      e.Outcome,
			Payout:       e.Outcome.Payout(e.Bet),
			BalanceAfter: snap.Balance,
			PlayerHand:   snap.PlayerHand,
			DealerHand:   snap.DealerHand,
			PlayerScore:  snap.PlayerScore,
			DealerScore:  snap.DealerScore,
			CreatedAt:    e.Timestamp,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.SaveRound(ctx, r); err != nil {
			logger.Error("Failed to record round", "error", err, "session", e.SessionID, "round", snap.Round)
		}
	}
}
