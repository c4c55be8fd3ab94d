package game

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cards builds cards in deal order from ranks, suits cycling
func cards(ranks ...Rank) []Card {
	return hand(ranks...)
}

func newTestSession(t *testing.T, cfg Config, deal ...Rank) (*Session, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	s := NewSession(cfg,
		WithClock(clock),
		WithDeckFactory(func() *Deck { return NewStackedDeck(cards(deal...)...) }),
	)
	return s, clock
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func TestNewSession(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig())
	snap := s.Snapshot()

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, Idle, snap.Phase)
	assert.Equal(t, 10000, snap.Balance)
	assert.Zero(t, snap.CurrentBet)
	assert.Empty(t, snap.PlayerHand)
	assert.Empty(t, snap.DealerHand)
	assert.Equal(t, msgPlaceBet, snap.Message)
	assert.True(t, snap.AcceptingBets())
}

func TestPlaceBet(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig())

	s.PlaceBet(500)
	s.PlaceBet(1000)
	snap := s.Snapshot()
	assert.Equal(t, 1500, snap.CurrentBet)
	assert.Equal(t, 10000, snap.Balance, "placing a bet does not touch the balance")
	assert.Equal(t, "Current bet: $1,500", snap.Message)
}

func TestPlaceBetOverBalance(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig())

	s.PlaceBet(20000)
	snap := s.Snapshot()
	assert.Zero(t, snap.CurrentBet)
	assert.Equal(t, 10000, snap.Balance)
	assert.Equal(t, msgInsufficient, snap.Message)
}

func TestPlaceBetOverTableMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingBalance = 50000
	s, _ := newTestSession(t, cfg)

	s.PlaceBet(5000)
	s.PlaceBet(5000)
	s.PlaceBet(100)
	snap := s.Snapshot()
	assert.Equal(t, 10000, snap.CurrentBet)
	assert.Equal(t, "Maximum bet is $10,000", snap.Message)
}

func TestPlaceBetRejectsNonPositive(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig())

	s.PlaceBet(0)
	assert.Zero(t, s.Snapshot().CurrentBet)
	s.PlaceBet(-100)
	snap := s.Snapshot()
	assert.Zero(t, snap.CurrentBet)
	assert.Equal(t, 10000, snap.Balance)
	assert.Equal(t, "Bet amount must be positive", snap.Message)
}

func TestPlaceBetRejectsHugeAmounts(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig())
	s.PlaceBet(500)

	for _, amount := range []int{math.MaxInt, math.MaxInt - 100, math.MaxInt - 399 - 1e13} {
		s.PlaceBet(amount)
		snap := s.Snapshot()
		assert.Equal(t, 500, snap.CurrentBet, "amount %d", amount)
		assert.Equal(t, msgInsufficient, snap.Message)
	}

	// Over the table max but within a larger balance
	cfg := DefaultConfig()
	cfg.StartingBalance = math.MaxInt
	s, _ = newTestSession(t, cfg)
	s.PlaceBet(500)
	s.PlaceBet(math.MaxInt - 600)
	snap := s.Snapshot()
	assert.Equal(t, 500, snap.CurrentBet)
	assert.Equal(t, "Maximum bet is $10,000", snap.Message)
}

func TestClearBetIsIdempotent(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig())
	s.PlaceBet(500)

	s.ClearBet()
	assert.Zero(t, s.Snapshot().CurrentBet)
	s.ClearBet()
	snap := s.Snapshot()
	assert.Zero(t, snap.CurrentBet)
	assert.Equal(t, msgPlaceBet, snap.Message)
}

func TestAllIn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingBalance = 2500
	s, _ := newTestSession(t, cfg)

	s.PlaceBet(100)
	s.AllIn()
	assert.Equal(t, 2500, s.Snapshot().CurrentBet)

	cfg.StartingBalance = 30000
	s, _ = newTestSession(t, cfg)
	s.AllIn()
	assert.Equal(t, 10000, s.Snapshot().CurrentBet, "all in is capped by the table maximum")
}

func TestStartNewGameRequiresBet(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig(), Ten, Six, Seven, Nine)

	s.StartNewGame()
	snap := s.Snapshot()
	assert.Equal(t, Idle, snap.Phase)
	assert.Empty(t, snap.PlayerHand)
	assert.Equal(t, "Place a bet first", snap.Message)
}

func TestStartNewGameDeals(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig(), Ten, Six, Seven, Nine)
	s.PlaceBet(500)
	s.StartNewGame()

	snap := s.Snapshot()
	require.Equal(t, Playing, snap.Phase)
	require.Len(t, snap.PlayerHand, 2)
	require.Len(t, snap.DealerHand, 2)

	assert.Equal(t, Ten, snap.PlayerHand[0].Rank)
	assert.Equal(t, Seven, snap.PlayerHand[1].Rank)
	assert.Equal(t, Six, snap.DealerHand[0].Rank)
	assert.Equal(t, Nine, snap.DealerHand[1].Rank)

	assert.Equal(t, 17, snap.PlayerScore)
	assert.Equal(t, 6, snap.DealerScore, "hole card is masked")
	assert.False(t, snap.DealerShowAll)
	assert.Len(t, snap.VisibleDealerHand(), 1)
	assert.Equal(t, msgHitOrStand, snap.Message)
	assert.Equal(t, 500, snap.CurrentBet)
	assert.Equal(t, 1, snap.Round)
	assert.False(t, snap.AcceptingBets())

	s.PlaceBet(100)
	snap = s.Snapshot()
	assert.Equal(t, 500, snap.CurrentBet, "bet is fixed once the round starts")
	assert.Equal(t, msgBetsClosed, snap.Message)

	s.StartNewGame()
	assert.Equal(t, "Round already in progress", s.Snapshot().Message)
}

func TestStartNewGameWithShortDeck(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig(), Ten, Six, Seven)
	rec := &eventRecorder{}
	s.Subscribe(rec.record)
	s.PlaceBet(500)

	s.StartNewGame()

	snap := s.Snapshot()
	assert.Equal(t, Idle, snap.Phase)
	assert.Equal(t, 500, snap.CurrentBet)
	assert.Equal(t, 10000, snap.Balance)
	assert.Zero(t, snap.Round)
	assert.Empty(t, snap.PlayerHand)
	assert.Empty(t, snap.DealerHand)
	assert.Equal(t, msgDeckExhausted, snap.Message)
	assert.Equal(t, []EventType{EventBetChanged, EventRejected}, rec.types())
}

func TestStandDealerWins(t *testing.T) {
	s, clock := newTestSession(t, DefaultConfig(), Ten, Six, Seven, Nine, Four)
	s.PlaceBet(500)
	s.StartNewGame()

	s.Stand()
	snap := s.Snapshot()
	assert.Equal(t, DealerTurn, snap.Phase)
	assert.True(t, snap.DealerShowAll)
	assert.Equal(t, 15, snap.DealerScore)
	assert.Len(t, snap.DealerHand, 2, "dealer waits for the delay")

	clock.Advance(DefaultDealerDelay).MustWait(testContext(t))

	snap = s.Snapshot()
	assert.Equal(t, GameOver, snap.Phase)
	assert.Len(t, snap.DealerHand, 3)
	assert.Equal(t, 19, snap.DealerScore)
	assert.Equal(t, OutcomeDealerWins, snap.Outcome)
	assert.Equal(t, 9500, snap.Balance)
	assert.Zero(t, snap.CurrentBet)
	assert.Equal(t, "Dealer wins. You lost $500", snap.Message)
}

func TestPlayerBlackjackPaysThreeToTwo(t *testing.T) {
	s, clock := newTestSession(t, DefaultConfig(), Ace, Five, King, Nine, Five)
	s.PlaceBet(200)
	s.StartNewGame()
	assert.Equal(t, 21, s.Snapshot().PlayerScore)

	s.Stand()
	clock.Advance(DefaultDealerDelay).MustWait(testContext(t))

	snap := s.Snapshot()
	assert.Equal(t, OutcomePlayerBlackjack, snap.Outcome)
	assert.Equal(t, 10300, snap.Balance)
	assert.Equal(t, "Blackjack! You win! You won $300", snap.Message)
}

func TestDealerBust(t *testing.T) {
	s, clock := newTestSession(t, DefaultConfig(), Ten, Ten, Eight, Six, King)
	s.PlaceBet(1000)
	s.StartNewGame()
	s.Stand()
	clock.Advance(DefaultDealerDelay).MustWait(testContext(t))

	snap := s.Snapshot()
	assert.Equal(t, OutcomeDealerBust, snap.Outcome)
	assert.Equal(t, 26, snap.DealerScore)
	assert.Equal(t, 11000, snap.Balance)
}

func TestPush(t *testing.T) {
	s, clock := newTestSession(t, DefaultConfig(), Ten, Ten, Eight, Eight)
	s.PlaceBet(1000)
	s.StartNewGame()
	s.Stand()
	clock.Advance(DefaultDealerDelay).MustWait(testContext(t))

	snap := s.Snapshot()
	assert.Equal(t, OutcomePush, snap.Outcome)
	assert.Equal(t, 10000, snap.Balance)
	assert.Equal(t, "Push (Tie) Your $1,000 bet is returned", snap.Message)
}

func TestDealerStandsOnSoft17(t *testing.T) {
	s, clock := newTestSession(t, DefaultConfig(), Ten, Ace, Nine, Six)
	s.PlaceBet(100)
	s.StartNewGame()
	s.Stand()
	clock.Advance(DefaultDealerDelay).MustWait(testContext(t))

	snap := s.Snapshot()
	assert.Len(t, snap.DealerHand, 2)
	assert.Equal(t, 17, snap.DealerScore)
	assert.Equal(t, OutcomePlayerWins, snap.Outcome)
	assert.Equal(t, 10100, snap.Balance)
}

func TestHitWithoutBust(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig(), Two, Six, Three, Nine, Four)
	s.PlaceBet(100)
	s.StartNewGame()

	s.Hit()
	snap := s.Snapshot()
	assert.Equal(t, Playing, snap.Phase)
	assert.Len(t, snap.PlayerHand, 3)
	assert.Equal(t, 9, snap.PlayerScore)
	assert.False(t, snap.DealerShowAll)
	assert.Equal(t, 6, snap.DealerScore)
}

func TestHitBustSettlesImmediately(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig(), Ten, Five, Six, Seven, King)
	s.PlaceBet(500)
	s.StartNewGame()

	s.Hit()
	snap := s.Snapshot()
	assert.Equal(t, GameOver, snap.Phase)
	assert.Equal(t, 26, snap.PlayerScore)
	assert.True(t, snap.DealerShowAll)
	assert.Equal(t, 12, snap.DealerScore)
	assert.Len(t, snap.VisibleDealerHand(), 2)
	assert.Equal(t, OutcomePlayerBust, snap.Outcome)
	assert.Equal(t, 9500, snap.Balance)
	assert.Zero(t, snap.CurrentBet)
	assert.Equal(t, "Bust! You lose. You lost $500", snap.Message)

	s.Hit()
	assert.Len(t, s.Snapshot().PlayerHand, 3, "hit is ignored after the round ends")
}

func TestCommandsIgnoredOutsidePlaying(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig())
	before := s.Snapshot()

	s.Hit()
	s.Stand()
	s.PlayDealerTurn()
	s.NextRound()

	assert.Equal(t, before, s.Snapshot())
}

func TestDealerTurnRunsOnce(t *testing.T) {
	s, clock := newTestSession(t, DefaultConfig(), Ten, Six, Seven, Nine, Four, Five)
	s.PlaceBet(500)
	s.StartNewGame()
	s.Stand()

	// Explicit trigger before the timer fires
	s.PlayDealerTurn()
	first := s.Snapshot()
	assert.Equal(t, GameOver, first.Phase)
	assert.Equal(t, 9500, first.Balance)

	clock.Advance(DefaultDealerDelay).MustWait(testContext(t))
	assert.Equal(t, first, s.Snapshot(), "timer after resolution is a no-op")
}

func TestStaleDealerTurnAfterReset(t *testing.T) {
	s, clock := newTestSession(t, DefaultConfig(), Ten, Six, Seven, Nine, Four)
	s.PlaceBet(500)
	s.StartNewGame()
	s.Stand()

	s.ResetBalance()
	clock.Advance(DefaultDealerDelay).MustWait(testContext(t))

	snap := s.Snapshot()
	assert.Equal(t, Idle, snap.Phase)
	assert.Empty(t, snap.DealerHand)
	assert.Equal(t, 10000, snap.Balance)
}

func TestNextRound(t *testing.T) {
	s, clock := newTestSession(t, DefaultConfig(), Ten, Six, Seven, Nine, Four)
	s.PlaceBet(500)
	s.StartNewGame()
	s.Stand()
	clock.Advance(DefaultDealerDelay).MustWait(testContext(t))

	s.PlaceBet(100)
	assert.Zero(t, s.Snapshot().CurrentBet, "no betting until the table is cleared")

	s.NextRound()
	snap := s.Snapshot()
	assert.Equal(t, Idle, snap.Phase)
	assert.Empty(t, snap.PlayerHand)
	assert.Empty(t, snap.DealerHand)
	assert.Zero(t, snap.PlayerScore)
	assert.Equal(t, OutcomeNone, snap.Outcome)
	assert.Equal(t, 9500, snap.Balance)
	assert.Equal(t, msgPlaceBet, snap.Message)

	s.PlaceBet(100)
	assert.Equal(t, 100, s.Snapshot().CurrentBet)
}

func TestNewDeckEveryRound(t *testing.T) {
	built := 0
	clock := quartz.NewMock(t)
	s := NewSession(DefaultConfig(),
		WithClock(clock),
		WithDeckFactory(func() *Deck {
			built++
			return NewStackedDeck(cards(Ten, Five, Six, Seven, King)...)
		}),
	)

	for i := 0; i < 3; i++ {
		s.PlaceBet(100)
		s.StartNewGame()
		s.Hit()
		require.Equal(t, GameOver, s.Snapshot().Phase)
		s.NextRound()
	}
	assert.Equal(t, 3, built)
	assert.Equal(t, 9700, s.Snapshot().Balance)
}

func TestBankruptcyNotice(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingBalance = 500
	s, clock := newTestSession(t, cfg, Ten, Six, Seven, Nine, Four)
	rec := &eventRecorder{}
	s.Subscribe(rec.record)

	s.AllIn()
	s.StartNewGame()
	s.Stand()
	ctx := testContext(t)
	clock.Advance(DefaultDealerDelay).MustWait(ctx)

	snap := s.Snapshot()
	assert.Zero(t, snap.Balance)
	assert.True(t, snap.Bankrupt())
	assert.Equal(t, GameOver, snap.Phase)
	assert.NotEqual(t, msgBankrupt, snap.Message)

	clock.Advance(DefaultBankruptcyDelay).MustWait(ctx)
	snap = s.Snapshot()
	assert.Equal(t, msgBankrupt, snap.Message)
	assert.Equal(t, GameOver, snap.Phase, "bankruptcy alone does not change phase")
	assert.Contains(t, rec.types(), EventBankrupt)

	s.ResetBalance()
	snap = s.Snapshot()
	assert.Equal(t, Idle, snap.Phase)
	assert.Equal(t, 500, snap.Balance)
	assert.Zero(t, snap.CurrentBet)
	assert.Empty(t, snap.PlayerHand)
}

func TestBankruptcyNoticeAfterBust(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingBalance = 300
	s, clock := newTestSession(t, cfg, Ten, Five, Six, Seven, King)

	s.AllIn()
	s.StartNewGame()
	s.Hit()
	require.Zero(t, s.Snapshot().Balance)

	clock.Advance(DefaultBankruptcyDelay).MustWait(testContext(t))
	assert.Equal(t, msgBankrupt, s.Snapshot().Message)
}

func TestBankruptcyNoticeSkippedAfterReset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingBalance = 300
	s, clock := newTestSession(t, cfg, Ten, Five, Six, Seven, King)

	s.AllIn()
	s.StartNewGame()
	s.Hit()
	s.ResetBalance()

	clock.Advance(DefaultBankruptcyDelay).MustWait(testContext(t))
	snap := s.Snapshot()
	assert.Equal(t, 300, snap.Balance)
	assert.NotEqual(t, msgBankrupt, snap.Message)
}

func TestBankruptcyNoticeOncePerRound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingBalance = 300
	s, clock := newTestSession(t, cfg, Ten, Five, Six, Seven, King)
	rec := &eventRecorder{}
	s.Subscribe(rec.record)
	ctx := testContext(t)

	s.AllIn()
	s.StartNewGame()
	s.Hit()
	s.ResetBalance()

	// Broke again before the first notice is due
	clock.Advance(DefaultBankruptcyDelay / 2).MustWait(ctx)
	s.AllIn()
	s.StartNewGame()
	s.Hit()
	require.Zero(t, s.Snapshot().Balance)

	clock.Advance(DefaultBankruptcyDelay / 2).MustWait(ctx)
	assert.NotEqual(t, msgBankrupt, s.Snapshot().Message, "notice from the first round is dropped")

	clock.Advance(DefaultBankruptcyDelay / 2).MustWait(ctx)
	assert.Equal(t, msgBankrupt, s.Snapshot().Message)

	bankrupt := 0
	for _, et := range rec.types() {
		if et == EventBankrupt {
			bankrupt++
		}
	}
	assert.Equal(t, 1, bankrupt)
}

func TestSeqOrdersSnapshots(t *testing.T) {
	s, clock := newTestSession(t, DefaultConfig(), Ten, Six, Seven, Nine, Four)
	rec := &eventRecorder{}
	s.Subscribe(rec.record)
	assert.Zero(t, s.Snapshot().Seq)

	s.PlaceBet(500)
	s.StartNewGame()
	s.Stand()
	clock.Advance(DefaultDealerDelay).MustWait(testContext(t))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.events, 4)
	for i, e := range rec.events {
		assert.Equal(t, uint64(i+1), e.Snapshot.Seq)
	}
	assert.Equal(t, uint64(4), s.Snapshot().Seq)
}

func TestSubscribe(t *testing.T) {
	s, clock := newTestSession(t, DefaultConfig(), Ten, Six, Seven, Nine, Four)
	rec := &eventRecorder{}
	unsubscribe := s.Subscribe(rec.record)

	s.PlaceBet(-1)
	s.PlaceBet(500)
	s.StartNewGame()
	s.Stand()
	clock.Advance(DefaultDealerDelay).MustWait(testContext(t))

	assert.Equal(t, []EventType{
		EventRejected,
		EventBetChanged,
		EventRoundStarted,
		EventDealerRevealed,
		EventRoundSettled,
	}, rec.types())

	rec.mu.Lock()
	settled := rec.events[len(rec.events)-1]
	rec.mu.Unlock()
	assert.Equal(t, s.ID, settled.SessionID)
	assert.Equal(t, OutcomeDealerWins, settled.Outcome)
	assert.Equal(t, 500, settled.Bet)
	assert.Equal(t, 9500, settled.Snapshot.Balance)

	unsubscribe()
	s.NextRound()
	assert.Len(t, rec.types(), 5)
}

func TestSnapshotIsACopy(t *testing.T) {
	s, _ := newTestSession(t, DefaultConfig(), Ten, Six, Seven, Nine, Four)
	s.PlaceBet(100)
	s.StartNewGame()

	snap := s.Snapshot()
	snap.PlayerHand[0] = Card{}
	assert.Equal(t, Ten, s.Snapshot().PlayerHand[0].Rank)
}
