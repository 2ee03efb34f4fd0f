package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/andarbahar/models"
)

func TestStartGame(t *testing.T) {
	e := newTestEngines()
	e.db.addUser(99, 0, true)

	gs, err := e.dealing.StartGame(context.Background(), "A♠", 99)
	require.NoError(t, err)

	assert.NotEmpty(t, gs.GameID)
	assert.Equal(t, models.PhaseBetting, gs.Phase)
	assert.Equal(t, models.Card("A♠"), gs.OpeningCard)
	assert.Equal(t, 1, gs.CurrentRound)
	assert.Equal(t, testRules.CountdownSeconds, gs.Countdown)
	assert.Empty(t, gs.AndarCards)
	assert.Empty(t, gs.BaharCards)

	stored, err := e.store.GetGameState(context.Background(), gs.GameID)
	require.NoError(t, err)
	assert.Equal(t, gs.GameID, stored.GameID)
	assert.Equal(t, 1, e.games.Count())
}

func TestStartGameRequiresAdmin(t *testing.T) {
	e := newTestEngines()
	e.db.addUser(1, 5000, false)

	_, err := e.dealing.StartGame(context.Background(), "A♠", 1)
	require.Error(t, err)
	assert.Equal(t, CodeUnauthorized, errCode(t, err))
}

func TestStartGameInvalidCard(t *testing.T) {
	e := newTestEngines()
	e.db.addUser(99, 0, true)

	for _, token := range []string{"", "Z♠", "A", "11♦"} {
		_, err := e.dealing.StartGame(context.Background(), token, 99)
		require.Error(t, err, "token %q", token)
		assert.Equal(t, CodeInvalidCard, errCode(t, err))
	}
}

func TestDealCardNoMatch(t *testing.T) {
	e := newTestEngines()
	e.db.addUser(99, 0, true)
	e.startGame("g1", models.PhaseDealing, "A♠")

	result, err := e.dealing.DealCard(context.Background(), "g1", "K♥", models.SideBahar, 1, 99)
	require.NoError(t, err)

	assert.Nil(t, result.Settlement)
	assert.False(t, result.Dealt.Winning)
	assert.Equal(t, models.PhaseDealing, result.State.Phase)
	assert.Equal(t, []models.Card{"K♥"}, result.State.BaharCards)
	assert.Empty(t, result.State.AndarCards)
	assert.Empty(t, result.State.Winner)
	require.Len(t, e.db.dealtCards, 1)
	assert.Equal(t, models.Card("K♥"), e.db.dealtCards[0].Card)
}

func TestDealCardWinnerDetection(t *testing.T) {
	e := newTestEngines()
	e.db.addUser(99, 0, true)
	e.db.addUser(1, 5000, false)
	e.db.addUser(2, 5000, false)
	e.startGame("g1", models.PhaseBetting, "A♠")

	_, err := e.betting.PlaceBet(context.Background(), 1, "g1", models.SideAndar, 1000, 1)
	require.NoError(t, err)
	_, err = e.betting.PlaceBet(context.Background(), 2, "g1", models.SideBahar, 1000, 1)
	require.NoError(t, err)

	// Close the window, burn one non-matching card, then match.
	_, err = e.dealing.SetCountdown(context.Background(), "g1", 0)
	require.NoError(t, err)
	_, err = e.dealing.DealCard(context.Background(), "g1", "K♥", models.SideBahar, 1, 99)
	require.NoError(t, err)

	result, err := e.dealing.DealCard(context.Background(), "g1", "A♦", models.SideAndar, 2, 99)
	require.NoError(t, err)

	assert.True(t, result.Dealt.Winning)
	assert.Equal(t, models.PhaseComplete, result.State.Phase)
	assert.Equal(t, models.SideAndar, result.State.Winner)
	assert.Equal(t, models.Card("A♦"), result.State.WinningCard)

	require.NotNil(t, result.Settlement)
	assert.Equal(t, 2, result.Settlement.BetsSettled)
	assert.Equal(t, 1, result.Settlement.WinnersPaid)
	assert.Equal(t, int64(2000), result.Settlement.TotalPayout)
	assert.Equal(t, 0, result.Settlement.Failures)

	// Winner got 2x back, loser got nothing.
	assert.Equal(t, int64(6000), e.db.balance(1))
	assert.Equal(t, int64(4000), e.db.balance(2))

	// The completed game was archived.
	assert.Contains(t, e.db.gameRecords, "g1")
}

func TestDealCardWrongPhase(t *testing.T) {
	e := newTestEngines()
	e.db.addUser(99, 0, true)

	for _, phase := range []models.Phase{models.PhaseIdle, models.PhaseBetting, models.PhaseComplete} {
		t.Run(string(phase), func(t *testing.T) {
			e.startGame("g-"+string(phase), phase, "A♠")
			_, err := e.dealing.DealCard(context.Background(), "g-"+string(phase), "K♥", models.SideAndar, 1, 99)
			require.Error(t, err)
			assert.Equal(t, CodeWrongPhase, errCode(t, err))
		})
	}
}

func TestDealCardRequiresAdmin(t *testing.T) {
	e := newTestEngines()
	e.db.addUser(1, 5000, false)
	e.startGame("g1", models.PhaseDealing, "A♠")

	_, err := e.dealing.DealCard(context.Background(), "g1", "K♥", models.SideAndar, 1, 1)
	require.Error(t, err)
	assert.Equal(t, CodeUnauthorized, errCode(t, err))
}

func TestAdvanceRound(t *testing.T) {
	e := newTestEngines()
	e.db.addUser(99, 0, true)
	e.startGame("g1", models.PhaseDealing, "A♠")

	gs, err := e.dealing.AdvanceRound(context.Background(), "g1", 99)
	require.NoError(t, err)

	assert.Equal(t, models.PhaseBetting, gs.Phase)
	assert.Equal(t, 2, gs.CurrentRound)
	assert.Equal(t, testRules.CountdownSeconds, gs.Countdown)
}

func TestAdvanceRoundFromComplete(t *testing.T) {
	e := newTestEngines()
	e.db.addUser(99, 0, true)
	e.startGame("g1", models.PhaseComplete, "A♠")

	_, err := e.dealing.AdvanceRound(context.Background(), "g1", 99)
	require.Error(t, err)
	assert.Equal(t, CodeWrongPhase, errCode(t, err))
}

func TestTickCountdown(t *testing.T) {
	e := newTestEngines()
	gs := e.startGame("g1", models.PhaseBetting, "A♠")
	gs.Countdown = 2
	require.NoError(t, e.store.SetGameState(context.Background(), "g1", gs))

	gs, err := e.dealing.Tick(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, gs.Countdown)
	assert.Equal(t, models.PhaseBetting, gs.Phase)

	gs, err = e.dealing.Tick(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 0, gs.Countdown)
	assert.Equal(t, models.PhaseDealing, gs.Phase)

	// Ticking outside the betting phase is a no-op.
	gs, err = e.dealing.Tick(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseDealing, gs.Phase)
	assert.Equal(t, 0, gs.Countdown)
}

func TestSetCountdownOutsideBetting(t *testing.T) {
	e := newTestEngines()
	e.startGame("g1", models.PhaseDealing, "A♠")

	_, err := e.dealing.SetCountdown(context.Background(), "g1", 10)
	require.Error(t, err)
	assert.Equal(t, CodeWrongPhase, errCode(t, err))
}

func TestResetGameRefundsOpenBets(t *testing.T) {
	e := newTestEngines()
	e.db.addUser(1, 5000, false)
	e.startGame("g1", models.PhaseBetting, "A♠")

	result, err := e.betting.PlaceBet(context.Background(), 1, "g1", models.SideAndar, 1000, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), e.db.balance(1))

	require.NoError(t, e.dealing.ResetGame(context.Background(), "g1"))

	assert.Equal(t, int64(5000), e.db.balance(1))
	_, err = e.store.GetGameState(context.Background(), "g1")
	assert.Error(t, err)
	assert.Equal(t, 0, e.games.Count())

	archived := e.db.betRecords[result.Bet.ID]
	require.NotNil(t, archived)
	assert.Equal(t, models.BetStatusCancelled, archived.Status)
}

// A winning deal must reach subscribers as card_dealt, then
// phase_change, then game_complete, in that order, with every card
// before it already delivered.
func TestDealEventsOrdered(t *testing.T) {
	e := newTestEngines()
	e.db.addUser(99, 0, true)
	e.startGame("g1", models.PhaseDealing, "A♠")

	_, err := e.dealing.DealCard(context.Background(), "g1", "K♥", models.SideBahar, 1, 99)
	require.NoError(t, err)
	_, err = e.dealing.DealCard(context.Background(), "g1", "3♣", models.SideAndar, 2, 99)
	require.NoError(t, err)
	_, err = e.dealing.DealCard(context.Background(), "g1", "A♦", models.SideBahar, 3, 99)
	require.NoError(t, err)

	want := []string{"card_dealt", "card_dealt", "card_dealt", "phase_change", "game_complete"}
	assert.Equal(t, want, e.events.kinds("g1"))

	cards := e.events.byKind("g1", "card_dealt")
	require.Len(t, cards, 3)
	assert.Equal(t, models.Card("K♥"), cards[0].card)
	assert.Equal(t, models.Card("3♣"), cards[1].card)
	assert.Equal(t, models.Card("A♦"), cards[2].card)

	complete := e.events.byKind("g1", "game_complete")
	require.Len(t, complete, 1)
	assert.Equal(t, models.SideBahar, complete[0].side)
}
