package api

import (
	"time"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/session"
	"github.com/shopspring/decimal"
)

// CardView is a card as shown to clients. Hidden cards carry no rank or suit.
type CardView struct {
	Rank     string `json:"rank"`
	Suit     string `json:"suit"`
	IsHidden bool   `json:"isHidden"`
}

// PlayerView is one seat at the table
type PlayerView struct {
	PlayerID         int               `json:"playerId"`
	Name             string            `json:"name"`
	IsHuman          bool              `json:"isHuman"`
	Hands            [][]CardView      `json:"hands"`
	HandValues       []int             `json:"handValues"`
	CurrentHandIndex int               `json:"currentHandIndex"`
	Results          []*string         `json:"results"`
	Balance          decimal.Decimal   `json:"balance"`
	CurrentBet       decimal.Decimal   `json:"currentBet"`
	BetsPerHand      []decimal.Decimal `json:"betsPerHand"`
	Payouts          []decimal.Decimal `json:"payouts"`
}

// GameState is the client view of a session. The dealer's hole card and
// total stay hidden until the round is over.
type GameState struct {
	SessionID          string          `json:"sessionId"`
	RoundID            string          `json:"roundId"`
	Version            int64           `json:"version"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	Phase              string          `json:"phase"`
	Players            []PlayerView    `json:"players"`
	DealerHand         []CardView      `json:"dealerHand"`
	DealerValue        *int            `json:"dealerValue"`
	CurrentPlayerIndex int             `json:"currentPlayerIndex"`
	IsGameOver         bool            `json:"isGameOver"`
	CardsRemaining     int             `json:"cardsRemaining"`
	TotalCards         int             `json:"totalCards"`
	DeckCount          int             `json:"deckCount"`
	MinBet             decimal.Decimal `json:"minBet"`

	// Shortcuts for the human seat
	PlayerHand       []CardView `json:"playerHand"`
	PlayerValue      int        `json:"playerValue"`
	Winner           *string    `json:"winner"`
	CanSplit         bool       `json:"canSplit"`
	CanDouble        bool       `json:"canDouble"`
	CurrentHandIndex int        `json:"currentHandIndex"`
	TotalHands       int        `json:"totalHands"`
}

// NewGameState builds the client view of a stored session
func NewGameState(rec *session.Record) GameState {
	r := rec.Round
	over := r.IsOver()

	gs := GameState{
		SessionID:          rec.ID,
		RoundID:            r.ID,
		Version:            rec.Version,
		UpdatedAt:          rec.UpdatedAt,
		Phase:              r.Phase().String(),
		Players:            make([]PlayerView, 0, len(r.Players)),
		DealerHand:         make([]CardView, 0, r.Dealer.Len()),
		CurrentPlayerIndex: r.CurrentPlayer,
		IsGameOver:         over,
		CardsRemaining:     r.Shoe.Remaining(),
		TotalCards:         r.Shoe.Size(),
		DeckCount:          r.Shoe.Decks(),
		MinBet:             r.Rules.MinBet,
		PlayerHand:         []CardView{},
	}

	for i, c := range r.Dealer.Cards {
		gs.DealerHand = append(gs.DealerHand, cardView(c, i == 1 && !over))
	}
	if over && r.Dealt() {
		v := r.Dealer.BestValue()
		gs.DealerValue = &v
	}

	for _, p := range r.Players {
		gs.Players = append(gs.Players, playerView(p))
	}

	if human := r.Human(); human != nil {
		ph := human.Hands[min(human.CurrentHand, len(human.Hands)-1)]
		for _, c := range ph.Hand.Cards {
			gs.PlayerHand = append(gs.PlayerHand, cardView(c, false))
		}
		gs.PlayerValue = ph.Hand.BestValue()
		gs.CanSplit = r.CanSplit(human.ID)
		gs.CanDouble = r.CanDouble(human.ID)
		gs.CurrentHandIndex = human.CurrentHand
		gs.TotalHands = len(human.Hands)
	}
	if w := r.OverallWinner(); w != "" {
		gs.Winner = &w
	}
	return gs
}

func playerView(p *game.Player) PlayerView {
	v := PlayerView{
		PlayerID:         p.ID,
		Name:             p.Name,
		IsHuman:          p.Human,
		CurrentHandIndex: p.CurrentHand,
		Balance:          p.Balance,
		CurrentBet:       p.CurrentBet(),
	}
	for _, ph := range p.Hands {
		cards := make([]CardView, 0, ph.Hand.Len())
		for _, c := range ph.Hand.Cards {
			cards = append(cards, cardView(c, false))
		}
		v.Hands = append(v.Hands, cards)
		v.HandValues = append(v.HandValues, ph.Hand.BestValue())
		v.BetsPerHand = append(v.BetsPerHand, ph.Bet)
		v.Payouts = append(v.Payouts, ph.Payout)

		var result *string
		if w := ph.Result.Winner(); w != "" {
			result = &w
		}
		v.Results = append(v.Results, result)
	}
	return v
}

func cardView(c deck.Card, hidden bool) CardView {
	if hidden {
		return CardView{IsHidden: true}
	}
	return CardView{Rank: c.Label(), Suit: c.Suit.String()}
}
