package game

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/gameid"
	"github.com/shopspring/decimal"
)

// Engine runs rounds. Every public operation takes a round, works on a deep
// copy and returns the copy on success; on failure the input is untouched.
// Computer seats are played out before an operation returns, so callers only
// ever see a round waiting on the human or a finished round.
//
// An Engine is safe for concurrent use on different rounds provided its rng
// is (see randutil.NewLocked).
type Engine struct {
	rng      *rand.Rand
	logger   *log.Logger
	strategy Strategy
	ids      *gameid.Generator
}

// NewEngine creates an engine. The RNG is required so shuffles and seat
// assignment can be made deterministic.
func NewEngine(rng *rand.Rand, logger *log.Logger, opts ...EngineOption) *Engine {
	if rng == nil {
		panic("rng is required for engine creation")
	}
	e := &Engine{
		rng:      rng,
		logger:   logger.WithPrefix("engine"),
		strategy: BasicStrategy{},
		ids:      gameid.NewGenerator(nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strategy returns the decision procedure used for computer seats
func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// StartRound seats playerCount players, exactly one of them human, in front
// of a freshly built and shuffled shoe.
func (e *Engine) StartRound(rules Rules, playerCount int, opts ...RoundOption) (*Round, error) {
	if err := rules.Validate(); err != nil {
		return nil, invalid(InvalidSetup, "%v", err)
	}
	if playerCount < 1 || playerCount > MaxPlayers {
		return nil, invalid(InvalidSetup, "player count must be between 1 and %d", MaxPlayers)
	}

	cfg := &roundConfig{humanSeat: -1}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.balances != nil && len(cfg.balances) != playerCount {
		return nil, invalid(InvalidSetup, "balances must match number of players")
	}
	if cfg.humanSeat >= playerCount {
		return nil, invalid(InvalidSetup, "human seat %d out of range", cfg.humanSeat)
	}

	shoe := cfg.shoe
	if shoe == nil {
		shoe = deck.NewShoe(rules.DeckCount)
		shoe.Shuffle(e.rng)
	}

	human := cfg.humanSeat
	if human < 0 {
		human = e.rng.IntN(playerCount)
	}

	r := &Round{
		ID:    e.ids.Generate(),
		Rules: rules,
		Shoe:  shoe,
	}
	for i := 0; i < playerCount; i++ {
		name := fmt.Sprintf("Player %d", i+1)
		if i == human {
			name = "You"
		}
		balance := rules.StartingBalance
		if cfg.balances != nil {
			balance = cfg.balances[i]
		}
		r.Players = append(r.Players, NewPlayer(i, name, i == human, balance))
	}

	e.logger.Debug("Started round", "round", r.ID, "players", playerCount, "human_seat", human, "decks", rules.DeckCount)
	return r, nil
}

// PlaceBet stakes amount on the player's first hand, refunding any earlier
// bet. Computer seats without a bet are staked the table minimum.
func (e *Engine) PlaceBet(r *Round, playerID int, amount decimal.Decimal) (*Round, error) {
	return e.apply(r, "bet", func(r *Round) error {
		return e.placeBet(r, playerID, amount)
	})
}

// Deal gives two cards to every player and the dealer, settles naturals and
// plays computer seats until the human must act.
func (e *Engine) Deal(r *Round) (*Round, error) {
	return e.apply(r, "deal", e.deal)
}

// Hit draws a card to the human's active hand
func (e *Engine) Hit(r *Round) (*Round, error) {
	return e.humanAction(r, Hit)
}

// Stand ends the human's active hand
func (e *Engine) Stand(r *Round) (*Round, error) {
	return e.humanAction(r, Stand)
}

// Double doubles the stake on the human's active hand for exactly one card
func (e *Engine) Double(r *Round) (*Round, error) {
	return e.humanAction(r, Double)
}

// Split splits the human's active pair into two hands
func (e *Engine) Split(r *Round) (*Round, error) {
	return e.humanAction(r, Split)
}

// Act applies action for the human seat
func (e *Engine) Act(r *Round, action Action) (*Round, error) {
	return e.humanAction(r, action)
}

// NewHand starts the next round with every player who can still cover the
// minimum bet. The shoe carries over unless it has run below the reshuffle
// threshold.
func (e *Engine) NewHand(r *Round) (*Round, error) {
	if phase := r.Phase(); phase == PlayerTurns || phase == DealerTurn {
		return nil, invalid(WrongTurn, "cannot start a new hand while the round is in progress")
	}

	var players []*Player
	for _, p := range r.Players {
		balance := p.Balance
		if !r.Dealt() {
			// Stakes placed but never dealt go back to the player
			balance = balance.Add(p.CurrentBet())
		}
		if balance.LessThan(r.Rules.MinBet) {
			e.logger.Debug("Player eliminated", "round", r.ID, "player", p.Name, "balance", balance)
			continue
		}
		players = append(players, NewPlayer(p.ID, p.Name, p.Human, balance))
	}
	if len(players) == 0 {
		return nil, invalid(PlayersDepleted, "all players are out of money, game over")
	}

	shoe := r.Shoe.Clone()
	if shoe.NeedsReshuffle(r.Rules.ReshuffleFraction) {
		e.logger.Debug("Reshuffling shoe", "round", r.ID, "remaining", shoe.Remaining(), "size", shoe.Size())
		shoe = deck.NewShoe(r.Rules.DeckCount)
		shoe.Shuffle(e.rng)
	}

	next := &Round{
		ID:      e.ids.Generate(),
		Rules:   r.Rules,
		Shoe:    shoe,
		Players: players,
	}
	e.logger.Debug("New hand", "previous", r.ID, "round", next.ID, "players", len(players), "cards_remaining", shoe.Remaining())
	return next, nil
}

func (e *Engine) apply(r *Round, op string, fn func(*Round) error) (*Round, error) {
	next := r.Clone()
	if err := fn(next); err != nil {
		e.logger.Debug("Rejected operation", "op", op, "round", r.ID, "error", err)
		return nil, err
	}
	return next, nil
}

func (e *Engine) humanAction(r *Round, action Action) (*Round, error) {
	return e.apply(r, action.String(), func(r *Round) error {
		if !r.Dealt() {
			return invalid(WrongTurn, "cards have not been dealt")
		}
		if !r.IsPlayerTurn() {
			return invalid(WrongTurn, "it is not a player's turn")
		}
		p := r.Current()
		if !p.Human {
			return invalid(WrongTurn, "it is %s's turn", p.Name)
		}
		if err := e.act(r, p, action); err != nil {
			return err
		}
		return e.proceed(r)
	})
}

func (e *Engine) placeBet(r *Round, playerID int, amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Mod(r.Rules.MinBet).IsZero() {
		return invalid(InvalidBet, "bet must be a positive multiple of %s", r.Rules.MinBet)
	}
	p := r.Player(playerID)
	if p == nil {
		return invalid(PlayerNotFound, "player %d not found", playerID)
	}
	if p.Hands[0].Hand.Len() > 0 {
		return invalid(InvalidBet, "cannot place a bet after cards are dealt")
	}

	available := p.Balance.Add(p.CurrentBet())
	if available.LessThan(amount) {
		return invalid(InsufficientFunds, "insufficient balance for a bet of %s", amount)
	}
	p.Balance = available.Sub(amount)
	p.Hands[0].Bet = amount
	e.logger.Debug("Bet placed", "round", r.ID, "player", p.Name, "amount", amount, "balance", p.Balance)

	for _, cpu := range r.Players {
		if cpu.Human || cpu.CurrentBet().IsPositive() || !cpu.CanAfford(r.Rules.MinBet) {
			continue
		}
		cpu.Balance = cpu.Balance.Sub(r.Rules.MinBet)
		cpu.Hands[0].Bet = r.Rules.MinBet
		e.logger.Debug("Bet placed", "round", r.ID, "player", cpu.Name, "amount", r.Rules.MinBet, "balance", cpu.Balance)
	}
	return nil
}

func (e *Engine) deal(r *Round) error {
	if r.Dealt() {
		return invalid(WrongTurn, "cards have already been dealt")
	}
	for _, p := range r.Players {
		if !p.CurrentBet().IsPositive() {
			return invalid(InvalidBet, "%s must place a bet before dealing", p.Name)
		}
	}

	// One card to each player then the dealer, twice
	for range 2 {
		for _, p := range r.Players {
			c, err := e.draw(r)
			if err != nil {
				return err
			}
			p.Hands[0].Hand.Add(c)
		}
		c, err := e.draw(r)
		if err != nil {
			return err
		}
		r.Dealer.Add(c)
	}
	e.logger.Debug("Dealt cards", "round", r.ID, "dealer_up", r.Dealer.Cards[0], "cards_remaining", r.Shoe.Remaining())

	dealerNatural := r.Dealer.IsBlackjack()
	for _, p := range r.Players {
		ph := p.Hands[0]
		if ph.IsNatural() || dealerNatural {
			e.settle(r, p, ph, evaluate(ph, r.Dealer))
			p.CurrentHand = len(p.Hands)
		}
	}

	if dealerNatural {
		r.CurrentPlayer = len(r.Players)
		r.DealerTurn = false
		e.logger.Debug("Dealer blackjack", "round", r.ID)
		return nil
	}

	r.CurrentPlayer = 0
	r.seek()
	return e.proceed(r)
}

// proceed plays computer seats until a human must act, then lets the dealer
// draw once every player is done. Each computer action either finishes a
// hand or adds a card to it, so the loop terminates.
func (e *Engine) proceed(r *Round) error {
	for r.IsPlayerTurn() {
		p := r.Current()
		if p.Human {
			return nil
		}
		ph := p.Active()
		canDouble := ph.Hand.Len() == 2 && !ph.Doubled && p.CanAfford(ph.Bet)
		canSplit := ph.Hand.IsPair() && p.CanAfford(ph.Bet)
		action := e.strategy.Decide(ph.Hand, r.DealerUpCard(), canDouble, canSplit)
		e.logger.Debug("Computer decision", "round", r.ID, "player", p.Name, "hand", ph.Hand, "action", action)
		if err := e.act(r, p, action); err != nil {
			return fmt.Errorf("%s %s: %w", p.Name, action, err)
		}
	}
	if r.DealerTurn {
		return e.playDealer(r)
	}
	return nil
}

func (e *Engine) act(r *Round, p *Player, action Action) error {
	switch action {
	case Hit:
		return e.hit(r, p)
	case Stand:
		e.logger.Debug("Stand", "round", r.ID, "player", p.Name, "hand", p.CurrentHand)
		e.advance(r, p)
		return nil
	case Double:
		return e.double(r, p)
	case Split:
		return e.split(r, p)
	default:
		return invalid(WrongTurn, "unknown action %v", action)
	}
}

func (e *Engine) hit(r *Round, p *Player) error {
	ph := p.Active()
	if ph.Doubled {
		return invalid(WrongTurn, "cannot hit after doubling down")
	}
	c, err := e.draw(r)
	if err != nil {
		return err
	}
	ph.Hand.Add(c)
	e.logger.Debug("Hit", "round", r.ID, "player", p.Name, "card", c, "value", ph.Hand.BestValue())

	switch {
	case ph.Hand.IsBust():
		e.settle(r, p, ph, PlayerBust)
		e.advance(r, p)
	case ph.Hand.BestValue() == 21:
		e.advance(r, p)
	}
	return nil
}

func (e *Engine) double(r *Round, p *Player) error {
	ph := p.Active()
	if ph.Hand.Len() != 2 || ph.Doubled {
		return invalid(IllegalDouble, "can only double down on the first two cards")
	}
	if !p.CanAfford(ph.Bet) {
		return invalid(InsufficientFunds, "insufficient balance to double down")
	}

	c, err := e.draw(r)
	if err != nil {
		return err
	}
	p.Balance = p.Balance.Sub(ph.Bet)
	ph.Bet = ph.Bet.Mul(decimal.NewFromInt(2))
	ph.Doubled = true
	ph.Hand.Add(c)
	e.logger.Debug("Double", "round", r.ID, "player", p.Name, "card", c, "bet", ph.Bet, "value", ph.Hand.BestValue())

	if ph.Hand.IsBust() {
		e.settle(r, p, ph, PlayerBust)
	}
	e.advance(r, p)
	return nil
}

func (e *Engine) split(r *Round, p *Player) error {
	ph := p.Active()
	if ph.Hand.Len() != 2 {
		return invalid(IllegalSplit, "can only split the first two cards")
	}
	if !ph.Hand.IsPair() {
		return invalid(IllegalSplit, "can only split a pair")
	}
	if !p.CanAfford(ph.Bet) {
		return invalid(InsufficientFunds, "insufficient balance to split")
	}

	moved := ph.Hand.Cards[1]
	ph.Hand = NewHand(ph.Hand.Cards[0])
	ph.Split = true
	second := &PlayerHand{Hand: NewHand(moved), Bet: ph.Bet, Split: true}
	p.Balance = p.Balance.Sub(ph.Bet)

	for _, h := range []*PlayerHand{ph, second} {
		c, err := e.draw(r)
		if err != nil {
			return err
		}
		h.Hand.Add(c)
	}

	at := p.CurrentHand + 1
	p.Hands = slices.Insert(p.Hands, at, second)
	e.logger.Debug("Split", "round", r.ID, "player", p.Name, "first", ph.Hand, "second", second.Hand, "balance", p.Balance)

	if moved.IsAce() {
		// Split aces get one card each and the player's turn ends
		for _, h := range []*PlayerHand{ph, second} {
			if h.Hand.IsBust() {
				e.settle(r, p, h, PlayerBust)
			}
		}
		p.CurrentHand = len(p.Hands)
		r.seek()
	}
	return nil
}

// advance finishes the active hand and moves the cursor on
func (e *Engine) advance(r *Round, p *Player) {
	p.CurrentHand++
	r.seek()
}

func (e *Engine) draw(r *Round) (deck.Card, error) {
	c, err := r.Shoe.Draw()
	if err != nil {
		return deck.Card{}, &OperationError{Kind: ShoeEmpty, Reason: "the shoe is empty", Err: err}
	}
	return c, nil
}
