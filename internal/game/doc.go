// Package game implements the rules of a multiplayer blackjack round.
//
// A Round holds everything about one round at a table: the shoe, the
// dealer's hand and a seat per player, each with one or more betting spots.
// The Engine is the only thing that changes a round. Every operation works on
// a copy and returns it, so a rejected operation leaves the caller's round
// exactly as it was.
//
// # Basic Usage
//
//	e := game.NewEngine(randutil.New(42), logger)
//	r, _ := e.StartRound(game.DefaultRules(), 3)
//	r, _ = e.PlaceBet(r, r.Human().ID, decimal.NewFromInt(25))
//	r, _ = e.Deal(r)
//	for r.IsPlayerTurn() {
//	    r, _ = e.Stand(r)
//	}
//	next, err := e.NewHand(r)
//
// Computer seats play BasicStrategy and are resolved before each operation
// returns, as is the dealer once every seat is done.
//
// # Deterministic Testing
//
// Pass a stacked shoe to control the exact deal:
//
//	shoe := deck.NewStackedShoe(1, deck.MustParseCards("Ah9cKd5s"))
//	r, _ := e.StartRound(rules, 1, game.WithShoe(shoe), game.WithHumanSeat(0))
//
// Rejected operations return an *OperationError matching ErrInvalidOperation;
// use KindOf to branch on the reason.
package game
