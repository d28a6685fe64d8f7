package game

import (
	"github.com/shopspring/decimal"
)

var (
	payoutNatural = decimal.NewFromFloat(2.5)
	payoutWin     = decimal.NewFromInt(2)
)

// playDealer draws for the dealer and settles every hand still in play
func (e *Engine) playDealer(r *Round) error {
	defer func() { r.DealerTurn = false }()

	if r.allBust() {
		e.logger.Debug("Dealer stands pat, every hand bust", "round", r.ID)
		return nil
	}

	for e.dealerShouldDraw(r) {
		c, err := e.draw(r)
		if err != nil {
			return err
		}
		r.Dealer.Add(c)
		e.logger.Debug("Dealer draws", "round", r.ID, "card", c, "value", r.Dealer.BestValue())

		if r.Dealer.IsBust() {
			r.eachHand(func(p *Player, ph *PlayerHand) {
				if ph.Result == InProgress && !ph.Hand.IsBust() {
					e.settle(r, p, ph, DealerBust)
				}
			})
			return nil
		}
	}

	r.eachHand(func(p *Player, ph *PlayerHand) {
		e.settle(r, p, ph, evaluate(ph, r.Dealer))
	})
	return nil
}

// dealerShouldDraw applies the fixed drawing policy: below 17 always, soft
// 17 only when the table says so.
func (e *Engine) dealerShouldDraw(r *Round) bool {
	v := r.Dealer.BestValue()
	if v < 17 {
		return true
	}
	return v == 17 && r.Rules.DealerHitsSoft17 && r.Dealer.IsSoft()
}

// allBust reports whether every player hand has already busted. Naturals
// still make the dealer draw out its hand even though they are paid.
func (r *Round) allBust() bool {
	all := true
	r.eachHand(func(_ *Player, ph *PlayerHand) {
		if ph.Result != PlayerBust {
			all = false
		}
	})
	return all
}

// evaluate compares a finished player hand against the dealer
func evaluate(ph *PlayerHand, dealer Hand) Result {
	playerNatural := ph.IsNatural()
	dealerNatural := dealer.IsBlackjack()

	switch {
	case playerNatural && !dealerNatural:
		return PlayerWin
	case !playerNatural && dealerNatural:
		return DealerWin
	case ph.Hand.IsBust():
		return PlayerBust
	case dealer.IsBust():
		return DealerBust
	}

	p, d := ph.Hand.BestValue(), dealer.BestValue()
	switch {
	case p > d:
		return PlayerWin
	case p < d:
		return DealerWin
	default:
		return Push
	}
}

// settle records the result and pays the hand. Hands are only ever paid once.
func (e *Engine) settle(r *Round, p *Player, ph *PlayerHand, result Result) {
	if ph.Result.Settled() {
		return
	}

	var payout decimal.Decimal
	switch result {
	case PlayerWin:
		if ph.IsNatural() && !r.Dealer.IsBlackjack() {
			payout = ph.Bet.Mul(payoutNatural)
		} else {
			payout = ph.Bet.Mul(payoutWin)
		}
	case DealerBust:
		payout = ph.Bet.Mul(payoutWin)
	case Push:
		payout = ph.Bet
	default:
		payout = decimal.Zero
	}

	ph.Result = result
	ph.Payout = payout
	p.Balance = p.Balance.Add(payout)
	e.logger.Debug("Settled hand", "round", r.ID, "player", p.Name, "result", result, "bet", ph.Bet, "payout", payout, "balance", p.Balance)
}
