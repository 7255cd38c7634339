package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// State is the part of an atomic unit shared by every component: funds
// balances, the unit timestamp and the event log.
type State interface {
	Now() time.Time

	ReadBalance(a Address) (decimal.Decimal, error)
	WriteBalance(a Address, amount decimal.Decimal) error

	EmitEvent(e *Event) error
}

// Transfer moves amount from one balance to another, a zero amount is a noop.
func Transfer(st State, from, to Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w %s", ErrInvalidAmount, amount)
	}
	if amount.IsZero() {
		return nil
	}
	if from == to {
		return nil
	}
	fb, err := st.ReadBalance(from)
	if err != nil {
		return err
	}
	if fb.LessThan(amount) {
		return fmt.Errorf("%w %s %s < %s", ErrInsufficientFunds, from, fb, amount)
	}
	err = st.WriteBalance(from, fb.Sub(amount))
	if err != nil {
		return err
	}
	tb, err := st.ReadBalance(to)
	if err != nil {
		return err
	}
	return st.WriteBalance(to, tb.Add(amount))
}
