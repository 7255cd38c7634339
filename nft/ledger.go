package nft

import (
	"fmt"

	"github.com/MixinNetwork/nfm/core"
	"github.com/shopspring/decimal"
)

// Ledger issues tokens, tracks their owners and operator approvals, and
// accrues mint fees on its own address until the owner withdraws them.
type Ledger struct {
	address core.Address
	owner   core.Address
	fee     decimal.Decimal
}

func NewLedger(address, owner core.Address, fee decimal.Decimal) (*Ledger, error) {
	if err := address.Validate(); err != nil {
		return nil, err
	}
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if fee.IsNegative() {
		return nil, fmt.Errorf("%w mint fee %s", core.ErrInvalidAmount, fee)
	}
	return &Ledger{
		address: address,
		owner:   owner,
		fee:     fee,
	}, nil
}

func (l *Ledger) Address() core.Address {
	return l.address
}

func (l *Ledger) Owner() core.Address {
	return l.owner
}

func (l *Ledger) MintFee() decimal.Decimal {
	return l.fee
}

func (l *Ledger) BalanceOf(st State, account core.Address) (uint64, error) {
	return st.ReadHolding(l.address, account)
}

func (l *Ledger) OwnerOf(st State, id uint64) (core.Address, error) {
	token, err := l.readToken(st, id)
	if err != nil {
		return "", err
	}
	return token.Owner, nil
}

func (l *Ledger) TokenURI(st State, id uint64) (string, error) {
	token, err := l.readToken(st, id)
	if err != nil {
		return "", err
	}
	return token.URI, nil
}

func (l *Ledger) TotalSupply(st State) (uint64, error) {
	return st.ReadSupply(l.address)
}

func (l *Ledger) SetApprovalForAll(st State, owner, operator core.Address, approved bool) error {
	if err := operator.Validate(); err != nil {
		return err
	}
	err := st.WriteApproval(l.address, owner, operator, approved)
	if err != nil {
		return err
	}
	return st.EmitEvent(&core.Event{
		Kind:      core.EventApproval,
		Contract:  l.address,
		From:      owner,
		To:        operator,
		Approved:  approved,
		CreatedAt: st.Now(),
	})
}

func (l *Ledger) IsApprovedForAll(st State, owner, operator core.Address) (bool, error) {
	return st.ReadApproval(l.address, owner, operator)
}

func (l *Ledger) TransferFrom(st State, caller, from, to core.Address, id uint64) error {
	if err := to.Validate(); err != nil {
		return err
	}
	token, err := l.readToken(st, id)
	if err != nil {
		return err
	}
	if token.Owner != from {
		return fmt.Errorf("%w %s of token %d", core.ErrNotOwner, from, id)
	}
	if caller != from {
		approved, err := st.ReadApproval(l.address, from, caller)
		if err != nil {
			return err
		}
		if !approved {
			return fmt.Errorf("%w %s for %s", core.ErrNotAuthorized, caller, from)
		}
	}

	token.Owner = to
	err = st.WriteToken(token)
	if err != nil {
		return err
	}
	err = l.subHolding(st, from, 1)
	if err != nil {
		return err
	}
	err = l.addHolding(st, to, 1)
	if err != nil {
		return err
	}
	return st.EmitEvent(&core.Event{
		Kind:      core.EventTransfer,
		Contract:  l.address,
		TokenId:   id,
		From:      from,
		To:        to,
		CreatedAt: st.Now(),
	})
}

func (l *Ledger) Accrued(st State) (decimal.Decimal, error) {
	return st.ReadBalance(l.address)
}

// Withdraw pays the whole accrued balance to the owner. The ledger balance
// is zeroed before the owner is credited.
func (l *Ledger) Withdraw(st State, caller core.Address) (decimal.Decimal, error) {
	if caller != l.owner {
		return decimal.Zero, fmt.Errorf("%w %s of ledger %s", core.ErrNotOwner, caller, l.address)
	}
	amount, err := st.ReadBalance(l.address)
	if err != nil {
		return decimal.Zero, err
	}
	err = st.WriteBalance(l.address, decimal.Zero)
	if err != nil {
		return decimal.Zero, err
	}
	ob, err := st.ReadBalance(l.owner)
	if err != nil {
		return decimal.Zero, err
	}
	err = st.WriteBalance(l.owner, ob.Add(amount))
	if err != nil {
		return decimal.Zero, err
	}
	return amount, st.EmitEvent(&core.Event{
		Kind:      core.EventWithdraw,
		Contract:  l.address,
		From:      l.address,
		To:        l.owner,
		Amount:    amount.String(),
		CreatedAt: st.Now(),
	})
}

func (l *Ledger) readToken(st State, id uint64) (*Token, error) {
	token, err := st.ReadToken(l.address, id)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, fmt.Errorf("%w %d", core.ErrTokenNotFound, id)
	}
	return token, nil
}

func (l *Ledger) addHolding(st State, owner core.Address, n uint64) error {
	count, err := st.ReadHolding(l.address, owner)
	if err != nil {
		return err
	}
	return st.WriteHolding(l.address, owner, count+n)
}

func (l *Ledger) subHolding(st State, owner core.Address, n uint64) error {
	count, err := st.ReadHolding(l.address, owner)
	if err != nil {
		return err
	}
	if count < n {
		panic(fmt.Errorf("holding underflow %s %s %d %d", l.address, owner, count, n))
	}
	return st.WriteHolding(l.address, owner, count-n)
}
