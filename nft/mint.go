package nft

import (
	"fmt"

	"github.com/MixinNetwork/nfm/core"
	"github.com/shopspring/decimal"
)

const (
	MintMinimumCost = "0.002"
)

// Mint expects paid to be in the ledger balance already, the executor
// moves it there in the same atomic unit before calling.
func (l *Ledger) Mint(st State, caller, to core.Address, uri string, paid decimal.Decimal) (*Token, error) {
	if err := to.Validate(); err != nil {
		return nil, err
	}
	if paid.LessThan(l.fee) {
		return nil, fmt.Errorf("%w %s < %s", core.ErrInsufficientPayment, paid, l.fee)
	}

	id, err := st.ReadSupply(l.address)
	if err != nil {
		return nil, err
	}
	token := &Token{
		Contract: l.address,
		Id:       id,
		Owner:    to,
		URI:      uri,
	}
	err = st.WriteToken(token)
	if err != nil {
		return nil, err
	}
	err = st.WriteSupply(l.address, id+1)
	if err != nil {
		return nil, err
	}
	err = l.addHolding(st, to, 1)
	if err != nil {
		return nil, err
	}

	return token, st.EmitEvent(&core.Event{
		Kind:      core.EventMint,
		Contract:  l.address,
		TokenId:   id,
		From:      caller,
		To:        to,
		Amount:    paid.String(),
		URI:       uri,
		CreatedAt: st.Now(),
	})
}
