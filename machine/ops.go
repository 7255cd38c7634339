package machine

import (
	"context"
	"fmt"

	"github.com/MixinNetwork/nfm/core"
	"github.com/MixinNetwork/nfm/market"
	"github.com/MixinNetwork/nfm/nft"
	"github.com/shopspring/decimal"
)

// Deposit credits funds arriving from outside, e.g. a confirmed transfer.
func (m *Machine) Deposit(ctx context.Context, account core.Address, amount decimal.Decimal) error {
	return m.execute(ctx, MethodDeposit, func(st State) error {
		return m.deposit(st, account, amount)
	})
}

func (m *Machine) Funds(ctx context.Context, account core.Address) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := m.view(ctx, func(st State) error {
		var err error
		amount, err = st.ReadBalance(account)
		return err
	})
	return amount, err
}

func (m *Machine) Mint(ctx context.Context, caller, contract, to core.Address, uri string, value decimal.Decimal) (*nft.Token, error) {
	var token *nft.Token
	err := m.execute(ctx, MethodMint, func(st State) error {
		var err error
		token, err = m.mint(st, caller, contract, to, uri, value)
		return err
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (m *Machine) BalanceOf(ctx context.Context, contract, account core.Address) (uint64, error) {
	l, err := m.Ledger(contract)
	if err != nil {
		return 0, err
	}
	var count uint64
	err = m.view(ctx, func(st State) error {
		count, err = l.BalanceOf(st, account)
		return err
	})
	return count, err
}

func (m *Machine) OwnerOf(ctx context.Context, contract core.Address, id uint64) (core.Address, error) {
	l, err := m.Ledger(contract)
	if err != nil {
		return "", err
	}
	var owner core.Address
	err = m.view(ctx, func(st State) error {
		owner, err = l.OwnerOf(st, id)
		return err
	})
	return owner, err
}

func (m *Machine) TokenURI(ctx context.Context, contract core.Address, id uint64) (string, error) {
	l, err := m.Ledger(contract)
	if err != nil {
		return "", err
	}
	var uri string
	err = m.view(ctx, func(st State) error {
		uri, err = l.TokenURI(st, id)
		return err
	})
	return uri, err
}

func (m *Machine) SetApprovalForAll(ctx context.Context, caller, contract, operator core.Address, approved bool) error {
	return m.execute(ctx, MethodSetApprovalForAll, func(st State) error {
		return m.setApprovalForAll(st, caller, contract, operator, approved)
	})
}

func (m *Machine) IsApprovedForAll(ctx context.Context, contract, owner, operator core.Address) (bool, error) {
	l, err := m.Ledger(contract)
	if err != nil {
		return false, err
	}
	var approved bool
	err = m.view(ctx, func(st State) error {
		approved, err = l.IsApprovedForAll(st, owner, operator)
		return err
	})
	return approved, err
}

func (m *Machine) TransferFrom(ctx context.Context, caller, contract, from, to core.Address, id uint64) error {
	return m.execute(ctx, MethodTransferFrom, func(st State) error {
		return m.transferFrom(st, caller, contract, from, to, id)
	})
}

func (m *Machine) Withdraw(ctx context.Context, caller, contract core.Address) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := m.execute(ctx, MethodWithdraw, func(st State) error {
		var err error
		amount, err = m.withdraw(st, caller, contract)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

func (m *Machine) Accrued(ctx context.Context, contract core.Address) (decimal.Decimal, error) {
	l, err := m.Ledger(contract)
	if err != nil {
		return decimal.Zero, err
	}
	var amount decimal.Decimal
	err = m.view(ctx, func(st State) error {
		amount, err = l.Accrued(st)
		return err
	})
	return amount, err
}

func (m *Machine) CreateListing(ctx context.Context, caller, contract core.Address, id uint64, price decimal.Decimal) (*market.Listing, error) {
	var listing *market.Listing
	err := m.execute(ctx, MethodCreateListing, func(st State) error {
		var err error
		listing, err = m.createListing(st, caller, contract, id, price)
		return err
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func (m *Machine) BuyListing(ctx context.Context, caller, contract core.Address, id uint64, value decimal.Decimal) (*market.Listing, error) {
	var listing *market.Listing
	err := m.execute(ctx, MethodBuyListing, func(st State) error {
		var err error
		listing, err = m.buyListing(st, caller, contract, id, value)
		return err
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func (m *Machine) CancelListing(ctx context.Context, caller, contract core.Address, id uint64) (*market.Listing, error) {
	var listing *market.Listing
	err := m.execute(ctx, MethodCancelListing, func(st State) error {
		var err error
		listing, err = m.cancelListing(st, caller, contract, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func (m *Machine) ReadListing(ctx context.Context, contract core.Address, id uint64) (*market.Listing, error) {
	var listing *market.Listing
	err := m.view(ctx, func(st State) error {
		var err error
		listing, err = m.exchange.ReadListing(st, contract, id)
		return err
	})
	return listing, err
}

func (m *Machine) ListingValid(ctx context.Context, contract core.Address, id uint64) (bool, error) {
	l, err := m.Ledger(contract)
	if err != nil {
		return false, err
	}
	var valid bool
	err = m.view(ctx, func(st State) error {
		valid, err = m.exchange.ListingValid(st, l.Bind(st), id)
		return err
	})
	return valid, err
}

func (m *Machine) ListListings(ctx context.Context, state int, limit int) ([]*market.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.store.ListListings(state, limit)
}

func (m *Machine) Proceeds(ctx context.Context, account core.Address) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := m.view(ctx, func(st State) error {
		var err error
		amount, err = m.exchange.Proceeds(st, account)
		return err
	})
	return amount, err
}

func (m *Machine) WithdrawProceeds(ctx context.Context, caller core.Address) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := m.execute(ctx, MethodWithdrawProceeds, func(st State) error {
		var err error
		amount, err = m.withdrawProceeds(st, caller)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

func (m *Machine) ListEvents(ctx context.Context, offset uint64, limit int) ([]*core.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.store.ListEvents(offset, limit)
}

func (m *Machine) deposit(st State, account core.Address, amount decimal.Decimal) error {
	if err := account.Validate(); err != nil {
		return err
	}
	if m.isContract(account) {
		return fmt.Errorf("%w deposit to contract %s", core.ErrInvalidAddress, account)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w %s", core.ErrInvalidAmount, amount)
	}
	balance, err := st.ReadBalance(account)
	if err != nil {
		return err
	}
	err = st.WriteBalance(account, balance.Add(amount))
	if err != nil {
		return err
	}
	return st.EmitEvent(&core.Event{
		Kind:      core.EventDeposit,
		To:        account,
		Amount:    amount.String(),
		CreatedAt: st.Now(),
	})
}

func (m *Machine) mint(st State, caller, contract, to core.Address, uri string, value decimal.Decimal) (*nft.Token, error) {
	l, err := m.Ledger(contract)
	if err != nil {
		return nil, err
	}
	err = m.pay(st, caller, contract, value)
	if err != nil {
		return nil, err
	}
	return l.Mint(st, caller, to, uri, value)
}

func (m *Machine) setApprovalForAll(st State, caller, contract, operator core.Address, approved bool) error {
	l, err := m.Ledger(contract)
	if err != nil {
		return err
	}
	if err := caller.Validate(); err != nil {
		return err
	}
	return l.SetApprovalForAll(st, caller, operator, approved)
}

func (m *Machine) transferFrom(st State, caller, contract, from, to core.Address, id uint64) error {
	l, err := m.Ledger(contract)
	if err != nil {
		return err
	}
	return l.TransferFrom(st, caller, from, to, id)
}

func (m *Machine) withdraw(st State, caller, contract core.Address) (decimal.Decimal, error) {
	l, err := m.Ledger(contract)
	if err != nil {
		return decimal.Zero, err
	}
	return l.Withdraw(st, caller)
}

func (m *Machine) createListing(st State, caller, contract core.Address, id uint64, price decimal.Decimal) (*market.Listing, error) {
	l, err := m.Ledger(contract)
	if err != nil {
		return nil, err
	}
	return m.exchange.CreateListing(st, caller, id, l.Bind(st), price)
}

func (m *Machine) buyListing(st State, caller, contract core.Address, id uint64, value decimal.Decimal) (*market.Listing, error) {
	l, err := m.Ledger(contract)
	if err != nil {
		return nil, err
	}
	err = m.pay(st, caller, m.exchange.Address(), value)
	if err != nil {
		return nil, err
	}
	return m.exchange.BuyListing(st, caller, id, l.Bind(st), value)
}

func (m *Machine) cancelListing(st State, caller, contract core.Address, id uint64) (*market.Listing, error) {
	l, err := m.Ledger(contract)
	if err != nil {
		return nil, err
	}
	return m.exchange.CancelListing(st, caller, id, l.Bind(st))
}

func (m *Machine) withdrawProceeds(st State, caller core.Address) (decimal.Decimal, error) {
	if err := caller.Validate(); err != nil {
		return decimal.Zero, err
	}
	return m.exchange.WithdrawProceeds(st, caller)
}
