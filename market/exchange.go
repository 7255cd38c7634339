package market

import (
	"fmt"

	"github.com/MixinNetwork/nfm/core"
	"github.com/shopspring/decimal"
)

// Exchange lists tokens of any collection and settles sales. Sellers are
// paid through proceeds they withdraw later, so no funds leave the exchange
// while a sale is being settled.
type Exchange struct {
	address core.Address
}

func NewExchange(address core.Address) (*Exchange, error) {
	if err := address.Validate(); err != nil {
		return nil, err
	}
	return &Exchange{address: address}, nil
}

func (ex *Exchange) Address() core.Address {
	return ex.address
}

func (ex *Exchange) CreateListing(st State, caller core.Address, tokenId uint64, coll Collection, price decimal.Decimal) (*Listing, error) {
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w %s", core.ErrInvalidPrice, price)
	}
	owner, err := coll.OwnerOf(tokenId)
	if err != nil {
		return nil, err
	}
	if owner != caller {
		return nil, fmt.Errorf("%w %s of token %d", core.ErrNotOwner, caller, tokenId)
	}
	approved, err := coll.IsApprovedForAll(caller, ex.address)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, fmt.Errorf("%w %s to %s", core.ErrNotApproved, caller, ex.address)
	}

	now := st.Now()
	l := &Listing{
		Contract:  coll.Address(),
		TokenId:   tokenId,
		Seller:    caller,
		Price:     price,
		State:     ListingStateActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = st.WriteListing(l)
	if err != nil {
		return nil, err
	}
	return l, st.EmitEvent(&core.Event{
		Kind:      core.EventListingCreated,
		Contract:  l.Contract,
		TokenId:   tokenId,
		From:      caller,
		To:        ex.address,
		Amount:    price.String(),
		CreatedAt: now,
	})
}

// BuyListing expects paid to be in the exchange balance already. The
// listing is closed and the token moved before the seller is credited; a
// failed token transfer aborts the whole unit.
func (ex *Exchange) BuyListing(st State, caller core.Address, tokenId uint64, coll Collection, paid decimal.Decimal) (*Listing, error) {
	l, err := ex.readActiveListing(st, coll.Address(), tokenId)
	if err != nil {
		return nil, err
	}
	if paid.LessThan(l.Price) {
		return nil, fmt.Errorf("%w %s < %s", core.ErrInsufficientPayment, paid, l.Price)
	}

	l.State = ListingStateSold
	l.Buyer = caller
	l.UpdatedAt = st.Now()
	err = st.WriteListing(l)
	if err != nil {
		return nil, err
	}
	err = coll.TransferFrom(ex.address, l.Seller, caller, tokenId)
	if err != nil {
		return nil, err
	}

	proceeds, err := st.ReadProceeds(ex.address, l.Seller)
	if err != nil {
		return nil, err
	}
	err = st.WriteProceeds(ex.address, l.Seller, proceeds.Add(paid))
	if err != nil {
		return nil, err
	}
	return l, st.EmitEvent(&core.Event{
		Kind:      core.EventListingSold,
		Contract:  l.Contract,
		TokenId:   tokenId,
		From:      l.Seller,
		To:        caller,
		Amount:    paid.String(),
		CreatedAt: l.UpdatedAt,
	})
}

func (ex *Exchange) CancelListing(st State, caller core.Address, tokenId uint64, coll Collection) (*Listing, error) {
	l, err := ex.readActiveListing(st, coll.Address(), tokenId)
	if err != nil {
		return nil, err
	}
	if l.Seller != caller {
		return nil, fmt.Errorf("%w %s of listing %s:%d", core.ErrNotOwner, caller, l.Contract, tokenId)
	}

	l.State = ListingStateCancelled
	l.UpdatedAt = st.Now()
	err = st.WriteListing(l)
	if err != nil {
		return nil, err
	}
	return l, st.EmitEvent(&core.Event{
		Kind:      core.EventListingCancelled,
		Contract:  l.Contract,
		TokenId:   tokenId,
		From:      caller,
		CreatedAt: l.UpdatedAt,
	})
}

func (ex *Exchange) ReadListing(st State, contract core.Address, tokenId uint64) (*Listing, error) {
	return st.ReadListing(contract, tokenId)
}

// ListingValid reports whether the listing can still be bought: it is
// active, the seller still owns the token and the exchange is still
// approved to move it.
func (ex *Exchange) ListingValid(st State, coll Collection, tokenId uint64) (bool, error) {
	l, err := st.ReadListing(coll.Address(), tokenId)
	if err != nil || l == nil || l.State != ListingStateActive {
		return false, err
	}
	owner, err := coll.OwnerOf(tokenId)
	if err != nil || owner != l.Seller {
		return false, err
	}
	return coll.IsApprovedForAll(l.Seller, ex.address)
}

func (ex *Exchange) Proceeds(st State, account core.Address) (decimal.Decimal, error) {
	return st.ReadProceeds(ex.address, account)
}

func (ex *Exchange) WithdrawProceeds(st State, caller core.Address) (decimal.Decimal, error) {
	amount, err := st.ReadProceeds(ex.address, caller)
	if err != nil || amount.IsZero() {
		return decimal.Zero, err
	}
	err = st.WriteProceeds(ex.address, caller, decimal.Zero)
	if err != nil {
		return decimal.Zero, err
	}
	err = core.Transfer(st, ex.address, caller, amount)
	if err != nil {
		return decimal.Zero, err
	}
	return amount, st.EmitEvent(&core.Event{
		Kind:      core.EventProceedsWithdrawn,
		Contract:  ex.address,
		From:      ex.address,
		To:        caller,
		Amount:    amount.String(),
		CreatedAt: st.Now(),
	})
}

func (ex *Exchange) readActiveListing(st State, contract core.Address, tokenId uint64) (*Listing, error) {
	l, err := st.ReadListing(contract, tokenId)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("%w %s:%d not found", core.ErrListingNotActive, contract, tokenId)
	}
	if l.State != ListingStateActive {
		return nil, fmt.Errorf("%w %s:%d %s", core.ErrListingNotActive, contract, tokenId, l.StateName())
	}
	return l, nil
}
