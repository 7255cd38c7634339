package market

import (
	"time"

	"github.com/MixinNetwork/nfm/core"
	"github.com/shopspring/decimal"
)

const (
	ListingStateActive    = 10
	ListingStateSold      = 11
	ListingStateCancelled = 12
)

type State interface {
	core.State

	ReadListing(contract core.Address, tokenId uint64) (*Listing, error)
	WriteListing(l *Listing) error

	ReadProceeds(exchange, account core.Address) (decimal.Decimal, error)
	WriteProceeds(exchange, account core.Address, amount decimal.Decimal) error
}

// Collection is the token transfer capability a listing refers to. Any
// ledger able to answer ownership and approval queries and to move a token
// on behalf of an operator can be traded.
type Collection interface {
	Address() core.Address
	OwnerOf(tokenId uint64) (core.Address, error)
	IsApprovedForAll(owner, operator core.Address) (bool, error)
	TransferFrom(caller, from, to core.Address, tokenId uint64) error
}

type Listing struct {
	Contract  core.Address
	TokenId   uint64
	Seller    core.Address
	Buyer     core.Address
	Price     decimal.Decimal
	State     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (l *Listing) StateName() string {
	switch l.State {
	case ListingStateActive:
		return "active"
	case ListingStateSold:
		return "sold"
	case ListingStateCancelled:
		return "cancelled"
	}
	panic(l.State)
}
