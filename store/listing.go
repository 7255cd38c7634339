package store

import (
	"time"

	"github.com/MixinNetwork/mixin/common"
	"github.com/MixinNetwork/nfm/core"
	"github.com/MixinNetwork/nfm/market"
	"github.com/dgraph-io/badger/v3"
	"github.com/shopspring/decimal"
)

const (
	prefixListingPayload = "LISTING:PAYLOAD:"
	prefixListingState   = "LISTING:STATE:"
)

type listingRecord struct {
	Contract  core.Address
	TokenId   uint64
	Seller    core.Address
	Buyer     core.Address
	Price     string
	State     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Txn) ReadListing(contract core.Address, tokenId uint64) (*market.Listing, error) {
	return readListing(t.txn, listingPayloadKey(contract, tokenId))
}

func (t *Txn) WriteListing(l *market.Listing) error {
	key := listingPayloadKey(l.Contract, l.TokenId)
	old, err := readListing(t.txn, key)
	if err != nil {
		return err
	}
	if old != nil {
		err = t.txn.Delete(buildListingTimedKey(old))
		if err != nil {
			return err
		}
	}

	r := &listingRecord{
		Contract:  l.Contract,
		TokenId:   l.TokenId,
		Seller:    l.Seller,
		Buyer:     l.Buyer,
		Price:     l.Price.String(),
		State:     l.State,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
	err = t.txn.Set(key, common.MsgpackMarshalPanic(r))
	if err != nil {
		return err
	}
	return t.txn.Set(buildListingTimedKey(l), key)
}

// ListListings lists listings in the state, least recently updated first.
func (bs *BadgerStore) ListListings(state int, limit int) ([]*market.Listing, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(listingStatePrefix(state))
	it := txn.NewIterator(opts)
	defer it.Close()

	var listings []*market.Listing
	for it.Seek(opts.Prefix); it.Valid(); it.Next() {
		key, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		l, err := readListing(txn, key)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
		if len(listings) == limit {
			break
		}
	}
	return listings, nil
}

func readListing(txn *badger.Txn, key []byte) (*market.Listing, error) {
	val, err := readValue(txn, key)
	if err != nil || val == nil {
		return nil, err
	}
	var r listingRecord
	err = common.MsgpackUnmarshal(val, &r)
	if err != nil {
		return nil, err
	}
	return &market.Listing{
		Contract:  r.Contract,
		TokenId:   r.TokenId,
		Seller:    r.Seller,
		Buyer:     r.Buyer,
		Price:     decimal.RequireFromString(r.Price),
		State:     r.State,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

func listingPayloadKey(contract core.Address, tokenId uint64) []byte {
	return buildKey(prefixListingPayload, []byte(contract), uint64ToBytes(tokenId))
}

func buildListingTimedKey(l *market.Listing) []byte {
	prefix := listingStatePrefix(l.State)
	return buildKey(prefix, tsToBytes(l.UpdatedAt), []byte(l.Contract), uint64ToBytes(l.TokenId))
}

func listingStatePrefix(state int) string {
	prefix := prefixListingState
	switch state {
	case market.ListingStateActive:
		return prefix + "activeee"
	case market.ListingStateSold:
		return prefix + "solddddd"
	case market.ListingStateCancelled:
		return prefix + "cancelld"
	}
	panic(state)
}
