package machine

import (
	"time"

	"github.com/MixinNetwork/nfm/core"
	"github.com/MixinNetwork/nfm/market"
	"github.com/MixinNetwork/nfm/nft"
)

type Store interface {
	WriteProperty(key, val []byte) error
	ReadProperty(key []byte) ([]byte, error)

	// Atomic runs fn in one read-write transaction stamped with now. Nothing
	// fn wrote survives when it returns an error.
	Atomic(now time.Time, fn func(st State) error) error
	View(fn func(st State) error) error

	WriteAction(act *Action) error
	ReadAction(traceId string) (*Action, error)
	ListActions(state int, limit int) ([]*Action, error)

	ListListings(state int, limit int) ([]*market.Listing, error)
	ListEvents(offset uint64, limit int) ([]*core.Event, error)
}

type State interface {
	nft.State
	market.State

	WriteAction(act *Action) error
}
