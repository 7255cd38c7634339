package nft

import "github.com/MixinNetwork/nfm/core"

// Session is the ledger bound to one atomic unit, it satisfies the
// exchange's collection capability.
type Session struct {
	ledger *Ledger
	st     State
}

func (l *Ledger) Bind(st State) *Session {
	return &Session{ledger: l, st: st}
}

func (s *Session) Address() core.Address {
	return s.ledger.address
}

func (s *Session) OwnerOf(id uint64) (core.Address, error) {
	return s.ledger.OwnerOf(s.st, id)
}

func (s *Session) IsApprovedForAll(owner, operator core.Address) (bool, error) {
	return s.ledger.IsApprovedForAll(s.st, owner, operator)
}

func (s *Session) TransferFrom(caller, from, to core.Address, id uint64) error {
	return s.ledger.TransferFrom(s.st, caller, from, to, id)
}
