package store

import (
	"time"

	"github.com/MixinNetwork/nfm/machine"
	"github.com/dgraph-io/badger/v3"
)

// Txn is the state handed to one atomic unit. A Txn opened by View has a
// zero timestamp and fails every write.
type Txn struct {
	txn *badger.Txn
	now time.Time
}

var _ machine.State = (*Txn)(nil)

func (t *Txn) Now() time.Time {
	return t.now
}
