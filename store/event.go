package store

import (
	"github.com/MixinNetwork/mixin/common"
	"github.com/MixinNetwork/nfm/core"
	"github.com/dgraph-io/badger/v3"
)

const (
	prefixEventPayload = "EVENT:PAYLOAD:"
	keyEventSequence   = "EVENT:SEQUENCE"
)

// EmitEvent appends the event to the log with the next sequence number.
// The sequence counter moves with the enclosing transaction.
func (t *Txn) EmitEvent(e *core.Event) error {
	seq, err := readUint64(t.txn, []byte(keyEventSequence))
	if err != nil {
		return err
	}
	e.Sequence = seq
	key := buildKey(prefixEventPayload, uint64ToBytes(seq))
	err = t.txn.Set(key, common.MsgpackMarshalPanic(e))
	if err != nil {
		return err
	}
	return t.txn.Set([]byte(keyEventSequence), uint64ToBytes(seq+1))
}

func (bs *BadgerStore) ListEvents(offset uint64, limit int) ([]*core.Event, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixEventPayload)
	it := txn.NewIterator(opts)
	defer it.Close()

	var events []*core.Event
	for it.Seek(buildKey(prefixEventPayload, uint64ToBytes(offset))); it.Valid(); it.Next() {
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		var e core.Event
		err = common.MsgpackUnmarshal(val, &e)
		if err != nil {
			return nil, err
		}
		events = append(events, &e)
		if len(events) == limit {
			break
		}
	}
	return events, nil
}
