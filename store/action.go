package store

import (
	"github.com/MixinNetwork/mixin/common"
	"github.com/MixinNetwork/nfm/machine"
	"github.com/dgraph-io/badger/v3"
)

const (
	prefixActionPayload = "ACTION:PAYLOAD:"
	prefixActionState   = "ACTION:STATE:"
)

func (bs *BadgerStore) WriteAction(act *machine.Action) error {
	return bs.db.Update(func(txn *badger.Txn) error {
		return writeAction(txn, act)
	})
}

func (t *Txn) WriteAction(act *machine.Action) error {
	return writeAction(t.txn, act)
}

func (bs *BadgerStore) ReadAction(traceId string) (*machine.Action, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	return readAction(txn, traceId)
}

func (bs *BadgerStore) ListActions(state int, limit int) ([]*machine.Action, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(actionStatePrefix(state))
	it := txn.NewIterator(opts)
	defer it.Close()

	var acts []*machine.Action
	for it.Seek(opts.Prefix); it.Valid(); it.Next() {
		key := it.Item().Key()
		id := string(key[len(opts.Prefix)+8:])
		act, err := readAction(txn, id)
		if err != nil {
			return nil, err
		}
		acts = append(acts, act)
		if len(acts) == limit {
			break
		}
	}
	return acts, nil
}

func writeAction(txn *badger.Txn, act *machine.Action) error {
	old, err := resetOldAction(txn, act)
	if err != nil || old != nil {
		return err
	}
	key := []byte(prefixActionPayload + act.TraceId)
	val := common.MsgpackMarshalPanic(act)
	err = txn.Set(key, val)
	if err != nil {
		return err
	}

	key = buildActionTimedKey(act)
	return txn.Set(key, []byte{1})
}

func resetOldAction(txn *badger.Txn, act *machine.Action) (*machine.Action, error) {
	old, err := readAction(txn, act.TraceId)
	if err != nil || old == nil {
		return old, err
	}
	if old.State >= act.State {
		return old, nil
	}

	key := buildActionTimedKey(old)
	_, err = txn.Get(key)
	if err != nil {
		panic(key)
	}
	return nil, txn.Delete(key)
}

func readAction(txn *badger.Txn, id string) (*machine.Action, error) {
	val, err := readValue(txn, []byte(prefixActionPayload+id))
	if err != nil || val == nil {
		return nil, err
	}
	var act machine.Action
	err = common.MsgpackUnmarshal(val, &act)
	return &act, err
}

func buildActionTimedKey(act *machine.Action) []byte {
	prefix := actionStatePrefix(act.State)
	return buildKey(prefix, tsToBytes(act.CreatedAt), []byte(act.TraceId))
}

func actionStatePrefix(state int) string {
	prefix := prefixActionState
	switch state {
	case machine.ActionStateInitial:
		return prefix + "initial"
	case machine.ActionStateDone:
		return prefix + "doneeee"
	}
	panic(state)
}
