package store

import (
	"encoding/binary"
	"time"

	"github.com/dgraph-io/badger/v3"
)

func tsToBytes(ts time.Time) []byte {
	buf := make([]byte, 8)
	d := ts.UnixNano()
	binary.BigEndian.PutUint64(buf, uint64(d))
	return buf
}

func uint64ToBytes(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}

func bytesToUint64(b []byte) uint64 {
	if len(b) != 8 {
		panic(len(b))
	}
	return binary.BigEndian.Uint64(b)
}

func buildKey(prefix string, parts ...[]byte) []byte {
	key := []byte(prefix)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

func readValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func readUint64(txn *badger.Txn, key []byte) (uint64, error) {
	val, err := readValue(txn, key)
	if err != nil || val == nil {
		return 0, err
	}
	return bytesToUint64(val), nil
}
