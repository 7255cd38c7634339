package store

import (
	"github.com/MixinNetwork/nfm/core"
	"github.com/shopspring/decimal"
)

const (
	prefixBalance  = "BALANCE:"
	prefixProceeds = "PROCEEDS:"
)

func (t *Txn) ReadBalance(a core.Address) (decimal.Decimal, error) {
	return t.readAmount(buildKey(prefixBalance, []byte(a)))
}

func (t *Txn) WriteBalance(a core.Address, amount decimal.Decimal) error {
	return t.writeAmount(buildKey(prefixBalance, []byte(a)), amount)
}

func (t *Txn) ReadProceeds(exchange, account core.Address) (decimal.Decimal, error) {
	return t.readAmount(buildKey(prefixProceeds, []byte(exchange), []byte(account)))
}

func (t *Txn) WriteProceeds(exchange, account core.Address, amount decimal.Decimal) error {
	return t.writeAmount(buildKey(prefixProceeds, []byte(exchange), []byte(account)), amount)
}

func (t *Txn) readAmount(key []byte) (decimal.Decimal, error) {
	val, err := readValue(t.txn, key)
	if err != nil || val == nil {
		return decimal.Zero, err
	}
	return decimal.RequireFromString(string(val)), nil
}

func (t *Txn) writeAmount(key []byte, amount decimal.Decimal) error {
	if amount.IsNegative() {
		panic(amount.String())
	}
	if amount.IsZero() {
		return t.txn.Delete(key)
	}
	return t.txn.Set(key, []byte(amount.String()))
}
