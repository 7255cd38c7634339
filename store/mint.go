package store

import (
	"github.com/MixinNetwork/mixin/common"
	"github.com/MixinNetwork/nfm/core"
	"github.com/MixinNetwork/nfm/nft"
)

const (
	prefixTokenPayload  = "COLLECTIBLES:TOKEN:PAYLOAD:"
	prefixTokenSupply   = "COLLECTIBLES:TOKEN:SUPPLY:"
	prefixTokenHolding  = "COLLECTIBLES:TOKEN:HOLDING:"
	prefixTokenApproval = "COLLECTIBLES:TOKEN:APPROVAL:"
)

func (t *Txn) ReadToken(contract core.Address, id uint64) (*nft.Token, error) {
	key := buildKey(prefixTokenPayload, []byte(contract), uint64ToBytes(id))
	val, err := readValue(t.txn, key)
	if err != nil || val == nil {
		return nil, err
	}
	var token nft.Token
	err = common.MsgpackUnmarshal(val, &token)
	return &token, err
}

func (t *Txn) WriteToken(token *nft.Token) error {
	key := buildKey(prefixTokenPayload, []byte(token.Contract), uint64ToBytes(token.Id))
	return t.txn.Set(key, common.MsgpackMarshalPanic(token))
}

func (t *Txn) ReadSupply(contract core.Address) (uint64, error) {
	return readUint64(t.txn, buildKey(prefixTokenSupply, []byte(contract)))
}

func (t *Txn) WriteSupply(contract core.Address, supply uint64) error {
	old, err := t.ReadSupply(contract)
	if err != nil {
		return err
	}
	if supply < old {
		panic(supply)
	}
	return t.txn.Set(buildKey(prefixTokenSupply, []byte(contract)), uint64ToBytes(supply))
}

func (t *Txn) ReadHolding(contract, owner core.Address) (uint64, error) {
	return readUint64(t.txn, buildKey(prefixTokenHolding, []byte(contract), []byte(owner)))
}

func (t *Txn) WriteHolding(contract, owner core.Address, count uint64) error {
	key := buildKey(prefixTokenHolding, []byte(contract), []byte(owner))
	if count == 0 {
		return t.txn.Delete(key)
	}
	return t.txn.Set(key, uint64ToBytes(count))
}

func (t *Txn) ReadApproval(contract, owner, operator core.Address) (bool, error) {
	key := buildKey(prefixTokenApproval, []byte(contract), []byte(owner), []byte(operator))
	val, err := readValue(t.txn, key)
	return len(val) > 0, err
}

func (t *Txn) WriteApproval(contract, owner, operator core.Address, approved bool) error {
	key := buildKey(prefixTokenApproval, []byte(contract), []byte(owner), []byte(operator))
	if !approved {
		return t.txn.Delete(key)
	}
	return t.txn.Set(key, []byte{1})
}
