package nft

import "github.com/MixinNetwork/nfm/core"

type State interface {
	core.State

	ReadToken(contract core.Address, id uint64) (*Token, error)
	WriteToken(token *Token) error
	ReadSupply(contract core.Address) (uint64, error)
	WriteSupply(contract core.Address, supply uint64) error

	ReadHolding(contract, owner core.Address) (uint64, error)
	WriteHolding(contract, owner core.Address, count uint64) error

	ReadApproval(contract, owner, operator core.Address) (bool, error)
	WriteApproval(contract, owner, operator core.Address, approved bool) error
}

type Token struct {
	Contract core.Address
	Id       uint64
	Owner    core.Address
	URI      string
}
