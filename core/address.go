package core

import (
	"fmt"

	"github.com/fox-one/mixin-sdk-go"
	"github.com/gofrs/uuid"
)

// Address references an account or a contract, always a Mixin style UUID.
type Address string

func (a Address) String() string {
	return string(a)
}

func (a Address) Validate() error {
	id, err := uuid.FromString(string(a))
	if err != nil || id.String() == uuid.Nil.String() {
		return fmt.Errorf("%w %q", ErrInvalidAddress, string(a))
	}
	return nil
}

// ContractAddress derives the address a deployer gets for the contract name,
// the same deployer and name always yield the same address.
func ContractAddress(deployer Address, name string) Address {
	return Address(mixin.UniqueConversationID(string(deployer), "contract:"+name))
}
