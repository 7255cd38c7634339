package core

import (
	"time"

	"github.com/MixinNetwork/mixin/common"
	"github.com/MixinNetwork/mixin/crypto"
)

const (
	EventDeposit           = "deposit"
	EventMint              = "mint"
	EventApproval          = "approval"
	EventTransfer          = "transfer"
	EventWithdraw          = "withdraw"
	EventListingCreated    = "listing_created"
	EventListingSold       = "listing_sold"
	EventListingCancelled  = "listing_cancelled"
	EventProceedsWithdrawn = "proceeds_withdrawn"
)

// Event is the externally observable record of a state change. Events are
// written inside the operation that causes them, so a failed operation
// never leaves one behind.
type Event struct {
	Sequence  uint64
	Kind      string
	Contract  Address
	TokenId   uint64
	From      Address
	To        Address
	Amount    string
	URI       string
	Approved  bool
	CreatedAt time.Time
}

func (e *Event) Hash() crypto.Hash {
	return crypto.NewHash(common.MsgpackMarshalPanic(e))
}
