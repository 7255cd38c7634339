package machine

import (
	"context"
	"fmt"
	"time"

	"github.com/MixinNetwork/mixin/logger"
	"github.com/MixinNetwork/nfm/core"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

const (
	ActionStateInitial = 10
	ActionStateDone    = 11
)

const (
	MethodDeposit           = "deposit"
	MethodMint              = "mint"
	MethodSetApprovalForAll = "set_approval_for_all"
	MethodTransferFrom      = "transfer_from"
	MethodWithdraw          = "withdraw"
	MethodCreateListing     = "create_listing"
	MethodBuyListing        = "buy_listing"
	MethodCancelListing     = "cancel_listing"
	MethodWithdrawProceeds  = "withdraw_proceeds"
)

// Action is a queued operation. Amount carries the attached value of
// payable methods, the price of create_listing or the deposit amount.
type Action struct {
	TraceId   string
	Method    string
	Caller    core.Address
	Contract  core.Address
	TokenId   uint64
	From      core.Address
	To        core.Address
	URI       string
	Approved  bool
	Amount    string
	State     int
	Result    string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (act *Action) amount() (decimal.Decimal, error) {
	if act.Amount == "" {
		return decimal.Zero, nil
	}
	amt, err := decimal.NewFromString(act.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w %q", core.ErrInvalidAmount, act.Amount)
	}
	return amt, nil
}

func (act *Action) validate() error {
	id, err := uuid.FromString(act.TraceId)
	if err != nil || id.String() == uuid.Nil.String() {
		return fmt.Errorf("invalid action trace id %q", act.TraceId)
	}
	switch act.Method {
	case MethodDeposit, MethodMint, MethodSetApprovalForAll, MethodTransferFrom, MethodWithdraw,
		MethodCreateListing, MethodBuyListing, MethodCancelListing, MethodWithdrawProceeds:
	default:
		return fmt.Errorf("invalid action method %q", act.Method)
	}
	_, err = act.amount()
	return err
}

// Submit queues the action for Run. Submitting a trace id twice is a noop.
func (m *Machine) Submit(ctx context.Context, act *Action) error {
	err := act.validate()
	if err != nil {
		return err
	}
	old, err := m.store.ReadAction(act.TraceId)
	if err != nil || old != nil {
		return err
	}
	act.State = ActionStateInitial
	act.Result = ""
	act.Error = ""
	act.CreatedAt = m.clock.Now()
	act.UpdatedAt = act.CreatedAt
	return m.store.WriteAction(act)
}

func (m *Machine) ReadAction(ctx context.Context, traceId string) (*Action, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.store.ReadAction(traceId)
}

// ProcessActions executes up to limit queued actions in submission order.
// A successful action is marked done in the same transaction as its
// effects; a reverted one is marked done with the error afterwards.
func (m *Machine) ProcessActions(ctx context.Context, limit int) (int, error) {
	acts, err := m.store.ListActions(ActionStateInitial, limit)
	if err != nil {
		return 0, err
	}
	for i, act := range acts {
		err = m.processAction(ctx, act)
		if err != nil {
			return i, err
		}
	}
	return len(acts), nil
}

func (m *Machine) Run(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := m.ProcessActions(ctx, 16)
		if err != nil {
			logger.Printf("Machine.ProcessActions() => %d %v\n", n, err)
		}
		if n > 0 && err == nil {
			continue
		}
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
	}
}

func (m *Machine) processAction(ctx context.Context, act *Action) error {
	err := m.execute(ctx, act.Method, func(st State) error {
		result, err := m.apply(st, act)
		if err != nil {
			return err
		}
		act.State = ActionStateDone
		act.Result = result
		act.UpdatedAt = st.Now()
		return st.WriteAction(act)
	})
	if err == nil || !reverted(err) {
		return err
	}
	logger.Verbosef("Machine.processAction(%s, %s) => %v\n", act.TraceId, act.Method, err)
	act.State = ActionStateDone
	act.Result = ""
	act.Error = err.Error()
	act.UpdatedAt = m.clock.Now()
	return m.store.WriteAction(act)
}

func (m *Machine) apply(st State, act *Action) (string, error) {
	amount, err := act.amount()
	if err != nil {
		return "", err
	}
	switch act.Method {
	case MethodDeposit:
		return "", m.deposit(st, act.To, amount)
	case MethodMint:
		token, err := m.mint(st, act.Caller, act.Contract, act.To, act.URI, amount)
		if err != nil {
			return "", err
		}
		return fmt.Sprint(token.Id), nil
	case MethodSetApprovalForAll:
		return "", m.setApprovalForAll(st, act.Caller, act.Contract, act.To, act.Approved)
	case MethodTransferFrom:
		return "", m.transferFrom(st, act.Caller, act.Contract, act.From, act.To, act.TokenId)
	case MethodWithdraw:
		amt, err := m.withdraw(st, act.Caller, act.Contract)
		return amt.String(), err
	case MethodCreateListing:
		_, err := m.createListing(st, act.Caller, act.Contract, act.TokenId, amount)
		return "", err
	case MethodBuyListing:
		_, err := m.buyListing(st, act.Caller, act.Contract, act.TokenId, amount)
		return "", err
	case MethodCancelListing:
		_, err := m.cancelListing(st, act.Caller, act.Contract, act.TokenId)
		return "", err
	case MethodWithdrawProceeds:
		amt, err := m.withdrawProceeds(st, act.Caller)
		return amt.String(), err
	}
	panic(act.Method)
}
