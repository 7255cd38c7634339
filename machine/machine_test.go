package machine_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/MixinNetwork/nfm/core"
	"github.com/MixinNetwork/nfm/machine"
	"github.com/MixinNetwork/nfm/market"
	"github.com/MixinNetwork/nfm/store"
	"github.com/gofrs/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fee   = decimal.RequireFromString("0.002")
	price = decimal.RequireFromString("0.01")
)

func newAddress() core.Address {
	return core.Address(uuid.Must(uuid.NewV4()).String())
}

func buildMachine(t *testing.T) (*machine.Machine, core.Address, core.Address) {
	bs, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })

	owner := newAddress()
	conf, err := machine.ParseConfiguration([]byte(fmt.Sprintf(`
deployer = "%s"

[[ledger]]
name = "nfo"
owner = "%s"
`, newAddress(), owner)))
	require.NoError(t, err)

	m, err := machine.Build(context.Background(), bs, conf)
	require.NoError(t, err)
	return m, core.ContractAddress(core.Address(conf.Deployer), "nfo"), owner
}

func TestMarketplaceScenario(t *testing.T) {
	ctx := context.Background()
	m, ledger, _ := buildMachine(t)
	a, b := newAddress(), newAddress()
	require.NoError(t, m.Deposit(ctx, a, decimal.NewFromInt(1)))
	require.NoError(t, m.Deposit(ctx, b, decimal.NewFromInt(1)))

	token, err := m.Mint(ctx, a, ledger, a, "https://token-uri.com", fee)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), token.Id)
	count, err := m.BalanceOf(ctx, ledger, a)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	require.NoError(t, m.SetApprovalForAll(ctx, a, ledger, m.Exchange().Address(), true))
	_, err = m.CreateListing(ctx, a, ledger, 0, price)
	require.NoError(t, err)

	_, err = m.BuyListing(ctx, b, ledger, 0, decimal.RequireFromString("0.005"))
	assert.ErrorIs(t, err, core.ErrInsufficientPayment)
	l, err := m.ReadListing(ctx, ledger, 0)
	require.NoError(t, err)
	assert.Equal(t, market.ListingStateActive, l.State)
	funds, err := m.Funds(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "1", funds.String())

	_, err = m.BuyListing(ctx, b, ledger, 0, price)
	require.NoError(t, err)
	owner, err := m.OwnerOf(ctx, ledger, 0)
	require.NoError(t, err)
	assert.Equal(t, b, owner)
	count, err = m.BalanceOf(ctx, ledger, b)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	l, err = m.ReadListing(ctx, ledger, 0)
	require.NoError(t, err)
	assert.Equal(t, market.ListingStateSold, l.State)
	valid, err := m.ListingValid(ctx, ledger, 0)
	require.NoError(t, err)
	assert.False(t, valid)

	proceeds, err := m.Proceeds(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "0.01", proceeds.String())
	amount, err := m.WithdrawProceeds(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "0.01", amount.String())
	funds, err = m.Funds(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "1.008", funds.String())
	funds, err = m.Funds(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "0.99", funds.String())

	events, err := m.ListEvents(ctx, 0, 0)
	require.NoError(t, err)
	var kinds []string
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []string{
		core.EventDeposit,
		core.EventDeposit,
		core.EventMint,
		core.EventApproval,
		core.EventListingCreated,
		core.EventTransfer,
		core.EventListingSold,
		core.EventProceedsWithdrawn,
	}, kinds)
}

func TestWithdrawScenario(t *testing.T) {
	ctx := context.Background()
	m, ledger, owner := buildMachine(t)
	a, b := newAddress(), newAddress()
	for _, p := range []core.Address{a, b, owner} {
		require.NoError(t, m.Deposit(ctx, p, fee))
	}

	_, err := m.Mint(ctx, a, ledger, a, "https://token-uri.com", fee)
	require.NoError(t, err)
	_, err = m.Mint(ctx, b, ledger, a, "https://token-uri.com", fee)
	require.NoError(t, err)
	_, err = m.Mint(ctx, owner, ledger, owner, "https://token-uri.com", fee)
	require.NoError(t, err)

	accrued, err := m.Accrued(ctx, ledger)
	require.NoError(t, err)
	assert.Equal(t, "0.006", accrued.String())

	_, err = m.Withdraw(ctx, a, ledger)
	assert.ErrorIs(t, err, core.ErrNotOwner)
	accrued, err = m.Accrued(ctx, ledger)
	require.NoError(t, err)
	assert.Equal(t, "0.006", accrued.String())

	amount, err := m.Withdraw(ctx, owner, ledger)
	require.NoError(t, err)
	assert.Equal(t, "0.006", amount.String())
	accrued, err = m.Accrued(ctx, ledger)
	require.NoError(t, err)
	assert.True(t, accrued.IsZero())
	funds, err := m.Funds(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "0.006", funds.String())
}

func TestFailedOperationsLeaveNoTrace(t *testing.T) {
	ctx := context.Background()
	m, ledger, _ := buildMachine(t)
	a, b := newAddress(), newAddress()
	require.NoError(t, m.Deposit(ctx, a, decimal.RequireFromString("0.001")))

	_, err := m.Mint(ctx, a, ledger, a, "https://token-uri.com", decimal.RequireFromString("0.001"))
	assert.ErrorIs(t, err, core.ErrInsufficientPayment)
	_, err = m.Mint(ctx, a, ledger, a, "https://token-uri.com", fee)
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
	_, err = m.Mint(ctx, a, newAddress(), a, "https://token-uri.com", fee)
	assert.ErrorIs(t, err, core.ErrUnknownContract)
	_, err = m.Mint(ctx, a, ledger, a, "https://token-uri.com", decimal.RequireFromString("-1"))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	err = m.TransferFrom(ctx, b, ledger, a, b, 0)
	assert.ErrorIs(t, err, core.ErrTokenNotFound)
	err = m.Deposit(ctx, ledger, fee)
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
	err = m.Deposit(ctx, b, decimal.Zero)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	funds, err := m.Funds(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "0.001", funds.String())
	accrued, err := m.Accrued(ctx, ledger)
	require.NoError(t, err)
	assert.True(t, accrued.IsZero())
	count, err := m.BalanceOf(ctx, ledger, a)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	events, err := m.ListEvents(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, core.EventDeposit, events[0].Kind)
}

func TestTransferAuthorization(t *testing.T) {
	ctx := context.Background()
	m, ledger, _ := buildMachine(t)
	a, b, c := newAddress(), newAddress(), newAddress()
	require.NoError(t, m.Deposit(ctx, a, fee))
	_, err := m.Mint(ctx, a, ledger, a, "https://token-uri.com", fee)
	require.NoError(t, err)

	err = m.TransferFrom(ctx, c, ledger, a, b, 0)
	assert.ErrorIs(t, err, core.ErrNotAuthorized)

	require.NoError(t, m.SetApprovalForAll(ctx, a, ledger, c, true))
	approved, err := m.IsApprovedForAll(ctx, ledger, a, c)
	require.NoError(t, err)
	assert.True(t, approved)
	require.NoError(t, m.TransferFrom(ctx, c, ledger, a, b, 0))

	owner, err := m.OwnerOf(ctx, ledger, 0)
	require.NoError(t, err)
	assert.Equal(t, b, owner)
	uri, err := m.TokenURI(ctx, ledger, 0)
	require.NoError(t, err)
	assert.Equal(t, "https://token-uri.com", uri)
}

func TestRevokedApprovalAbortsPurchase(t *testing.T) {
	ctx := context.Background()
	m, ledger, _ := buildMachine(t)
	a, b := newAddress(), newAddress()
	require.NoError(t, m.Deposit(ctx, a, fee))
	require.NoError(t, m.Deposit(ctx, b, price))
	_, err := m.Mint(ctx, a, ledger, a, "https://token-uri.com", fee)
	require.NoError(t, err)
	require.NoError(t, m.SetApprovalForAll(ctx, a, ledger, m.Exchange().Address(), true))
	_, err = m.CreateListing(ctx, a, ledger, 0, price)
	require.NoError(t, err)

	active, err := m.ListListings(ctx, market.ListingStateActive, 10)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, m.SetApprovalForAll(ctx, a, ledger, m.Exchange().Address(), false))
	valid, err := m.ListingValid(ctx, ledger, 0)
	require.NoError(t, err)
	assert.False(t, valid)

	_, err = m.BuyListing(ctx, b, ledger, 0, price)
	assert.ErrorIs(t, err, core.ErrNotAuthorized)
	funds, err := m.Funds(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "0.01", funds.String())
	l, err := m.ReadListing(ctx, ledger, 0)
	require.NoError(t, err)
	assert.Equal(t, market.ListingStateActive, l.State)

	_, err = m.CancelListing(ctx, b, ledger, 0)
	assert.ErrorIs(t, err, core.ErrNotOwner)
	_, err = m.CancelListing(ctx, a, ledger, 0)
	require.NoError(t, err)
	active, err = m.ListListings(ctx, market.ListingStateActive, 10)
	require.NoError(t, err)
	assert.Len(t, active, 0)
}

func TestActionQueue(t *testing.T) {
	ctx := context.Background()
	m, ledger, _ := buildMachine(t)
	a := newAddress()

	submit := func(act *machine.Action) string {
		act.TraceId = uuid.Must(uuid.NewV4()).String()
		require.NoError(t, m.Submit(ctx, act))
		return act.TraceId
	}
	deposit := submit(&machine.Action{Method: machine.MethodDeposit, To: a, Amount: "0.003"})
	mint := submit(&machine.Action{Method: machine.MethodMint, Caller: a, Contract: ledger, To: a, URI: "https://token-uri.com", Amount: "0.002"})
	underpaid := submit(&machine.Action{Method: machine.MethodMint, Caller: a, Contract: ledger, To: a, Amount: "0.001"})
	approve := submit(&machine.Action{Method: machine.MethodSetApprovalForAll, Caller: a, Contract: ledger, To: m.Exchange().Address(), Approved: true})
	list := submit(&machine.Action{Method: machine.MethodCreateListing, Caller: a, Contract: ledger, TokenId: 0, Amount: "0.01"})

	err := m.Submit(ctx, &machine.Action{TraceId: deposit, Method: machine.MethodDeposit, To: a, Amount: "5"})
	require.NoError(t, err)
	err = m.Submit(ctx, &machine.Action{TraceId: "bad", Method: machine.MethodDeposit})
	assert.Error(t, err)
	err = m.Submit(ctx, &machine.Action{TraceId: uuid.Must(uuid.NewV4()).String(), Method: "burn"})
	assert.Error(t, err)
	err = m.Submit(ctx, &machine.Action{TraceId: uuid.Must(uuid.NewV4()).String(), Method: machine.MethodDeposit, Amount: "x"})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	n, err := m.ProcessActions(ctx, 16)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, err = m.ProcessActions(ctx, 16)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for _, id := range []string{deposit, mint, approve, list} {
		act, err := m.ReadAction(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, machine.ActionStateDone, act.State)
		assert.Empty(t, act.Error, act.Method)
	}
	act, err := m.ReadAction(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, "0", act.Result)

	act, err = m.ReadAction(ctx, underpaid)
	require.NoError(t, err)
	assert.Equal(t, machine.ActionStateDone, act.State)
	assert.Contains(t, act.Error, core.ErrInsufficientPayment.Error())

	funds, err := m.Funds(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "0.001", funds.String())
	valid, err := m.ListingValid(ctx, ledger, 0)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestRunStopsOnCancel(t *testing.T) {
	m, _, _ := buildMachine(t)
	a := newAddress()
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Submit(ctx, &machine.Action{
		TraceId: uuid.Must(uuid.NewV4()).String(),
		Method:  machine.MethodDeposit,
		To:      a,
		Amount:  "1",
	}))

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		funds, err := m.Funds(context.Background(), a)
		return err == nil && funds.Equal(decimal.NewFromInt(1))
	}, 5e9, 1e7)
	cancel()
	<-done

	err := m.Deposit(ctx, a, fee)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	m, ledger, _ := buildMachine(t)
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Metrics().Register(reg))
	assert.Error(t, m.Metrics().Register(reg))

	a := newAddress()
	require.NoError(t, m.Deposit(ctx, a, fee))
	_, err := m.Mint(ctx, a, ledger, a, "", fee)
	require.NoError(t, err)
	_, err = m.Mint(ctx, a, ledger, a, "", fee)
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)

	families, err := reg.Gather()
	require.NoError(t, err)
	series := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range metric.GetLabel() {
				key = key + ":" + lp.GetValue()
			}
			if c := metric.GetCounter(); c != nil {
				series[key] = c.GetValue()
			} else if h := metric.GetHistogram(); h != nil {
				series[key] = float64(h.GetSampleCount())
			}
		}
	}
	assert.Equal(t, map[string]float64{
		"nfm_operations_total:deposit:ok":        1,
		"nfm_operations_total:mint:ok":           1,
		"nfm_operations_total:mint:reverted":     1,
		"nfm_operation_duration_seconds:deposit": 1,
		"nfm_operation_duration_seconds:mint":    2,
	}, series)
}

func TestAddLedger(t *testing.T) {
	ctx := context.Background()
	m, ledger, _ := buildMachine(t)

	_, err := m.AddLedger("nfo", newAddress(), fee)
	assert.Error(t, err)
	_, err = m.AddLedger("market", newAddress(), fee)
	assert.Error(t, err)

	free, err := m.AddLedger("free", newAddress(), decimal.Zero)
	require.NoError(t, err)
	assert.NotEqual(t, ledger, free.Address())

	a := newAddress()
	token, err := m.Mint(ctx, a, free.Address(), a, "", decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), token.Id)
	count, err := m.BalanceOf(ctx, ledger, a)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestContractCannotPay(t *testing.T) {
	ctx := context.Background()
	m, ledger, _ := buildMachine(t)
	ex := m.Exchange().Address()
	a, b := newAddress(), newAddress()
	require.NoError(t, m.Deposit(ctx, a, decimal.NewFromInt(1)))
	require.NoError(t, m.Deposit(ctx, b, decimal.NewFromInt(1)))

	_, err := m.Mint(ctx, a, ledger, a, "https://token-uri.com", fee)
	require.NoError(t, err)
	require.NoError(t, m.SetApprovalForAll(ctx, a, ledger, ex, true))
	_, err = m.CreateListing(ctx, a, ledger, 0, price)
	require.NoError(t, err)
	_, err = m.BuyListing(ctx, b, ledger, 0, price)
	require.NoError(t, err)

	_, err = m.Mint(ctx, ledger, ledger, a, "https://token-uri.com", fee)
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
	_, err = m.Mint(ctx, ex, ledger, a, "https://token-uri.com", fee)
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
	art, err := m.AddLedger("art", newAddress(), fee)
	require.NoError(t, err)
	_, err = m.Mint(ctx, ledger, art.Address(), ledger, "https://token-uri.com", fee)
	assert.ErrorIs(t, err, core.ErrInvalidAddress)

	accrued, err := m.Accrued(ctx, ledger)
	require.NoError(t, err)
	assert.Equal(t, "0.002", accrued.String())
	count, err := m.BalanceOf(ctx, ledger, a)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
	_, err = m.Mint(ctx, a, ledger, a, "https://token-uri.com", fee)
	require.NoError(t, err)
	_, err = m.CreateListing(ctx, a, ledger, 1, decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	_, err = m.BuyListing(ctx, ex, ledger, 1, decimal.RequireFromString("0.5"))
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
	_, err = m.BuyListing(ctx, ledger, ledger, 1, decimal.RequireFromString("0.5"))
	assert.ErrorIs(t, err, core.ErrInvalidAddress)

	proceeds, err := m.Proceeds(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "0.01", proceeds.String())
	funds, err := m.Funds(ctx, ex)
	require.NoError(t, err)
	assert.Equal(t, "0.01", funds.String())
	amount, err := m.WithdrawProceeds(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "0.01", amount.String())
}

func TestProceedsCoveredByExchange(t *testing.T) {
	ctx := context.Background()
	m, ledger, _ := buildMachine(t)
	ex := m.Exchange().Address()
	sellers := []core.Address{newAddress(), newAddress(), newAddress()}
	buyer := newAddress()
	require.NoError(t, m.Deposit(ctx, buyer, decimal.NewFromInt(10)))

	check := func() {
		total := decimal.Zero
		for _, s := range sellers {
			p, err := m.Proceeds(ctx, s)
			require.NoError(t, err)
			total = total.Add(p)
		}
		funds, err := m.Funds(ctx, ex)
		require.NoError(t, err)
		assert.True(t, total.Equal(funds), "proceeds %s exchange %s", total, funds)
	}

	for i, s := range sellers {
		require.NoError(t, m.Deposit(ctx, s, fee))
		_, err := m.Mint(ctx, s, ledger, s, "", fee)
		require.NoError(t, err)
		require.NoError(t, m.SetApprovalForAll(ctx, s, ledger, ex, true))
		_, err = m.CreateListing(ctx, s, ledger, uint64(i), price)
		require.NoError(t, err)
		_, err = m.BuyListing(ctx, ex, ledger, uint64(i), decimal.RequireFromString("0.5"))
		assert.ErrorIs(t, err, core.ErrInvalidAddress)
		check()
		_, err = m.BuyListing(ctx, buyer, ledger, uint64(i), price.Add(decimal.NewFromInt(int64(i))))
		require.NoError(t, err)
		check()
	}

	for _, s := range sellers {
		_, err := m.WithdrawProceeds(ctx, s)
		require.NoError(t, err)
		check()
	}
	funds, err := m.Funds(ctx, ex)
	require.NoError(t, err)
	assert.True(t, funds.IsZero())
}

func TestConcurrentLedgerAccess(t *testing.T) {
	ctx := context.Background()
	m, ledger, _ := buildMachine(t)
	a := newAddress()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, err := m.AddLedger(fmt.Sprintf("ledger-%d", i), newAddress(), fee)
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, err := m.BalanceOf(ctx, ledger, a)
			assert.NoError(t, err)
			assert.ErrorIs(t, m.Deposit(ctx, ledger, fee), core.ErrInvalidAddress)
		}
	}()
	wg.Wait()

	l, err := m.Ledger(core.ContractAddress(m.Exchange().Address(), "ledger-0"))
	assert.Nil(t, l)
	assert.ErrorIs(t, err, core.ErrUnknownContract)
}

func TestReadActionCanceled(t *testing.T) {
	m, _, _ := buildMachine(t)
	ctx, cancel := context.WithCancel(context.Background())
	traceId := uuid.Must(uuid.NewV4()).String()
	require.NoError(t, m.Submit(ctx, &machine.Action{
		TraceId: traceId,
		Method:  machine.MethodDeposit,
		To:      newAddress(),
		Amount:  "1",
	}))
	act, err := m.ReadAction(ctx, traceId)
	require.NoError(t, err)
	assert.Equal(t, machine.ActionStateInitial, act.State)

	cancel()
	_, err = m.ReadAction(ctx, traceId)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildLedgerFee(t *testing.T) {
	ctx := context.Background()
	bs, err := store.OpenMemory()
	require.NoError(t, err)
	defer bs.Close()

	deployer, owner := newAddress(), newAddress()
	conf, err := machine.ParseConfiguration([]byte(fmt.Sprintf(`
deployer = "%s"

[[ledger]]
name = "art"
owner = "%s"
mint-fee = "0.5"
`, deployer, owner)))
	require.NoError(t, err)
	m, err := machine.Build(ctx, bs, conf)
	require.NoError(t, err)

	art := core.ContractAddress(deployer, "art")
	l, err := m.Ledger(art)
	require.NoError(t, err)
	assert.Equal(t, "0.5", l.MintFee().String())

	a := newAddress()
	require.NoError(t, m.Deposit(ctx, a, decimal.NewFromInt(1)))
	_, err = m.Mint(ctx, a, art, a, "", fee)
	assert.ErrorIs(t, err, core.ErrInsufficientPayment)
	_, err = m.Mint(ctx, a, art, a, "", decimal.RequireFromString("0.5"))
	require.NoError(t, err)
}
