package machine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MixinNetwork/mixin/logger"
	"github.com/MixinNetwork/nfm/core"
	"github.com/MixinNetwork/nfm/market"
	"github.com/MixinNetwork/nfm/nft"
	"github.com/shopspring/decimal"
)

// Machine is the single writer of the ledgers and the exchange. Every
// mutating operation holds the machine lock and runs inside one store
// transaction, so it either commits in full or leaves nothing behind.
type Machine struct {
	store   Store
	clock   *Clock
	metrics *Metrics
	mutex   sync.Mutex

	deployer core.Address
	ledgers  map[core.Address]*nft.Ledger
	lmutex   sync.RWMutex
	exchange *market.Exchange
}

func Build(ctx context.Context, store Store, conf *Configuration) (*Machine, error) {
	err := conf.validate()
	if err != nil {
		return nil, err
	}
	clock, err := NewClock(store)
	if err != nil {
		return nil, err
	}

	deployer := core.Address(conf.Deployer)
	exchange, err := market.NewExchange(core.ContractAddress(deployer, conf.Exchange.Name))
	if err != nil {
		return nil, err
	}
	m := &Machine{
		store:    store,
		clock:    clock,
		metrics:  NewMetrics(),
		deployer: deployer,
		ledgers:  make(map[core.Address]*nft.Ledger),
		exchange: exchange,
	}
	for _, lc := range conf.Ledgers {
		fee := decimal.RequireFromString(lc.MintFee)
		l, err := m.AddLedger(lc.Name, core.Address(lc.Owner), fee)
		if err != nil {
			return nil, err
		}
		logger.Printf("Machine.AddLedger(%s) => %s %s %s\n", lc.Name, l.Address(), l.Owner(), l.MintFee())
	}
	logger.Printf("Machine.Build() => exchange %s\n", exchange.Address())
	return m, nil
}

// AddLedger deploys a ledger at the address derived from the deployer and
// name. The ledger state lives in the store, so deploying again after a
// restart resumes it.
func (m *Machine) AddLedger(name string, owner core.Address, fee decimal.Decimal) (*nft.Ledger, error) {
	m.lmutex.Lock()
	defer m.lmutex.Unlock()

	addr := core.ContractAddress(m.deployer, name)
	if addr == m.exchange.Address() || m.ledgers[addr] != nil {
		return nil, fmt.Errorf("contract %s already deployed at %s", name, addr)
	}
	l, err := nft.NewLedger(addr, owner, fee)
	if err != nil {
		return nil, err
	}
	m.ledgers[addr] = l
	return l, nil
}

func (m *Machine) Ledger(addr core.Address) (*nft.Ledger, error) {
	m.lmutex.RLock()
	l := m.ledgers[addr]
	m.lmutex.RUnlock()
	if l == nil {
		return nil, fmt.Errorf("%w %s", core.ErrUnknownContract, addr)
	}
	return l, nil
}

func (m *Machine) Exchange() *market.Exchange {
	return m.exchange
}

func (m *Machine) Metrics() *Metrics {
	return m.metrics
}

func (m *Machine) execute(ctx context.Context, method string, fn func(st State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	start := time.Now()
	err := m.store.Atomic(m.clock.Now(), fn)
	m.metrics.observe(method, start, err)
	return err
}

func (m *Machine) view(ctx context.Context, fn func(st State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.store.View(fn)
}

func (m *Machine) isContract(addr core.Address) bool {
	if addr == m.exchange.Address() {
		return true
	}
	m.lmutex.RLock()
	defer m.lmutex.RUnlock()
	return m.ledgers[addr] != nil
}

// pay moves the value attached to a payable call from the caller to the
// called contract, before the contract runs. Contracts never pay, their
// balances only move through withdraw and withdrawProceeds.
func (m *Machine) pay(st State, caller, contract core.Address, value decimal.Decimal) error {
	if err := caller.Validate(); err != nil {
		return err
	}
	if m.isContract(caller) {
		return fmt.Errorf("%w payment from contract %s", core.ErrInvalidAddress, caller)
	}
	if value.IsNegative() {
		return fmt.Errorf("%w %s", core.ErrInvalidAmount, value)
	}
	return core.Transfer(st, caller, contract, value)
}
