package machine

import (
	"fmt"
	"os"

	"github.com/MixinNetwork/nfm/core"
	"github.com/MixinNetwork/nfm/nft"
	"github.com/pelletier/go-toml"
	"github.com/shopspring/decimal"
)

type Configuration struct {
	Deployer string         `toml:"deployer"`
	Ledgers  []LedgerConfig `toml:"ledger"`
	Exchange ExchangeConfig `toml:"exchange"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

type LedgerConfig struct {
	Name    string `toml:"name"`
	Owner   string `toml:"owner"`
	MintFee string `toml:"mint-fee"`
}

type ExchangeConfig struct {
	Name string `toml:"name"`
}

type MetricsConfig struct {
	Listen string `toml:"listen"`
}

func Setup(path string) (*Configuration, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfiguration(f)
}

func ParseConfiguration(data []byte) (*Configuration, error) {
	var conf Configuration
	err := toml.Unmarshal(data, &conf)
	if err != nil {
		return nil, err
	}
	if conf.Exchange.Name == "" {
		conf.Exchange.Name = "market"
	}
	for i := range conf.Ledgers {
		if conf.Ledgers[i].MintFee == "" {
			conf.Ledgers[i].MintFee = nft.MintMinimumCost
		}
	}
	return &conf, conf.validate()
}

func (conf *Configuration) validate() error {
	if err := core.Address(conf.Deployer).Validate(); err != nil {
		return fmt.Errorf("deployer %w", err)
	}
	if len(conf.Ledgers) == 0 {
		return fmt.Errorf("no ledger configured")
	}
	names := map[string]bool{conf.Exchange.Name: true}
	for _, lc := range conf.Ledgers {
		if lc.Name == "" || names[lc.Name] {
			return fmt.Errorf("invalid or duplicated contract name %q", lc.Name)
		}
		names[lc.Name] = true
		if err := core.Address(lc.Owner).Validate(); err != nil {
			return fmt.Errorf("ledger %s owner %w", lc.Name, err)
		}
		fee, err := decimal.NewFromString(lc.MintFee)
		if err != nil || fee.IsNegative() {
			return fmt.Errorf("ledger %s invalid mint fee %q", lc.Name, lc.MintFee)
		}
	}
	return nil
}
