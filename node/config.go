// Package node assembles a sale engine instance: the backing database,
// journaled state, executor, collaborator tokens and the bound sale.
package node

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/holiman/uint256"

	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/crypto"
	"github.com/eth2030/presale/log"
	"github.com/eth2030/presale/sale"
)

// Storage backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// DatabaseFile is the SQLite file name inside the data directory.
const DatabaseFile = "presale.db"

// Config holds all configuration for a sale node.
type Config struct {
	// DataDir is the root directory for persistent data.
	DataDir string `yaml:"datadir" env:"DATADIR"`

	// Store selects the storage backend (memory, sqlite).
	Store string `yaml:"store" env:"STORE"`

	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	Sale    SaleConfig    `yaml:"sale" envPrefix:"SALE_"`
}

// LogConfig controls log output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or text.
	Format string `yaml:"format" env:"FORMAT"`
}

// MetricsConfig controls metrics exposition.
type MetricsConfig struct {
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// SaleConfig describes the sale to deploy. Whole-unit amounts are scaled
// by the sale at deployment.
type SaleConfig struct {
	Address       types.Address `yaml:"address" env:"ADDRESS"`
	Flavor        sale.Flavor   `yaml:"flavor" env:"FLAVOR"`
	CapUnit       sale.CapUnit  `yaml:"capUnit" env:"CAP_UNIT"`
	CapDecimals   uint8         `yaml:"capDecimals" env:"CAP_DECIMALS"`
	PriceDecimals uint8         `yaml:"priceDecimals" env:"PRICE_DECIMALS"`

	Owner    types.Address `yaml:"owner" env:"OWNER"`
	Treasury types.Address `yaml:"treasury" env:"TREASURY"`

	PriceUSD           *uint256.Int `yaml:"priceUSD" env:"PRICE_USD"`
	Hardcap            *uint256.Int `yaml:"hardcap" env:"HARDCAP"`
	AllowedUserBalance *uint256.Int `yaml:"allowedUserBalance" env:"ALLOWED_USER_BALANCE"`

	// Whitelist enables allowlist gating at deployment.
	Whitelist bool `yaml:"whitelist" env:"WHITELIST"`
	// Allowlist, when set, determines the commitment; otherwise Commitment
	// is used as given.
	Allowlist  []types.Address `yaml:"allowlist" env:"ALLOWLIST" envSeparator:","`
	Commitment types.Hash      `yaml:"commitment" env:"COMMITMENT"`

	PaymentToken TokenConfig `yaml:"paymentToken" envPrefix:"PAYMENT_"`
	IssuedToken  TokenConfig `yaml:"issuedToken" envPrefix:"ISSUED_"`
}

// TokenConfig describes a collaborator token deployed with the sale.
type TokenConfig struct {
	Address  types.Address `yaml:"address" env:"ADDRESS"`
	Name     string        `yaml:"name" env:"NAME"`
	Symbol   string        `yaml:"symbol" env:"SYMBOL"`
	Decimals uint8         `yaml:"decimals" env:"DECIMALS"`
	// MaxSupply bounds a mint-flavor collection.
	MaxSupply uint64 `yaml:"maxSupply" env:"MAX_SUPPLY"`
	// Supply is the whole-unit amount of an issued token credited to the
	// sale at deployment.
	Supply *uint256.Int `yaml:"supply" env:"SUPPLY"`
}

// DefaultConfig returns a Config for an in-memory entitlement sale. Owner
// and addresses are left for the operator to fill in.
func DefaultConfig() Config {
	return Config{
		DataDir: "presale-data",
		Store:   StoreMemory,
		Log:     LogConfig{Level: "info", Format: log.FormatText},
		Metrics: MetricsConfig{Namespace: "presale"},
		Sale: SaleConfig{
			Flavor:             sale.FlavorEntitlement,
			CapUnit:            sale.CapPayment,
			CapDecimals:        6,
			PriceUSD:           uint256.NewInt(1),
			Hardcap:            uint256.NewInt(1_000_000),
			AllowedUserBalance: uint256.NewInt(10_000),
			Whitelist:          true,
			PaymentToken: TokenConfig{
				Name:     "Tether USD",
				Symbol:   "USDT",
				Decimals: 6,
			},
			IssuedToken: TokenConfig{
				Name:     "Presale Token",
				Symbol:   "PRE",
				Decimals: 18,
			},
		},
	}
}

// DatabasePath returns the SQLite file path for the configured data
// directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, DatabaseFile)
}

// Validate checks configuration values for correctness. Sale parameters
// are checked separately at deployment.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.DataDir == "" {
			return errors.New("config: datadir must not be empty")
		}
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Log.Format {
	case log.FormatJSON, log.FormatText:
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// Params returns the sale deployment parameters described by c.
func (c *SaleConfig) Params() sale.Params {
	p := sale.Params{
		Address:         c.Address,
		Flavor:          c.Flavor,
		CapUnit:         c.CapUnit,
		PaymentToken:    c.PaymentToken.Address,
		IssuedToken:     c.IssuedToken.Address,
		PaymentDecimals: c.PaymentToken.Decimals,
		PriceDecimals:   c.PriceDecimals,
		CapDecimals:     c.CapDecimals,
	}
	if c.Flavor == sale.FlavorEntitlement {
		p.OutputDecimals = c.IssuedToken.Decimals
	}
	return p
}

// InitConfig returns the initial sale configuration described by c.
func (c *SaleConfig) InitConfig() (sale.InitConfig, error) {
	commitment := c.Commitment
	if len(c.Allowlist) > 0 {
		tree, err := crypto.NewAllowlistTree(c.Allowlist)
		if err != nil {
			return sale.InitConfig{}, fmt.Errorf("config: allowlist: %w", err)
		}
		commitment = tree.Root()
	}
	return sale.InitConfig{
		Owner:               c.Owner,
		Treasury:            c.Treasury,
		PriceUSD:            c.PriceUSD,
		Hardcap:             c.Hardcap,
		AllowedUserBalance:  c.AllowedUserBalance,
		WhitelistEnabled:    c.Whitelist,
		AllowlistCommitment: commitment,
	}, nil
}

// ValidateSale checks that c describes a deployable sale.
func (c *SaleConfig) ValidateSale() error {
	if c.Owner.IsZero() {
		return errors.New("config: sale owner must be set")
	}
	if c.PaymentToken.Name == "" || c.IssuedToken.Name == "" {
		return errors.New("config: token names must be set")
	}
	if c.Flavor == sale.FlavorMint && c.IssuedToken.MaxSupply == 0 {
		return errors.New("config: mint sale needs an issued token max supply")
	}
	p := c.Params()
	if err := p.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
