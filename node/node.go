package node

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/holiman/uint256"

	"github.com/eth2030/presale/access"
	"github.com/eth2030/presale/core/executor"
	"github.com/eth2030/presale/core/rawdb"
	"github.com/eth2030/presale/core/state"
	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/log"
	"github.com/eth2030/presale/pricing"
	"github.com/eth2030/presale/sale"
	"github.com/eth2030/presale/store/sqlite"
	"github.com/eth2030/presale/token"
)

// Token helper call names recorded in receipts.
const (
	MethodTokenMint     = "token.mint"
	MethodTokenApprove  = "token.approve"
	MethodTokenTransfer = "token.transfer"
)

// feedBuffer is the per-subscription receipt buffer.
const feedBuffer = 256

var (
	ErrNotDeployed     = errors.New("node: no sale deployed")
	ErrAlreadyDeployed = errors.New("node: sale already deployed")
	ErrUnknownToken    = errors.New("node: unknown token")
)

// Node owns the database and everything bound to it.
type Node struct {
	config *Config
	db     rawdb.Database
	st     *state.StateDB
	exec   *executor.Executor
	feed   *Feed
	log    *log.Logger

	mu         sync.Mutex
	deployment *Deployment
	tokens     *bound
	sale       *sale.Sale
}

// New opens the configured database and rebinds a previously deployed sale
// if one is recorded.
func New(config *Config) (*Node, error) {
	if config == nil {
		c := DefaultConfig()
		config = &c
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := openDatabase(config)
	if err != nil {
		return nil, err
	}
	return newWithDatabase(config, db)
}

func newWithDatabase(config *Config, db rawdb.Database) (*Node, error) {
	var err error
	n := &Node{
		config: config,
		db:     db,
		st:     state.New(db),
		feed:   NewFeed(feedBuffer),
		log:    log.Default().Module("node"),
	}
	execCfg := sale.ExecutorConfig(log.Default())
	execCfg.OnReceipt = n.feed.Publish
	n.exec, err = executor.New(n.st, execCfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := n.rebind(); err != nil {
		db.Close()
		return nil, err
	}
	return n, nil
}

func openDatabase(config *Config) (rawdb.Database, error) {
	switch config.Store {
	case StoreSQLite:
		if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("node: create datadir: %w", err)
		}
		return sqlite.Open(config.DatabasePath())
	default:
		return rawdb.NewMemoryDB(), nil
	}
}

func (n *Node) rebind() error {
	addr, err := rawdb.ReadSaleAddress(n.db)
	if errors.Is(err, rawdb.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("node: read sale address: %w", err)
	}
	d, err := readDeployment(n.db, addr)
	if err != nil {
		return err
	}
	b, collab, err := d.bind(n.st)
	if err != nil {
		return err
	}
	c, err := sale.NewContract(n.st, d.Sale, collab)
	if err != nil {
		return fmt.Errorf("node: bind sale %s: %w", addr, err)
	}
	n.deployment, n.tokens, n.sale = d, b, sale.New(n.exec, c)
	n.log.Info("sale bound", "sale", addr.Hex(), "flavor", d.Sale.Flavor, "seq", n.exec.Seq())
	return nil
}

// Deploy deploys the collaborator tokens and the configured sale in one
// call and records the deployment.
func (n *Node) Deploy(ctx context.Context) (*sale.Sale, *types.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sale != nil {
		return nil, nil, ErrAlreadyDeployed
	}
	cfg := &n.config.Sale
	if err := cfg.ValidateSale(); err != nil {
		return nil, nil, err
	}
	initCfg, err := cfg.InitConfig()
	if err != nil {
		return nil, nil, err
	}
	d := deploymentFor(cfg)

	var (
		b *bound
		c *sale.Contract
	)
	r, err := n.exec.ExecuteRecord(ctx, cfg.Owner, sale.MethodDeploy, func() error {
		var err error
		b, c, err = n.deploy(d, cfg, initCfg)
		return err
	}, d.write)
	if err != nil {
		return nil, r, err
	}
	n.deployment, n.tokens, n.sale = d, b, sale.New(n.exec, c)
	n.log.Info("sale deployed", "sale", d.Sale.Address.Hex(), "flavor", d.Sale.Flavor,
		"owner", cfg.Owner.Hex(), "seq", r.Seq)
	return n.sale, r, nil
}

// deploy runs inside the deployment call.
func (n *Node) deploy(d *Deployment, cfg *SaleConfig, initCfg sale.InitConfig) (*bound, *sale.Contract, error) {
	owner := cfg.Owner
	payment, err := token.DeployERC20(n.st, d.Payment.Address, owner, d.Payment.Name, d.Payment.Symbol, d.Payment.Decimals)
	if err != nil {
		return nil, nil, fmt.Errorf("deploy payment token: %w", err)
	}
	b := &bound{payment: payment}
	collab := sale.Collaborators{Payment: payment}

	switch d.Issued.Kind {
	case KindCollection:
		b.collection, err = token.DeployCollection(n.st, d.Issued.Address, owner, d.Issued.Name, d.Issued.MaxSupply)
		if err != nil {
			return nil, nil, fmt.Errorf("deploy collection: %w", err)
		}
		if err := b.collection.Roles().Grant(owner, access.MinterRole, d.Sale.Address); err != nil {
			return nil, nil, fmt.Errorf("grant minter role: %w", err)
		}
		collab.Minter = b.collection
	default:
		b.issued, err = token.DeployERC20(n.st, d.Issued.Address, owner, d.Issued.Name, d.Issued.Symbol, d.Issued.Decimals)
		if err != nil {
			return nil, nil, fmt.Errorf("deploy issued token: %w", err)
		}
		collab.Issued = b.issued
	}

	c, err := sale.Deploy(n.st, d.Sale, collab, initCfg)
	if err != nil {
		return nil, nil, err
	}
	if b.issued != nil && cfg.IssuedToken.Supply != nil && !cfg.IssuedToken.Supply.IsZero() {
		supply, err := pricing.MulPow10(cfg.IssuedToken.Supply, uint(d.Issued.Decimals))
		if err != nil {
			return nil, nil, fmt.Errorf("issued supply: %w", err)
		}
		if err := b.issued.Mint(owner, d.Sale.Address, supply); err != nil {
			return nil, nil, fmt.Errorf("fund sale: %w", err)
		}
	}
	return b, c, nil
}

// Sale returns the bound sale.
func (n *Node) Sale() (*sale.Sale, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sale == nil {
		return nil, ErrNotDeployed
	}
	return n.sale, nil
}

// Deployment returns the bound deployment record, or nil.
func (n *Node) Deployment() *Deployment {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.deployment
}

func (n *Node) Config() *Config                     { return n.config }
func (n *Node) Executor() *executor.Executor        { return n.exec }
func (n *Node) Receipts() ([]*types.Receipt, error) { return n.exec.Receipts() }

// Subscribe returns a subscription to call receipts.
func (n *Node) Subscribe(types ...EventType) *Subscription { return n.feed.Subscribe(types...) }

// Close ends receipt subscriptions and releases the database.
func (n *Node) Close() error {
	n.feed.Close()
	return n.db.Close()
}

// ---- Token helpers ----

// erc20 resolves a fungible collaborator by address.
func (n *Node) erc20(addr types.Address) (*token.ERC20, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.tokens == nil {
		return nil, ErrNotDeployed
	}
	for _, t := range []*token.ERC20{n.tokens.payment, n.tokens.issued} {
		if t != nil && t.Address() == addr {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownToken, addr)
}

// MintToken mints amount base units of tok to to. caller needs the
// token's minter role.
func (n *Node) MintToken(ctx context.Context, caller, tok, to types.Address, amount *uint256.Int) (*types.Receipt, error) {
	t, err := n.erc20(tok)
	if err != nil {
		return nil, err
	}
	return n.exec.Execute(ctx, caller, MethodTokenMint, func() error { return t.Mint(caller, to, amount) })
}

// Approve sets spender's allowance over owner's tok balance.
func (n *Node) Approve(ctx context.Context, owner, tok, spender types.Address, amount *uint256.Int) (*types.Receipt, error) {
	t, err := n.erc20(tok)
	if err != nil {
		return nil, err
	}
	return n.exec.Execute(ctx, owner, MethodTokenApprove, func() error { return t.Approve(owner, spender, amount) })
}

// Transfer moves amount of tok from from to to.
func (n *Node) Transfer(ctx context.Context, from, tok, to types.Address, amount *uint256.Int) (*types.Receipt, error) {
	t, err := n.erc20(tok)
	if err != nil {
		return nil, err
	}
	return n.exec.Execute(ctx, from, MethodTokenTransfer, func() error { return t.Transfer(from, to, amount) })
}

// BalanceOf returns holder's balance of tok, which may be the collection.
func (n *Node) BalanceOf(tok, holder types.Address) (*uint256.Int, error) {
	n.mu.Lock()
	coll := n.tokens
	n.mu.Unlock()
	if coll != nil && coll.collection != nil && coll.collection.Address() == tok {
		var bal *uint256.Int
		n.exec.View(func() { bal = coll.collection.BalanceOf(holder) })
		return bal, nil
	}
	t, err := n.erc20(tok)
	if err != nil {
		return nil, err
	}
	var bal *uint256.Int
	n.exec.View(func() { bal = t.BalanceOf(holder) })
	return bal, nil
}
