package node

import (
	"encoding/json"
	"fmt"

	"github.com/eth2030/presale/core/rawdb"
	"github.com/eth2030/presale/core/state"
	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/sale"
	"github.com/eth2030/presale/token"
)

// Token kinds recorded in a deployment.
const (
	KindERC20      = "erc20"
	KindCollection = "collection"
)

// TokenInfo identifies a deployed collaborator token.
type TokenInfo struct {
	Address   types.Address `json:"address"`
	Kind      string        `json:"kind"`
	Name      string        `json:"name"`
	Symbol    string        `json:"symbol,omitempty"`
	Decimals  uint8         `json:"decimals"`
	MaxSupply uint64        `json:"maxSupply,omitempty"`
}

// Deployment is the persisted record that lets a node rebind a sale and
// its collaborators to existing state.
type Deployment struct {
	Sale    sale.Params `json:"sale"`
	Payment TokenInfo   `json:"payment"`
	Issued  TokenInfo   `json:"issued"`
}

func deploymentFor(c *SaleConfig) *Deployment {
	d := &Deployment{
		Sale: c.Params(),
		Payment: TokenInfo{
			Address:  c.PaymentToken.Address,
			Kind:     KindERC20,
			Name:     c.PaymentToken.Name,
			Symbol:   c.PaymentToken.Symbol,
			Decimals: c.PaymentToken.Decimals,
		},
		Issued: TokenInfo{
			Address:  c.IssuedToken.Address,
			Kind:     KindERC20,
			Name:     c.IssuedToken.Name,
			Symbol:   c.IssuedToken.Symbol,
			Decimals: c.IssuedToken.Decimals,
		},
	}
	if c.Flavor == sale.FlavorMint {
		d.Issued.Kind = KindCollection
		d.Issued.Decimals = 0
		d.Issued.MaxSupply = c.IssuedToken.MaxSupply
	}
	return d
}

// write stores the record under the sale address and marks the sale as
// the node's deployment.
func (d *Deployment) write(w rawdb.KeyValueWriter) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("node: encode deployment: %w", err)
	}
	if err := rawdb.WriteParams(w, d.Sale.Address, data); err != nil {
		return err
	}
	return rawdb.WriteSaleAddress(w, d.Sale.Address)
}

func readDeployment(db rawdb.KeyValueReader, addr types.Address) (*Deployment, error) {
	data, err := rawdb.ReadParams(db, addr)
	if err != nil {
		return nil, fmt.Errorf("node: read deployment %s: %w", addr, err)
	}
	var d Deployment
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("node: decode deployment %s: %w", addr, err)
	}
	return &d, nil
}

// bound holds the collaborators of a deployment bound to state.
type bound struct {
	payment    *token.ERC20
	issued     *token.ERC20
	collection *token.Collection
}

func (d *Deployment) bind(st *state.StateDB) (*bound, sale.Collaborators, error) {
	if d.Payment.Kind != KindERC20 {
		return nil, sale.Collaborators{}, fmt.Errorf("node: payment token kind %q", d.Payment.Kind)
	}
	b := &bound{
		payment: token.NewERC20(st, d.Payment.Address, d.Payment.Name, d.Payment.Symbol, d.Payment.Decimals),
	}
	collab := sale.Collaborators{Payment: b.payment}
	switch d.Issued.Kind {
	case KindERC20:
		b.issued = token.NewERC20(st, d.Issued.Address, d.Issued.Name, d.Issued.Symbol, d.Issued.Decimals)
		collab.Issued = b.issued
	case KindCollection:
		b.collection = token.NewCollection(st, d.Issued.Address, d.Issued.Name, d.Issued.MaxSupply)
		collab.Minter = b.collection
	default:
		return nil, sale.Collaborators{}, fmt.Errorf("node: issued token kind %q", d.Issued.Kind)
	}
	return b, collab, nil
}
