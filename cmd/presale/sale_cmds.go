package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/crypto"
	"github.com/eth2030/presale/node"
	"github.com/eth2030/presale/sale"
)

func newDeployCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the configured sale and its tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := opts.openNode()
			if err != nil {
				return err
			}
			defer n.Close()
			_, r, err := n.Deploy(cmd.Context())
			return opts.result(r, err, n.Deployment())
		},
	}
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	var buyer string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the sale state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSale(func(n *node.Node, s *sale.Sale) error {
				if buyer == "" {
					return opts.out.print(s.Status())
				}
				addr, err := types.ParseAddress(buyer)
				if err != nil {
					return err
				}
				return opts.out.print(buyerStatus{
					Buyer:     addr,
					Purchased: s.Purchased(addr),
					Claimable: s.Claimable(addr),
				})
			})
		},
	}
	cmd.Flags().StringVar(&buyer, "buyer", "", "show one buyer's record instead")
	return cmd
}

type buyerStatus struct {
	Buyer     types.Address `json:"buyer" yaml:"buyer"`
	Purchased *uint256.Int  `json:"purchased" yaml:"purchased"`
	Claimable *uint256.Int  `json:"claimable" yaml:"claimable"`
}

func newBuyCommand(opts *rootOptions) *cobra.Command {
	var proofHex []string
	cmd := &cobra.Command{
		Use:   "buy <amount>",
		Short: "Buy with a payment amount, or a quantity in mint sales",
		Long: `Buy submits a purchase from --from. The amount is in payment base units
for entitlement sales and in items for mint sales. The allowlist proof is
derived from the configured allowlist unless --proof is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := opts.caller(false)
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			proof, err := opts.proof(from, proofHex)
			if err != nil {
				return err
			}
			return opts.withSale(func(n *node.Node, s *sale.Sale) error {
				p, r, err := s.Buy(cmd.Context(), from, amount, proof)
				return opts.result(r, err, p)
			})
		},
	}
	cmd.Flags().StringSliceVar(&proofHex, "proof", nil, "allowlist proof hashes")
	return cmd
}

// proof returns the explicit proof, or the buyer's proof against the
// configured allowlist.
func (o *rootOptions) proof(buyer types.Address, hexes []string) (types.Proof, error) {
	if len(hexes) > 0 {
		return types.ParseProof(hexes)
	}
	if len(o.cfg.Sale.Allowlist) == 0 {
		return nil, nil
	}
	tree, err := crypto.NewAllowlistTree(o.cfg.Sale.Allowlist)
	if err != nil {
		return nil, err
	}
	if !tree.Contains(buyer) {
		return nil, nil
	}
	return tree.Proof(buyer)
}

func newClaimCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "claim",
		Short: "Claim the caller's purchased entitlement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := opts.caller(false)
			if err != nil {
				return err
			}
			return opts.withSale(func(n *node.Node, s *sale.Sale) error {
				_, r, err := s.Claim(cmd.Context(), from)
				return opts.result(r, err, nil)
			})
		},
	}
}

func newPauseCommand(opts *rootOptions, pause bool) *cobra.Command {
	use, short := "pause", "Pause the round and open withdrawal"
	if !pause {
		use, short = "unpause", "Close withdrawal and resume the round"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := opts.caller(true)
			if err != nil {
				return err
			}
			return opts.withSale(func(n *node.Node, s *sale.Sale) error {
				var (
					r   *types.Receipt
					err error
				)
				if pause {
					r, err = s.Pause(cmd.Context(), from)
				} else {
					r, err = s.Unpause(cmd.Context(), from)
				}
				return opts.result(r, err, nil)
			})
		},
	}
}

func newWithdrawCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <amount>",
		Short: "Send payment-token proceeds to the treasury",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := opts.caller(true)
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			return opts.withSale(func(n *node.Node, s *sale.Sale) error {
				r, err := s.Withdraw(cmd.Context(), from, amount)
				return opts.result(r, err, nil)
			})
		},
	}
}

func newSweepCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep <payment|issued|token-address>",
		Short: "Send the sale's free balance of a token to the treasury",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := opts.caller(true)
			if err != nil {
				return err
			}
			tok, err := opts.tokenAddress(args[0])
			if err != nil {
				return err
			}
			return opts.withSale(func(n *node.Node, s *sale.Sale) error {
				_, r, err := s.SweepToken(cmd.Context(), from, tok)
				return opts.result(r, err, nil)
			})
		},
	}
}

// tokenAddress resolves the payment and issued aliases or a hex address.
func (o *rootOptions) tokenAddress(ref string) (types.Address, error) {
	switch ref {
	case "payment":
		return o.cfg.Sale.PaymentToken.Address, nil
	case "issued":
		return o.cfg.Sale.IssuedToken.Address, nil
	}
	return types.ParseAddress(ref)
}

func newSetCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change sale settings (owner only)",
	}
	type setter func(cmd *cobra.Command, s *sale.Sale, from types.Address, arg string) (*types.Receipt, error)
	add := func(use, short string, fn setter) {
		cmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				from, err := opts.caller(true)
				if err != nil {
					return err
				}
				return opts.withSale(func(n *node.Node, s *sale.Sale) error {
					r, err := fn(c, s, from, args[0])
					return opts.result(r, err, nil)
				})
			},
		})
	}
	amount := func(method func(*sale.Sale) amountCall) setter {
		return func(c *cobra.Command, s *sale.Sale, from types.Address, arg string) (*types.Receipt, error) {
			v, err := parseAmount(arg)
			if err != nil {
				return nil, err
			}
			return method(s)(c.Context(), from, v)
		}
	}

	add("treasury <address>", "Set the withdrawal destination",
		func(c *cobra.Command, s *sale.Sale, from types.Address, arg string) (*types.Receipt, error) {
			addr, err := types.ParseAddress(arg)
			if err != nil {
				return nil, err
			}
			return s.SetTreasury(c.Context(), from, addr)
		})
	add("whitelist <true|false>", "Turn allowlist gating on or off",
		func(c *cobra.Command, s *sale.Sale, from types.Address, arg string) (*types.Receipt, error) {
			enabled, err := strconv.ParseBool(arg)
			if err != nil {
				return nil, fmt.Errorf("invalid whitelist value %q", arg)
			}
			return s.SetWhitelist(c.Context(), from, enabled)
		})
	add("commitment <root>", "Replace the allowlist commitment",
		func(c *cobra.Command, s *sale.Sale, from types.Address, arg string) (*types.Receipt, error) {
			root, err := types.ParseHash(arg)
			if err != nil {
				return nil, err
			}
			return s.SetAllowlistCommitment(c.Context(), from, root)
		})
	add("hardcap <whole-units>", "Change the global cap",
		amount(func(s *sale.Sale) amountCall { return s.ChangeHardCap }))
	add("allowance <whole-units>", "Change the per-buyer cap",
		amount(func(s *sale.Sale) amountCall { return s.ChangeAllowedUserBalance }))
	add("price <whole-usd>", "Change the price",
		amount(func(s *sale.Sale) amountCall { return s.SetPriceUSD }))
	return cmd
}

// amountCall is an owner setter taking a whole-unit amount.
type amountCall func(ctx context.Context, caller types.Address, v *uint256.Int) (*types.Receipt, error)

func newOwnerCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Transfer or renounce sale ownership",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "transfer <address>",
		Short: "Hand the sale to a new owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			from, err := opts.caller(true)
			if err != nil {
				return err
			}
			to, err := types.ParseAddress(args[0])
			if err != nil {
				return err
			}
			return opts.withSale(func(n *node.Node, s *sale.Sale) error {
				r, err := s.TransferOwnership(c.Context(), from, to)
				return opts.result(r, err, nil)
			})
		},
	}, &cobra.Command{
		Use:   "renounce",
		Short: "Leave the sale without an owner, permanently",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			from, err := opts.caller(true)
			if err != nil {
				return err
			}
			return opts.withSale(func(n *node.Node, s *sale.Sale) error {
				r, err := s.RenounceOwnership(c.Context(), from)
				return opts.result(r, err, nil)
			})
		},
	})
	return cmd
}
