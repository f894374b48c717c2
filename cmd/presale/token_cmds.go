package main

import (
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/crypto"
)

func newTokenCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint, move and inspect the sale's tokens",
		Long: `Token commands act on the payment token or the issued token, named by
the aliases "payment" and "issued" or by address.`,
	}

	type transferFn func(opts *rootOptions, c *cobra.Command, from, tok, to types.Address, amount *uint256.Int) (*types.Receipt, error)
	add := func(use, short string, ownerCall bool, fn transferFn) {
		cmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(3),
			RunE: func(c *cobra.Command, args []string) error {
				from, err := opts.caller(ownerCall)
				if err != nil {
					return err
				}
				tok, err := opts.tokenAddress(args[0])
				if err != nil {
					return err
				}
				to, err := types.ParseAddress(args[1])
				if err != nil {
					return err
				}
				amount, err := parseAmount(args[2])
				if err != nil {
					return err
				}
				r, err := fn(opts, c, from, tok, to, amount)
				return opts.result(r, err, nil)
			},
		})
	}
	add("mint <token> <to> <amount>", "Mint base units (minter role)", true,
		func(opts *rootOptions, c *cobra.Command, from, tok, to types.Address, amount *uint256.Int) (*types.Receipt, error) {
			n, err := opts.openNode()
			if err != nil {
				return nil, err
			}
			defer n.Close()
			return n.MintToken(c.Context(), from, tok, to, amount)
		})
	add("approve <token> <spender> <amount>", "Set a spender allowance", false,
		func(opts *rootOptions, c *cobra.Command, from, tok, to types.Address, amount *uint256.Int) (*types.Receipt, error) {
			n, err := opts.openNode()
			if err != nil {
				return nil, err
			}
			defer n.Close()
			return n.Approve(c.Context(), from, tok, to, amount)
		})
	add("transfer <token> <to> <amount>", "Transfer base units", false,
		func(opts *rootOptions, c *cobra.Command, from, tok, to types.Address, amount *uint256.Int) (*types.Receipt, error) {
			n, err := opts.openNode()
			if err != nil {
				return nil, err
			}
			defer n.Close()
			return n.Transfer(c.Context(), from, tok, to, amount)
		})

	cmd.AddCommand(&cobra.Command{
		Use:   "balance <token> <holder>",
		Short: "Show a holder's balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			tok, err := opts.tokenAddress(args[0])
			if err != nil {
				return err
			}
			holder, err := types.ParseAddress(args[1])
			if err != nil {
				return err
			}
			n, err := opts.openNode()
			if err != nil {
				return err
			}
			defer n.Close()
			bal, err := n.BalanceOf(tok, holder)
			if err != nil {
				return err
			}
			return opts.out.print(balance{Token: tok, Holder: holder, Balance: bal})
		},
	})
	return cmd
}

type balance struct {
	Token   types.Address `json:"token" yaml:"token"`
	Holder  types.Address `json:"holder" yaml:"holder"`
	Balance *uint256.Int  `json:"balance" yaml:"balance"`
}

func newAllowlistCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allowlist",
		Short: "Compute allowlist commitments and proofs",
		Long: `Allowlist commands work on the addresses given as arguments, or on the
configured sale allowlist when none are given.`,
	}
	members := func(args []string) ([]types.Address, error) {
		if len(args) == 0 {
			return opts.cfg.Sale.Allowlist, nil
		}
		addrs := make([]types.Address, 0, len(args))
		for _, a := range args {
			addr, err := types.ParseAddress(a)
			if err != nil {
				return nil, err
			}
			addrs = append(addrs, addr)
		}
		return addrs, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "root [address...]",
		Short: "Print the commitment of an allowlist",
		RunE: func(c *cobra.Command, args []string) error {
			addrs, err := members(args)
			if err != nil {
				return err
			}
			tree, err := crypto.NewAllowlistTree(addrs)
			if err != nil {
				return err
			}
			return opts.out.print(allowlistRoot{Root: tree.Root(), Size: tree.Size(), Depth: tree.Depth()})
		},
	}, &cobra.Command{
		Use:   "proof <address> [member...]",
		Short: "Print an address's membership proof",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			addr, err := types.ParseAddress(args[0])
			if err != nil {
				return err
			}
			addrs, err := members(args[1:])
			if err != nil {
				return err
			}
			tree, err := crypto.NewAllowlistTree(addrs)
			if err != nil {
				return err
			}
			proof, err := tree.Proof(addr)
			if err != nil {
				return err
			}
			return opts.out.print(allowlistProof{Address: addr, Root: tree.Root(), Proof: proof})
		},
	})
	return cmd
}

type allowlistRoot struct {
	Root  types.Hash `json:"root" yaml:"root"`
	Size  int        `json:"size" yaml:"size"`
	Depth int        `json:"depth" yaml:"depth"`
}

type allowlistProof struct {
	Address types.Address `json:"address" yaml:"address"`
	Root    types.Hash    `json:"root" yaml:"root"`
	Proof   types.Proof   `json:"proof" yaml:"proof"`
}
