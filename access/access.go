// Package access implements role-based capability tables for contracts. A
// table maps role -> account -> granted and role -> admin role, stored in
// the owning contract's storage so grants are journaled and reverted with
// the rest of a call.
package access

import (
	"errors"
	"fmt"

	"github.com/eth2030/presale/core/events"
	"github.com/eth2030/presale/core/state"
	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/crypto"
)

var (
	ErrMissingRole     = errors.New("access: account is missing role")
	ErrRenounceForSelf = errors.New("access: can only renounce roles for self")
)

var (
	// DefaultAdminRole administers every role whose admin was not changed.
	DefaultAdminRole = types.Hash{}
	// MinterRole may issue new tokens.
	MinterRole = RoleID("MINTER_ROLE")
)

var (
	roleGranted = events.New("RoleGranted",
		events.Param{Name: "role", Type: "bytes32", Indexed: true},
		events.Param{Name: "account", Type: "address", Indexed: true},
		events.Param{Name: "sender", Type: "address", Indexed: true},
	)
	roleRevoked = events.New("RoleRevoked",
		events.Param{Name: "role", Type: "bytes32", Indexed: true},
		events.Param{Name: "account", Type: "address", Indexed: true},
		events.Param{Name: "sender", Type: "address", Indexed: true},
	)
)

// RoleID returns the identifier of a named role.
func RoleID(name string) types.Hash {
	return crypto.Keccak256Hash([]byte(name))
}

// Table is a capability table living in contract storage at two
// consecutive mapping slots starting at base.
type Table struct {
	st       *state.StateDB
	contract types.Address
	base     uint64
}

// NewTable binds a table to contract storage.
func NewTable(st *state.StateDB, contract types.Address, base uint64) *Table {
	return &Table{st: st, contract: contract, base: base}
}

func (t *Table) memberSlot(role types.Hash, account types.Address) types.Hash {
	return state.NestedMappingSlot(role, account.Hash(), t.base)
}

func (t *Table) adminSlot(role types.Hash) types.Hash {
	return state.MappingSlot(role, t.base+1)
}

// HasRole reports whether account holds role.
func (t *Table) HasRole(role types.Hash, account types.Address) bool {
	return t.st.GetBool(t.contract, t.memberSlot(role, account))
}

// RoleAdmin returns the role that administers role.
func (t *Table) RoleAdmin(role types.Hash) types.Hash {
	return t.st.GetState(t.contract, t.adminSlot(role))
}

// Check returns ErrMissingRole unless account holds role.
func (t *Table) Check(role types.Hash, account types.Address) error {
	if !t.HasRole(role, account) {
		return fmt.Errorf("%w: %s lacks %s", ErrMissingRole, account.Hex(), role.Hex())
	}
	return nil
}

// Grant gives role to account on behalf of sender, who must hold the
// role's admin role.
func (t *Table) Grant(sender types.Address, role types.Hash, account types.Address) error {
	if err := t.Check(t.RoleAdmin(role), sender); err != nil {
		return err
	}
	return t.grant(sender, role, account)
}

// Revoke removes role from account on behalf of sender, who must hold the
// role's admin role.
func (t *Table) Revoke(sender types.Address, role types.Hash, account types.Address) error {
	if err := t.Check(t.RoleAdmin(role), sender); err != nil {
		return err
	}
	return t.revoke(sender, role, account)
}

// Renounce drops role from sender's own account.
func (t *Table) Renounce(sender types.Address, role types.Hash, account types.Address) error {
	if sender != account {
		return ErrRenounceForSelf
	}
	return t.revoke(sender, role, account)
}

// Setup grants role without an admin check. It is meant for deployment.
func (t *Table) Setup(role types.Hash, account types.Address) error {
	return t.grant(account, role, account)
}

// SetRoleAdmin changes the admin role of role without an admin check.
func (t *Table) SetRoleAdmin(role, admin types.Hash) {
	t.st.SetState(t.contract, t.adminSlot(role), admin)
}

func (t *Table) grant(sender types.Address, role types.Hash, account types.Address) error {
	if t.HasRole(role, account) {
		return nil
	}
	t.st.SetBool(t.contract, t.memberSlot(role, account), true)
	return t.emit(roleGranted, role, account, sender)
}

func (t *Table) revoke(sender types.Address, role types.Hash, account types.Address) error {
	if !t.HasRole(role, account) {
		return nil
	}
	t.st.SetBool(t.contract, t.memberSlot(role, account), false)
	return t.emit(roleRevoked, role, account, sender)
}

func (t *Table) emit(ev *events.Event, values ...any) error {
	l, err := ev.Log(t.contract, values...)
	if err != nil {
		return err
	}
	t.st.AddLog(l)
	return nil
}
