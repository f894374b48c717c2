package access

import (
	"errors"
	"testing"

	"github.com/eth2030/presale/core/state"
	"github.com/eth2030/presale/core/types"
	"github.com/eth2030/presale/crypto"
)

var (
	nft   = types.HexToAddress("0xc011")
	admin = types.HexToAddress("0xad")
	alice = types.HexToAddress("0xa1")
	bob   = types.HexToAddress("0xb0")
)

func newTable(t *testing.T) (*Table, *state.StateDB) {
	t.Helper()
	st := state.NewMemory()
	tbl := NewTable(st, nft, 10)
	if err := tbl.Setup(DefaultAdminRole, admin); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return tbl, st
}

func TestRoleIDs(t *testing.T) {
	if MinterRole != crypto.Keccak256Hash([]byte("MINTER_ROLE")) {
		t.Fatal("MinterRole is not keccak256(MINTER_ROLE)")
	}
	if !DefaultAdminRole.IsZero() {
		t.Fatal("DefaultAdminRole must be the zero hash")
	}
}

func TestGrantRevoke(t *testing.T) {
	tbl, _ := newTable(t)
	if tbl.RoleAdmin(MinterRole) != DefaultAdminRole {
		t.Fatal("minter role should be administered by the default admin")
	}

	if err := tbl.Grant(alice, MinterRole, bob); !errors.Is(err, ErrMissingRole) {
		t.Fatalf("non-admin Grant err = %v, want ErrMissingRole", err)
	}
	if err := tbl.Grant(admin, MinterRole, alice); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if !tbl.HasRole(MinterRole, alice) || tbl.HasRole(MinterRole, bob) {
		t.Fatal("role membership mismatch after grant")
	}
	if err := tbl.Check(MinterRole, alice); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := tbl.Revoke(admin, MinterRole, alice); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if tbl.HasRole(MinterRole, alice) {
		t.Fatal("role still held after revoke")
	}
}

func TestRenounceOnlyForSelf(t *testing.T) {
	tbl, _ := newTable(t)
	tbl.Grant(admin, MinterRole, alice)

	if err := tbl.Renounce(admin, MinterRole, alice); !errors.Is(err, ErrRenounceForSelf) {
		t.Fatalf("Renounce for other err = %v, want ErrRenounceForSelf", err)
	}
	if err := tbl.Renounce(alice, MinterRole, alice); err != nil {
		t.Fatalf("Renounce: %v", err)
	}
	if tbl.HasRole(MinterRole, alice) {
		t.Fatal("role still held after renounce")
	}
}

func TestCustomRoleAdmin(t *testing.T) {
	tbl, _ := newTable(t)
	managers := RoleID("MANAGER_ROLE")
	tbl.SetRoleAdmin(MinterRole, managers)
	tbl.Setup(managers, bob)

	if err := tbl.Grant(admin, MinterRole, alice); !errors.Is(err, ErrMissingRole) {
		t.Fatalf("default admin Grant err = %v, want ErrMissingRole", err)
	}
	if err := tbl.Grant(bob, MinterRole, alice); err != nil {
		t.Fatalf("manager Grant: %v", err)
	}
}

func TestGrantEmitsOnceAndReverts(t *testing.T) {
	tbl, st := newTable(t)
	st.Prepare(1)
	snap := st.Snapshot()
	tbl.Grant(admin, MinterRole, alice)
	tbl.Grant(admin, MinterRole, alice) // already held: no second event
	if n := len(st.Logs()); n != 1 {
		t.Fatalf("logs = %d, want 1", n)
	}
	if st.Logs()[0].Topics[0] != roleGranted.Topic() {
		t.Fatal("expected RoleGranted log")
	}

	st.RevertToSnapshot(snap)
	if tbl.HasRole(MinterRole, alice) {
		t.Fatal("grant survived revert")
	}
}

func TestTablesAreIsolated(t *testing.T) {
	st := state.NewMemory()
	a := NewTable(st, nft, 10)
	b := NewTable(st, nft, 20)
	a.Setup(MinterRole, alice)
	if b.HasRole(MinterRole, alice) {
		t.Fatal("tables at different bases share membership")
	}
}
