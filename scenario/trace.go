package scenario

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// statusOrder fixes the rendering order of status fields.
var statusOrder = []string{
	"owner",
	"treasury",
	"paused",
	"whitelist",
	"priceInUSD",
	"hardcap",
	"allowedUserBalance",
	"totalSold",
	"totalClaimable",
	"paymentBalance",
}

func (r *runner) statusFields() map[string]string {
	st := r.sale.Status()
	return map[string]string{
		"owner":              r.name(st.Owner),
		"treasury":           r.name(st.Treasury),
		"paused":             strconv.FormatBool(st.Paused),
		"whitelist":          strconv.FormatBool(st.WhitelistEnabled),
		"priceInUSD":         st.PriceInUSD.Dec(),
		"hardcap":            st.Hardcap.Dec(),
		"allowedUserBalance": st.AllowedUserBalance.Dec(),
		"totalSold":          st.TotalSold.Dec(),
		"totalClaimable":     st.TotalClaimable.Dec(),
		"paymentBalance":     st.PaymentBalance.Dec(),
	}
}

func (r *runner) assert(a Assertion) error {
	var got string
	switch a.Check {
	case CheckBalance:
		tok, err := r.token(a.Token)
		if err != nil {
			return err
		}
		holder, err := r.account(a.Holder)
		if err != nil {
			return err
		}
		bal, err := r.n.BalanceOf(tok, holder)
		if err != nil {
			return err
		}
		got = bal.Dec()
	case CheckPurchased, CheckClaimable:
		holder, err := r.account(a.Holder)
		if err != nil {
			return err
		}
		var v *uint256.Int
		if a.Check == CheckPurchased {
			v = r.sale.Purchased(holder)
		} else {
			v = r.sale.Claimable(holder)
		}
		got = v.Dec()
	case CheckStatus:
		v, ok := r.res.Final[a.Field]
		if !ok {
			return fmt.Errorf("unknown status field %q", a.Field)
		}
		got = v
	case CheckReverts:
		n := 0
		for _, ev := range r.res.Trace {
			if ev.Outcome != "ok" && (a.Reason == "" || ev.Outcome == a.Reason) {
				n++
			}
		}
		got = strconv.Itoa(n)
	}
	if got != a.Equals {
		return fmt.Errorf("got %s, want %s", got, a.Equals)
	}
	return nil
}

// Render writes the trace and final state as plain text. The output does
// not depend on call ids or timing.
func (res *Result) Render(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario %s\n", res.Name)
	for _, ev := range res.Trace {
		fmt.Fprintf(&b, "%03d %-26s %-8s %s\n", ev.Seq, ev.Method, ev.Caller, ev.Outcome)
	}
	b.WriteString("final\n")
	for _, field := range statusOrder {
		if v, ok := res.Final[field]; ok {
			fmt.Fprintf(&b, "  %s: %s\n", field, v)
		}
	}
	if len(res.Failures) == 0 {
		b.WriteString("passed\n")
	} else {
		for _, f := range res.Failures {
			fmt.Fprintf(&b, "FAIL %s\n", f)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
