package sale

import (
	"context"
	"errors"

	"github.com/eth2030/presale/pricing"
)

// Sale errors. Every failure returned by a sale operation wraps exactly one
// of these or a pricing error; Reason maps them to stable identifiers.
var (
	ErrUnauthorized        = errors.New("sale: unauthorized")
	ErrExceededAllowance   = errors.New("sale: exceeded allowance")
	ErrHardcapReached      = errors.New("sale: hardcap reached")
	ErrInvalidState        = errors.New("sale: invalid state")
	ErrInsufficientBalance = errors.New("sale: insufficient balance")
	ErrCollaborator        = errors.New("sale: collaborator call failed")
	ErrInvalidParams       = errors.New("sale: invalid parameters")
)

// Stable failure identifiers recorded in receipts and metrics.
const (
	ReasonUnauthorized        = "Unauthorized"
	ReasonExceededAllowance   = "ExceededAllowance"
	ReasonHardcapReached      = "HardcapReached"
	ReasonInvalidState        = "InvalidState"
	ReasonInsufficientBalance = "InsufficientBalance"
	ReasonOverflow            = "Overflow"
	ReasonCollaboratorFailure = "CollaboratorFailure"
	ReasonInvalidParams       = "InvalidParams"
	ReasonCanceled            = "Canceled"
	ReasonFailed              = "Failed"
)

// Reasons returns every identifier Reason can produce.
func Reasons() []string {
	return []string{
		ReasonUnauthorized, ReasonExceededAllowance, ReasonHardcapReached,
		ReasonInvalidState, ReasonInsufficientBalance, ReasonOverflow,
		ReasonCollaboratorFailure, ReasonInvalidParams, ReasonCanceled,
		ReasonFailed,
	}
}

var reasons = []struct {
	err    error
	reason string
}{
	{ErrUnauthorized, ReasonUnauthorized},
	{ErrExceededAllowance, ReasonExceededAllowance},
	{ErrHardcapReached, ReasonHardcapReached},
	{ErrInvalidState, ReasonInvalidState},
	{ErrInsufficientBalance, ReasonInsufficientBalance},
	{ErrInvalidParams, ReasonInvalidParams},
	{pricing.ErrOverflow, ReasonOverflow},
	{pricing.ErrZeroPrice, ReasonInvalidState},
	{pricing.ErrScale, ReasonInvalidState},
	{ErrCollaborator, ReasonCollaboratorFailure},
}

// Reason returns the stable identifier of err, or "" for nil.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ReasonCanceled
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonFailed
}
