package x402mint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrZeroQuantity        = errors.New("amount converts to zero token units")
	ErrPriceUnavailable    = errors.New("price unavailable")
	ErrNetwork             = errors.New("network error")
	ErrDestinationMissing  = errors.New("destination token account does not exist")
	ErrAccountExists       = errors.New("account already exists")
	ErrTransactionTooLarge = errors.New("transaction exceeds size limit")
	ErrSignerRejected      = errors.New("signer rejected")
	ErrLedgerRejected      = errors.New("rejected by ledger")
)

// TimeoutError means the transaction was submitted but did not reach
// finality before the deadline. It carries the signature so the caller can
// reconcile out-of-band: fees may be spent and the transfer may still land.
type TimeoutError struct {
	Signature solana.Signature
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for confirmation of %s", e.Signature)
}

// classifySendError maps a SendTransaction failure onto the taxonomy. An RPC
// error is a definitive verdict from the ledger and must not be retried;
// anything else is a transport problem.
func classifySendError(err error) error {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	text := rpcErr.Message
	if rpcErr.Data != nil {
		text += fmt.Sprintf(" %v", rpcErr.Data)
	}

	switch {
	case containsAny(text, "AccountNotFound", "could not find account", "InvalidAccountData", "invalid account data"):
		// SPL transfers into a nonexistent token account surface as
		// account-not-found or invalid-account-data preflight failures.
		return fmt.Errorf("%w: %s", ErrDestinationMissing, rpcErr.Message)
	case containsAny(text, "already in use"):
		// create-account racing another creator; the account exists now
		return fmt.Errorf("%w: %s", ErrAccountExists, rpcErr.Message)
	default:
		return fmt.Errorf("%w: %s", ErrLedgerRejected, text)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
