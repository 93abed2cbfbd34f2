package x402mint

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/rpc"
)

// HoldingAccount couples a derived token account address with its on-ledger
// liveness at resolution time. Exists is a snapshot, not stored state.
type HoldingAccount struct {
	Owner   solana.PublicKey
	Mint    solana.PublicKey
	Address solana.PublicKey
	Exists  bool
}

// DeriveHoldingAddress returns the associated token account for
// (owner, mint). Pure derivation: same inputs always agree, so the
// destination is computed from the trusted payer identity, never supplied.
func DeriveHoldingAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive holding address: %w", err)
	}
	return addr, nil
}

// AccountExists reports whether addr is live on the ledger.
func AccountExists(ctx context.Context, client LedgerClient, addr solana.PublicKey) (bool, error) {
	acct, err := client.GetAccountInfo(ctx, addr)
	if errors.Is(err, rpc.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: get account info: %v", ErrNetwork, err)
	}
	return acct != nil && acct.Value != nil, nil
}

// ResolveHolding derives the (owner, mint) token account and checks the
// ledger for it.
func ResolveHolding(ctx context.Context, client LedgerClient, owner, mint solana.PublicKey) (HoldingAccount, error) {
	addr, err := DeriveHoldingAddress(owner, mint)
	if err != nil {
		return HoldingAccount{}, err
	}
	exists, err := AccountExists(ctx, client, addr)
	if err != nil {
		return HoldingAccount{}, err
	}
	return HoldingAccount{Owner: owner, Mint: mint, Address: addr, Exists: exists}, nil
}

// EnsureAccount resolves the holding account and, when it is missing,
// returns the create instruction to run ahead of the transfer. feePayer
// funds the rent.
func EnsureAccount(ctx context.Context, client LedgerClient, owner, mint, feePayer solana.PublicKey) (HoldingAccount, solana.Instruction, error) {
	acct, err := ResolveHolding(ctx, client, owner, mint)
	if err != nil {
		return acct, nil, err
	}
	if acct.Exists {
		return acct, nil, nil
	}
	return acct, CreateHoldingInstruction(feePayer, owner, mint), nil
}

// CreateHoldingInstruction builds the create-account instruction for the
// (owner, mint) associated token account, rent paid by feePayer.
func CreateHoldingInstruction(feePayer, owner, mint solana.PublicKey) solana.Instruction {
	return associatedtokenaccount.NewCreateInstruction(feePayer, owner, mint).Build()
}

// TokenBalance returns owner's balance of t in smallest units.
func TokenBalance(ctx context.Context, client LedgerClient, owner solana.PublicKey, t TokenInfo) (uint64, error) {
	addr, err := DeriveHoldingAddress(owner, solana.MustPublicKeyFromBase58(t.Mint))
	if err != nil {
		return 0, err
	}

	result, err := client.GetTokenAccountBalance(ctx, addr, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("%w: token balance: %v", ErrNetwork, err)
	}

	amount, err := strconv.ParseUint(result.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse balance %q: %w", result.Value.Amount, err)
	}
	return amount, nil
}

// SolBalance returns owner's native balance in lamports.
func SolBalance(ctx context.Context, client LedgerClient, owner solana.PublicKey) (uint64, error) {
	result, err := client.GetBalance(ctx, owner, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("%w: balance: %v", ErrNetwork, err)
	}
	return result.Value, nil
}
