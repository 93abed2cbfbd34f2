package x402mint

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// maxTransactionSize is the ledger's hard packet limit for a fully signed,
// serialized transaction.
const maxTransactionSize = 1232

// BuildTransaction assembles an unsigned transaction over a fresh blockhash.
// Instructions run in the given order, so a create-account instruction must
// precede the transfer that targets it. Oversize transactions are rejected
// here, before any fee is at risk.
func BuildTransaction(ctx context.Context, client LedgerClient, instructions []solana.Instruction, feePayer solana.PublicKey) (*solana.Transaction, error) {
	recent, err := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("%w: blockhash: %v", ErrNetwork, err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		recent.Value.Blockhash,
		solana.TransactionPayer(feePayer),
	)
	if err != nil {
		return nil, fmt.Errorf("tx: %w", err)
	}

	raw, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	// unsigned message plus one 64-byte signature per required signer
	size := len(raw) + 1 + 64*int(tx.Message.Header.NumRequiredSignatures)
	if size > maxTransactionSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrTransactionTooLarge, size, maxTransactionSize)
	}

	return tx, nil
}
