package x402mint

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/require"
)

func TestBuildTransaction(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	f := &fakeLedger{}

	ix := token.NewTransferInstruction(
		1,
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		payer,
		[]solana.PublicKey{},
	).Build()

	tx, err := BuildTransaction(context.Background(), f, []solana.Instruction{ix}, payer)
	require.NoError(t, err)
	require.Equal(t, payer, tx.Message.AccountKeys[0], "fee payer leads the account list")
	require.Equal(t, solana.Hash{1, 2, 3}, tx.Message.RecentBlockhash)
}

func TestBuildTransactionRejectsOversize(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	f := &fakeLedger{}

	// enough distinct accounts to blow past the packet limit
	var ixs []solana.Instruction
	for i := 0; i < 30; i++ {
		ixs = append(ixs, token.NewTransferInstruction(
			1,
			solana.NewWallet().PublicKey(),
			solana.NewWallet().PublicKey(),
			payer,
			[]solana.PublicKey{},
		).Build())
	}

	_, err := BuildTransaction(context.Background(), f, ixs, payer)
	require.ErrorIs(t, err, ErrTransactionTooLarge)
}

func TestBuildTransactionOrderPreserved(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	mint := solana.MustPublicKeyFromBase58(Tokens["usdc"].Mint)
	f := &fakeLedger{}

	createIx := CreateHoldingInstruction(payer, owner, mint)
	transferIx := token.NewTransferInstruction(
		1,
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		payer,
		[]solana.PublicKey{},
	).Build()

	tx, err := BuildTransaction(context.Background(), f, []solana.Instruction{createIx, transferIx}, payer)
	require.NoError(t, err)
	require.Len(t, tx.Message.Instructions, 2)

	// the create instruction must run before the transfer that targets it
	first, err := tx.Message.Program(tx.Message.Instructions[0].ProgramIDIndex)
	require.NoError(t, err)
	require.Equal(t, solana.SPLAssociatedTokenAccountProgramID, first)
}
