package x402mint

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"
)

func TestDeriveHoldingAddressDeterministic(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	mint := solana.MustPublicKeyFromBase58(Tokens["usdc"].Mint)

	a, err := DeriveHoldingAddress(owner, mint)
	require.NoError(t, err)
	b, err := DeriveHoldingAddress(owner, mint)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestDeriveHoldingAddressDistinct(t *testing.T) {
	mint := solana.MustPublicKeyFromBase58(Tokens["usdc"].Mint)
	otherMint := solana.MustPublicKeyFromBase58(Tokens["usdt"].Mint)
	owner := solana.NewWallet().PublicKey()
	otherOwner := solana.NewWallet().PublicKey()

	base, err := DeriveHoldingAddress(owner, mint)
	require.NoError(t, err)

	byOwner, err := DeriveHoldingAddress(otherOwner, mint)
	require.NoError(t, err)
	require.NotEqual(t, base, byOwner)

	byMint, err := DeriveHoldingAddress(owner, otherMint)
	require.NoError(t, err)
	require.NotEqual(t, base, byMint)
}

func TestAccountExists(t *testing.T) {
	addr := solana.NewWallet().PublicKey()

	f := &fakeLedger{}
	exists, err := AccountExists(context.Background(), f, addr)
	require.NoError(t, err)
	require.True(t, exists)

	f.accountInfo = func(solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
		return nil, rpc.ErrNotFound
	}
	exists, err = AccountExists(context.Background(), f, addr)
	require.NoError(t, err)
	require.False(t, exists)

	f.accountInfo = func(solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
		return nil, errors.New("connection refused")
	}
	_, err = AccountExists(context.Background(), f, addr)
	require.ErrorIs(t, err, ErrNetwork)
}

func TestEnsureAccount(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	feePayer := solana.NewWallet().PublicKey()
	mint := solana.MustPublicKeyFromBase58(Tokens["usdc"].Mint)

	f := &fakeLedger{}
	acct, ix, err := EnsureAccount(context.Background(), f, owner, mint, feePayer)
	require.NoError(t, err)
	require.True(t, acct.Exists)
	require.Nil(t, ix, "existing account needs no create instruction")

	f.accountInfo = func(solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
		return nil, rpc.ErrNotFound
	}
	acct, ix, err = EnsureAccount(context.Background(), f, owner, mint, feePayer)
	require.NoError(t, err)
	require.False(t, acct.Exists)
	require.NotNil(t, ix)

	derived, err := DeriveHoldingAddress(owner, mint)
	require.NoError(t, err)
	require.Equal(t, derived, acct.Address)
}

func TestTokenBalance(t *testing.T) {
	owner := solana.NewWallet().PublicKey()

	f := &fakeLedger{}
	f.tokenBalance = func(solana.PublicKey) (*rpc.GetTokenAccountBalanceResult, error) {
		return &rpc.GetTokenAccountBalanceResult{
			Value: &rpc.UiTokenAmount{Amount: "2500000"},
		}, nil
	}

	bal, err := TokenBalance(context.Background(), f, owner, Tokens["usdc"])
	require.NoError(t, err)
	require.Equal(t, uint64(2_500_000), bal)
}
