package x402mint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
)

// LedgerClient is the slice of the RPC surface this package touches.
// *rpc.Client satisfies it; tests substitute fakes.
type LedgerClient interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
}

// Signer holds the credential for the fee payer / transfer authority. The
// engine only ever sees this capability, never key material.
type Signer interface {
	Pubkey() solana.PublicKey
	Sign(tx *solana.Transaction) error
}

// KeypairSigner signs with an in-process keypair loaded from the keystore.
type KeypairSigner struct {
	Key solana.PrivateKey
}

func (s KeypairSigner) Pubkey() solana.PublicKey { return s.Key.PublicKey() }

func (s KeypairSigner) Sign(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.Key.PublicKey()) {
			return &s.Key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignerRejected, err)
	}
	return nil
}

// Engine signs, submits and confirms transactions:
// built -> signed -> submitted -> confirmed | failed | timed out.
type Engine struct {
	client     LedgerClient
	signer     Signer
	log        zerolog.Logger
	attempts   int
	backoff    time.Duration
	confirmFor time.Duration
	poll       time.Duration
}

func NewEngine(client LedgerClient, signer Signer, log zerolog.Logger) *Engine {
	return &Engine{
		client:     client,
		signer:     signer,
		log:        log.With().Str("component", "engine").Logger(),
		attempts:   3,
		backoff:    500 * time.Millisecond,
		confirmFor: 60 * time.Second,
		poll:       500 * time.Millisecond,
	}
}

// FeePayer is the address funding fees and rent for transactions run by
// this engine.
func (e *Engine) FeePayer() solana.PublicKey { return e.signer.Pubkey() }

// Execute runs a built transaction to finality: sign, submit with bounded
// retry on transport failures, then poll until the ledger confirms it or
// the deadline passes. Returns the signature and the slot it confirmed in.
func (e *Engine) Execute(ctx context.Context, tx *solana.Transaction) (solana.Signature, uint64, error) {
	if err := e.signer.Sign(tx); err != nil {
		return solana.Signature{}, 0, err
	}

	sig, err := e.submit(ctx, tx)
	if err != nil {
		return solana.Signature{}, 0, err
	}
	e.log.Info().Str("sig", sig.String()).Msg("submitted")

	// The transaction is on the wire now. Caller cancellation must not stop
	// us from learning its fate: fees may be spent and the transfer may land.
	confirmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.confirmFor)
	defer cancel()

	slot, err := e.confirm(confirmCtx, sig)
	if err != nil {
		return sig, 0, err
	}
	e.log.Info().Str("sig", sig.String()).Uint64("slot", slot).Msg("confirmed")
	return sig, slot, nil
}

func (e *Engine) submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	backoff := e.backoff
	var lastErr error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		sig, err := e.client.SendTransaction(ctx, tx)
		if err == nil {
			return sig, nil
		}
		lastErr = classifySendError(err)
		if !errors.Is(lastErr, ErrNetwork) {
			// definitive rejection; resubmitting burns fees for nothing
			return solana.Signature{}, lastErr
		}
		e.log.Warn().Err(err).Int("attempt", attempt).Msg("submit failed")
		if attempt < e.attempts {
			select {
			case <-ctx.Done():
				return solana.Signature{}, fmt.Errorf("%w: %v", ErrNetwork, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return solana.Signature{}, lastErr
}

func (e *Engine) confirm(ctx context.Context, sig solana.Signature) (uint64, error) {
	for {
		status, err := e.client.GetSignatureStatuses(ctx, false, sig)
		if err == nil && len(status.Value) > 0 && status.Value[0] != nil {
			st := status.Value[0]
			if st.Err != nil {
				return 0, fmt.Errorf("%w: %v", ErrLedgerRejected, st.Err)
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return st.Slot, nil
			}
		}
		select {
		case <-ctx.Done():
			return 0, &TimeoutError{Signature: sig}
		case <-time.After(e.poll):
		}
	}
}
