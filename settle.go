package x402mint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Settler drives one settlement end to end: validate, price, convert,
// resolve the destination holding account, build, execute, record.
type Settler struct {
	client LedgerClient
	engine *Engine
	price  PriceSource
	store  *Store
	token  TokenInfo
	log    zerolog.Logger
}

// NewSettler wires a settlement pipeline for one token. store may be nil
// when the caller does not want a persisted ledger.
func NewSettler(client LedgerClient, engine *Engine, price PriceSource, store *Store, t TokenInfo, log zerolog.Logger) *Settler {
	return &Settler{
		client: client,
		engine: engine,
		price:  price,
		store:  store,
		token:  t,
		log:    log.With().Str("component", "settler").Str("token", t.Symbol).Logger(),
	}
}

// Settle converts a verified USD payment into an on-chain token transfer
// from the treasury to the payer's holding account. When the destination
// account is missing, creation and transfer go out as one transaction, so
// both land or neither does. A stale existence check is recovered exactly
// once; a lost creation race is benign and falls back to a bare transfer.
func (s *Settler) Settle(ctx context.Context, intent PaymentIntent) (*SettlementResult, error) {
	if intent.Payer.IsZero() {
		return nil, errors.New("payer address is zero")
	}
	if intent.USD.Sign() <= 0 {
		return nil, fmt.Errorf("%w: usd %s", ErrInvalidAmount, intent.USD)
	}
	if intent.Key == "" {
		intent.Key = mkid(intent.Payer.String(), intent.USD.String(), time.Now().UnixNano())
	}

	if s.store != nil {
		if rec, err := s.store.LoadRecord(intent.Key); err == nil {
			switch rec.Status {
			case StatusDone:
				// replay of an already settled key; nothing touches the chain
				s.log.Info().Str("key", intent.Key).Msg("replayed settled intent")
				return resultFromRecord(rec, s.token)
			case StatusSent:
				// submitted but never confirmed; caller must reconcile
				sig, sigErr := solana.SignatureFromBase58(rec.Signature)
				if sigErr != nil {
					return nil, fmt.Errorf("record %s: bad signature: %w", rec.ID, sigErr)
				}
				return nil, &TimeoutError{Signature: sig}
			}
		}
	}

	price, err := s.price.UsdPerToken(ctx)
	if err != nil {
		return nil, err
	}

	amount, err := ComputeAssetAmount(intent.USD, price, s.token.Decimals)
	if err != nil {
		return nil, err
	}

	rec := SettlementRecord{
		ID:     intent.Key,
		Payer:  intent.Payer.String(),
		USD:    intent.USD.String(),
		Token:  s.token.Symbol,
		Amount: amount,
		Time:   time.Now().Unix(),
		Status: StatusPending,
	}
	s.saveRecord(&rec)

	mint := solana.MustPublicKeyFromBase58(s.token.Mint)
	treasury := s.engine.FeePayer()

	source, err := DeriveHoldingAddress(treasury, mint)
	if err != nil {
		return nil, s.fail(&rec, err)
	}
	dest, createIx, err := EnsureAccount(ctx, s.client, intent.Payer, mint, treasury)
	if err != nil {
		return nil, s.fail(&rec, err)
	}

	run := func(withCreate bool) (solana.Signature, uint64, error) {
		var ixs []solana.Instruction
		if withCreate {
			ixs = append(ixs, CreateHoldingInstruction(treasury, intent.Payer, mint))
		}
		ixs = append(ixs, token.NewTransferInstruction(
			amount,
			source,
			dest.Address,
			treasury,
			[]solana.PublicKey{},
		).Build())

		tx, err := BuildTransaction(ctx, s.client, ixs, treasury)
		if err != nil {
			return solana.Signature{}, 0, err
		}
		return s.engine.Execute(ctx, tx)
	}

	created := createIx != nil
	sig, slot, err := run(created)

	if errors.Is(err, ErrDestinationMissing) && !created {
		// the existence check was stale: account vanished (or never showed)
		// between resolve and submit; fold in the create and retry once
		s.log.Warn().Str("dest", dest.Address.String()).Msg("destination missing, creating and retrying")
		created = true
		sig, slot, err = run(true)
	}
	if errors.Is(err, ErrAccountExists) && created {
		// lost the creation race; the account is there now, transfer alone
		s.log.Info().Str("dest", dest.Address.String()).Msg("account created concurrently")
		created = false
		sig, slot, err = run(false)
	}

	if err != nil {
		var timeout *TimeoutError
		if errors.As(err, &timeout) {
			// submitted but unconfirmed is not a plain failure: keep the
			// signature so the outcome can be reconciled out-of-band
			rec.Signature = timeout.Signature.String()
			rec.Status = StatusSent
			s.saveRecord(&rec)
			return nil, err
		}
		return nil, s.fail(&rec, err)
	}

	rec.Signature = sig.String()
	rec.Slot = slot
	rec.Status = StatusDone
	s.saveRecord(&rec)

	s.log.Info().
		Str("payer", intent.Payer.String()).
		Str("usd", intent.USD.String()).
		Uint64("amount", amount).
		Str("sig", sig.String()).
		Bool("created", created).
		Msg("settled")

	return &SettlementResult{
		Payer:     intent.Payer,
		USD:       intent.USD,
		Amount:    amount,
		Token:     s.token,
		Signature: sig,
		Slot:      slot,
		Created:   created,
	}, nil
}

func (s *Settler) fail(rec *SettlementRecord, err error) error {
	rec.Status = StatusFail
	s.saveRecord(rec)
	return err
}

func (s *Settler) saveRecord(rec *SettlementRecord) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveRecord(*rec); err != nil {
		s.log.Error().Err(err).Str("id", rec.ID).Msg("save record")
	}
}

func resultFromRecord(rec SettlementRecord, t TokenInfo) (*SettlementResult, error) {
	payer, err := solana.PublicKeyFromBase58(rec.Payer)
	if err != nil {
		return nil, fmt.Errorf("record %s: bad payer: %w", rec.ID, err)
	}
	sig, err := solana.SignatureFromBase58(rec.Signature)
	if err != nil {
		return nil, fmt.Errorf("record %s: bad signature: %w", rec.ID, err)
	}
	usd, err := decimal.NewFromString(rec.USD)
	if err != nil {
		return nil, fmt.Errorf("record %s: bad usd: %w", rec.ID, err)
	}
	return &SettlementResult{
		Payer:     payer,
		USD:       usd,
		Amount:    rec.Amount,
		Token:     t,
		Signature: sig,
		Slot:      rec.Slot,
	}, nil
}

func mkid(payer, usd string, ts int64) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", payer, usd, ts)))
	return hex.EncodeToString(h[:])[:16]
}
