package x402mint

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const jupiterURL = "https://quote-api.jup.ag/v6"

// Jupiter trades one asset for another through the Jupiter aggregator:
// quote first, then fetch a ready-built transaction to sign and submit.
type Jupiter struct {
	BaseURL string
	Client  *http.Client
}

func NewJupiter() *Jupiter {
	return &Jupiter{
		BaseURL: jupiterURL,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// SwapQuote is Jupiter's quote response. The raw body is kept verbatim
// because the swap endpoint wants it echoed back unchanged.
type SwapQuote struct {
	InputMint      string `json:"inputMint"`
	OutputMint     string `json:"outputMint"`
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`

	raw json.RawMessage
}

// Quote asks for a route swapping amount smallest units of inputMint into
// outputMint within the given slippage.
func (j *Jupiter) Quote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*SwapQuote, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", strconv.FormatUint(amount, 10))
	params.Set("slippageBps", strconv.Itoa(slippageBps))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.BaseURL+"/quote?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := j.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: jupiter quote: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("%w: jupiter quote: %v", ErrNetwork, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter quote: http %d: %s", resp.StatusCode, buf.String())
	}

	quote := &SwapQuote{raw: json.RawMessage(buf.Bytes())}
	if err := json.Unmarshal(quote.raw, quote); err != nil {
		return nil, fmt.Errorf("jupiter quote: %w", err)
	}
	return quote, nil
}

// SwapTransaction exchanges a quote for a transaction built by Jupiter,
// fee-paid by user. The transaction comes back base64-encoded and already
// carries a recent blockhash.
func (j *Jupiter) SwapTransaction(ctx context.Context, quote *SwapQuote, user solana.PublicKey) (*solana.Transaction, error) {
	body, err := json.Marshal(map[string]any{
		"quoteResponse":    quote.raw,
		"userPublicKey":    user.String(),
		"wrapAndUnwrapSol": true,
	})
	if err != nil {
		return nil, fmt.Errorf("jupiter swap: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.BaseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: jupiter swap: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter swap: http %d", resp.StatusCode)
	}

	var out struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("jupiter swap: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(out.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("jupiter swap: decode: %w", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("jupiter swap: deserialize: %w", err)
	}
	return tx, nil
}

// ExecuteSwap runs a quoted swap through the engine: fetch the transaction,
// sign as the engine's fee payer, submit and confirm.
func ExecuteSwap(ctx context.Context, j *Jupiter, engine *Engine, quote *SwapQuote) (solana.Signature, uint64, error) {
	tx, err := j.SwapTransaction(ctx, quote, engine.FeePayer())
	if err != nil {
		return solana.Signature{}, 0, err
	}
	return engine.Execute(ctx, tx)
}
