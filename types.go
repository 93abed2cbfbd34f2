package x402mint

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// PaymentIntent is a verified payment waiting to be settled on-chain. The
// payer address arrives already authenticated by the x402 middleware; this
// package trusts it as given and never sees the payment proof itself.
type PaymentIntent struct {
	Key   string // idempotency key; derived from the intent when empty
	Payer solana.PublicKey
	USD   decimal.Decimal
}

// SettlementResult is produced only after the transfer confirmed on-chain.
type SettlementResult struct {
	Payer     solana.PublicKey
	USD       decimal.Decimal
	Amount    uint64 // smallest units of Token
	Token     TokenInfo
	Signature solana.Signature
	Slot      uint64
	Created   bool // destination holding account was created by this settlement
}

// SettlementRecord is the persisted form of a settlement, one row per
// idempotency key.
type SettlementRecord struct {
	ID        string
	Payer     string
	USD       string
	Token     string
	Amount    uint64
	Signature string
	Slot      uint64
	Time      int64
	Status    string
}

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusDone    = "done"
	StatusFail    = "fail"
)

type Wallet struct {
	Pubkey string
	Secret []byte
}

type Config struct {
	RPC      string
	Keystore string
	DbPath   string
}

const (
	MainnetRPC = "https://api.mainnet-beta.solana.com"
	DevnetRPC  = "https://api.devnet.solana.com"
)

type TokenInfo struct {
	Mint        string
	Symbol      string
	Decimals    uint8
	CoinGeckoID string          // set when priced off the market
	USDPerToken decimal.Decimal // fixed sale rate when CoinGeckoID is empty
}

var Tokens = map[string]TokenInfo{
	"usdc": {
		Mint:        "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Symbol:      "USDC",
		Decimals:    6,
		USDPerToken: decimal.NewFromInt(1),
	},
	"usdt": {
		Mint:        "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB",
		Symbol:      "USDT",
		Decimals:    6,
		USDPerToken: decimal.NewFromInt(1),
	},
	"btc": {
		Mint:        "3NZ9JMVBmGAqocybic2c7LQCJScmgsAZ6vQqTDzcqmJh", // wBTC (Wormhole)
		Symbol:      "wBTC",
		Decimals:    8,
		CoinGeckoID: "wrapped-bitcoin",
	},
	"ltc": {
		Mint:        "HZRCwxP2Vq9PCpPXooayhJ2bxTpo5xfpQrwB1svh332p", // wLTC (Wormhole)
		Symbol:      "wLTC",
		Decimals:    8,
		CoinGeckoID: "litecoin",
	},
}

func GetToken(key string) (TokenInfo, bool) {
	t, ok := Tokens[key]
	return t, ok
}
