package x402mint

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource reports the USD price of one whole token. Implementations may
// be stale or failing; the settlement fails rather than guess a ratio.
type PriceSource interface {
	UsdPerToken(ctx context.Context) (decimal.Decimal, error)
}

// StaticPrice is a fixed dollar-to-token rate, used for stable-priced tokens
// and for sales run at a preset ratio.
type StaticPrice decimal.Decimal

func (p StaticPrice) UsdPerToken(ctx context.Context) (decimal.Decimal, error) {
	d := decimal.Decimal(p)
	if d.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: static rate %s", ErrPriceUnavailable, d)
	}
	return d, nil
}

const coinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGecko fetches spot prices from the CoinGecko simple-price endpoint.
type CoinGecko struct {
	BaseURL string
	ID      string // CoinGecko token id, e.g. "wrapped-bitcoin"
	Client  *http.Client
}

func NewCoinGecko(id string) *CoinGecko {
	return &CoinGecko{
		BaseURL: coinGeckoURL,
		ID:      id,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *CoinGecko) UsdPerToken(ctx context.Context) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.BaseURL, c.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: coingecko http %d", ErrPriceUnavailable, resp.StatusCode)
	}

	var prices map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	usd, ok := prices[c.ID]["usd"]
	if !ok || usd.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: no usd quote for %s", ErrPriceUnavailable, c.ID)
	}
	return usd, nil
}

// PriceFor picks the price source for a catalog token.
func PriceFor(t TokenInfo) PriceSource {
	if t.CoinGeckoID != "" {
		return NewCoinGecko(t.CoinGeckoID)
	}
	return StaticPrice(t.USDPerToken)
}
