package market

import "context"

// Provider supplies time-ordered price history for a symbol. Implementations
// must return bars oldest-first with no future leakage; the newest bar is the
// last element.
type Provider interface {
	Fetch(ctx context.Context, symbol string, tf Timeframe, count int) (PriceSeries, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, symbol string, tf Timeframe, count int) (PriceSeries, error)

func (f ProviderFunc) Fetch(ctx context.Context, symbol string, tf Timeframe, count int) (PriceSeries, error) {
	return f(ctx, symbol, tf, count)
}
