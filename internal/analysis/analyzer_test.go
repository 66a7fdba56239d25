package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfx/fxengine/internal/indicator"
	"github.com/quantfx/fxengine/internal/market"
)

func TestAnalyzeProducesFullBundle(t *testing.T) {
	provider := market.NewSyntheticProvider(7, 0.0001, 0.0008)
	a, err := New(provider, DefaultConfig())
	require.NoError(t, err)

	bundle, err := a.Analyze(context.Background(), "EUR/USD", true)
	require.NoError(t, err)

	assert.Equal(t, "EUR/USD", bundle.Symbol)
	require.NotNil(t, bundle.Snapshot)
	assert.True(t, bundle.Snapshot.RSIValid)
	assert.GreaterOrEqual(t, bundle.Signal.Confidence, 0)
	assert.LessOrEqual(t, bundle.Signal.Confidence, 100)
	require.NotNil(t, bundle.Confluence)
	assert.Len(t, bundle.Confluence.Signals, 4)

	if bundle.Signal.Direction == indicator.Bullish {
		assert.Greater(t, bundle.Levels.TakeProfit, bundle.Levels.EntryPrice)
	}
}

func TestAnalyzeSkipsConfluenceWhenNotRequested(t *testing.T) {
	provider := market.NewSyntheticProvider(7, 0.0001, 0.0008)
	a, err := New(provider, DefaultConfig())
	require.NoError(t, err)

	bundle, err := a.Analyze(context.Background(), "EUR/USD", false)
	require.NoError(t, err)
	assert.Nil(t, bundle.Confluence)
}

type failingProvider struct{}

func (failingProvider) Fetch(context.Context, string, market.Timeframe, int) (market.PriceSeries, error) {
	return nil, errors.New("upstream down")
}

func TestAnalyzeFetchFailure(t *testing.T) {
	a, err := New(failingProvider{}, DefaultConfig())
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), "EUR/USD", false)
	assert.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Bars = 10
	assert.Error(t, cfg.Validate())
}
