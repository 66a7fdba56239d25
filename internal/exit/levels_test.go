package exit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfx/fxengine/internal/indicator"
)

func TestCalculateBullishBracket(t *testing.T) {
	atr := indicator.ATRResult{Value: 0.0010, Class: indicator.VolatilityNormal, Factor: 1.0}
	lv := Calculate("EUR/USD", 1.1000, indicator.Bullish, atr, DefaultConfig())

	assert.InDelta(t, 1.1000+0.0025, lv.TakeProfit, 1e-9)
	assert.InDelta(t, 1.1000-0.0015, lv.StopLoss, 1e-9)
	assert.Greater(t, lv.TakeProfit, lv.EntryPrice)
	assert.Less(t, lv.StopLoss, lv.EntryPrice)
	assert.InDelta(t, 25.0, lv.TPPips, 1e-6)
	assert.InDelta(t, 15.0, lv.SLPips, 1e-6)
	assert.InDelta(t, 2.5/1.5, lv.RiskReward, 1e-9)
}

func TestCalculateBearishBracket(t *testing.T) {
	atr := indicator.ATRResult{Value: 0.0010, Class: indicator.VolatilityNormal, Factor: 1.0}
	lv := Calculate("EUR/USD", 1.1000, indicator.Bearish, atr, DefaultConfig())

	assert.Less(t, lv.TakeProfit, lv.EntryPrice)
	assert.Greater(t, lv.StopLoss, lv.EntryPrice)
	assert.InDelta(t, 1.1000-0.0025, lv.TakeProfit, 1e-9)
	assert.InDelta(t, 1.1000+0.0015, lv.StopLoss, 1e-9)
}

func TestCalculateVolatilityScaling(t *testing.T) {
	cfg := DefaultConfig()
	base := indicator.ATRResult{Value: 0.0010, Class: indicator.VolatilityNormal, Factor: 1.0}
	high := indicator.ATRResult{Value: 0.0010, Class: indicator.VolatilityHigh, Factor: 1.5}
	low := indicator.ATRResult{Value: 0.0010, Class: indicator.VolatilityLow, Factor: 0.75}

	b := Calculate("EUR/USD", 1.1000, indicator.Bullish, base, cfg)
	h := Calculate("EUR/USD", 1.1000, indicator.Bullish, high, cfg)
	l := Calculate("EUR/USD", 1.1000, indicator.Bullish, low, cfg)

	assert.Greater(t, h.TPDistance, b.TPDistance)
	assert.Less(t, l.TPDistance, b.TPDistance)
	assert.InDelta(t, b.TPDistance*1.5, h.TPDistance, 1e-9)
	assert.InDelta(t, b.SLDistance*0.75, l.SLDistance, 1e-9)
}

func TestCalculateNeutralHalvesBracket(t *testing.T) {
	cfg := DefaultConfig()
	atr := indicator.ATRResult{Value: 0.0010, Class: indicator.VolatilityNormal, Factor: 1.0}

	bull := Calculate("EUR/USD", 1.1000, indicator.Bullish, atr, cfg)
	neutral := Calculate("EUR/USD", 1.1000, indicator.Neutral, atr, cfg)

	assert.InDelta(t, bull.TPDistance*cfg.NeutralScale, neutral.TPDistance, 1e-9)
	assert.InDelta(t, bull.SLDistance*cfg.NeutralScale, neutral.SLDistance, 1e-9)
	assert.Greater(t, neutral.TakeProfit, neutral.EntryPrice)
	assert.Less(t, neutral.StopLoss, neutral.EntryPrice)
}

func TestCalculateDegenerateATRUsesFloor(t *testing.T) {
	atr := indicator.ATRResult{Value: 0, Class: indicator.VolatilityNormal, Factor: 1.0}
	lv := Calculate("EUR/USD", 1.1000, indicator.Bullish, atr, DefaultConfig())

	assert.GreaterOrEqual(t, lv.SLPips, 5.0)
	assert.GreaterOrEqual(t, lv.TPPips, 5.0)
	assert.Greater(t, lv.TakeProfit, lv.StopLoss)
}

func TestCalculateJPYPipScale(t *testing.T) {
	atr := indicator.ATRResult{Value: 0.10, Class: indicator.VolatilityNormal, Factor: 1.0}
	lv := Calculate("USD/JPY", 150.00, indicator.Bullish, atr, DefaultConfig())

	assert.InDelta(t, 25.0, lv.TPPips, 1e-6)
	assert.InDelta(t, 15.0, lv.SLPips, 1e-6)
}

func TestConfigValidation(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.TargetATR = 1.0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.NeutralScale = 0
	assert.Error(t, bad.Validate())
}
