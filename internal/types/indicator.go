package types

type IndicatorType string

const (
	IndicatorTypeSMA  IndicatorType = "sma"
	IndicatorTypeEMA  IndicatorType = "ema"
	IndicatorTypeATR  IndicatorType = "atr"
	IndicatorTypeRSI  IndicatorType = "rsi"
	IndicatorTypeMACD IndicatorType = "macd"
	IndicatorTypeVWAP IndicatorType = "vwap"
	IndicatorTypeOBV  IndicatorType = "obv"
)
