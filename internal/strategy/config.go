package strategy

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/quantor-lab/quantor-trading/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Kind selects the strategy variant. Variants are tagged implementations of
// the Evaluator interface, chosen by configuration.
type Kind string

const (
	KindMACrossover   Kind = "ma_crossover"
	KindATRAdaptive   Kind = "atr_adaptive"
	KindVWAPConfirmed Kind = "vwap_confirmed"
	KindMultiFactor   Kind = "multi_factor"
)

// Config is the immutable configuration bag for one strategy variant.
// It is supplied at engine construction and never mutated during a run.
// Fields not used by the configured kind are ignored.
type Config struct {
	Kind   Kind   `yaml:"kind" json:"kind" validate:"required,oneof=ma_crossover atr_adaptive vwap_confirmed multi_factor"`
	Symbol string `yaml:"symbol" json:"symbol" validate:"required"`

	// Moving average lookbacks. ShortPeriod must be strictly below LongPeriod.
	ShortPeriod int `yaml:"short_period" json:"short_period" validate:"gt=0"`
	LongPeriod  int `yaml:"long_period" json:"long_period" validate:"gt=0"`
	// SignalPeriod is the EMA period over the macd line (multi_factor only).
	SignalPeriod int `yaml:"signal_period" json:"signal_period" validate:"gte=0"`

	ATRPeriod int `yaml:"atr_period" json:"atr_period" validate:"gte=0"`
	RSIPeriod int `yaml:"rsi_period" json:"rsi_period" validate:"gte=0"`

	// Fixed-percentage bracket (ma_crossover). 0.05 means a 5% stop.
	StopLossPct   float64 `yaml:"stop_loss_pct" json:"stop_loss_pct" validate:"gte=0,lt=1"`
	TakeProfitPct float64 `yaml:"take_profit_pct" json:"take_profit_pct" validate:"gte=0"`

	// ATR bracket multipliers (atr_adaptive, multi_factor).
	StopLossMultiplier   float64 `yaml:"stop_loss_multiplier" json:"stop_loss_multiplier" validate:"gte=0"`
	TakeProfitMultiplier float64 `yaml:"take_profit_multiplier" json:"take_profit_multiplier" validate:"gte=0"`

	// RiskPerTrade is the fraction of equity risked on each entry.
	RiskPerTrade float64 `yaml:"risk_per_trade" json:"risk_per_trade" validate:"gt=0,lte=1"`
	// MaxPositionFraction caps the position notional as a fraction of equity.
	MaxPositionFraction float64 `yaml:"max_position_fraction" json:"max_position_fraction" validate:"gt=0,lte=1"`
	// MaxHoldingBars closes any position held longer than this. 0 disables
	// the time-based exit.
	MaxHoldingBars int `yaml:"max_holding_bars" json:"max_holding_bars" validate:"gte=0"`
	// TrailingStop enables the ATR stop ratchet for variants with ATR brackets.
	TrailingStop bool `yaml:"trailing_stop" json:"trailing_stop"`
	// AllowShort permits short entries. Off by default.
	AllowShort bool `yaml:"allow_short" json:"allow_short"`

	// VWAP filter settings (vwap_confirmed).
	VWAPPeriod int `yaml:"vwap_period" json:"vwap_period" validate:"gte=0"`
	// VWAPBand is the fraction above VWAP the price must clear, e.g. 0.005.
	VWAPBand float64 `yaml:"vwap_band" json:"vwap_band" validate:"gte=0"`
	// VWAPCumulative switches the filter to session-cumulative VWAP.
	VWAPCumulative bool `yaml:"vwap_cumulative" json:"vwap_cumulative"`
	// BaseKind is the variant the vwap_confirmed filter wraps.
	BaseKind Kind `yaml:"base_kind" json:"base_kind" validate:"omitempty,oneof=ma_crossover atr_adaptive multi_factor"`

	// RSI confirmation band (multi_factor).
	RSILower float64 `yaml:"rsi_lower" json:"rsi_lower" validate:"gte=0,lte=100"`
	RSIUpper float64 `yaml:"rsi_upper" json:"rsi_upper" validate:"gte=0,lte=100"`
	// ConfirmationThreshold is the minimum number of confirmations required
	// to enter (multi_factor). Entries require count >= threshold, strictly.
	ConfirmationThreshold int `yaml:"confirmation_threshold" json:"confirmation_threshold" validate:"gte=0"`
}

// DefaultConfig returns the baseline parameters for each variant.
func DefaultConfig(kind Kind, symbol string) Config {
	cfg := Config{
		Kind:                KindMACrossover,
		Symbol:              symbol,
		ShortPeriod:         10,
		LongPeriod:          30,
		SignalPeriod:        9,
		ATRPeriod:           14,
		RSIPeriod:           14,
		StopLossPct:         0.05,
		TakeProfitPct:       0.10,
		RiskPerTrade:        0.02,
		MaxPositionFraction: 0.95,
	}

	switch kind {
	case KindATRAdaptive:
		cfg.Kind = KindATRAdaptive
		cfg.ShortPeriod = 20
		cfg.LongPeriod = 80
		cfg.StopLossPct = 0
		cfg.TakeProfitPct = 0
		cfg.StopLossMultiplier = 2.0
		cfg.TakeProfitMultiplier = 6.0
	case KindVWAPConfirmed:
		cfg = DefaultConfig(KindATRAdaptive, symbol)
		cfg.Kind = KindVWAPConfirmed
		cfg.BaseKind = KindATRAdaptive
		cfg.VWAPPeriod = 20
		cfg.VWAPBand = 0.005
	case KindMultiFactor:
		cfg.Kind = KindMultiFactor
		cfg.ShortPeriod = 5
		cfg.LongPeriod = 15
		cfg.StopLossPct = 0
		cfg.TakeProfitPct = 0
		cfg.StopLossMultiplier = 1.5
		cfg.TakeProfitMultiplier = 2.0
		cfg.RiskPerTrade = 0.01
		cfg.MaxPositionFraction = 0.05
		cfg.MaxHoldingBars = 15
		cfg.TrailingStop = true
		cfg.AllowShort = true
		cfg.RSILower = 30
		cfg.RSIUpper = 70
		cfg.ConfirmationThreshold = 2
	case KindMACrossover:
	}

	return cfg
}

// ParseConfig decodes a yaml document into a validated Config.
func ParseConfig(content string) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse strategy config", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects invalid configurations at construction time, before any
// bar is processed.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid strategy config", err)
	}

	if c.ShortPeriod >= c.LongPeriod {
		return errors.Newf(errors.ErrCodeInvalidPeriod,
			"short_period (%d) must be strictly below long_period (%d)",
			c.ShortPeriod, c.LongPeriod)
	}

	switch c.Kind {
	case KindMACrossover:
		if c.StopLossPct <= 0 || c.TakeProfitPct <= 0 {
			return errors.New(errors.ErrCodeInvalidMultiplier,
				"ma_crossover requires positive stop_loss_pct and take_profit_pct")
		}
	case KindATRAdaptive, KindMultiFactor:
		if c.StopLossMultiplier <= 0 || c.TakeProfitMultiplier <= 0 {
			return errors.New(errors.ErrCodeInvalidMultiplier,
				"ATR bracket requires positive stop_loss_multiplier and take_profit_multiplier")
		}

		if c.ATRPeriod <= 0 {
			return errors.New(errors.ErrCodeInvalidPeriod, "ATR bracket requires a positive atr_period")
		}
	case KindVWAPConfirmed:
		if c.VWAPPeriod <= 0 && !c.VWAPCumulative {
			return errors.New(errors.ErrCodeInvalidPeriod, "vwap_confirmed requires a positive vwap_period")
		}

		if c.BaseKind == KindVWAPConfirmed {
			return errors.New(errors.ErrCodeInvalidConfiguration, "vwap_confirmed cannot wrap itself")
		}
	}

	if c.Kind == KindMultiFactor {
		if c.RSIPeriod <= 0 {
			return errors.New(errors.ErrCodeInvalidPeriod, "multi_factor requires a positive rsi_period")
		}

		if c.RSILower >= c.RSIUpper {
			return errors.Newf(errors.ErrCodeInvalidThreshold,
				"rsi_lower (%f) must be below rsi_upper (%f)", c.RSILower, c.RSIUpper)
		}

		if c.ConfirmationThreshold <= 0 {
			return errors.New(errors.ErrCodeInvalidThreshold,
				"multi_factor requires a positive confirmation_threshold")
		}
	}

	return nil
}

// GenerateSchemaJSON returns the JSON schema of the strategy config for
// external tooling.
func (c *Config) GenerateSchemaJSON() (string, error) {
	reflector := jsonschema.Reflector{}
	schema := reflector.Reflect(c)
	schema.Title = "strategy-config"
	schema.Description = "Configuration schema for strategy variants"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to generate schema", err)
	}

	return string(data), nil
}
