package engine

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// BacktestEngineV1Config is the capital and risk configuration of a run.
// Monetary values are decimal; the YAML surface accepts plain numbers.
type BacktestEngineV1Config struct {
	// InitialCapital is the starting cash in USD.
	InitialCapital decimal.Decimal `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting capital for the backtest in USD"`
	// PositionSizeFraction is the fraction of current cash committed per trade.
	PositionSizeFraction decimal.Decimal `yaml:"position_size_fraction" json:"position_size_fraction" jsonschema:"title=Position Size Fraction,description=Fraction of current capital committed per trade"`
	// MaxPositions caps the number of simultaneously open positions.
	MaxPositions int `yaml:"max_positions" json:"max_positions" jsonschema:"title=Max Positions,description=Maximum number of simultaneously open positions,minimum=1"`
	// MinLeverage and MaxLeverage bound the leverage of every trade. Entries
	// are opened at MaxLeverage unless the signal requests otherwise.
	MinLeverage decimal.Decimal `yaml:"min_leverage" json:"min_leverage" jsonschema:"title=Min Leverage,description=Lower leverage bound for every trade"`
	MaxLeverage decimal.Decimal `yaml:"max_leverage" json:"max_leverage" jsonschema:"title=Max Leverage,description=Upper leverage bound for every trade"`
	// SpreadFeeRate is the per-share fee as a fraction of the entry price,
	// charged once on entry and once on exit.
	SpreadFeeRate decimal.Decimal `yaml:"spread_fee_rate" json:"spread_fee_rate" jsonschema:"title=Spread Fee Rate,description=Per-share fee as a fraction of the entry price"`
	// MarginCallRatio is the fraction of posted margin that may be lost
	// before a leveraged position is liquidated.
	MarginCallRatio decimal.Decimal `yaml:"margin_call_ratio" json:"margin_call_ratio" jsonschema:"title=Margin Call Ratio,description=Fraction of posted margin lost before liquidation"`
	// StartTime and EndTime optionally narrow the simulated period.
	StartTime optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start of the backtest period"`
	EndTime   optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end of the backtest period"`
}

// rawConfig is the plain YAML shape of the configuration; validator tags
// cover the scalar constraints, the cross-field ones live in Validate.
type rawConfig struct {
	InitialCapital       float64    `yaml:"initial_capital" validate:"gt=0"`
	PositionSizeFraction float64    `yaml:"position_size_fraction" validate:"gt=0,lte=1"`
	MaxPositions         int        `yaml:"max_positions" validate:"gte=1"`
	MinLeverage          float64    `yaml:"min_leverage" validate:"gte=1"`
	MaxLeverage          float64    `yaml:"max_leverage" validate:"gte=1"`
	SpreadFeeRate        float64    `yaml:"spread_fee_rate" validate:"gte=0,lt=1"`
	MarginCallRatio      float64    `yaml:"margin_call_ratio" validate:"gt=0,lte=1"`
	StartTime            *time.Time `yaml:"start_time"`
	EndTime              *time.Time `yaml:"end_time"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config.
func (c *BacktestEngineV1Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw rawConfig
	if err := unmarshal(&raw); err != nil {
		return errors.Wrap(err, errors.ErrCodeBacktestConfigError, "failed to parse engine config")
	}

	if err := validator.New().Struct(raw); err != nil {
		return errors.Wrap(err, errors.ErrCodeBacktestConfigError, "invalid engine config")
	}

	c.InitialCapital = decimal.NewFromFloat(raw.InitialCapital)
	c.PositionSizeFraction = decimal.NewFromFloat(raw.PositionSizeFraction)
	c.MaxPositions = raw.MaxPositions
	c.MinLeverage = decimal.NewFromFloat(raw.MinLeverage)
	c.MaxLeverage = decimal.NewFromFloat(raw.MaxLeverage)
	c.SpreadFeeRate = decimal.NewFromFloat(raw.SpreadFeeRate)
	c.MarginCallRatio = decimal.NewFromFloat(raw.MarginCallRatio)

	if raw.StartTime != nil {
		c.StartTime = optional.Some(*raw.StartTime)
	}

	if raw.EndTime != nil {
		c.EndTime = optional.Some(*raw.EndTime)
	}

	return c.Validate()
}

// Validate checks the cross-field constraints. Construction-time validation
// is the only place configuration errors surface; runs never re-check.
func (c *BacktestEngineV1Config) Validate() error {
	if c.InitialCapital.LessThanOrEqual(decimal.Zero) {
		return errors.New(errors.ErrCodeBacktestConfigError, "initial capital must be positive")
	}

	if c.PositionSizeFraction.LessThanOrEqual(decimal.Zero) || c.PositionSizeFraction.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New(errors.ErrCodeBacktestConfigError, "position size fraction must be in (0, 1]")
	}

	if c.MaxPositions < 1 {
		return errors.New(errors.ErrCodeBacktestConfigError, "max positions must be at least 1")
	}

	if c.MinLeverage.LessThan(decimal.NewFromInt(1)) {
		return errors.New(errors.ErrCodeBacktestConfigError, "min leverage must be at least 1")
	}

	if c.MaxLeverage.LessThan(c.MinLeverage) {
		return errors.New(errors.ErrCodeBacktestConfigError, "max leverage must not be below min leverage")
	}

	if c.SpreadFeeRate.IsNegative() {
		return errors.New(errors.ErrCodeBacktestConfigError, "spread fee rate must not be negative")
	}

	if c.MarginCallRatio.LessThanOrEqual(decimal.Zero) || c.MarginCallRatio.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New(errors.ErrCodeBacktestConfigError, "margin call ratio must be in (0, 1]")
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.New(errors.ErrCodeBacktestConfigError, "end time must not precede start time")
	}

	return nil
}

// GenerateSchema generates a JSON schema for the engine configuration.
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if t.String() == "decimal.Decimal" {
				return &jsonschema.Schema{
					Type: "number",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates the JSON schema as an indented string.
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// DefaultConfig mirrors the conventional run setup: 100k capital, 10% per
// trade, five slots, no leverage, no fees, 20% margin call.
func DefaultConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital:       decimal.NewFromInt(100000),
		PositionSizeFraction: decimal.RequireFromString("0.1"),
		MaxPositions:         5,
		MinLeverage:          decimal.NewFromInt(1),
		MaxLeverage:          decimal.NewFromInt(1),
		SpreadFeeRate:        decimal.Zero,
		MarginCallRatio:      decimal.RequireFromString("0.2"),
		StartTime:            optional.None[time.Time](),
		EndTime:              optional.None[time.Time](),
	}
}

// EmptyConfig returns a zero-valued configuration that fails Validate.
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital:       decimal.Zero,
		PositionSizeFraction: decimal.Zero,
		MaxPositions:         0,
		MinLeverage:          decimal.Zero,
		MaxLeverage:          decimal.Zero,
		SpreadFeeRate:        decimal.Zero,
		MarginCallRatio:      decimal.Zero,
		StartTime:            optional.None[time.Time](),
		EndTime:              optional.None[time.Time](),
	}
}

// TestConfig returns a valid configuration for tests.
func TestConfig() BacktestEngineV1Config {
	return DefaultConfig()
}
