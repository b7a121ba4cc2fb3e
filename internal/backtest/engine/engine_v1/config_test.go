package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v2"

	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestUnmarshalValidConfig() {
	content := `
initial_capital: 100000
position_size_fraction: 0.1
max_positions: 5
min_leverage: 1
max_leverage: 5
spread_fee_rate: 0.001
margin_call_ratio: 0.2
start_time: 2024-01-01T00:00:00Z
end_time: 2024-06-30T00:00:00Z
`

	var config BacktestEngineV1Config

	suite.NoError(yaml.Unmarshal([]byte(content), &config))
	suite.True(config.InitialCapital.Equal(decimal.NewFromInt(100000)))
	suite.True(config.PositionSizeFraction.Equal(decimal.RequireFromString("0.1")))
	suite.Equal(5, config.MaxPositions)
	suite.True(config.MaxLeverage.Equal(decimal.NewFromInt(5)))
	suite.Require().True(config.StartTime.IsSome())
	suite.Equal(2024, config.StartTime.Unwrap().Year())
}

func (suite *ConfigTestSuite) TestUnmarshalOmitsOptionalTimes() {
	content := `
initial_capital: 50000
position_size_fraction: 0.2
max_positions: 3
min_leverage: 1
max_leverage: 1
spread_fee_rate: 0
margin_call_ratio: 0.2
`

	var config BacktestEngineV1Config

	suite.NoError(yaml.Unmarshal([]byte(content), &config))
	suite.True(config.StartTime.IsNone())
	suite.True(config.EndTime.IsNone())
}

func (suite *ConfigTestSuite) TestUnmarshalRejectsInvalidValues() {
	cases := map[string]string{
		"zero capital": `
initial_capital: 0
position_size_fraction: 0.1
max_positions: 5
min_leverage: 1
max_leverage: 1
spread_fee_rate: 0
margin_call_ratio: 0.2
`,
		"fraction above one": `
initial_capital: 100000
position_size_fraction: 1.5
max_positions: 5
min_leverage: 1
max_leverage: 1
spread_fee_rate: 0
margin_call_ratio: 0.2
`,
		"zero max positions": `
initial_capital: 100000
position_size_fraction: 0.1
max_positions: 0
min_leverage: 1
max_leverage: 1
spread_fee_rate: 0
margin_call_ratio: 0.2
`,
		"sub-one leverage": `
initial_capital: 100000
position_size_fraction: 0.1
max_positions: 5
min_leverage: 0.5
max_leverage: 1
spread_fee_rate: 0
margin_call_ratio: 0.2
`,
	}

	for name, content := range cases {
		var config BacktestEngineV1Config

		err := yaml.Unmarshal([]byte(content), &config)
		suite.Error(err, name)
		suite.True(errors.HasCode(err, errors.ErrCodeBacktestConfigError), name)
	}
}

func (suite *ConfigTestSuite) TestValidateCrossFieldConstraints() {
	config := DefaultConfig()
	config.MinLeverage = decimal.NewFromInt(5)
	config.MaxLeverage = decimal.NewFromInt(2)

	err := config.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestConfigError))
}

func (suite *ConfigTestSuite) TestValidateRejectsInvertedPeriod() {
	config := DefaultConfig()

	content := `
initial_capital: 100000
position_size_fraction: 0.1
max_positions: 5
min_leverage: 1
max_leverage: 1
spread_fee_rate: 0
margin_call_ratio: 0.2
start_time: 2024-06-30T00:00:00Z
end_time: 2024-01-01T00:00:00Z
`

	err := yaml.Unmarshal([]byte(content), &config)
	suite.Error(err)
}

func (suite *ConfigTestSuite) TestEmptyConfigFailsValidation() {
	config := EmptyConfig()
	suite.Error(config.Validate())
}

func (suite *ConfigTestSuite) TestDefaultConfigIsValid() {
	config := DefaultConfig()
	suite.NoError(config.Validate())

	// matches the conventional run setup
	suite.True(config.InitialCapital.Equal(decimal.NewFromInt(100000)))
	suite.True(config.MarginCallRatio.Equal(decimal.RequireFromString("0.2")))
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	config := DefaultConfig()

	schemaJSON, err := config.GenerateSchemaJSON()
	suite.NoError(err)

	var schema map[string]any

	suite.NoError(json.Unmarshal([]byte(schemaJSON), &schema))
	suite.Equal("backtest-engine-v1-config", schema["title"])

	properties, ok := schema["properties"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(properties, "initial_capital")
	suite.Contains(properties, "margin_call_ratio")
}

func (suite *ConfigTestSuite) TestEffectiveRangeIsUnchanged() {
	// narrowing only applies when the config period is tighter
	engine := NewBacktestEngineV1()
	engine.config = DefaultConfig()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	gotStart, gotEnd := engine.effectiveRange(start, end)
	suite.Equal(start, gotStart)
	suite.Equal(end, gotEnd)
}
