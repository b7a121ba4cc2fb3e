package types

// AssetType classifies a tradable instrument.
type AssetType string

const (
	AssetTypeStock     AssetType = "stock"
	AssetTypeETF       AssetType = "etf"
	AssetTypeForex     AssetType = "forex"
	AssetTypeCrypto    AssetType = "crypto"
	AssetTypeCommodity AssetType = "commodity"
	AssetTypeIndex     AssetType = "index"
	AssetTypeFuture    AssetType = "future"
)

// commodityMappings maps friendly commodity names to provider ticker symbols.
var commodityMappings = map[string]string{
	"GOLD":   "GC=F",
	"SILVER": "SI=F",
	"OIL":    "CL=F",
	"COPPER": "HG=F",
}

// indexMappings maps friendly index names to provider ticker symbols.
var indexMappings = map[string]string{
	"SPX":    "^GSPC",
	"DOW":    "^DJI",
	"NASDAQ": "^IXIC",
	"VIX":    "^VIX",
}

// Asset represents a tradable instrument.
type Asset struct {
	Symbol string    `yaml:"symbol" json:"symbol" validate:"required"`
	Type   AssetType `yaml:"type" json:"type" validate:"required,oneof=stock etf forex crypto commodity index future"`
}

// ProviderSymbol returns the symbol used by market data providers.
// Commodities and indices use well-known provider tickers, everything else
// trades under its own symbol.
func (a Asset) ProviderSymbol() string {
	switch a.Type {
	case AssetTypeCommodity:
		if mapped, ok := commodityMappings[a.Symbol]; ok {
			return mapped
		}
	case AssetTypeIndex:
		if mapped, ok := indexMappings[a.Symbol]; ok {
			return mapped
		}
	}

	return a.Symbol
}
