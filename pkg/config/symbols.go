package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Symbol is one tradable asset entry in the YAML catalogue.
type Symbol struct {
	Symbol    string  `yaml:"symbol"`
	Name      string  `yaml:"name"`
	BasePrice float64 `yaml:"base_price"` // fallback when no live quote exists
}

// symbolFile is the top-level YAML structure.
type symbolFile struct {
	Symbols []Symbol `yaml:"symbols"`
}

// DefaultSymbols is used when no catalogue file is present.
var DefaultSymbols = []Symbol{
	{Symbol: "BTCUSDT", Name: "Bitcoin", BasePrice: 60000},
	{Symbol: "ETHUSDT", Name: "Ethereum", BasePrice: 3000},
	{Symbol: "XRPUSDT", Name: "Ripple", BasePrice: 2.1},
	{Symbol: "SOLUSDT", Name: "Solana", BasePrice: 150},
}

// LoadSymbols reads the tradable assets from a YAML file. A missing file is
// not an error; the built-in defaults are returned instead.
func LoadSymbols(path string) ([]Symbol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSymbols, nil
		}
		return nil, fmt.Errorf("read symbols file: %w", err)
	}

	var file symbolFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse symbols file: %w", err)
	}
	if len(file.Symbols) == 0 {
		return DefaultSymbols, nil
	}
	return file.Symbols, nil
}
