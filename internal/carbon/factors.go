package carbon

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FactorPack holds the per-unit emission factors used by the baseline
// estimator, in kg CO2e per input unit. The values shipped as defaults are
// illustrative approximations, not an audited methodology; deployments are
// expected to supply their own pack.
type FactorPack struct {
	// Scope 1: fuel-derived
	NaturalGasKgPerM3 float64 `yaml:"natural_gas_kg_per_m3"`
	FuelKgPerLiter    float64 `yaml:"fuel_kg_per_liter"`
	// Scope 2: electricity-derived
	ElectricityKgPerKWh float64 `yaml:"electricity_kg_per_kwh"`
	// Scope 3: spend-derived
	SpendKgPerUnit float64 `yaml:"spend_kg_per_unit"`
}

// EquivalencyPack holds the conversion constants for offset equivalencies
// (trees planted, retirement cost). Configuration, same caveat as FactorPack.
type EquivalencyPack struct {
	TreesPerTon        float64 `yaml:"trees_per_ton"`
	DefaultPricePerTon float64 `yaml:"default_price_per_ton"`
	CarMilesPerTon     float64 `yaml:"car_miles_per_ton"`
}

// ConfigPack is the on-disk YAML document bundling both packs.
type ConfigPack struct {
	Factors       FactorPack      `yaml:"factors"`
	Equivalencies EquivalencyPack `yaml:"equivalencies"`
}

// DefaultFactors returns the built-in factor pack.
func DefaultFactors() FactorPack {
	return FactorPack{
		NaturalGasKgPerM3:   2.0,
		FuelKgPerLiter:      2.68,
		ElectricityKgPerKWh: 0.4,
		SpendKgPerUnit:      0.5,
	}
}

// DefaultEquivalencies returns the built-in equivalency pack.
func DefaultEquivalencies() EquivalencyPack {
	return EquivalencyPack{
		TreesPerTon:        45,
		DefaultPricePerTon: 15,
		CarMilesPerTon:     2500,
	}
}

// LoadConfigPack reads a YAML pack from path. Missing or zero entries fall
// back to the defaults so a partial pack stays usable.
func LoadConfigPack(path string) (ConfigPack, error) {
	pack := ConfigPack{
		Factors:       DefaultFactors(),
		Equivalencies: DefaultEquivalencies(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return pack, fmt.Errorf("failed to read factor pack: %w", err)
	}

	if err := yaml.Unmarshal(data, &pack); err != nil {
		return pack, fmt.Errorf("failed to parse factor pack: %w", err)
	}

	pack.applyDefaults()

	return pack, nil
}

func (p *ConfigPack) applyDefaults() {
	def := DefaultFactors()
	if p.Factors.NaturalGasKgPerM3 == 0 {
		p.Factors.NaturalGasKgPerM3 = def.NaturalGasKgPerM3
	}
	if p.Factors.FuelKgPerLiter == 0 {
		p.Factors.FuelKgPerLiter = def.FuelKgPerLiter
	}
	if p.Factors.ElectricityKgPerKWh == 0 {
		p.Factors.ElectricityKgPerKWh = def.ElectricityKgPerKWh
	}
	if p.Factors.SpendKgPerUnit == 0 {
		p.Factors.SpendKgPerUnit = def.SpendKgPerUnit
	}

	eq := DefaultEquivalencies()
	if p.Equivalencies.TreesPerTon == 0 {
		p.Equivalencies.TreesPerTon = eq.TreesPerTon
	}
	if p.Equivalencies.DefaultPricePerTon == 0 {
		p.Equivalencies.DefaultPricePerTon = eq.DefaultPricePerTon
	}
	if p.Equivalencies.CarMilesPerTon == 0 {
		p.Equivalencies.CarMilesPerTon = eq.CarMilesPerTon
	}
}
