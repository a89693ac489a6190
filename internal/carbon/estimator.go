package carbon

// CalculationMethod selects how much input detail a baseline estimate was
// built from. The method maps deterministically to a data quality score.
type CalculationMethod string

const (
	MethodQuick    CalculationMethod = "quick"
	MethodHybrid   CalculationMethod = "hybrid"
	MethodDetailed CalculationMethod = "detailed"
)

// QualityScore returns the data quality score for the method. Unknown
// methods fall back to the quick score, keeping estimation best-effort.
func (m CalculationMethod) QualityScore() int {
	switch m {
	case MethodDetailed:
		return 95
	case MethodHybrid:
		return 80
	default:
		return 60
	}
}

// Valid reports whether m is one of the known methods.
func (m CalculationMethod) Valid() bool {
	switch m {
	case MethodQuick, MethodHybrid, MethodDetailed:
		return true
	}
	return false
}

// BaselineInput carries the raw activity quantities for a baseline estimate.
// Fields are pointers so that "not provided" is structurally distinct from
// zero; orZero is the single substitution point for the missing-as-zero
// policy. A blank input is never an error.
type BaselineInput struct {
	NaturalGasM3   *float64 `json:"natural_gas_m3,omitempty"`
	FuelLiters     *float64 `json:"fuel_liters,omitempty"`
	ElectricityKWh *float64 `json:"electricity_kwh,omitempty"`
	AnnualSpend    *float64 `json:"annual_spend,omitempty"`
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// BaselineEstimate is the result of a baseline calculation, in metric tons
// CO2e split across the three scopes.
type BaselineEstimate struct {
	Scope1Tons       float64           `json:"scope1_tons"`
	Scope2Tons       float64           `json:"scope2_tons"`
	Scope3Tons       float64           `json:"scope3_tons"`
	TotalTons        float64           `json:"total_tons"`
	DataQualityScore int               `json:"data_quality_score"`
	Method           CalculationMethod `json:"method"`
}

// Estimator maps raw activity inputs to estimated tons CO2e using a fixed
// factor pack. It mirrors a rough self-service approximation, not an audited
// calculation: missing inputs degrade the estimate instead of failing it.
type Estimator struct {
	factors FactorPack
}

// NewEstimator creates an estimator over the given factor pack.
func NewEstimator(factors FactorPack) *Estimator {
	return &Estimator{factors: factors}
}

// Estimate computes a baseline from the inputs.
//
// Each quantity is multiplied by its factor (kg CO2e per unit), summed per
// scope, and converted to tons by dividing by 1000:
//
//	scope1 = (naturalGas × gasFactor + fuel × fuelFactor) / 1000
//	scope2 = electricity × gridFactor / 1000
//	scope3 = annualSpend × spendFactor / 1000
func (e *Estimator) Estimate(in BaselineInput, method CalculationMethod) BaselineEstimate {
	scope1Kg := orZero(in.NaturalGasM3)*e.factors.NaturalGasKgPerM3 +
		orZero(in.FuelLiters)*e.factors.FuelKgPerLiter
	scope2Kg := orZero(in.ElectricityKWh) * e.factors.ElectricityKgPerKWh
	scope3Kg := orZero(in.AnnualSpend) * e.factors.SpendKgPerUnit

	est := BaselineEstimate{
		Scope1Tons:       KgToTons(scope1Kg),
		Scope2Tons:       KgToTons(scope2Kg),
		Scope3Tons:       KgToTons(scope3Kg),
		Method:           method,
		DataQualityScore: method.QualityScore(),
	}
	est.TotalTons = SumScopes(est.Scope1Tons, est.Scope2Tons, est.Scope3Tons)

	return est
}
