package llms

// Per-token impact coefficients for hosted inference, derived from published
// lifecycle estimates for mid-sized dense models. The spread between min and
// max reflects datacenter efficiency variance.
const (
	gwpPerTokenMin = 1.1e-6 // kgCO2eq
	gwpPerTokenMax = 4.8e-6
	wcfPerTokenMin = 9.0e-6 // liters
	wcfPerTokenMax = 4.2e-5
)

// EstimateImpacts returns environmental impact estimates for a completion
// that used the given number of tokens.
func EstimateImpacts(tokens int) *Impacts {
	n := float64(tokens)
	return &Impacts{
		GWP: Impact{Min: n * gwpPerTokenMin, Max: n * gwpPerTokenMax, Unit: "kgCO2eq"},
		WCF: Impact{Min: n * wcfPerTokenMin, Max: n * wcfPerTokenMax, Unit: "L"},
	}
}
