package adapters

// NewColombiaAdapter canonicalizes Colombian numbers: 10-digit national
// numbers behind country code 57.
func NewColombiaAdapter() *PrefixAdapter {
	return &PrefixAdapter{
		region:      "CO",
		countryCode: "57",
		nationalLen: 10,
	}
}

// GenericAdapter is the fallback for unknown regions
type GenericAdapter struct{}

// NewGenericAdapter creates the pass-through adapter
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

// Region returns an empty region code
func (a *GenericAdapter) Region() string {
	return ""
}

// Canonicalize returns digits unmodified
func (a *GenericAdapter) Canonicalize(digits string) string {
	return digits
}
