package chart

// Acute marker opacity scales linearly with the number of lab tests behind a
// score: at or below MinTests the marker is nearly transparent, at or above
// MaxTests it is opaque.
const (
	MinTests   = 10
	MaxTests   = 25
	MinOpacity = 0.05
	MaxOpacity = 1.0
)

// MarkerOpacity maps a test count into [MinOpacity, MaxOpacity].
func MarkerOpacity(numTests int) float64 {
	n := numTests
	if n < MinTests {
		n = MinTests
	}
	if n > MaxTests {
		n = MaxTests
	}
	return MinOpacity + float64(n-MinTests)/float64(MaxTests-MinTests)*(MaxOpacity-MinOpacity)
}

// MarkerOpacities maps every test count.
func MarkerOpacities(numTests []int) []float64 {
	out := make([]float64, len(numTests))
	for i, n := range numTests {
		out[i] = MarkerOpacity(n)
	}
	return out
}
