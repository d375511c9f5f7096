package engine

// Verdict is the result of comparing an observed burn cost against the
// operator's ceiling.
type Verdict int

const (
	Wait Verdict = iota
	Proceed
)

func (v Verdict) String() string {
	if v == Proceed {
		return "proceed"
	}
	return "wait"
}

// Evaluate decides whether the observed burn cost is acceptable. A cost
// equal to the ceiling is acceptable.
func Evaluate(observed, ceiling uint64) Verdict {
	if observed <= ceiling {
		return Proceed
	}
	return Wait
}
