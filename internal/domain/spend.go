package domain

// SpendRecord is advisory metadata attached to a deduction for audit and
// logging. Its absence never blocks the deduction itself.
type SpendRecord struct {
	Amount     int
	Model      string
	BaseCost   int
	Multiplier float64
	Scene      int
	Region     string
}
