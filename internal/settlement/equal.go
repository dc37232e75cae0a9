package settlement

import "github.com/shopspring/decimal"

// EqualResult is the outcome of an equal split
type EqualResult struct {
	TotalAmount     decimal.Decimal `json:"total_amount"`
	NumPeople       int             `json:"num_people"`
	AmountPerPerson decimal.Decimal `json:"amount_per_person"`
}

// Result converts to the shared wire form
func (r *EqualResult) Result() *Result {
	perPerson := r.AmountPerPerson
	return &Result{
		Method:          MethodEqual,
		TotalAmount:     r.TotalAmount,
		NumPeople:       r.NumPeople,
		AmountPerPerson: &perPerson,
	}
}

// SplitEqual divides total by numPeople, rounding half-up to cents.
//
// The rounded share is not corrected for the remainder: 10.00 split three
// ways is 3.33 each, 9.99 in total. Use DistributeRemainder for shares that
// add up exactly.
func SplitEqual(total decimal.Decimal, numPeople int) (*EqualResult, error) {
	if err := validateEqual(total, numPeople); err != nil {
		return nil, err
	}

	return &EqualResult{
		TotalAmount:     total,
		NumPeople:       numPeople,
		AmountPerPerson: total.Div(decimal.NewFromInt(int64(numPeople))).Round(2),
	}, nil
}

// DistributeRemainder splits total into numPeople cent amounts that differ by
// at most one cent and add up to total rounded to cents. The extra cents go
// to the first shares.
func DistributeRemainder(total decimal.Decimal, numPeople int) ([]decimal.Decimal, error) {
	if err := validateEqual(total, numPeople); err != nil {
		return nil, err
	}

	cents := total.Round(2).Shift(2).IntPart()
	base := cents / int64(numPeople)
	extra := cents % int64(numPeople)

	shares := make([]decimal.Decimal, numPeople)
	for i := range shares {
		share := base
		if int64(i) < extra {
			share++
		}
		shares[i] = decimal.New(share, -2)
	}
	return shares, nil
}

func validateEqual(total decimal.Decimal, numPeople int) error {
	if total.IsNegative() {
		return invalidInput("total amount must not be negative, got %s", total.String())
	}
	if numPeople <= 0 {
		return invalidInput("number of people must be a positive integer, got %d", numPeople)
	}
	return nil
}
