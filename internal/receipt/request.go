package receipt

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-splitter/internal/settlement"
)

// SplitRequest is the body of a split request for a stored receipt
type SplitRequest struct {
	Method      settlement.Method `json:"method"`
	People      int               `json:"people,omitempty"`
	Assignments map[string][]int  `json:"assignments,omitempty"`
	Unassigned  string            `json:"unassigned,omitempty"`

	// Adjustments are accepted on the wire but not supported yet
	Tax      *decimal.Decimal `json:"tax,omitempty"`
	Tip      *decimal.Decimal `json:"tip,omitempty"`
	Discount *decimal.Decimal `json:"discount,omitempty"`
}

// Policy converts the request into a settlement policy
func (r SplitRequest) Policy() (settlement.Policy, error) {
	if r.Tax != nil || r.Tip != nil || r.Discount != nil {
		return nil, fmt.Errorf("%w: tax, tip and discount adjustments", settlement.ErrUnimplemented)
	}

	switch r.Method {
	case settlement.MethodEqual:
		return settlement.Equal{NumPeople: r.People}, nil
	case settlement.MethodProportional:
		unassigned, err := settlement.ParseUnassignedPolicy(r.Unassigned)
		if err != nil {
			return nil, err
		}
		return settlement.Proportional{Assignments: r.Assignments, Unassigned: unassigned}, nil
	case "":
		return nil, fmt.Errorf("%w: split method is required", settlement.ErrInvalidInput)
	default:
		return nil, fmt.Errorf("%w: split method %q", settlement.ErrUnimplemented, r.Method)
	}
}

// ItemsRequest replaces the items of a receipt
type ItemsRequest struct {
	Items       []ItemInput      `json:"items"`
	TotalAmount *decimal.Decimal `json:"total_amount,omitempty"`
}

// ItemInput is one user-entered line item. Quantity defaults to 1.
type ItemInput struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity,omitempty"`
}
