// Package settlement divides a receipt's cost among a group of people.
//
// Two policies exist: an equal split of the total by head count, and a
// proportional split that charges each person for the items they were
// assigned. Every function here is pure and safe for concurrent use.
package settlement

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-splitter/internal/interpret"
)

// Method names a split policy
type Method string

const (
	MethodEqual        Method = "equal"
	MethodProportional Method = "proportional"
)

// Policy selects how a receipt is split. Equal and Proportional are the
// supported variants; anything else is reported as ErrUnimplemented.
type Policy interface {
	Method() Method
}

// Equal splits the total evenly by head count
type Equal struct {
	NumPeople int
}

// Method implements Policy
func (Equal) Method() Method { return MethodEqual }

// Proportional charges each person for the items they consumed.
// Assignments maps a person to indexes into the receipt's item list.
type Proportional struct {
	Assignments map[string][]int
	Unassigned  UnassignedPolicy
}

// Method implements Policy
func (Proportional) Method() Method { return MethodProportional }

// UnassignedPolicy decides what happens to items nobody claimed
type UnassignedPolicy string

const (
	// ShareUnassigned spreads unclaimed items equally across everyone
	ShareUnassigned UnassignedPolicy = "share"
	// FlagUnassigned leaves unclaimed items out of everyone's share and lists them
	FlagUnassigned UnassignedPolicy = "flag"
)

// ParseUnassignedPolicy accepts "", "share" or "flag"; "" means share
func ParseUnassignedPolicy(s string) (UnassignedPolicy, error) {
	switch UnassignedPolicy(s) {
	case "", ShareUnassigned:
		return ShareUnassigned, nil
	case FlagUnassigned:
		return FlagUnassigned, nil
	default:
		return "", invalidInput("unknown unassigned item policy %q", s)
	}
}

// Result is the wire form of either settlement variant
type Result struct {
	Method           Method                     `json:"split_method"`
	TotalAmount      decimal.Decimal            `json:"total_amount"`
	NumPeople        int                        `json:"num_people,omitempty"`
	AmountPerPerson  *decimal.Decimal           `json:"amount_per_person,omitempty"`
	OwedByPerson     map[string]decimal.Decimal `json:"owed_by_person,omitempty"`
	UnassignedItems  []int                      `json:"unassigned_items,omitempty"`
	UnassignedAmount *decimal.Decimal           `json:"unassigned_amount,omitempty"`
}

// Settle runs the split described by policy. total is the receipt's parsed
// total and may be nil; an equal split then falls back to the item sum.
func Settle(policy Policy, total *decimal.Decimal, items []interpret.LineItem) (*Result, error) {
	switch p := policy.(type) {
	case nil:
		return nil, invalidInput("no split policy given")
	case Equal:
		amount := total
		if amount == nil {
			if len(items) == 0 {
				return nil, invalidInput("receipt has no total and no items")
			}
			sum := interpret.SumCost(items)
			slog.Warn("No parsed total, splitting the item sum", "items", len(items), "total", sum.String())
			amount = &sum
		}
		res, err := SplitEqual(*amount, p.NumPeople)
		if err != nil {
			return nil, err
		}
		return res.Result(), nil
	case Proportional:
		res, err := SplitProportional(items, p.Assignments, p.Unassigned)
		if err != nil {
			return nil, err
		}
		return res.Result(), nil
	default:
		return nil, fmt.Errorf("%w: split method %q", ErrUnimplemented, policy.Method())
	}
}
