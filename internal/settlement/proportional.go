package settlement

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-splitter/internal/interpret"
)

// ProportionalResult is the outcome of a proportional split.
// OwedByPerson plus UnassignedAmount always adds up to TotalAmount.
type ProportionalResult struct {
	TotalAmount      decimal.Decimal            `json:"total_amount"`
	OwedByPerson     map[string]decimal.Decimal `json:"owed_by_person"`
	UnassignedItems  []int                      `json:"unassigned_items"`
	UnassignedAmount decimal.Decimal            `json:"unassigned_amount"`
}

// Result converts to the shared wire form
func (r *ProportionalResult) Result() *Result {
	res := &Result{
		Method:       MethodProportional,
		TotalAmount:  r.TotalAmount,
		OwedByPerson: r.OwedByPerson,
	}
	if len(r.UnassignedItems) > 0 {
		amount := r.UnassignedAmount
		res.UnassignedItems = r.UnassignedItems
		res.UnassignedAmount = &amount
	}
	return res
}

// SplitProportional charges each person for the items assigned to them.
//
// An item assigned to several people is divided equally between them.
// Items nobody claimed are spread across everyone (ShareUnassigned) or
// reported separately (FlagUnassigned). TotalAmount is the sum of the items
// and does not depend on any parsed total. Amounts are rounded to cents so
// that they add up exactly; leftover cents go to the largest remainders.
func SplitProportional(items []interpret.LineItem, assignments map[string][]int, unassigned UnassignedPolicy) (*ProportionalResult, error) {
	if len(assignments) == 0 {
		return nil, invalidInput("at least one person is required")
	}
	if unassigned == "" {
		unassigned = ShareUnassigned
	}
	if unassigned != ShareUnassigned && unassigned != FlagUnassigned {
		return nil, invalidInput("unknown unassigned item policy %q", unassigned)
	}

	people := make([]string, 0, len(assignments))
	for person := range assignments {
		if strings.TrimSpace(person) == "" {
			return nil, invalidInput("person name must not be empty")
		}
		people = append(people, person)
	}
	sort.Strings(people)

	for i, item := range items {
		if item.Price.IsNegative() {
			return nil, invalidInput("item %d (%s) has a negative price", i, item.Name)
		}
		if item.Quantity < 1 {
			return nil, invalidInput("item %d (%s) has quantity %d", i, item.Name, item.Quantity)
		}
	}

	// holders[i] lists who shares item i, each person at most once
	holders := make([][]string, len(items))
	for _, person := range people {
		seen := make(map[int]bool, len(assignments[person]))
		for _, ref := range assignments[person] {
			if ref < 0 || ref >= len(items) {
				return nil, &AssignmentError{Person: person, Ref: ref, NumItems: len(items)}
			}
			if seen[ref] {
				continue
			}
			seen[ref] = true
			holders[ref] = append(holders[ref], person)
		}
	}

	exact := make(map[string]decimal.Decimal, len(people))
	unassignedItems := make([]int, 0)
	unassignedAmount := decimal.Zero
	for i, item := range items {
		cost := item.Cost()
		sharers := holders[i]
		if len(sharers) == 0 {
			if unassigned == FlagUnassigned {
				unassignedItems = append(unassignedItems, i)
				unassignedAmount = unassignedAmount.Add(cost)
				continue
			}
			sharers = people
		}
		share := cost.Div(decimal.NewFromInt(int64(len(sharers))))
		for _, person := range sharers {
			exact[person] = exact[person].Add(share)
		}
	}

	total := interpret.SumCost(items).Round(2)
	unassignedAmount = unassignedAmount.Round(2)

	return &ProportionalResult{
		TotalAmount:      total,
		OwedByPerson:     allocateCents(people, exact, total.Sub(unassignedAmount)),
		UnassignedItems:  unassignedItems,
		UnassignedAmount: unassignedAmount,
	}, nil
}

// allocateCents rounds every exact share down to cents, then hands the
// cents still missing from target to the largest remainders. Ties go to
// people in sorted order.
func allocateCents(people []string, exact map[string]decimal.Decimal, target decimal.Decimal) map[string]decimal.Decimal {
	type remainder struct {
		person string
		amount decimal.Decimal
	}

	owed := make(map[string]decimal.Decimal, len(people))
	remainders := make([]remainder, 0, len(people))
	allocated := decimal.Zero
	for _, person := range people {
		floor := exact[person].RoundFloor(2)
		owed[person] = floor
		allocated = allocated.Add(floor)
		remainders = append(remainders, remainder{person: person, amount: exact[person].Sub(floor)})
	}

	sort.SliceStable(remainders, func(i, j int) bool {
		return remainders[i].amount.GreaterThan(remainders[j].amount)
	})

	cent := decimal.New(1, -2)
	missing := target.Sub(allocated).Shift(2).IntPart()
	for i := 0; i < int(missing) && i < len(remainders); i++ {
		person := remainders[i].person
		owed[person] = owed[person].Add(cent)
	}
	return owed
}
