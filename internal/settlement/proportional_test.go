package settlement_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-splitter/internal/interpret"
	"github.com/zombor/receipt-splitter/internal/settlement"
)

func item(name, price string, quantity int) interpret.LineItem {
	return interpret.LineItem{Name: name, Price: dec(price), Quantity: quantity}
}

func owedStrings(owed map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(owed))
	for person, amount := range owed {
		out[person] = amount.StringFixed(2)
	}
	return out
}

func sumOwed(owed map[string]decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, amount := range owed {
		sum = sum.Add(amount)
	}
	return sum
}

var _ = Describe("SplitProportional", func() {
	var (
		items       []interpret.LineItem
		assignments map[string][]int
		policy      settlement.UnassignedPolicy
		result      *settlement.ProportionalResult
		err         error
	)

	BeforeEach(func() {
		items = []interpret.LineItem{
			item("Pizza", "20.00", 1),
			item("Salad", "10.00", 1),
			item("Beer", "4.50", 2),
		}
		policy = settlement.ShareUnassigned
	})

	JustBeforeEach(func() {
		result, err = settlement.SplitProportional(items, assignments, policy)
	})

	When("every item is assigned", func() {
		BeforeEach(func() {
			assignments = map[string][]int{
				"Alice": {0, 1},
				"Bob":   {0, 2},
			}
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should split shared items and charge price times quantity", func() {
			Expect(owedStrings(result.OwedByPerson)).To(Equal(map[string]string{
				"Alice": "20.00",
				"Bob":   "19.00",
			}))
		})

		It("should compute the total from the items", func() {
			Expect(result.TotalAmount.StringFixed(2)).To(Equal("39.00"))
		})

		It("should report nothing unassigned", func() {
			Expect(result.UnassignedItems).To(BeEmpty())
			Expect(result.UnassignedAmount.IsZero()).To(BeTrue())
		})
	})

	When("an item is shared three ways", func() {
		BeforeEach(func() {
			items = []interpret.LineItem{item("Cake", "10.00", 1)}
			assignments = map[string][]int{
				"Carol": {0},
				"Alice": {0},
				"Bob":   {0},
			}
		})

		It("should conserve every cent", func() {
			Expect(owedStrings(result.OwedByPerson)).To(Equal(map[string]string{
				"Alice": "3.34",
				"Bob":   "3.33",
				"Carol": "3.33",
			}))
			Expect(sumOwed(result.OwedByPerson).Equal(result.TotalAmount)).To(BeTrue())
		})
	})

	When("an item is unassigned and the policy is share", func() {
		BeforeEach(func() {
			assignments = map[string][]int{
				"Alice": {0},
				"Bob":   {1},
			}
		})

		It("should spread it across everyone", func() {
			Expect(owedStrings(result.OwedByPerson)).To(Equal(map[string]string{
				"Alice": "24.50",
				"Bob":   "14.50",
			}))
		})
	})

	When("an item is unassigned and the policy is flag", func() {
		BeforeEach(func() {
			policy = settlement.FlagUnassigned
			assignments = map[string][]int{
				"Alice": {0},
				"Bob":   {1},
			}
		})

		It("should list the item and its cost", func() {
			Expect(result.UnassignedItems).To(Equal([]int{2}))
			Expect(result.UnassignedAmount.StringFixed(2)).To(Equal("9.00"))
		})

		It("should not charge anyone for it", func() {
			Expect(owedStrings(result.OwedByPerson)).To(Equal(map[string]string{
				"Alice": "20.00",
				"Bob":   "10.00",
			}))
		})

		It("should still account for the whole total", func() {
			Expect(sumOwed(result.OwedByPerson).Add(result.UnassignedAmount).Equal(result.TotalAmount)).To(BeTrue())
		})
	})

	When("a person references the same item twice", func() {
		BeforeEach(func() {
			assignments = map[string][]int{
				"Alice": {0, 0, 1, 2},
				"Bob":   {0},
			}
		})

		It("should count the reference once", func() {
			Expect(owedStrings(result.OwedByPerson)).To(Equal(map[string]string{
				"Alice": "29.00",
				"Bob":   "10.00",
			}))
		})
	})

	When("a person has no items", func() {
		BeforeEach(func() {
			assignments = map[string][]int{
				"Alice": {0, 1, 2},
				"Dave":  {},
			}
		})

		It("should owe nothing", func() {
			Expect(owedStrings(result.OwedByPerson)).To(HaveKeyWithValue("Dave", "0.00"))
			Expect(owedStrings(result.OwedByPerson)).To(HaveKeyWithValue("Alice", "39.00"))
		})
	})

	When("an assignment references an item past the end", func() {
		BeforeEach(func() {
			assignments = map[string][]int{
				"Alice": {0},
				"Bob":   {1, 7},
			}
		})

		It("should return invalid assignment", func() {
			Expect(err).To(MatchError(settlement.ErrInvalidAssignment))
			Expect(result).To(BeNil())
		})

		It("should name the person and the reference", func() {
			var assignErr *settlement.AssignmentError
			Expect(errors.As(err, &assignErr)).To(BeTrue())
			Expect(assignErr.Person).To(Equal("Bob"))
			Expect(assignErr.Ref).To(Equal(7))
			Expect(err.Error()).To(ContainSubstring(`"Bob"`))
			Expect(err.Error()).To(ContainSubstring("item 7"))
		})
	})

	When("an assignment references a negative index", func() {
		BeforeEach(func() {
			assignments = map[string][]int{"Alice": {-1}}
		})

		It("should return invalid assignment", func() {
			Expect(err).To(MatchError(settlement.ErrInvalidAssignment))
		})
	})

	When("there are no items and an assignment references one", func() {
		BeforeEach(func() {
			items = nil
			assignments = map[string][]int{"Alice": {0}}
		})

		It("should return invalid assignment", func() {
			Expect(err).To(MatchError(settlement.ErrInvalidAssignment))
		})
	})

	When("there are no people", func() {
		BeforeEach(func() {
			assignments = map[string][]int{}
		})

		It("should return invalid input", func() {
			Expect(err).To(MatchError(settlement.ErrInvalidInput))
		})
	})

	When("a person name is blank", func() {
		BeforeEach(func() {
			assignments = map[string][]int{"  ": {0}}
		})

		It("should return invalid input", func() {
			Expect(err).To(MatchError(settlement.ErrInvalidInput))
		})
	})

	When("an item has no quantity", func() {
		BeforeEach(func() {
			items = []interpret.LineItem{item("Pizza", "20.00", 0)}
			assignments = map[string][]int{"Alice": {0}}
		})

		It("should return invalid input", func() {
			Expect(err).To(MatchError(settlement.ErrInvalidInput))
		})
	})

	When("the unassigned policy is unknown", func() {
		BeforeEach(func() {
			policy = settlement.UnassignedPolicy("ignore")
			assignments = map[string][]int{"Alice": {0}}
		})

		It("should return invalid input", func() {
			Expect(err).To(MatchError(settlement.ErrInvalidInput))
		})
	})
})

var _ = Describe("Settle", func() {
	items := []interpret.LineItem{
		item("Bread", "2.50", 1),
		item("Milk", "1.20", 1),
	}

	It("should split the parsed total equally", func() {
		total := dec("10.00")
		res, err := settlement.Settle(settlement.Equal{NumPeople: 3}, &total, items)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Method).To(Equal(settlement.MethodEqual))
		Expect(res.NumPeople).To(Equal(3))
		Expect(res.AmountPerPerson.StringFixed(2)).To(Equal("3.33"))
		Expect(res.OwedByPerson).To(BeNil())
	})

	It("should fall back to the item sum when the total is absent", func() {
		res, err := settlement.Settle(settlement.Equal{NumPeople: 2}, nil, items)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.TotalAmount.StringFixed(2)).To(Equal("3.70"))
		Expect(res.AmountPerPerson.StringFixed(2)).To(Equal("1.85"))
	})

	It("should fail when there is neither a total nor items", func() {
		_, err := settlement.Settle(settlement.Equal{NumPeople: 2}, nil, nil)
		Expect(err).To(MatchError(settlement.ErrInvalidInput))
	})

	It("should run a proportional split", func() {
		res, err := settlement.Settle(settlement.Proportional{Assignments: map[string][]int{"Alice": {0}, "Bob": {1}}}, nil, items)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Method).To(Equal(settlement.MethodProportional))
		Expect(owedStrings(res.OwedByPerson)).To(Equal(map[string]string{"Alice": "2.50", "Bob": "1.20"}))
		Expect(res.AmountPerPerson).To(BeNil())
	})

	It("should surface proportional errors", func() {
		_, err := settlement.Settle(settlement.Proportional{Assignments: map[string][]int{"Alice": {5}}}, nil, items)
		Expect(err).To(MatchError(settlement.ErrInvalidAssignment))
	})

	It("should reject a missing policy", func() {
		_, err := settlement.Settle(nil, nil, items)
		Expect(err).To(MatchError(settlement.ErrInvalidInput))
	})

	It("should report unknown policies as unimplemented", func() {
		_, err := settlement.Settle(byWeight{}, nil, items)
		Expect(err).To(MatchError(settlement.ErrUnimplemented))
	})
})

var _ = Describe("ParseUnassignedPolicy", func() {
	It("should default to share", func() {
		p, err := settlement.ParseUnassignedPolicy("")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(settlement.ShareUnassigned))
	})

	It("should accept flag", func() {
		p, err := settlement.ParseUnassignedPolicy("flag")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(settlement.FlagUnassigned))
	})

	It("should reject anything else", func() {
		_, err := settlement.ParseUnassignedPolicy("drop")
		Expect(err).To(MatchError(settlement.ErrInvalidInput))
	})
})

type byWeight struct{}

func (byWeight) Method() settlement.Method { return "by_weight" }
