package interpret

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("parseAmount", func() {
	separators := DefaultConfig().DecimalSeparators

	DescribeTable("valid tokens",
		func(token, want string) {
			amount, ok := parseAmount(token, separators)
			Expect(ok).To(BeTrue())
			Expect(amount.StringFixed(2)).To(Equal(want))
		},
		Entry("period decimal", "2.50", "2.50"),
		Entry("comma decimal", "3,70", "3.70"),
		Entry("integer", "12", "12.00"),
		Entry("comma grouping with period decimal", "1,234.56", "1234.56"),
		Entry("period grouping with comma decimal", "1.234,56", "1234.56"),
		Entry("repeated grouping", "1,234,567", "1234567.00"),
		Entry("single ambiguous separator is a decimal point", "1,234", "1.23"),
		Entry("trailing separator", "5.", "5.00"),
		Entry("leading separator", ".75", "0.75"),
	)

	DescribeTable("invalid tokens",
		func(token string) {
			_, ok := parseAmount(token, separators)
			Expect(ok).To(BeFalse())
		},
		Entry("separators only", ".,."),
		Entry("empty", ""),
		Entry("letters", "12a"),
	)
})

var _ = Describe("TotalRule", func() {
	rule := TotalRule(DefaultConfig())

	DescribeTable("matching lines",
		func(line, want string) {
			classified, ok := rule.Classify(line)
			Expect(ok).To(BeTrue())
			Expect(classified.Kind).To(Equal(KindTotal))
			Expect(classified.Amount.StringFixed(2)).To(Equal(want))
		},
		Entry("plain", "TOTAL 3.70", "3.70"),
		Entry("with colon", "Total: 3,70", "3.70"),
		Entry("with trailing words", "AMOUNT DUE EUR 12.00", "12.00"),
		Entry("russian", "ВСЕГО 99,99", "99.99"),
		Entry("lower case russian", "итого 10", "10.00"),
	)

	DescribeTable("non-matching lines",
		func(line string) {
			_, ok := rule.Classify(line)
			Expect(ok).To(BeFalse())
		},
		Entry("keyword not at start", "Subtotal 3.70"),
		Entry("keyword prefix of a word", "TOTALS 3.70"),
		Entry("no amount", "TOTAL"),
		Entry("no space before amount", "TOTAL:3.70"),
		Entry("unparseable amount", "TOTAL ..."),
	)
})

var _ = Describe("ItemRule", func() {
	rule := ItemRule(DefaultConfig())

	It("should split the name from the trailing price", func() {
		classified, ok := rule.Classify("Coca Cola 0,5 L 1.20")
		Expect(ok).To(BeTrue())
		Expect(classified.Kind).To(Equal(KindItem))
		Expect(classified.Name).To(Equal("Coca Cola 0,5 L"))
		Expect(classified.Amount.StringFixed(2)).To(Equal("1.20"))
	})

	It("should accept no-break spaces before the price", func() {
		classified, ok := rule.Classify("Bread\u00a02.50")
		Expect(ok).To(BeTrue())
		Expect(classified.Name).To(Equal("Bread"))
	})

	It("should not match a bare amount", func() {
		_, ok := rule.Classify("5.00")
		Expect(ok).To(BeFalse())
	})

	It("should not match text followed by letters", func() {
		_, ok := rule.Classify("Bread 2.50 A")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("AmountRule", func() {
	rule := AmountRule(DefaultConfig())

	It("should match a bare amount", func() {
		classified, ok := rule.Classify("5,00")
		Expect(ok).To(BeTrue())
		Expect(classified.Kind).To(Equal(KindAmount))
		Expect(classified.Amount.StringFixed(2)).To(Equal("5.00"))
	})

	It("should not match text", func() {
		_, ok := rule.Classify("Bread 5.00")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Rejections", func() {
	keyword := KeywordNameRejection(DefaultConfig())
	numeric := NumericNameRejection()

	It("should reject names equal to a keyword in any case", func() {
		Expect(keyword.Reject("total")).To(BeTrue())
		Expect(keyword.Reject("Итого")).To(BeTrue())
		Expect(keyword.Reject("Total due")).To(BeFalse())
	})

	It("should reject names without letters", func() {
		Expect(numeric.Reject("12")).To(BeTrue())
		Expect(numeric.Reject("1,5 - #")).To(BeTrue())
		Expect(numeric.Reject("$")).To(BeTrue())
		Expect(numeric.Reject("2x Milk")).To(BeFalse())
	})
})

var _ = Describe("ParseKeywords", func() {
	It("should split and trim a comma-separated list", func() {
		Expect(ParseKeywords(" TOTAL, ИТОГО ,,SUM")).To(Equal([]string{"TOTAL", "ИТОГО", "SUM"}))
	})

	It("should return nil for an empty list", func() {
		Expect(ParseKeywords("")).To(BeNil())
	})
})
