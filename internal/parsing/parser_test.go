package parsing

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-reader/internal/dates"
)

var _ = Describe("Engine", func() {
	var (
		engine   *Engine
		clock    mockClock
		recorder *mockRecorder
		order    dates.Order
		minConf  float64
	)

	BeforeEach(func() {
		clock = mockClock{now: time.Date(2025, 1, 20, 9, 30, 0, 0, time.UTC)}
		recorder = &mockRecorder{}
		order = dates.MDY
		minConf = 0
	})

	JustBeforeEach(func() {
		engine = NewEngine(Options{
			DateOrder:     order,
			MinConfidence: minConf,
			Clock:         clock,
			Recorder:      recorder,
		})
	})

	Describe("Parse", func() {
		var (
			text   string
			result *ParsedReceipt
			err    error
		)

		JustBeforeEach(func() {
			result, err = engine.Parse(text)
		})

		When("the text is empty", func() {
			BeforeEach(func() {
				text = "   \n\t "
			})

			It("should return ErrEmptyInput", func() {
				Expect(err).To(MatchError(ErrEmptyInput))
				Expect(result).To(BeNil())
			})
		})

		When("the text is a simple receipt", func() {
			BeforeEach(func() {
				text = "SuperMart\n01/15/2024\nMilk $3.50\nBread $2.25\nTotal $5.75"
			})

			It("should extract every field", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Store()).To(Equal("SuperMart"))
				Expect(result.Date).To(Equal("2024-01-15"))
				Expect(result.Items).To(HaveLen(2))
				Expect(result.Items[0].Name).To(Equal("Milk"))
				Expect(result.Items[1].Name).To(Equal("Bread"))
				Expect(result.Total.StringFixed(2)).To(Equal("5.75"))
				Expect(result.RawText).To(Equal(text))
			})

			It("should not decide review", func() {
				Expect(result.NeedsReview).To(BeFalse())
				Expect(result.ReviewReason).To(BeEmpty())
			})

			It("should record its decisions", func() {
				Expect(recorder.events).To(ContainElements("parse.start", "field.store_name", "field.date", "field.item", "field.total", "parse.done"))
			})
		})

		When("the same item appears twice", func() {
			BeforeEach(func() {
				text = "Shop\nMilk $3.50\nMilk $3.50"
			})

			It("should merge them", func() {
				Expect(result.Items).To(HaveLen(1))
				Expect(result.Items[0].Quantity).To(Equal(2))
			})
		})

		When("a sub total comes before the grand total", func() {
			BeforeEach(func() {
				text = "Shop\nSub Total $5.00\nTax $0.40\nGrand Total $5.40"
			})

			It("should let the later strong line win", func() {
				Expect(result.Total.StringFixed(2)).To(Equal("5.40"))
				Expect(result.Subtotal.StringFixed(2)).To(Equal("5.00"))
				Expect(result.Tax.StringFixed(2)).To(Equal("0.40"))
			})
		})

		When("several tax lines are present", func() {
			BeforeEach(func() {
				text = "Shop\nTax $0.40\nTax $0.55"
			})

			It("should keep the last", func() {
				Expect(result.Tax.StringFixed(2)).To(Equal("0.55"))
			})
		})

		When("several dates are present", func() {
			BeforeEach(func() {
				text = "Shop\n01/10/2024\n01/12/2024"
			})

			It("should keep the first line's date", func() {
				Expect(result.Date).To(Equal("2024-01-10"))
			})
		})

		When("the store name is below the first five lines", func() {
			BeforeEach(func() {
				text = "123\n456\n789\n01/15/2024\n$1.00\nSuperMart"
			})

			It("should not use it", func() {
				Expect(result.StoreName).To(BeNil())
			})
		})

		When("an item's price is on its own line", func() {
			BeforeEach(func() {
				text = "Shop\nOrganic Eggs\n$4.99\nTotal $4.99"
			})

			It("should pair them", func() {
				Expect(result.Items).To(HaveLen(1))
				Expect(result.Items[0].Name).To(Equal("Organic Eggs"))
				Expect(result.Items[0].Price.StringFixed(2)).To(Equal("4.99"))
			})
		})

		When("the text has a receipt number", func() {
			BeforeEach(func() {
				text = "Shop\nReceipt #A12345\nReceipt #B99999"
			})

			It("should keep the first", func() {
				Expect(*result.ReceiptNumber).To(Equal("A12345"))
			})
		})

		When("the text uses full width digits", func() {
			BeforeEach(func() {
				text = "Shop\nMilk $３.５０"
			})

			It("should fold them before matching", func() {
				Expect(result.Items).To(HaveLen(1))
				Expect(result.Items[0].Price.StringFixed(2)).To(Equal("3.50"))
			})
		})

		When("the date order prefers the day", func() {
			BeforeEach(func() {
				order = dates.DMY
				text = "Shop\n03/04/2024"
			})

			It("should read the first number as the day", func() {
				Expect(result.Date).To(Equal("2024-04-03"))
			})
		})
	})

	Describe("ParseWithHint", func() {
		It("should prefer a valid hint", func() {
			result, err := engine.ParseWithHint("Shop\n01/10/2024", "2024-01-12")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Date).To(Equal("2024-01-12"))
		})

		It("should fall back to the text when the hint is unreadable", func() {
			result, err := engine.ParseWithHint("Shop\n01/10/2024", "sometime")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Date).To(Equal("2024-01-10"))
		})
	})

	Describe("Validate", func() {
		var (
			draft  *ParsedReceipt
			result *ParsedReceipt
		)

		JustBeforeEach(func() {
			result = engine.Validate(draft)
		})

		When("nothing could be read", func() {
			BeforeEach(func() {
				var err error
				draft, err = NewEngine(Options{Clock: clock}).Parse("RANDOM NOISE 123")
				Expect(err).NotTo(HaveOccurred())
			})

			It("should fill in defaults and flag both", func() {
				Expect(result.Store()).To(Equal(UnknownStore))
				Expect(result.Date).To(Equal("2025-01-20"))
				Expect(result.NeedsReview).To(BeTrue())
				Expect(result.ReviewReason).To(Equal(ReasonNoDate + "; " + ReasonNoStore))
			})

			It("should not modify the draft", func() {
				Expect(draft.StoreName).To(BeNil())
				Expect(draft.Date).To(BeEmpty())
				Expect(draft.NeedsReview).To(BeFalse())
			})
		})

		When("the items do not add up to the total", func() {
			BeforeEach(func() {
				total := decimal.RequireFromString("20.00")
				store := "Shop"
				draft = &ParsedReceipt{
					StoreName: &store,
					Date:      "2025-01-02",
					Total:     &total,
					Items: []LineItem{
						{Name: "A", Price: decimal.RequireFromString("5.00"), Quantity: 1},
						{Name: "B", Price: decimal.RequireFromString("3.00"), Quantity: 1},
					},
				}
			})

			It("should flag the mismatch", func() {
				Expect(result.NeedsReview).To(BeTrue())
				Expect(result.ReviewReason).To(ContainSubstring(ReasonItemsMismatch))
			})
		})

		When("the items are within 30% of the total", func() {
			BeforeEach(func() {
				total := decimal.RequireFromString("10.00")
				store := "Shop"
				draft = &ParsedReceipt{
					StoreName: &store,
					Date:      "2025-01-02",
					Total:     &total,
					Items: []LineItem{
						{Name: "A", Price: decimal.RequireFromString("8.00"), Quantity: 1},
					},
				}
			})

			It("should not flag", func() {
				Expect(result.NeedsReview).To(BeFalse())
			})
		})

		When("there are no items", func() {
			BeforeEach(func() {
				total := decimal.RequireFromString("10.00")
				store := "Shop"
				draft = &ParsedReceipt{StoreName: &store, Date: "2025-01-02", Total: &total}
			})

			It("should not flag a mismatch", func() {
				Expect(result.NeedsReview).To(BeFalse())
				Expect(result.Items).To(BeEmpty())
			})
		})

		When("a confidence threshold is configured", func() {
			BeforeEach(func() {
				minConf = 60
				store := "Shop"
				draft = &ParsedReceipt{StoreName: &store, Date: "2025-01-02", OCRConfidence: 42}
			})

			It("should flag low confidence receipts", func() {
				Expect(result.NeedsReview).To(BeTrue())
				Expect(result.ReviewReason).To(Equal(ReasonLowConfidence))
			})
		})

		When("duplicates reach the validator", func() {
			BeforeEach(func() {
				store := "Shop"
				draft = &ParsedReceipt{
					StoreName: &store,
					Date:      "2025-01-02",
					Items: []LineItem{
						{Name: "Milk", Price: decimal.RequireFromString("3.50"), Quantity: 1},
						{Name: "Bread", Price: decimal.RequireFromString("2.25"), Quantity: 1},
						{Name: "Milk", Price: decimal.RequireFromString("3.5"), Quantity: 1},
					},
				}
			})

			It("should merge them in first seen order", func() {
				Expect(result.Items).To(HaveLen(2))
				Expect(result.Items[0].Name).To(Equal("Milk"))
				Expect(result.Items[0].Quantity).To(Equal(2))
				Expect(result.Items[1].Name).To(Equal("Bread"))
			})
		})

		DescribeTable("idempotence",
			func(text string) {
				draft, err := engine.Parse(text)
				Expect(err).NotTo(HaveOccurred())
				once := engine.Validate(draft)
				twice := engine.Validate(once)
				Expect(twice).To(Equal(once))
			},
			Entry("clean receipt", "SuperMart\n01/15/2024\nMilk $3.50\nBread $2.25\nTotal $5.75"),
			Entry("noise", "RANDOM NOISE 123"),
			Entry("mismatch", "Shop\n01/15/2024\nApples $5.00\nBread $3.00\nTotal $20.00"),
			Entry("duplicates", "Shop\nMilk $3.50\nMilk $3.50\nTotal $7.00"),
		)
	})

	Describe("Process", func() {
		It("should parse, score and validate", func() {
			result, err := engine.Process(Input{
				Text:             "SuperMart\n01/15/2024\nMilk $3.50\nBread $2.25\nTotal $5.75",
				EngineConfidence: 90,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Store()).To(Equal("SuperMart"))
			Expect(result.Date).To(Equal("2024-01-15"))
			Expect(result.Items).To(HaveLen(2))
			Expect(result.Total.StringFixed(2)).To(Equal("5.75"))
			Expect(result.NeedsReview).To(BeFalse())
			Expect(result.OCRConfidence).To(BeNumerically(">", 0))
			Expect(result.OCRConfidence).To(BeNumerically("<=", 100))
		})

		It("should report the engine confidence unchanged", func() {
			result, err := engine.Process(Input{
				Text:             "SuperMart\n01/15/2024\nMilk $3.50\nBread $2.25\nTotal $5.75",
				EngineConfidence: 90,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.OCRConfidence).To(Equal(90.0))
		})

		It("should keep a store number on the first line", func() {
			result, err := engine.Process(Input{Text: "Walgreens #1234\n01/15/2024\nMilk $3.50\nTotal $3.50"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Store()).To(Equal("Walgreens #1234"))
			Expect(result.NeedsReview).To(BeFalse())
		})

		It("should reject empty text", func() {
			_, err := engine.Process(Input{Text: ""})
			Expect(err).To(MatchError(ErrEmptyInput))
		})

		It("should flag the mismatch scenario", func() {
			result, err := engine.Process(Input{Text: "Shop\n01/15/2024\nApples $5.00\nBread $3.00\nTotal $20.00"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.NeedsReview).To(BeTrue())
			Expect(result.ReviewReason).To(ContainSubstring("Items total does not match receipt total."))
		})
	})
})

var _ = Describe("Normalize", func() {
	It("should tidy whitespace", func() {
		Expect(Normalize("  A\tB  \r\n\r\n\r\n\r\nC  ")).To(Equal("A B\n\nC"))
	})

	It("should fold compatibility characters", func() {
		Expect(Normalize("ＴＯＴＡＬ １２.００")).To(Equal("TOTAL 12.00"))
	})
})
