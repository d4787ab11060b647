package classifier_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ecofes/lubebot/pkg/classifier"
)

var _ = Describe("Classifier", func() {
	var c *classifier.Classifier

	BeforeEach(func() {
		var err error
		c, err = classifier.New()
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Classify", func() {
		DescribeTable("categorizes queries",
			func(text string, category classifier.Category, confidence float64) {
				result := c.Classify(text)
				Expect(result.Category).To(Equal(category))
				Expect(result.Confidence).To(BeNumerically("~", confidence, 1e-9))
			},
			Entry("greeting", "Привет", classifier.Greeting, 0.9),
			Entry("greeting wins over selection", "Привет, какое масло выбрать?", classifier.Greeting, 0.9),
			Entry("greeting wins over technical terms", "Привет, подскажите вязкость масла SAE 5W-30 и API", classifier.Greeting, 0.9),
			Entry("about", "Кто вы?", classifier.About, 0.85),
			Entry("about the brand", "Расскажите про ECOFES", classifier.About, 0.85),
			Entry("thanks", "Спасибо!", classifier.Simple, 0.8),
			Entry("short yes", "Да", classifier.Simple, 0.8),
			Entry("commercial", "Сколько стоит масло 5W-30?", classifier.Commercial, 0.8),
			Entry("delivery", "Есть доставка в Казань?", classifier.Commercial, 0.8),
			Entry("order", "Хочу заказать масло", classifier.Commercial, 0.8),
			Entry("customer is not an order", "заказчик спрашивает про вязкость", classifier.Technical, 0.5),
			Entry("selection with technical", "Какое масло подобрать для дизельного двигателя?", classifier.Selection, 0.9),
			Entry("selection only", "Что посоветуете?", classifier.Selection, 0.7),
			Entry("one technical term", "Масло", classifier.Technical, 0.5),
			Entry("two technical terms", "вязкость масла", classifier.Technical, 0.75),
			Entry("three technical terms", "масло для двигателя 5W-30", classifier.Technical, 0.9),
			Entry("filler word inside a sentence", "Пока не выбрал масло", classifier.Technical, 0.5),
			Entry("long text without domain terms", "Расскажите мне пожалуйста что-нибудь интересное сегодня", classifier.General, 0.4),
			Entry("short text without domain terms", "абракадабра", classifier.Unknown, 0.3),
		)

		It("returns the same result on repeated calls", func() {
			first := c.Classify("Привет")
			c.Classify("масло для двигателя 5W-30")
			c.Classify("Сколько стоит?")
			Expect(c.Classify("Привет")).To(Equal(first))
			Expect(first).To(Equal(classifier.Result{Category: classifier.Greeting, Confidence: 0.9}))
		})

		It("counts each technical pattern once", func() {
			Expect(c.TechnicalScore("масло масло масло")).To(Equal(1))
			Expect(c.TechnicalScore("масло, двигатель и фильтр")).To(Equal(3))
		})
	})

	Describe("Threshold", func() {
		It("looks up the static table", func() {
			Expect(c.Threshold(classifier.Greeting)).To(BeZero())
			Expect(c.Threshold(classifier.About)).To(BeZero())
			Expect(c.Threshold(classifier.Simple)).To(BeZero())
			Expect(c.Threshold(classifier.Commercial)).To(Equal(0.5))
			Expect(c.Threshold(classifier.Selection)).To(Equal(0.6))
			Expect(c.Threshold(classifier.Technical)).To(Equal(0.5))
			Expect(c.Threshold(classifier.General)).To(Equal(0.6))
			Expect(c.Threshold(classifier.Unknown)).To(Equal(0.7))
		})

		It("defaults unrecognized categories to 0.7", func() {
			Expect(c.Threshold(classifier.Category("weather"))).To(Equal(0.7))
		})
	})

	Describe("ExtractKeywords", func() {
		It("returns matching words as written, in vocabulary order", func() {
			Expect(c.ExtractKeywords("Нужно масло 5w-30 по API для дизеля")).
				To(Equal([]string{"5w-30", "API", "дизеля"}))
		})

		It("returns whole words for stem terms", func() {
			Expect(c.ExtractKeywords("Какое масло для трактора и грузовика?")).
				To(Equal([]string{"грузовика", "трактора"}))
		})

		It("returns each term once", func() {
			Expect(c.ExtractKeywords("SAE 5W-30 или SAE 5W-40")).
				To(Equal([]string{"5W-30", "5W-40", "SAE"}))
		})

		It("returns an empty list when nothing matches", func() {
			Expect(c.ExtractKeywords("Привет")).To(BeEmpty())
		})
	})

	Describe("CannedReply", func() {
		It("has replies for conversational categories", func() {
			for _, category := range []classifier.Category{classifier.Greeting, classifier.About, classifier.Simple} {
				reply, ok := c.CannedReply(category)
				Expect(ok).To(BeTrue())
				Expect(reply).NotTo(BeEmpty())
			}
		})

		It("has no reply for retrieval categories", func() {
			_, ok := c.CannedReply(classifier.Technical)
			Expect(ok).To(BeFalse())
		})
	})
})

var _ = Describe("Rules", func() {
	const minimal = `
keywords = ["смазка"]

[[cascade]]
category = "greeting"
confidence = 0.9
patterns = ['\bhello\b']

[evidence]
selection = ['\bpick\b']
technical = ['\boil\b', '\bengine\b']

[scoring]
selection_with_technical = 0.9
selection_only = 0.7
technical = [0.5]
general_min_words = 2
general = 0.4
unknown = 0.3

[thresholds]
default = 0.2
`

	It("translates word boundaries into Unicode-aware groups", func() {
		Expect(classifier.TranslatePattern(`\bмасл\w*\b`)).To(Equal(
			`(?:^|[^\p{L}\p{N}_])масл[\p{L}\p{N}_]*(?:$|[^\p{L}\p{N}_])`))
		Expect(classifier.TranslatePattern(`^\s*да$`)).To(Equal(`^\s*да$`))
	})

	It("loads rules from a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "rules.toml")
		Expect(os.WriteFile(path, []byte(minimal), 0o600)).To(Succeed())

		c, err := classifier.New(classifier.WithRulesFile(path))
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Classify("hello there")).To(Equal(classifier.Result{Category: classifier.Greeting, Confidence: 0.9}))
		Expect(c.Classify("oil engine")).To(Equal(classifier.Result{Category: classifier.Technical, Confidence: 0.5}))
		Expect(c.Classify("one two three")).To(Equal(classifier.Result{Category: classifier.General, Confidence: 0.4}))
		Expect(c.Threshold(classifier.Technical)).To(Equal(0.2))
		Expect(c.ExtractKeywords("Смазка для цепи")).To(Equal([]string{"Смазка"}))
	})

	It("rejects unknown keys", func() {
		_, err := classifier.ParseRules([]byte("extra = 1\n" + minimal))
		Expect(err).To(MatchError(classifier.ErrInvalidRules))
	})

	It("requires a default threshold", func() {
		rules, err := classifier.ParseRules([]byte(minimal))
		Expect(err).NotTo(HaveOccurred())
		delete(rules.Thresholds, "default")
		_, err = classifier.New(classifier.WithRules(rules))
		Expect(err).To(MatchError(classifier.ErrInvalidRules))
	})

	It("rejects patterns that do not compile", func() {
		rules, err := classifier.ParseRules([]byte(minimal))
		Expect(err).NotTo(HaveOccurred())
		rules.Evidence.Technical = append(rules.Evidence.Technical, `(unclosed`)
		_, err = classifier.New(classifier.WithRules(rules))
		Expect(err).To(MatchError(classifier.ErrInvalidRules))
	})

	It("reports a missing rules file", func() {
		_, err := classifier.New(classifier.WithRulesFile(filepath.Join(GinkgoT().TempDir(), "missing.toml")))
		Expect(err).To(HaveOccurred())
	})
})
