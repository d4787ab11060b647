package router_test

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ecofes/lubebot/pkg/classifier"
	"github.com/ecofes/lubebot/pkg/router"
	testutils "github.com/ecofes/lubebot/pkg/utils/test"
)

type fakeRetriever struct {
	contexts []string
	queries  []string
	ks       []int
}

func (f *fakeRetriever) Search(_ context.Context, query string, k int) []string {
	f.queries = append(f.queries, query)
	f.ks = append(f.ks, k)
	return f.contexts
}

var _ = Describe("Router", func() {
	var (
		ctx       context.Context
		c         *classifier.Classifier
		retriever *fakeRetriever
		generator *testutils.MockGenerator
		messages  router.Messages
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		c, err = classifier.New()
		Expect(err).NotTo(HaveOccurred())
		retriever = &fakeRetriever{contexts: []string{"chunk one", "chunk two", "chunk three"}}
		generator = testutils.NewMockGenerator("Подойдёт масло ECOFES 5W-30.")
		messages = router.DefaultMessages("")
	})

	newRouter := func(opts ...router.Option) *router.Router {
		return router.New(c, retriever, generator, opts...)
	}

	It("answers greetings with the canned reply", func() {
		reply := newRouter().Respond(ctx, "Привет")
		canned, _ := c.CannedReply(classifier.Greeting)

		Expect(reply.Action).To(Equal(router.ActionCanned))
		Expect(reply.Text).To(Equal(canned))
		Expect(reply.Category).To(Equal(classifier.Greeting))
		Expect(retriever.queries).To(BeEmpty())
		Expect(generator.Requests).To(BeEmpty())
	})

	It("answers commercial queries above their threshold from retrieved context", func() {
		reply := newRouter().Respond(ctx, "Какая доставка масла 5W-30 для дизельного двигателя?")

		Expect(reply.Category).To(Equal(classifier.Commercial))
		Expect(reply.Confidence).To(BeNumerically(">=", c.Threshold(classifier.Commercial)))
		Expect(reply.Action).To(Equal(router.ActionAnswer))
		Expect(retriever.queries).To(HaveLen(1))
		Expect(generator.Requests).To(HaveLen(1))
	})

	It("escalates commercial queries below a raised threshold", func() {
		rules, err := classifier.DefaultRules()
		Expect(err).NotTo(HaveOccurred())
		rules.Thresholds["commercial"] = 0.95
		c, err = classifier.New(classifier.WithRules(rules))
		Expect(err).NotTo(HaveOccurred())

		reply := newRouter().Respond(ctx, "Сколько стоит масло?")

		Expect(reply.Action).To(Equal(router.ActionEscalate))
		Expect(reply.Text).To(Equal(messages.Escalation))
		Expect(retriever.queries).To(BeEmpty())
	})

	It("escalates queries below the confidence threshold", func() {
		reply := newRouter().Respond(ctx, "абракадабра")

		Expect(reply.Category).To(Equal(classifier.Unknown))
		Expect(reply.Action).To(Equal(router.ActionEscalate))
		Expect(reply.Text).To(Equal(messages.Escalation))
		Expect(retriever.queries).To(BeEmpty())
	})

	It("answers from retrieved context", func() {
		reply := newRouter(router.WithTopK(5)).Respond(ctx, "Какое масло подобрать для дизеля 5W-30?")

		Expect(reply.Action).To(Equal(router.ActionAnswer))
		Expect(reply.Category).To(Equal(classifier.Selection))
		Expect(reply.Text).To(Equal("Подойдёт масло ECOFES 5W-30."))
		Expect(reply.Contexts).To(HaveLen(3))
		Expect(reply.Keywords).To(Equal([]string{"5W-30", "дизеля"}))

		Expect(retriever.queries).To(Equal([]string{"Какое масло подобрать для дизеля 5W-30? 5W-30 дизеля"}))
		Expect(retriever.ks).To(Equal([]int{5}))

		req, ok := generator.LastRequest()
		Expect(ok).To(BeTrue())
		Expect(req.System).To(Equal(messages.System))
		Expect(req.Prompt).To(Equal("Context:\nchunk one\n\nchunk two\n\nQuestion: Какое масло подобрать для дизеля 5W-30?"))
	})

	It("uses the raw query when no keywords match", func() {
		newRouter().Respond(ctx, "Что посоветуете?")
		Expect(retriever.queries).To(Equal([]string{"Что посоветуете?"}))
	})

	It("escalates when nothing is retrieved", func() {
		retriever.contexts = []string{}
		reply := newRouter().Respond(ctx, "Какое масло подобрать для двигателя?")

		Expect(reply.Action).To(Equal(router.ActionEscalate))
		Expect(reply.Text).To(Equal(messages.NoContext))
		Expect(generator.Requests).To(BeEmpty())
	})

	It("falls back when generation fails", func() {
		generator.Err = errors.New("upstream down")
		reply := newRouter().Respond(ctx, "Какое масло подобрать для двигателя?")

		Expect(reply.Action).To(Equal(router.ActionEscalate))
		Expect(reply.Text).To(Equal(messages.Fallback))
	})

	It("escalates hedged answers", func() {
		generator.Answer = "Я не знаю точного ответа, уточню у коллег."
		reply := newRouter().Respond(ctx, "Какое масло подобрать для двигателя?")

		Expect(reply.Action).To(Equal(router.ActionEscalate))
		Expect(reply.Text).To(Equal(messages.Escalation))
	})

	It("cuts long answers at a word boundary", func() {
		generator.Answer = strings.Repeat("масло ", 100)
		reply := newRouter(router.WithMaxAnswerChars(50)).Respond(ctx, "Какое масло подобрать для двигателя?")

		Expect(reply.Action).To(Equal(router.ActionAnswer))
		Expect(utf8.RuneCountInString(reply.Text)).To(BeNumerically("<=", 50))
		Expect(reply.Text).To(HaveSuffix("масло..."))
	})

	It("uses custom messages", func() {
		custom := router.DefaultMessages("+7 (999) 000-00-00")
		reply := newRouter(router.WithMessages(custom)).Respond(ctx, "абракадабра")

		Expect(reply.Text).To(ContainSubstring("+7 (999) 000-00-00"))
	})

	Describe("BuildPrompt", func() {
		It("limits the number of contexts", func() {
			Expect(router.BuildPrompt("q", []string{"a", "b", "c"}, 1)).To(Equal("Context:\na\n\nQuestion: q"))
			Expect(router.BuildPrompt("q", []string{"a", "b"}, 5)).To(Equal("Context:\na\n\nb\n\nQuestion: q"))
		})
	})
})
