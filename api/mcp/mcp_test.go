package mcp

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ecofes/lubebot/pkg/classifier"
	"github.com/ecofes/lubebot/pkg/logger"
	"github.com/ecofes/lubebot/pkg/retrieval"
	testutils "github.com/ecofes/lubebot/pkg/utils/test"
	"github.com/ecofes/lubebot/pkg/vector"
)

var _ = Describe("MCP Server", func() {
	var (
		ctx          context.Context
		server       *Server
		vectorDriver *testutils.MockVectorDriver
		embedder     *testutils.MockEmbedder
		c            *classifier.Classifier
	)

	BeforeEach(func() {
		ctx = context.Background()
		vectorDriver = testutils.NewMockVectorDriver()
		embedder = testutils.NewMockEmbedder()

		var err error
		c, err = classifier.New()
		Expect(err).NotTo(HaveOccurred())

		server, err = NewServer(Config{
			Index:      retrieval.NewEngine(embedder, vectorDriver),
			Classifier: c,
			Logger:     logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("returns an error when the index is nil", func() {
			_, err := NewServer(Config{Classifier: c})
			Expect(err).To(MatchError(ContainSubstring("search index is required")))
		})

		It("returns an error when the classifier is nil", func() {
			_, err := NewServer(Config{Index: retrieval.NewEngine(embedder, vectorDriver)})
			Expect(err).To(MatchError(ContainSubstring("classifier is required")))
		})

		It("creates an empty server in noop mode", func() {
			s, err := NewServer(Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Handler()).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	Describe("search tool", func() {
		It("returns ranked passages", func() {
			vectorDriver.Results = []vector.QueryResult{{
				Document: vector.Document{ID: "oils.txt_0", Text: "Моторное масло", Metadata: map[string]string{vector.MetadataSource: "oils.txt"}},
				Distance: 0.1,
				Score:    vector.ScoreFromDistance(0.1),
			}}

			result, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "масло"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.Count).To(Equal(1))
			Expect(output.Results[0].Source).To(Equal("oils.txt"))
		})

		It("reports empty queries as tool errors", func() {
			result, _, err := server.handleSearch(ctx, nil, SearchInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
		})

		It("reports index failures as tool errors", func() {
			vectorDriver.QueryErr = vector.ErrIndexUnavailable
			result, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "масло"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
		})
	})

	Describe("classify tool", func() {
		It("classifies the text", func() {
			result, output, err := server.handleClassify(ctx, nil, ClassifyInput{Text: "масло для двигателя 5W-30"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(BeNil())
			Expect(output.Category).To(Equal(classifier.Technical))
			Expect(output.Confidence).To(Equal(0.9))
			Expect(output.Threshold).To(Equal(0.5))
			Expect(output.Keywords).To(Equal([]string{"5W-30"}))
		})

		It("rejects empty text", func() {
			result, _, err := server.handleClassify(ctx, nil, ClassifyInput{Text: "  "})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
		})
	})
})
