package search_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ecofes/lubebot/api/search"
	"github.com/ecofes/lubebot/pkg/vector"
)

type fakeIndex struct {
	results []vector.QueryResult
	err     error
	gotK    int
}

func (f *fakeIndex) SearchResults(_ context.Context, _ string, k int) ([]vector.QueryResult, error) {
	f.gotK = k
	return f.results, f.err
}

var _ = Describe("Search", func() {
	var (
		ctx   context.Context
		index *fakeIndex
	)

	BeforeEach(func() {
		ctx = context.Background()
		index = &fakeIndex{results: []vector.QueryResult{{
			Document: vector.Document{
				ID:       "oils.txt_0",
				Text:     "Моторное масло",
				Metadata: map[string]string{vector.MetadataSource: "oils.txt"},
			},
			Distance: 0.25,
			Score:    0.8,
		}}}
	})

	It("shapes results", func() {
		out, err := search.Search(ctx, "масло", 5, index, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(index.gotK).To(Equal(5))
		Expect(out.Count).To(Equal(1))
		Expect(out.Results[0]).To(Equal(search.Result{
			ID: "oils.txt_0", Text: "Моторное масло", Source: "oils.txt", Distance: 0.25, Score: 0.8,
		}))
	})

	It("defaults top_k", func() {
		_, err := search.Search(ctx, "масло", 0, index, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(index.gotK).To(Equal(search.DefaultTopK))
	})

	It("rejects empty queries", func() {
		_, err := search.Search(ctx, "", 3, index, nil)
		Expect(err).To(MatchError(search.ErrEmptyQuery))
	})

	It("returns index errors", func() {
		index.err = vector.ErrIndexUnavailable
		_, err := search.Search(ctx, "масло", 3, index, nil)
		Expect(errors.Is(err, vector.ErrIndexUnavailable)).To(BeTrue())
	})
})
