package inmemory_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ecofes/lubebot/pkg/vector"
	"github.com/ecofes/lubebot/pkg/vector/inmemory"
)

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
		Expect(driver.Add(ctx, []vector.Document{
			{ID: "a", Text: "A", Embedding: []float32{1, 0, 0}},
			{ID: "b", Text: "B", Embedding: []float32{0, 1, 0}},
			{ID: "c", Text: "C", Embedding: []float32{0, 0, 1}},
		})).To(Succeed())
	})

	It("ranks by cosine distance, nearest first", func() {
		results, err := driver.Query(ctx, []float32{0.2, 0.9, 0.1}, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
		Expect(results[0].ID).To(Equal("b"))
		Expect(results[1].ID).To(Equal("a"))
		Expect(results[0].Distance).To(BeNumerically("<", results[1].Distance))
	})

	It("upserts existing ids without growing", func() {
		Expect(driver.Add(ctx, []vector.Document{{ID: "a", Text: "A2", Embedding: []float32{0, 1, 0}}})).To(Succeed())
		n, _ := driver.Count(ctx)
		Expect(n).To(Equal(3))

		docs, err := driver.Get(ctx, []string{"a"})
		Expect(err).NotTo(HaveOccurred())
		Expect(docs[0].Text).To(Equal("A2"))
	})

	It("rejects embeddings of another dimensionality", func() {
		err := driver.Add(ctx, []vector.Document{{ID: "d", Embedding: []float32{1, 0}}})
		Expect(errors.Is(err, vector.ErrDimensionMismatch)).To(BeTrue())
	})

	It("deletes and resets", func() {
		Expect(driver.Delete(ctx, []string{"b"})).To(Succeed())
		results, _ := driver.Query(ctx, []float32{0, 1, 0}, 10)
		Expect(results).To(HaveLen(2))

		Expect(driver.Reset(ctx)).To(Succeed())
		results, err := driver.Query(ctx, []float32{0, 1, 0}, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})

	It("serves concurrent queries", func() {
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				results, err := driver.Query(ctx, []float32{0, 0, 1}, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(results[0].ID).To(Equal("c"))
			}()
		}
		wg.Wait()
	})

	Describe("CosineDistance", func() {
		It("is zero for parallel vectors and two for opposite ones", func() {
			Expect(inmemory.CosineDistance([]float32{1, 1}, []float32{2, 2})).To(BeNumerically("~", 0, 1e-6))
			Expect(inmemory.CosineDistance([]float32{1, 0}, []float32{-1, 0})).To(BeNumerically("~", 2, 1e-6))
		})
	})
})
