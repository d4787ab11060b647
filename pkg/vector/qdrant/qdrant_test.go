package qdrant_test

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ecofes/lubebot/pkg/logger"
	"github.com/ecofes/lubebot/pkg/vector"
	"github.com/ecofes/lubebot/pkg/vector/qdrant"
)

var _ = Describe("Driver", func() {
	Describe("PointID", func() {
		It("derives a stable UUID per chunk id", func() {
			id := qdrant.PointID("oils.txt_0")
			Expect(uuid.Validate(id)).To(Succeed())
			Expect(qdrant.PointID("oils.txt_0")).To(Equal(id))
			Expect(qdrant.PointID("oils.txt_1")).NotTo(Equal(id))
		})
	})

	Describe("ParseTarget", func() {
		It("defaults the gRPC port", func() {
			host, port, err := qdrant.ParseTarget("qdrant")
			Expect(err).NotTo(HaveOccurred())
			Expect(host).To(Equal("qdrant"))
			Expect(port).To(Equal(qdrant.DefaultPort))
		})

		It("accepts host:port and strips a scheme", func() {
			host, port, err := qdrant.ParseTarget("http://localhost:7334")
			Expect(err).NotTo(HaveOccurred())
			Expect(host).To(Equal("localhost"))
			Expect(port).To(Equal(7334))
		})

		It("rejects empty targets and bad ports", func() {
			_, _, err := qdrant.ParseTarget("")
			Expect(err).To(HaveOccurred())
			_, _, err = qdrant.ParseTarget("localhost:grpc")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("NewDriver", func() {
		It("requires dimensions", func() {
			_, err := qdrant.NewDriver(context.Background(), qdrant.Config{Target: "localhost"}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("dimensions")))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*qdrant.Driver)(nil)
		})
	})
})
