package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ecofes/lubebot/pkg/logger"
)

func decodeLines(buf *bytes.Buffer) []map[string]any {
	var records []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var rec map[string]any
		Expect(json.Unmarshal(line, &rec)).To(Succeed())
		records = append(records, rec)
	}
	return records
}

var _ = Describe("Logger", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("NewCLI", func() {
		It("enables debug records only in debug mode", func() {
			Expect(logger.NewCLI(true).Enabled(ctx, slog.LevelDebug)).To(BeTrue())
			Expect(logger.NewCLI(false).Enabled(ctx, slog.LevelDebug)).To(BeFalse())
			Expect(logger.NewCLI(false).Enabled(ctx, slog.LevelInfo)).To(BeTrue())
		})
	})

	Describe("New", func() {
		It("writes build reports as JSON", func() {
			var buf bytes.Buffer
			log := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
			log.Info("index built", "files", 3, "indexed", 12, "corpus", "docs")

			records := decodeLines(&buf)
			Expect(records).To(HaveLen(1))
			Expect(records[0]["msg"]).To(Equal("index built"))
			Expect(records[0]["indexed"]).To(BeNumerically("==", 12))
			Expect(records[0]["corpus"]).To(Equal("docs"))
		})

		It("drops debug records at the default level", func() {
			var buf bytes.Buffer
			log := logger.New(logger.WithWriter(&buf))
			log.Debug("chunk skipped", "id", "oils.txt_4")

			Expect(buf.Len()).To(BeZero())
		})

		It("renders through the pretty handler", func() {
			var buf bytes.Buffer
			log := logger.New(logger.WithWriter(&buf), logger.WithPretty(true), logger.WithDebug(true))
			log.Debug("embedding query", "chars", 42)

			Expect(buf.String()).To(ContainSubstring("embedding query"))
			Expect(buf.String()).To(ContainSubstring("chars"))
		})

		It("copies records to every writer", func() {
			var console, file bytes.Buffer
			log := logger.New(logger.WithWriters(&console, &file))
			log.Warn("corpus file unreadable", "path", "docs/broken.txt")

			Expect(console.String()).To(ContainSubstring("docs/broken.txt"))
			Expect(file.String()).To(Equal(console.String()))
		})
	})

	Describe("Component", func() {
		It("tags every record with the component name", func() {
			var buf bytes.Buffer
			base := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))

			logger.Component(base, "classifier").Info("classified", "category", "greeting")
			logger.Component(base, "retrieval").Info("search", "results", 3)

			records := decodeLines(&buf)
			Expect(records).To(HaveLen(2))
			Expect(records[0]["component"]).To(Equal("classifier"))
			Expect(records[0]["category"]).To(Equal("greeting"))
			Expect(records[1]["component"]).To(Equal("retrieval"))
		})

		It("falls back to a nop logger for nil", func() {
			log := logger.Component(nil, "router")
			Expect(log.Handler().Enabled(ctx, slog.LevelError)).To(BeFalse())
		})
	})

	Describe("Multi", func() {
		It("fans component records out to every logger", func() {
			var text, jsonBuf bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(&text)),
				logger.New(logger.WithWriter(&jsonBuf), logger.WithJSON(true)),
			)

			logger.Component(multi, "api").Info("request", "path", "/v1/ask")

			Expect(text.String()).To(ContainSubstring("component=api"))
			records := decodeLines(&jsonBuf)
			Expect(records).To(HaveLen(1))
			Expect(records[0]["component"]).To(Equal("api"))
			Expect(records[0]["path"]).To(Equal("/v1/ask"))
		})

		It("keeps groups when fanning out", func() {
			var buf bytes.Buffer
			multi := logger.Multi(logger.New(logger.WithWriter(&buf), logger.WithJSON(true)))
			multi.WithGroup("lead").Info("captured", "industry", "transport")

			records := decodeLines(&buf)
			group, ok := records[0]["lead"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(group["industry"]).To(Equal("transport"))
		})

		It("is enabled when any logger is", func() {
			multi := logger.Multi(logger.Nop(), logger.New(logger.WithDebug(true)))
			Expect(multi.Enabled(ctx, slog.LevelDebug)).To(BeTrue())
		})
	})

	Describe("Nop", func() {
		It("discards every level", func() {
			log := logger.Nop()
			for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
				Expect(log.Enabled(ctx, level)).To(BeFalse())
			}
			Expect(func() { log.With("k", "v").WithGroup("g").Info("ignored") }).NotTo(Panic())
		})
	})
})
