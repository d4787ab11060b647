package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ecofes/lubebot/pkg/eventstream"
	"github.com/ecofes/lubebot/pkg/eventstream/kafka"
	"github.com/ecofes/lubebot/pkg/storage"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafkago.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		ctx    context.Context
		writer *fakeWriter
		pub    *kafka.Publisher
	)

	BeforeEach(func() {
		ctx = context.Background()
		writer = &fakeWriter{}
		pub = kafka.NewPublisherWithWriter(writer, "events", nil)
	})

	It("writes the event as a keyed JSON message", func() {
		event := eventstream.NewQueryAnswered(&storage.QueryRecord{UserID: 42, QueryText: "Какое масло?"})
		Expect(pub.Publish(ctx, event)).To(Succeed())

		Expect(writer.messages).To(HaveLen(1))
		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal("user:42"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte(eventstream.EventTypeQueryAnswered)}))

		var decoded eventstream.Event
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Query.QueryText).To(Equal("Какое масло?"))
	})

	It("rejects nil events", func() {
		Expect(pub.Publish(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(writer.messages).To(BeEmpty())
	})

	It("wraps writer errors", func() {
		writer.err = errors.New("broker down")
		err := pub.Publish(ctx, eventstream.NewLeadCaptured(&storage.Lead{Email: "a@example.com"}))
		Expect(err).To(MatchError(ContainSubstring("broker down")))
	})

	It("closes the writer", func() {
		Expect(pub.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})

	It("requires brokers", func() {
		_, err := kafka.NewPublisher(kafka.Config{}, nil)
		Expect(err).To(HaveOccurred())
	})

	It("builds a writer from config without connecting", func() {
		p, err := kafka.NewPublisher(kafka.Config{Brokers: []string{"localhost:9092"}}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Close()).To(Succeed())
	})
})
