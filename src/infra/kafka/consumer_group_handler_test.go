package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeSession guarda os offsets marcados, como o consumer group faria antes
// do commit.
type fakeSession struct {
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32 { return nil }
func (s *fakeSession) MemberID() string { return "cineasts-test" }
func (s *fakeSession) GenerationID() int32 { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string) {}
func (s *fakeSession) Commit() {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string { return "cineasts.ratings" }
func (c *fakeClaim) Partition() int32 { return 0 }
func (c *fakeClaim) InitialOffset() int64 { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64 { return int64(cap(c.messages)) }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

// claimFrom entrega as mensagens a partir do offset, como um novo Consume
// depois do último offset marcado.
func claimFrom(offset int64, total int) *fakeClaim {
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, total)}
	for i := offset; i < int64(total); i++ {
		claim.messages <- &sarama.ConsumerMessage{
			Topic:   "cineasts.ratings",
			Offset:  i,
			Key:     []byte(fmt.Sprintf("user-%d", i)),
			Value:   []byte(`{}`),
			Headers: []*sarama.RecordHeader{{Key: []byte("event_type"), Value: []byte("rating")}},
		}
	}
	close(claim.messages)
	return claim
}

var _ = Describe("consumerGroupHandler", func() {
	var (
		ctx     context.Context
		batches [][]string
		failing bool
		handler *consumerGroupHandler
	)

	BeforeEach(func() {
		ctx = context.Background()
		batches = nil
		failing = false
		handler = &consumerGroupHandler{
			batchSize: 2,
			handler: func(ctx context.Context, messages []Message) error {
				keys := make([]string, len(messages))
				for i, msg := range messages {
					keys[i] = msg.Key
				}
				batches = append(batches, keys)
				if failing {
					failing = false
					return errors.New("storage unavailable")
				}
				return nil
			},
		}
	})

	It("marks every message of successful batches", func() {
		// ARRANGE
		session := &fakeSession{ctx: ctx}

		// ACT
		err := handler.ConsumeClaim(session, claimFrom(0, 5))

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(session.marked).To(Equal([]int64{0, 1, 2, 3, 4}))
		Expect(batches).To(Equal([][]string{{"user-0", "user-1"}, {"user-2", "user-3"}, {"user-4"}}))
	})

	It("keeps the headers of consumed messages", func() {
		var headers map[string]string
		handler.handler = func(ctx context.Context, messages []Message) error {
			headers = messages[0].Headers
			return nil
		}

		Expect(handler.ConsumeClaim(&fakeSession{ctx: ctx}, claimFrom(0, 1))).To(Succeed())

		Expect(headers).To(Equal(map[string]string{"event_type": "rating"}))
	})

	When("a batch fails", func() {
		It("stops the session without marking anything past the failed batch", func() {
			// ARRANGE
			session := &fakeSession{ctx: ctx}
			Expect(handler.ConsumeClaim(session, claimFrom(0, 2))).To(Succeed())
			failing = true

			// ACT
			err := handler.ConsumeClaim(session, claimFrom(2, 6))

			// ASSERT
			Expect(err).To(MatchError(ContainSubstring("storage unavailable")))
			Expect(err).To(MatchError(ContainSubstring("starting at offset 2")))
			Expect(session.marked).To(Equal([]int64{0, 1}))
			Expect(batches).To(HaveLen(2))
			Expect(handler.failed.Load()).To(BeTrue())
		})

		It("redelivers the failed batch on the next session", func() {
			// ARRANGE
			failing = true
			first := &fakeSession{ctx: ctx}
			Expect(handler.ConsumeClaim(first, claimFrom(0, 4))).NotTo(Succeed())
			Expect(first.marked).To(BeEmpty())

			// ACT
			second := &fakeSession{ctx: ctx}
			err := handler.ConsumeClaim(second, claimFrom(int64(len(first.marked)), 4))

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(second.marked).To(Equal([]int64{0, 1, 2, 3}))
			Expect(batches).To(Equal([][]string{
				{"user-0", "user-1"},
				{"user-0", "user-1"},
				{"user-2", "user-3"},
			}))
		})
	})
})
