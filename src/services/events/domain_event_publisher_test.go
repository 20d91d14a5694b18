package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cineasts/src/domain"
	"cineasts/src/infra/kafka"
	"cineasts/src/services/events"
	"cineasts/src/test_artefacts/comparer"
)

var _ = Describe("DomainEventPublisher", func() {
	var (
		ctx         context.Context
		producer    *mocks.SyncProducer
		kafkaClient *kafka.KafkaClient
		publisher   *events.DomainEventPublisher
	)

	BeforeEach(func() {
		ctx = context.Background()
		config := sarama.NewConfig()
		config.Producer.Return.Successes = true
		producer = mocks.NewSyncProducer(GinkgoT(), config)
		kafkaClient = kafka.NewKafkaClientWith(nil, producer, 1)
		publisher = events.NewDomainEventPublisher(slog.New(slog.NewTextHandler(GinkgoWriter, nil)), kafkaClient, "cineasts.domain-events")
	})

	AfterEach(func() {
		Expect(kafkaClient.Close()).To(Succeed())
	})

	headersOf := func(msg *sarama.ProducerMessage) map[string]string {
		headers := make(map[string]string, len(msg.Headers))
		for _, header := range msg.Headers {
			headers[string(header.Key)] = string(header.Value)
		}
		return headers
	}

	It("publishes each event keyed by its node with filtering headers", func() {
		// ARRANGE
		event := domain.DomainEvent{
			EventID:    "6f1c1c1e-4b8e-4a55-9d0c-1f8b2c7a9e01",
			EventType:  domain.EventRelationshipCreated,
			OccurredAt: time.Now().UTC(),
			Data: domain.DomainEventData{
				RelationshipType: domain.RelActsIn,
				StartKey:         "6384",
				EndKey:           "603",
				Properties:       json.RawMessage(`{"name":"Neo"}`),
			},
		}

		producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			if msg.Topic != "cineasts.domain-events" {
				return fmt.Errorf("unexpected topic %s", msg.Topic)
			}
			key, _ := msg.Key.Encode()
			if string(key) != "6384" {
				return fmt.Errorf("unexpected key %s", key)
			}

			headers := headersOf(msg)
			expected := map[string]string{
				"event_type":     domain.EventRelationshipCreated,
				"source_service": "cineasts",
				"schema_version": "v1",
				"event_id":       event.EventID,
				"relation_type":  string(domain.RelActsIn),
			}
			for name, value := range expected {
				if headers[name] != value {
					return fmt.Errorf("header %s = %q, want %q", name, headers[name], value)
				}
			}

			value, _ := msg.Value.Encode()
			var decoded domain.DomainEvent
			if err := json.Unmarshal(value, &decoded); err != nil {
				return err
			}
			if !cmp.Equal(decoded, event, comparer.DomainEventOptions(0)) {
				return fmt.Errorf("unexpected payload %s", value)
			}
			return nil
		})

		// ACT
		err := publisher.PublishDomainEvents(ctx, []domain.DomainEvent{event})

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
	})

	It("uses label and key as the partition key of node events", func() {
		producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			key, _ := msg.Key.Encode()
			if string(key) != "Movie:603" {
				return fmt.Errorf("unexpected key %s", key)
			}
			if headersOf(msg)["label"] != "Movie" {
				return fmt.Errorf("missing label header")
			}
			return nil
		})

		err := publisher.PublishDomainEvents(ctx, []domain.DomainEvent{{
			EventID:   "1",
			EventType: domain.EventNodeCreated,
			Data:      domain.DomainEventData{Label: domain.LabelMovie, Key: "603"},
		}})

		Expect(err).NotTo(HaveOccurred())
	})

	It("does nothing for an empty batch", func() {
		Expect(publisher.PublishDomainEvents(ctx, nil)).To(Succeed())
	})

	It("returns the broker error", func() {
		brokerErr := errors.New("leader not available")
		producer.ExpectSendMessageAndFail(brokerErr)

		err := publisher.PublishDomainEvents(ctx, []domain.DomainEvent{{EventID: "1", EventType: domain.EventGraphPurged}})

		Expect(err).To(MatchError(brokerErr))
		Expect(err.Error()).To(ContainSubstring("cineasts.domain-events"))
	})
})
