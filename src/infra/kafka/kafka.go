package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
)

type KafkaClient struct {
	consumer  sarama.ConsumerGroup
	producer  sarama.SyncProducer
	batchSize int
}

type Message struct {
	Key      string
	Value    []byte
	Headers  map[string]string
	internal *sarama.ConsumerMessage
}

type Handler func(ctx context.Context, messages []Message) error

const retryBackoff = 5 * time.Second

func newConfig(batchSize int) *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0

	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Group.Session.Timeout = 30 * time.Second
	config.Consumer.Group.Heartbeat.Interval = 10 * time.Second
	config.Consumer.MaxProcessingTime = 60 * time.Second
	config.Consumer.MaxWaitTime = 250 * time.Millisecond
	config.ChannelBufferSize = batchSize * 2

	// eventos de uma mesma chave precisam manter a ordem
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.MaxMessageBytes = 1024 * 1024

	return config
}

// NewKafkaClient abre consumer group e producer nos mesmos brokers.
func NewKafkaClient(brokers string, groupID string, batchSize int) (*KafkaClient, error) {
	brokerList := strings.Split(brokers, ",")
	config := newConfig(batchSize)

	consumer, err := sarama.NewConsumerGroup(brokerList, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	producer, err := sarama.NewSyncProducer(brokerList, config)
	if err != nil {
		consumer.Close()
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	log.Printf("Kafka client initialized (group %s, batch size %d)", groupID, batchSize)
	return NewKafkaClientWith(consumer, producer, batchSize), nil
}

// NewKafkaProducerClient cria um client só de publicação.
func NewKafkaProducerClient(brokers string) (*KafkaClient, error) {
	producer, err := sarama.NewSyncProducer(strings.Split(brokers, ","), newConfig(1))
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return NewKafkaClientWith(nil, producer, 1), nil
}

// NewKafkaClientWith monta o client sobre consumer/producer já criados
// (sarama/mocks nos testes). Qualquer um dos dois pode ser nil.
func NewKafkaClientWith(consumer sarama.ConsumerGroup, producer sarama.SyncProducer, batchSize int) *KafkaClient {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &KafkaClient{
		consumer:  consumer,
		producer:  producer,
		batchSize: batchSize,
	}
}

func (k *KafkaClient) Consumer(ctx context.Context, handler Handler, topic string) error {
	if k.consumer == nil {
		return errors.New("kafka client has no consumer group")
	}

	consumerHandler := &consumerGroupHandler{
		handler:   handler,
		batchSize: k.batchSize,
	}

	for {
		err := k.consumer.Consume(ctx, []string{topic}, consumerHandler)
		if errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return nil
		}
		if ctx.Err() != nil {
			log.Println("Kafka consumer context cancelled")
			return nil
		}

		// sessão encerrada por erro: espera antes de reprocessar o lote
		if err != nil || consumerHandler.failed.Swap(false) {
			log.Printf("Consume on topic %s failed (err: %v), retrying in %v", topic, err, retryBackoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryBackoff):
			}
		}
	}
}

// Producer envia o lote de uma vez; a ordem dentro da mesma chave é mantida.
func (k *KafkaClient) Producer(messages []Message, topic string) error {
	if len(messages) == 0 {
		return nil
	}
	if k.producer == nil {
		return errors.New("kafka client has no producer")
	}

	kafkaMessages := make([]*sarama.ProducerMessage, len(messages))
	for i, msg := range messages {
		kafkaMessages[i] = &sarama.ProducerMessage{
			Topic:   topic,
			Key:     sarama.StringEncoder(msg.Key),
			Value:   sarama.ByteEncoder(msg.Value),
			Headers: toRecordHeaders(msg.Headers),
		}
	}

	if err := k.producer.SendMessages(kafkaMessages); err != nil {
		var producerErrors sarama.ProducerErrors
		if errors.As(err, &producerErrors) {
			for _, perr := range producerErrors {
				log.Printf("  - message %v failed: %v", perr.Msg.Key, perr.Err)
			}
			return fmt.Errorf("batch send failed: %d/%d messages failed: %w", len(producerErrors), len(messages), err)
		}
		return fmt.Errorf("batch send failed: %w", err)
	}

	log.Printf("Batch sent: %d messages to topic %s", len(messages), topic)
	return nil
}

func (k *KafkaClient) Close() error {
	var errs []error

	if k.consumer != nil {
		if err := k.consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
		}
	}

	if k.producer != nil {
		if err := k.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close producer: %w", err))
		}
	}

	return errors.Join(errs...)
}

func toRecordHeaders(headers map[string]string) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}
	records := make([]sarama.RecordHeader, 0, len(headers))
	for key, value := range headers {
		records = append(records, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
	}
	return records
}

func fromRecordHeaders(headers []*sarama.RecordHeader) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	values := make(map[string]string, len(headers))
	for _, header := range headers {
		if header != nil {
			values[string(header.Key)] = string(header.Value)
		}
	}
	return values
}

// consumerGroupHandler implementa sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	handler   Handler
	batchSize int
	failed    atomic.Bool
}

func (h *consumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	log.Printf("Kafka consumer group session setup - batch size: %d", h.batchSize)
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Println("Kafka consumer group session cleanup")
	return nil
}

// ConsumeClaim processa as mensagens em lotes. Se o handler falhar a sessão
// termina sem marcar o lote: o próximo Consume recomeça do último offset
// marcado e o lote é entregue de novo. Seguir consumindo marcaria offsets
// posteriores e o commit passaria por cima do lote que falhou.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	batchTimeout := 2 * time.Second

	log.Printf("Starting consumer for partition %d (batch: %d, timeout: %v)",
		claim.Partition(), h.batchSize, batchTimeout)

	messages := make([]Message, 0, h.batchSize)
	timer := time.NewTimer(batchTimeout)
	defer timer.Stop()

	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return h.processBatch(session, claim, messages)
			}

			messages = append(messages, Message{
				Key:      string(message.Key),
				Value:    message.Value,
				Headers:  fromRecordHeaders(message.Headers),
				internal: message,
			})

			if len(messages) >= h.batchSize {
				if err := h.processBatch(session, claim, messages); err != nil {
					return err
				}
				messages = messages[:0]
				timer.Reset(batchTimeout)
			}

		case <-timer.C:
			if err := h.processBatch(session, claim, messages); err != nil {
				return err
			}
			messages = messages[:0]
			timer.Reset(batchTimeout)

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *consumerGroupHandler) processBatch(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	if err := h.handler(session.Context(), messages); err != nil {
		log.Printf("Handler error for batch of %d messages: %v", len(messages), err)
		h.failed.Store(true)
		return fmt.Errorf("batch of %d messages on %s/%d starting at offset %d: %w",
			len(messages), claim.Topic(), claim.Partition(), firstOffset(messages), err)
	}

	for _, msg := range messages {
		if msg.internal != nil {
			session.MarkMessage(msg.internal, "")
		}
	}
	return nil
}

func firstOffset(messages []Message) int64 {
	if messages[0].internal == nil {
		return -1
	}
	return messages[0].internal.Offset
}
