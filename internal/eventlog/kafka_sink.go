package eventlog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agbruneau/learning-events/internal/config"
	"github.com/agbruneau/learning-events/pkg/models"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// KafkaProducer définit l'interface pour les opérations du producteur Kafka.
// Cette abstraction permet l'injection de dépendances et simplifie les tests.
type KafkaProducer interface {
	// Produce envoie un message à Kafka de manière asynchrone.
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error

	// Flush attend que tous les messages soient livrés, jusqu'au délai spécifié en ms.
	// Retourne le nombre de messages restants dans la file d'attente.
	Flush(timeoutMs int) int

	// Close ferme le producteur.
	Close()
}

// KafkaSink publie chaque lot comme un message JSON {"events": [...]} sur un topic,
// avec l'identifiant de session comme clé pour garder l'ordre par session.
type KafkaSink struct {
	producer KafkaProducer
	topic    string
}

// NewKafkaSink crée un sink connecté au broker donné.
//
// Paramètres:
//   - broker: L'adresse du broker Kafka.
//   - topic: Le topic de destination.
//
// Retourne:
//   - *KafkaSink: Le sink initialisé.
//   - error: Une erreur si la création du producteur échoue.
func NewKafkaSink(broker, topic string) (*KafkaSink, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": broker,
		"acks":              "all",
		"linger.ms":         5,
	})
	if err != nil {
		return nil, fmt.Errorf("échec de la création du producteur: %w", err)
	}

	// Les rapports des beacons (sans canal dédié) arrivent sur Events().
	go func() {
		for e := range p.Events() {
			if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				slog.Warn("learning events beacon lost", "topic", topic, "error", m.TopicPartition.Error)
			}
		}
	}()

	return newKafkaSinkWithProducer(p, topic), nil
}

func newKafkaSinkWithProducer(p KafkaProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

// Send publie le lot et attend le rapport de livraison ou l'annulation du contexte.
func (s *KafkaSink) Send(ctx context.Context, events []models.Event) error {
	msg, err := s.message(events)
	if err != nil {
		return err
	}

	deliveryChan := make(chan kafka.Event, 1)
	if err := s.producer.Produce(msg, deliveryChan); err != nil {
		return fmt.Errorf("échec de la production du message: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("rapport de livraison inattendu: %v", e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("échec de la livraison: %w", m.TopicPartition.Error)
		}
		return nil
	}
}

// Beacon dépose le lot dans le tampon du producteur sans attendre la livraison.
func (s *KafkaSink) Beacon(events []models.Event) error {
	msg, err := s.message(events)
	if err != nil {
		return err
	}
	if err := s.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("échec de la production du message: %w", err)
	}
	return nil
}

// Wait vide le tampon du producteur. Retourne faux si des messages restent en attente.
func (s *KafkaSink) Wait(timeout time.Duration) bool {
	return s.producer.Flush(int(timeout.Milliseconds())) == 0
}

// Close vide le tampon puis ferme le producteur.
func (s *KafkaSink) Close() {
	if remaining := s.producer.Flush(config.KafkaFlushTimeoutMs); remaining > 0 {
		slog.Warn("learning events left in producer buffer", "messages", remaining)
	}
	s.producer.Close()
}

func (s *KafkaSink) message(events []models.Event) (*kafka.Message, error) {
	body, err := encodeBatch(events)
	if err != nil {
		return nil, err
	}
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &s.topic, Partition: kafka.PartitionAny},
		Value:          body,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event-count", Value: []byte(fmt.Sprintf("%d", len(events)))},
		},
	}
	if len(events) > 0 && events[0].SessionID != "" {
		msg.Key = []byte(events[0].SessionID)
	}
	return msg, nil
}
