//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"tender_watch/internal/domain"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) TestPublisher_Connection() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange",
		RoutingKey: "test-routing-key",
		QueueName:  "test-queue",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.NoError(err)
	s.NotNil(pub)

	err = pub.Close()
	s.NoError(err)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishNew() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-new",
		RoutingKey: "test-routing-key-new",
		QueueName:  "test-queue-new",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	deadline := time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)
	buyerID := "dga"
	listing := &domain.Listing{
		ID:              "boamp:25-118902",
		Title:           "Maintenance radar",
		BuyerName:       "Direction Générale de l'Armement",
		BuyerID:         &buyerID,
		PublicationDate: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		DeadlineDate:    &deadline,
		SourceID:        "boamp",
		OriginURL:       "https://example.org/avis/25-118902",
	}

	err = pub.PublishNew(s.ctx, listing)
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)
	s.Equal("application/json", msg.ContentType)
	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)

	var received ListingMessage
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)
	s.Equal("new", received.Action)
	s.Equal("boamp:25-118902", received.Listing.ID)
	s.Equal("Maintenance radar", received.Listing.Title)
	s.Equal("boamp", received.Listing.SourceID)
	s.Require().NotNil(received.Listing.BuyerID)
	s.Equal("dga", *received.Listing.BuyerID)
	s.Require().NotNil(received.Listing.DeadlineDate)
	s.True(received.Listing.DeadlineDate.Equal(deadline))
	s.False(received.Timestamp.IsZero())
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg Config) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}
