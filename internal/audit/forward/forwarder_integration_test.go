//go:build integration

package forward_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
	"github.com/acganger/ganger-platform-sub002/internal/audit/forward"
	"github.com/acganger/ganger-platform-sub002/internal/platform/kafka"
	"github.com/acganger/ganger-platform-sub002/pkg/testutil/containers"
)

const testTopic = "audit.security.events"

type ForwarderSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	producer *kafka.Producer
}

func TestForwarderSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ForwarderSuite))
}

func (s *ForwarderSuite) SetupSuite() {
	s.redpanda = containers.NewRedpandaContainer(s.T())

	admin, err := kgo.NewClient(kgo.SeedBrokers(s.redpanda.Broker))
	s.Require().NoError(err)
	defer admin.Close()

	_, err = kadm.NewClient(admin).CreateTopic(context.Background(), 1, 1, nil, testTopic)
	s.Require().NoError(err)

	s.producer, err = kafka.NewProducer(kafka.Config{
		Brokers:  []string{s.redpanda.Broker},
		ClientID: "forwarder-integration",
	})
	s.Require().NoError(err)
	s.Require().NotNil(s.producer)
}

func (s *ForwarderSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close()
	}
}

func (s *ForwarderSuite) TestCriticalRecordReachesBroker() {
	cfg := forward.DefaultConfig()
	cfg.Topic = testTopic
	cfg.PublishInterval = 50 * time.Millisecond

	fwd, err := forward.New(s.producer, forward.WithConfig(cfg))
	s.Require().NoError(err)
	fwd.Start()

	record := audit.Record{
		ID:        uuid.New(),
		Action:    "security_violation",
		ActorID:   "user-1",
		RiskLevel: audit.RiskCritical,
		CreatedAt: time.Now().UTC(),
	}
	fwd.Forward(record)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Require().NoError(fwd.Shutdown(shutdownCtx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetchCtx, cancelFetch := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelFetch()
	fetches := consumer.PollFetches(fetchCtx)
	s.Require().NoError(fetches.Err())

	records := fetches.Records()
	s.Require().NotEmpty(records)

	s.Equal(record.ID.String(), string(records[0].Key))

	var got audit.Record
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(record.ID, got.ID)
	s.Equal("security_violation", got.Action)
	s.Equal(audit.RiskCritical, got.RiskLevel)
}
