//go:build integration

package stream_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"gonogo/internal/audit"
	"gonogo/internal/audit/stream"
	"gonogo/internal/decision"
	"gonogo/pkg/domain"
	"gonogo/pkg/testutil/containers"
)

type KafkaPublisherSuite struct {
	suite.Suite
	brokers []string
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetRedpanda(s.T()).Brokers
}

func (s *KafkaPublisherSuite) TestPublishedRecordsAreConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	topic := "gonogo.audit.test." + domain.NewJobID().String()

	pub, err := stream.NewKafkaPublisher(s.brokers, topic)
	s.Require().NoError(err)
	defer pub.Close()
	s.Require().NoError(pub.Ping(ctx))

	jobID := domain.NewJobID()
	var sent []*audit.Record
	for i := range 3 {
		idx := i
		rec, err := audit.NewRecord(decision.AuditEntry{
			Identifier: domain.MustIdentifier(domain.IdentifierUEI, "ABC123DEF456"),
			NAICS:      "541511",
			Result:     &decision.EligibilityResult{Eligible: true, EvaluatedAt: time.Now().UTC()},
			JobID:      &jobID,
			ItemIndex:  &idx,
		}, time.Now().UTC())
		s.Require().NoError(err)
		sent = append(sent, rec)
	}
	s.Require().NoError(pub.Publish(ctx, sent))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var got []*audit.View
	for len(got) < len(sent) {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) {
			s.Equal("uei:ABC123DEF456", string(r.Key))
			var v audit.View
			s.Require().NoError(json.Unmarshal(r.Value, &v))
			got = append(got, &v)
		})
	}

	// one key, one partition: order is preserved
	for i, v := range got {
		s.Equal(sent[i].ID.String(), v.RecordID)
		s.Equal(jobID.String(), v.JobID)
		s.Equal(i, *v.ItemIndex)
	}
}
