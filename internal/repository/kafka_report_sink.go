package repository

import (
	"context"

	"midas/internal/domain/models"
	"midas/internal/domain/repository"
	pkgkafka "midas/pkg/kafka"
)

// KafkaReportSink publishes per-pipeline completion reports so
// downstream consumers can track ingestion runs. Keyed by
// symbol:interval so one table's history lands in one partition.
type KafkaReportSink struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaReportSink(producer *pkgkafka.Producer, topic string) repository.ReportSink {
	return &KafkaReportSink{producer: producer, topic: topic}
}

func (s *KafkaReportSink) Publish(ctx context.Context, r models.PipelineReport) error {
	key := []byte(r.Symbol + ":" + r.Interval)
	return s.producer.Publish(ctx, s.topic, key, r)
}

func (s *KafkaReportSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}
