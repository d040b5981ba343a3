package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"txaudit/internal/domain"
	"txaudit/internal/infrastructure/telemetry"
	"txaudit/internal/streaming"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Producer struct {
	writer *kafka.Writer
	prefix string
}

type ProducerConfig struct {
	Brokers     []string
	TopicPrefix string
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.TopicPrefix) == "" {
		cfg.TopicPrefix = "txaudit-alerts"
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 500 * time.Millisecond,
	}
	return &Producer{writer: writer, prefix: cfg.TopicPrefix}, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishAuditAlert publishes one alert for a mismatch, provider error
// or history drift. The message is keyed by transaction hash so all
// alerts for one transaction land on the same partition.
func (p *Producer) PublishAuditAlert(ctx context.Context, result domain.AuditResult, chainID uint64) error {
	tracer := otel.Tracer("txaudit/kafka")
	traceID, traceIDHex, ok := telemetry.NewTraceID()
	if !ok {
		traceIDHex = ""
	}
	traceCtx := ctx
	if ok {
		if spanCtx, ok := telemetry.NewSpanContext(traceID); ok {
			traceCtx = trace.ContextWithSpanContext(ctx, spanCtx)
		}
	}
	traceCtx, span := tracer.Start(traceCtx, "audit.publish_alert", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	msg := alertMessage(result, chainID)
	msg.TraceID = traceIDHex
	span.SetAttributes(
		attribute.String("alert.type", string(msg.Type)),
		attribute.Int64("chain.id", int64(chainID)),
		attribute.String("tx.hash", result.TxHash),
	)
	if msg.BlockNumber != 0 {
		span.SetAttributes(attribute.Int64("block.number", int64(msg.BlockNumber)))
	}

	payload, err := streaming.Encode(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	headers := make([]kafka.Header, 0, 2)
	telemetry.InjectKafkaHeaders(traceCtx, &headers)
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   p.topicForChain(chainID),
		Key:     []byte(result.TxHash),
		Value:   payload,
		Headers: headers,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// alertMessage folds one audit result into the alert envelope.
// Mismatch and provider_error verdicts name the alert after the
// verdict; anything else alert-worthy is a history drift.
func alertMessage(result domain.AuditResult, chainID uint64) streaming.Message {
	msg := streaming.Message{
		ChainID:   chainID,
		TxHash:    result.TxHash,
		Verdict:   string(result.Verdict),
		ElapsedMS: result.Elapsed.Milliseconds(),
	}
	switch result.Verdict {
	case domain.VerdictMismatch:
		msg.Type = streaming.MessageTypeMismatch
	case domain.VerdictProviderError:
		msg.Type = streaming.MessageTypeProviderError
	default:
		msg.Type = streaming.MessageTypeHistoryDrift
	}
	if bundle := result.Bundle(); bundle != nil {
		msg.BlockNumber = bundle.BlockNumber
	}
	if result.Primary != nil && result.Primary.Bundle != nil {
		msg.CommitmentPrimary = result.Primary.Bundle.Commitment.Hex()
	}
	if result.Secondary != nil && result.Secondary.Bundle != nil {
		msg.CommitmentSecondary = result.Secondary.Bundle.Commitment.Hex()
	}
	msg.Detail = alertDetail(result)
	return msg
}

func alertDetail(result domain.AuditResult) string {
	var parts []string
	if result.Primary != nil && result.Primary.Err != "" {
		parts = append(parts, result.Primary.Err)
	}
	if result.Secondary != nil && result.Secondary.Err != "" {
		parts = append(parts, result.Secondary.Err)
	}
	return strings.Join(parts, "; ")
}

func (p *Producer) topicForChain(chainID uint64) string {
	return fmt.Sprintf("%s-%d", p.prefix, chainID)
}
