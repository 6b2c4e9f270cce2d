package services

import (
	"context"
	"fmt"
	"log/slog"

	"approvals/internal/amqp"
	"approvals/internal/api"
	"approvals/internal/core"
	applog "approvals/internal/log"
	"approvals/internal/middleware/trace"
)

// ApprovalPublisher announces approval writes to other services.
type ApprovalPublisher interface {
	PublishApprovalChanged(ctx context.Context, msg *amqp.ApprovalChangedMessage) error
}

// ApprovalService writes approvals to the backend and publishes an event
// for each successful write.
type ApprovalService struct {
	writer    api.ApprovalWriter
	publisher ApprovalPublisher
}

var _ api.ApprovalWriter = (*ApprovalService)(nil)

// NewApprovalService accepts a nil publisher, in which case no events are sent.
func NewApprovalService(writer api.ApprovalWriter, publisher ApprovalPublisher) *ApprovalService {
	return &ApprovalService{writer: writer, publisher: publisher}
}

func (s *ApprovalService) SetTransactionApproval(ctx context.Context, params core.SetTransactionApprovalParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	// The backend is the source of truth; the event is best effort.
	if err := s.writer.SetTransactionApproval(ctx, params); err != nil {
		return fmt.Errorf("save approval: %w", err)
	}

	if err := s.publish(ctx, params); err != nil {
		applog.LogError(ctx, "Failed to publish approval event", err, applog.ComponentApproval, applog.OpPublish,
			applog.NewFields().WithApproval(params.TransactionID, params.Value))
	}
	return nil
}

func (s *ApprovalService) publish(ctx context.Context, params core.SetTransactionApprovalParams) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping approval event",
			applog.FieldComponent, applog.ComponentApproval)
		return nil
	}
	msg := amqp.NewApprovalChangedMessage(params.TransactionID, params.Value)
	msg.RequestID = trace.GetRequestID(ctx)
	return s.publisher.PublishApprovalChanged(ctx, msg)
}
