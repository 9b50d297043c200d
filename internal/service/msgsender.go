package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aniladanir/whatsapp-messenger-service/internal/domain"
	"github.com/aniladanir/whatsapp-messenger-service/internal/metrics"
	"github.com/aniladanir/whatsapp-messenger-service/internal/phone"
	messageLogRepo "github.com/aniladanir/whatsapp-messenger-service/internal/repository/messagelog"
	"github.com/aniladanir/whatsapp-messenger-service/internal/whatsapp"
)

const storageErrorDetail = "Database error occurred"

// Messenger is the outbound side of a send. *whatsapp.Client implements it.
type Messenger interface {
	SendText(ctx context.Context, to, body string) (*whatsapp.SendResponse, error)
}

type MessageSender interface {
	SendMessage(ctx context.Context, rawPhone, body string) (*domain.SendOutcome, error)
	GetLogs(ctx context.Context, limit, skip int) ([]domain.MessageLog, error)
	GetSentMessage(ctx context.Context, messageID string) (*domain.SentReceipt, error)
	Health(ctx context.Context) error
}

type service struct {
	messageRepo messageLogRepo.Repository
	messenger   Messenger
	logger      *slog.Logger
}

func NewMessageSenderService(messageRepo messageLogRepo.Repository, messenger Messenger, logger *slog.Logger) (MessageSender, error) {
	if messageRepo == nil {
		return nil, domain.ConfigurationError("message log repository is required")
	}
	if messenger == nil {
		return nil, domain.ConfigurationError("messaging client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		messageRepo: messageRepo,
		messenger:   messenger,
		logger:      logger,
	}, nil
}

// SendMessage normalizes rawPhone, records a pending log, calls the provider
// once and records the outcome on the same log.
func (s *service) SendMessage(ctx context.Context, rawPhone, body string) (*domain.SendOutcome, error) {
	phoneNumber, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}

	// once a log row exists its outcome must be written, even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	msgLog := &domain.MessageLog{
		PhoneNumber: phoneNumber,
		Message:     body,
	}
	if err := s.messageRepo.Create(ctx, msgLog); err != nil {
		metrics.MessageLogWrites.WithLabelValues("create", "error").Inc()
		s.logger.Error("failed to create message log", "phone", phoneNumber, "error", err.Error())
		return nil, domain.StorageError(storageErrorDetail, err)
	}
	metrics.MessageLogWrites.WithLabelValues("create", "ok").Inc()

	msgLogger := s.logger.With(slog.Int("logId", msgLog.ID), slog.String("phone", phoneNumber))

	resp, err := s.messenger.SendText(ctx, phoneNumber, body)
	if err != nil {
		return nil, s.recordFailure(ctx, msgLogger, msgLog, err)
	}

	if err := s.messageRepo.MarkSent(ctx, msgLog, serializeResponse(resp)); err != nil {
		metrics.MessageLogWrites.WithLabelValues("mark_sent", "error").Inc()
		msgLogger.Error("message delivered but failed to update message log", "messageId", resp.MessageID(), "error", err.Error())
		return nil, domain.StorageError(storageErrorDetail, err)
	}
	metrics.MessageLogWrites.WithLabelValues("mark_sent", "ok").Inc()
	msgLogger.Info("message is successfully sent", "messageId", resp.MessageID())

	if messageID := resp.MessageID(); messageID != "" {
		receipt := domain.SentReceipt{
			MessageID:   messageID,
			LogID:       msgLog.ID,
			PhoneNumber: phoneNumber,
			SentAt:      time.Now().UTC(),
		}
		if err := s.messageRepo.CacheSentMessage(ctx, receipt); err != nil {
			msgLogger.Error("failed to cache sent message", "messageId", messageID, "error", err.Error())
		}
	}

	return &domain.SendOutcome{
		LogID:       msgLog.ID,
		PhoneNumber: phoneNumber,
		MessageID:   resp.MessageID(),
		Response:    resp.Payload,
	}, nil
}

// recordFailure marks msgLog failed and returns the delivery error. A failing
// log update is logged and does not replace the delivery error.
func (s *service) recordFailure(ctx context.Context, logger *slog.Logger, msgLog *domain.MessageLog, sendErr error) error {
	logMsg, detail := describeFailure(sendErr)

	if err := s.messageRepo.MarkFailed(ctx, msgLog, logMsg); err != nil {
		metrics.MessageLogWrites.WithLabelValues("mark_failed", "error").Inc()
		logger.Error("failed to update message log to failed", "error", err.Error())
	} else {
		metrics.MessageLogWrites.WithLabelValues("mark_failed", "ok").Inc()
	}
	logger.Error("message delivery failed", "reason", logMsg)

	return domain.RemoteDeliveryError(detail, sendErr)
}

// describeFailure returns the text stored on the log and the text reported to
// the caller.
func describeFailure(err error) (logMsg, detail string) {
	var (
		rejected  *whatsapp.RejectedError
		transport *whatsapp.TransportError
	)
	switch {
	case errors.As(err, &rejected) && rejected.Err != nil:
		return fmt.Sprintf("Invalid API Response: %d - %s", rejected.StatusCode, rejected.Body),
			fmt.Sprintf("WhatsApp API returned an invalid response: %d - %s", rejected.StatusCode, rejected.Body)
	case errors.As(err, &rejected):
		return fmt.Sprintf("API Error: %d - %s", rejected.StatusCode, rejected.Body),
			fmt.Sprintf("WhatsApp API error: %d - %s", rejected.StatusCode, rejected.Body)
	case errors.As(err, &transport):
		return "Request Error: " + transport.Error(),
			"Error sending WhatsApp message: " + transport.Error()
	default:
		return "Request Error: " + err.Error(),
			"Error sending WhatsApp message: " + err.Error()
	}
}

func serializeResponse(resp *whatsapp.SendResponse) string {
	if b, err := json.Marshal(resp.Payload); err == nil {
		return string(b)
	}
	return string(resp.Raw)
}

// GetLogs returns message logs, newest first
func (s *service) GetLogs(ctx context.Context, limit, skip int) ([]domain.MessageLog, error) {
	logs, err := s.messageRepo.List(ctx, limit, skip)
	if err != nil {
		s.logger.Error("failed to list message logs", "error", err.Error())
		return nil, domain.StorageError(storageErrorDetail, err)
	}
	return logs, nil
}

// GetSentMessage returns the cached receipt of a delivered message
func (s *service) GetSentMessage(ctx context.Context, messageID string) (*domain.SentReceipt, error) {
	receipt, err := s.messageRepo.GetSentMessage(ctx, messageID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		s.logger.Error("failed to read sent message receipt", "messageId", messageID, "error", err.Error())
		return nil, fmt.Errorf("read receipt %s: %w", messageID, err)
	}
	return receipt, nil
}

func (s *service) Health(ctx context.Context) error {
	if err := s.messageRepo.Ping(ctx); err != nil {
		return domain.StorageError(storageErrorDetail, err)
	}
	return nil
}
