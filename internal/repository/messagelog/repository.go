package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aniladanir/whatsapp-messenger-service/internal/cache"
	"github.com/aniladanir/whatsapp-messenger-service/internal/domain"
	"github.com/aniladanir/whatsapp-messenger-service/internal/persistant/postgresql"
	"gorm.io/gorm"
)

const DefaultReceiptTTL = 24 * time.Hour

type Repository interface {
	Create(ctx context.Context, log *domain.MessageLog) error
	MarkSent(ctx context.Context, log *domain.MessageLog, responseData string) error
	MarkFailed(ctx context.Context, log *domain.MessageLog, errMsg string) error
	List(ctx context.Context, limit, skip int) ([]domain.MessageLog, error)
	Ping(ctx context.Context) error
	CacheSentMessage(ctx context.Context, receipt domain.SentReceipt) error
	GetSentMessage(ctx context.Context, messageID string) (*domain.SentReceipt, error)
}

type repo struct {
	db         *gorm.DB
	cache      cache.Cache
	receiptTTL time.Duration
}

// NewMessageLogRepository returns a gorm backed repository. cache may be nil,
// in which case receipts are not cached.
func NewMessageLogRepository(db *gorm.DB, cache cache.Cache, receiptTTL time.Duration) Repository {
	if receiptTTL <= 0 {
		receiptTTL = DefaultReceiptTTL
	}
	return &repo{db: db, cache: cache, receiptTTL: receiptTTL}
}

// Create inserts log as pending. ID and timestamps are filled in on success.
func (r *repo) Create(ctx context.Context, log *domain.MessageLog) error {
	log.Status = domain.StatusPending
	log.ResponseData = nil
	log.ErrorMessage = nil
	return r.db.WithContext(ctx).Create(log).Error
}

// MarkSent moves a pending log to sent and stores the provider response
func (r *repo) MarkSent(ctx context.Context, log *domain.MessageLog, responseData string) error {
	return r.finish(ctx, log, domain.StatusSent, &responseData, nil)
}

// MarkFailed moves a pending log to failed and stores the failure description
func (r *repo) MarkFailed(ctx context.Context, log *domain.MessageLog, errMsg string) error {
	return r.finish(ctx, log, domain.StatusFailed, nil, &errMsg)
}

func (r *repo) finish(ctx context.Context, log *domain.MessageLog, status domain.MessageStatus, responseData, errMsg *string) error {
	now := time.Now().UTC()

	res := r.db.WithContext(ctx).
		Model(&domain.MessageLog{}).
		Where("id = ? AND status = ?", log.ID, string(domain.StatusPending)).
		Updates(map[string]any{
			"status":        string(status),
			"response_data": responseData,
			"error_message": errMsg,
			"updated_at":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("message log %d is not pending", log.ID)
	}

	log.Status = status
	log.ResponseData = responseData
	log.ErrorMessage = errMsg
	log.UpdatedAt = now
	return nil
}

// List returns logs newest first
func (r *repo) List(ctx context.Context, limit, skip int) ([]domain.MessageLog, error) {
	logs := make([]domain.MessageLog, 0, limit)
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(skip).
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func (r *repo) Ping(ctx context.Context) error {
	return postgresql.Ping(ctx, r.db)
}

func receiptKey(messageID string) string {
	return fmt.Sprintf("sent_msg:%s", messageID)
}

// CacheSentMessage writes the receipt to cache
func (r *repo) CacheSentMessage(ctx context.Context, receipt domain.SentReceipt) error {
	if r.cache == nil {
		return nil
	}

	jsonVal, err := json.Marshal(receipt)
	if err != nil {
		return err
	}
	return r.cache.Set(ctx, receiptKey(receipt.MessageID), string(jsonVal), r.receiptTTL)
}

// GetSentMessage reads a cached receipt. It returns domain.ErrNotFound when the
// receipt is absent or caching is disabled.
func (r *repo) GetSentMessage(ctx context.Context, messageID string) (*domain.SentReceipt, error) {
	if r.cache == nil {
		return nil, domain.ErrNotFound
	}

	val, err := r.cache.Get(ctx, receiptKey(messageID))
	if errors.Is(err, cache.ErrMiss) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	receipt := new(domain.SentReceipt)
	if err := json.Unmarshal([]byte(val), receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}
