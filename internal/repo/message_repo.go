// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/botdo/go-relay-backend/internal/domain"
)

// SaveMessageParams carries the fields needed to persist one message.
type SaveMessageParams struct {
	MessageID  string // platform-native id, globally unique
	Platform   string
	Direction  string
	SenderType string
	Text       string
	Timestamp  time.Time
	UserID     *string
	ChannelID  *string
	Metadata   map[string]any
}

// SaveMessage inserts a message row. The write is idempotent on the
// platform-native MessageID: a duplicate insert returns the existing row
// instead of an error, so webhook redeliveries are harmless.
func SaveMessage(ctx context.Context, db *gorm.DB, p SaveMessageParams) (*domain.Message, error) {
	var existing domain.Message
	err := db.WithContext(ctx).Where("message_id = ?", p.MessageID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	m := &domain.Message{
		ID:         uuid.NewString(),
		MessageID:  p.MessageID,
		Platform:   p.Platform,
		Direction:  p.Direction,
		SenderType: p.SenderType,
		UserID:     p.UserID,
		ChannelID:  p.ChannelID,
		Text:       p.Text,
		Timestamp:  p.Timestamp,
		Metadata:   p.Metadata,
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			// Concurrent redelivery won the insert; its row is the message.
			var won domain.Message
			if gerr := db.WithContext(ctx).Where("message_id = ?", p.MessageID).First(&won).Error; gerr == nil {
				return &won, nil
			}
		}
		return nil, err
	}
	return m, nil
}

// GetMessage fetches a message by primary key.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListConversation returns the limit most recent messages of a channel in
// chronological order (oldest first). Ordering is by the original platform
// timestamp, not insertion order, since backfill can arrive out of order.
func ListConversation(ctx context.Context, db *gorm.DB, channelID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	var newest []domain.Message
	err := db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("timestamp DESC, created_at DESC, id DESC").
		Limit(limit).
		Find(&newest).Error
	if err != nil {
		return nil, err
	}
	// Reverse into oldest-first.
	out := make([]domain.Message, len(newest))
	for i, m := range newest {
		out[len(newest)-1-i] = m
	}
	return out, nil
}

// CountMessages returns the number of messages matching the optional
// platform/direction filters. Uses a raw COUNT so a missing table surfaces
// as an error.
func CountMessages(ctx context.Context, db *gorm.DB, platform, direction string) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.Message{})
	if platform != "" {
		q = q.Where("platform = ?", platform)
	}
	if direction != "" {
		q = q.Where("direction = ?", direction)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListMessagesPage returns a paginated slice ordered newest first, with
// optional platform/direction filters (admin listing).
func ListMessagesPage(ctx context.Context, db *gorm.DB, platform, direction string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.WithContext(ctx).Order("timestamp DESC, id DESC")
	if platform != "" {
		q = q.Where("platform = ?", platform)
	}
	if direction != "" {
		q = q.Where("direction = ?", direction)
	}
	err := q.Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}
