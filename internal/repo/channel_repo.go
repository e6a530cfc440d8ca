// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Channel model.
package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/botdo/go-relay-backend/internal/domain"
)

// GetOrCreateChannel returns the channel identified by
// (platform, platformChannelID), creating it if absent. A non-empty name and
// a non-nil metadata map refresh the stored row.
func GetOrCreateChannel(ctx context.Context, db *gorm.DB, platform, platformChannelID, name string, metadata map[string]any) (*domain.Channel, error) {
	var ch domain.Channel
	err := db.WithContext(ctx).
		Where("platform = ? AND platform_channel_id = ?", platform, platformChannelID).
		First(&ch).Error
	switch {
	case err == nil:
		changed := false
		if name != "" && name != ch.Name {
			ch.Name = name
			changed = true
		}
		if metadata != nil {
			ch.Metadata = metadata
			changed = true
		}
		if changed {
			if err := db.WithContext(ctx).Save(&ch).Error; err != nil {
				return nil, err
			}
		}
		return &ch, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fall through to create
	default:
		return nil, err
	}

	ch = domain.Channel{
		ID:                uuid.NewString(),
		Platform:          platform,
		PlatformChannelID: platformChannelID,
		Name:              name,
		IsActive:          true,
		Metadata:          metadata,
	}
	if err := db.WithContext(ctx).Create(&ch).Error; err != nil {
		if isUniqueViolation(err) {
			var existing domain.Channel
			if gerr := db.WithContext(ctx).
				Where("platform = ? AND platform_channel_id = ?", platform, platformChannelID).
				First(&existing).Error; gerr == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	return &ch, nil
}

// CreateChannel inserts a new channel row. An existing
// (platform, platform_channel_id) pair yields ErrDuplicate.
func CreateChannel(ctx context.Context, db *gorm.DB, platform, platformChannelID, name string, metadata map[string]any) (*domain.Channel, error) {
	ch := domain.Channel{
		ID:                uuid.NewString(),
		Platform:          platform,
		PlatformChannelID: platformChannelID,
		Name:              name,
		IsActive:          true,
		Metadata:          metadata,
	}
	if err := db.WithContext(ctx).Create(&ch).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &ch, nil
}

// GetChannel fetches a channel by primary key.
func GetChannel(ctx context.Context, db *gorm.DB, id string) (*domain.Channel, error) {
	var ch domain.Channel
	if err := db.WithContext(ctx).Where("id = ?", id).First(&ch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ch, nil
}

// CountChannels returns the number of channels, optionally filtered by platform.
func CountChannels(ctx context.Context, db *gorm.DB, platform string) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.Channel{})
	if platform != "" {
		q = q.Where("platform = ?", platform)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListChannelsPage returns a page of channels ordered by creation time descending.
func ListChannelsPage(ctx context.Context, db *gorm.DB, platform string, offset, limit int) ([]domain.Channel, error) {
	var out []domain.Channel
	q := db.WithContext(ctx).Order("created_at DESC, id DESC")
	if platform != "" {
		q = q.Where("platform = ?", platform)
	}
	err := q.Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}
