// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/botdo/go-relay-backend/internal/domain"
)

// isUniqueViolation reports whether err is a unique-constraint failure.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// GetOrCreateUser returns the user identified by (platform, platformUserID),
// creating it if absent. Non-empty displayName/email and a non-nil metadata
// map refresh the stored row. A concurrent insert losing the unique-index
// race falls back to reading the winner's row.
func GetOrCreateUser(ctx context.Context, db *gorm.DB, platform, platformUserID, displayName, email string, metadata map[string]any) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("platform = ? AND platform_user_id = ?", platform, platformUserID).
		First(&u).Error
	switch {
	case err == nil:
		changed := false
		if displayName != "" && displayName != u.DisplayName {
			u.DisplayName = displayName
			changed = true
		}
		if email != "" && email != u.Email {
			u.Email = email
			changed = true
		}
		if metadata != nil {
			u.Metadata = metadata
			changed = true
		}
		if changed {
			if err := db.WithContext(ctx).Save(&u).Error; err != nil {
				return nil, err
			}
		}
		return &u, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fall through to create
	default:
		return nil, err
	}

	u = domain.User{
		ID:             uuid.NewString(),
		Platform:       platform,
		PlatformUserID: platformUserID,
		DisplayName:    displayName,
		Email:          email,
		Metadata:       metadata,
	}
	if err := db.WithContext(ctx).Create(&u).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost the race: another handler created the row first.
			var existing domain.User
			if gerr := db.WithContext(ctx).
				Where("platform = ? AND platform_user_id = ?", platform, platformUserID).
				First(&existing).Error; gerr == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user row. Unlike GetOrCreateUser it treats an
// existing (platform, platform_user_id) pair as an error, returning
// ErrDuplicate, so that external create endpoints can report the conflict.
func CreateUser(ctx context.Context, db *gorm.DB, platform, platformUserID, displayName, email string, metadata map[string]any) (*domain.User, error) {
	u := domain.User{
		ID:             uuid.NewString(),
		Platform:       platform,
		PlatformUserID: platformUserID,
		DisplayName:    displayName,
		Email:          email,
		Metadata:       metadata,
	}
	if err := db.WithContext(ctx).Create(&u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &u, nil
}

// GetUser fetches a user by primary key.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CountUsers returns the number of users, optionally filtered by platform.
func CountUsers(ctx context.Context, db *gorm.DB, platform string) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.User{})
	if platform != "" {
		q = q.Where("platform = ?", platform)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListUsersPage returns a page of users ordered by creation time descending.
func ListUsersPage(ctx context.Context, db *gorm.DB, platform string, offset, limit int) ([]domain.User, error) {
	var out []domain.User
	q := db.WithContext(ctx).Order("created_at DESC, id DESC")
	if platform != "" {
		q = q.Where("platform = ?", platform)
	}
	err := q.Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}
