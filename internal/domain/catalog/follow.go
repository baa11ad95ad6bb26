// internal/domain/catalog/follow.go
package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrSignInRequired is returned when an anonymous buyer tries to follow a store
var ErrSignInRequired = errors.New("sign in required to follow a store")

// FollowService handles store-follow state for buyers
type FollowService struct {
	db *gorm.DB
}

// NewFollowService creates a new follow service
func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{db: db}
}

// IsFollowing reports whether the buyer follows the store. Anonymous buyers
// never follow anything, and no lookup is made for them.
func (s *FollowService) IsFollowing(ctx context.Context, userID *uint, storeID uint) (bool, error) {
	if userID == nil {
		return false, nil
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&StoreFollower{}).
		Where("user_id = ? AND store_id = ?", *userID, storeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check follow state: %w", err)
	}
	return count > 0, nil
}

// ToggleFollow follows the store if the buyer does not follow it yet and
// unfollows it otherwise. It returns the new state.
func (s *FollowService) ToggleFollow(ctx context.Context, userID *uint, storeID uint) (bool, error) {
	if userID == nil {
		return false, ErrSignInRequired
	}

	var following bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var store Store
		if err := tx.Select("id").First(&store, storeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("store %d: %w", storeID, ErrNotFound)
			}
			return fmt.Errorf("failed to load store: %w", err)
		}

		res := tx.Where("user_id = ? AND store_id = ?", *userID, storeID).Delete(&StoreFollower{})
		if res.Error != nil {
			return fmt.Errorf("failed to unfollow store: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			following = false
			return nil
		}

		if err := tx.Create(&StoreFollower{UserID: *userID, StoreID: storeID}).Error; err != nil {
			return fmt.Errorf("failed to follow store: %w", err)
		}
		following = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return following, nil
}

// FollowerCount returns how many buyers follow the store
func (s *FollowService) FollowerCount(ctx context.Context, storeID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&StoreFollower{}).
		Where("store_id = ?", storeID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return count, nil
}
