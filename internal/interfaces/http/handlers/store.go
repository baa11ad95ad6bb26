// internal/interfaces/http/handlers/store.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/domain/catalog"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
)

// StoreHandler handles store follow endpoints
type StoreHandler struct {
	follows *catalog.FollowService
}

// NewStoreHandler creates a new store handler
func NewStoreHandler(follows *catalog.FollowService) *StoreHandler {
	return &StoreHandler{follows: follows}
}

// GetFollowing handles GET /stores/:id/following. Anonymous buyers always
// get false.
func (h *StoreHandler) GetFollowing(c *gin.Context) {
	storeID, ok := parseIDParam(c, "id", "store ID")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	following, err := h.follows.IsFollowing(ctx, middleware.UserIDPtr(c), storeID)
	if err != nil {
		respondError(c, err)
		return
	}
	followers, err := h.follows.FollowerCount(ctx, storeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"store_id":       storeID,
			"is_following":   following,
			"follower_count": followers,
		},
	})
}

// ToggleFollow handles POST /stores/:id/follow
func (h *StoreHandler) ToggleFollow(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	storeID, ok := parseIDParam(c, "id", "store ID")
	if !ok {
		return
	}

	following, err := h.follows.ToggleFollow(c.Request.Context(), &userID, storeID)
	if errors.Is(err, catalog.ErrNotFound) {
		respondError(c, apperrors.Wrap(apperrors.KindNotFound, "store not found", err))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Store unfollowed"
	if following {
		message = "Store followed"
	}
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data": gin.H{
			"store_id":     storeID,
			"is_following": following,
		},
	})
}
