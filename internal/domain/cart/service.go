// internal/domain/cart/service.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/catalog"
	"github.com/your-org/marketplace-backend/internal/domain/country"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Owner identifies whose cart is being handled: a signed-in buyer or a guest
// session
type Owner struct {
	UserID    *uint
	SessionID string
}

// IsGuest reports whether the owner is an anonymous session
func (o Owner) IsGuest() bool {
	return o.UserID == nil
}

// Service handles stored carts. Signed-in carts live in the database, guest
// carts in Redis.
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	reader      catalog.Reader
	syncer      *Syncer
	guestTTL    time.Duration
	logger      *logrus.Logger
}

// NewService creates a new cart service
func NewService(db *gorm.DB, redisClient *redis.Client, reader catalog.Reader, syncer *Syncer, cfg config.CheckoutConfig, logger *logrus.Logger) *Service {
	ttl := cfg.GuestCartTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		db:          db,
		redisClient: redisClient,
		reader:      reader,
		syncer:      syncer,
		guestTTL:    ttl,
		logger:      logger,
	}
}

// CartResponse is a stored cart re-priced for a destination
type CartResponse struct {
	CartID    *uint  `json:"cart_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	UserID    *uint  `json:"user_id,omitempty"`
	*RefreshResult
}

// AddLineRequest represents add to cart request
type AddLineRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	VariantID uint `json:"variant_id" binding:"required"`
	SizeID    uint `json:"size_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// SetQuantityRequest represents update cart line request
type SetQuantityRequest struct {
	LineKey
	Quantity int `json:"quantity" binding:"min=0"`
}

// Lines returns the owner's stored lines
func (s *Service) Lines(ctx context.Context, owner Owner) ([]CartLine, error) {
	if owner.IsGuest() {
		guest, err := s.getGuestCart(ctx, owner.SessionID)
		if err != nil {
			return nil, err
		}
		return guest.Lines(), nil
	}

	c, err := s.findCartByUser(ctx, *owner.UserID)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return []CartLine{}, nil
		}
		return nil, err
	}
	return c.Lines(), nil
}

// GetCart returns the owner's cart re-priced for dest
func (s *Service) GetCart(ctx context.Context, owner Owner, dest country.Destination) (*CartResponse, error) {
	resp := &CartResponse{UserID: owner.UserID}

	var lines []CartLine
	if owner.IsGuest() {
		guest, err := s.getGuestCart(ctx, owner.SessionID)
		if err != nil {
			return nil, err
		}
		resp.SessionID = owner.SessionID
		lines = guest.Lines()
	} else {
		c, err := s.findCartByUser(ctx, *owner.UserID)
		switch {
		case err == nil:
			resp.CartID = &c.ID
			lines = c.Lines()
		case apperrors.Is(err, apperrors.KindNotFound):
			lines = []CartLine{}
		default:
			return nil, err
		}
	}

	refreshed, err := s.syncer.Refresh(ctx, lines, dest)
	if err != nil {
		return nil, err
	}
	resp.RefreshResult = refreshed
	return resp, nil
}

// AddLine adds quantity of a size to the cart, merging with an existing line
// for the same size
func (s *Service) AddLine(ctx context.Context, owner Owner, req AddLineRequest) error {
	if req.Quantity <= 0 {
		return apperrors.New(apperrors.KindValidation, "quantity must be at least 1")
	}

	// Validate the size exists before storing it
	if _, err := s.reader.GetProductWithVariantAndSize(ctx, req.ProductID, req.VariantID, req.SizeID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return apperrors.Wrap(apperrors.KindInvalidCartLine, "product, variant or size not found", err)
		}
		return apperrors.FromContext(fmt.Errorf("failed to load product: %w", err), "catalog lookup timed out")
	}

	line := CartLine{ProductID: req.ProductID, VariantID: req.VariantID, SizeID: req.SizeID, Quantity: req.Quantity}
	if owner.IsGuest() {
		return s.updateGuestCart(ctx, owner.SessionID, func(guest *SessionCart) error {
			for i := range guest.Items {
				if guest.Items[i].Key() == line.Key() {
					guest.Items[i].Quantity += line.Quantity
					return nil
				}
			}
			guest.Items = append(guest.Items, SessionCartItem{CartLine: line, AddedAt: time.Now().UTC()})
			return nil
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.ensureCart(tx, *owner.UserID)
		if err != nil {
			return err
		}

		item := CartItem{
			CartID:    c.ID,
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			SizeID:    line.SizeID,
			Quantity:  line.Quantity,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}, {Name: "variant_id"}, {Name: "size_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"quantity": gorm.Expr("cart_items.quantity + ?", line.Quantity)}),
		}).Create(&item).Error
		if err != nil {
			return fmt.Errorf("failed to add cart line: %w", err)
		}
		return nil
	})
}

// SetQuantity sets a line's quantity; zero or less removes the line
func (s *Service) SetQuantity(ctx context.Context, owner Owner, key LineKey, quantity int) error {
	if quantity <= 0 {
		return s.RemoveLine(ctx, owner, key)
	}

	if owner.IsGuest() {
		return s.updateGuestCart(ctx, owner.SessionID, func(guest *SessionCart) error {
			for i := range guest.Items {
				if guest.Items[i].Key() == key {
					guest.Items[i].Quantity = quantity
					return nil
				}
			}
			return apperrors.New(apperrors.KindNotFound, "item not found in cart")
		})
	}

	c, err := s.findCartByUser(ctx, *owner.UserID)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&CartItem{}).
		Where("cart_id = ? AND product_id = ? AND variant_id = ? AND size_id = ?", c.ID, key.ProductID, key.VariantID, key.SizeID).
		Update("quantity", quantity)
	if res.Error != nil {
		return fmt.Errorf("failed to update cart line: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.New(apperrors.KindNotFound, "item not found in cart")
	}
	return nil
}

// RemoveLine removes a line from the cart
func (s *Service) RemoveLine(ctx context.Context, owner Owner, key LineKey) error {
	if owner.IsGuest() {
		return s.updateGuestCart(ctx, owner.SessionID, func(guest *SessionCart) error {
			for i := range guest.Items {
				if guest.Items[i].Key() == key {
					guest.Items = append(guest.Items[:i], guest.Items[i+1:]...)
					return nil
				}
			}
			return apperrors.New(apperrors.KindNotFound, "item not found in cart")
		})
	}

	c, err := s.findCartByUser(ctx, *owner.UserID)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ? AND variant_id = ? AND size_id = ?", c.ID, key.ProductID, key.VariantID, key.SizeID).
		Delete(&CartItem{})
	if res.Error != nil {
		return fmt.Errorf("failed to remove cart line: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.New(apperrors.KindNotFound, "item not found in cart")
	}
	return nil
}

// Clear removes every line from the cart. Placing an order never does this
// implicitly.
func (s *Service) Clear(ctx context.Context, owner Owner) error {
	if owner.IsGuest() {
		if owner.SessionID == "" {
			return apperrors.New(apperrors.KindValidation, "session ID required for guest cart")
		}
		return s.redisClient.Del(ctx, guestKey(owner.SessionID)).Err()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Cart
		err := tx.Where("user_id = ?", *owner.UserID).First(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load cart: %w", err)
		}
		if err := tx.Where("cart_id = ?", c.ID).Delete(&CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return tx.Model(&c).Updates(map[string]interface{}{
			"sub_total":     0,
			"shipping_fees": 0,
			"total":         0,
		}).Error
	})
}

// MergeGuestCart moves a guest session's lines into the buyer's cart when
// they sign in
func (s *Service) MergeGuestCart(ctx context.Context, userID uint, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	guest, err := s.getGuestCart(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(guest.Items) == 0 {
		return nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.ensureCart(tx, userID)
		if err != nil {
			return err
		}
		for _, line := range guest.Lines() {
			item := CartItem{
				CartID:    c.ID,
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				SizeID:    line.SizeID,
				Quantity:  line.Quantity,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}, {Name: "variant_id"}, {Name: "size_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"quantity": gorm.Expr("cart_items.quantity + ?", line.Quantity)}),
			}).Create(&item).Error
			if err != nil {
				return fmt.Errorf("failed to merge cart line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"user_id": userID, "lines": len(guest.Items)}).Info("Merged guest cart")
	return s.redisClient.Del(ctx, guestKey(sessionID)).Err()
}

// Save re-prices the buyer's stored cart for dest and writes the price
// snapshot and totals back onto it
func (s *Service) Save(ctx context.Context, userID uint, dest country.Destination) (*Cart, *RefreshResult, error) {
	c, err := s.findCartByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	refreshed, err := s.syncer.Refresh(ctx, c.Lines(), dest)
	if err != nil {
		return nil, nil, err
	}

	priced := make(map[LineKey]RefreshedCartLine, len(refreshed.Lines))
	for _, line := range refreshed.Lines {
		priced[LineKey{ProductID: line.ProductID, VariantID: line.VariantID, SizeID: line.SizeID}] = line
	}

	items := make([]CartItem, 0, len(c.Items))
	for _, stored := range c.Items {
		item := CartItem{
			CartID:    c.ID,
			ProductID: stored.ProductID,
			VariantID: stored.VariantID,
			SizeID:    stored.SizeID,
			Quantity:  stored.Quantity,
		}
		if line, ok := priced[stored.Line().Key()]; ok {
			item.StoreID = line.StoreID
			item.ProductSlug = line.ProductSlug
			item.VariantSlug = line.VariantSlug
			item.SKU = line.SKU
			item.Name = line.Name
			item.VariantName = line.VariantName
			item.Image = line.Image
			item.Size = line.Size
			item.Price = line.Price
			item.ShippingFee = line.ShippingFee
			item.TotalPrice = line.TotalPrice
		}
		items = append(items, item)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", c.ID).Delete(&CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to replace cart items: %w", err)
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("failed to save cart items: %w", err)
			}
		}
		return tx.Model(&Cart{ID: c.ID}).Updates(map[string]interface{}{
			"country_code":  dest.Code,
			"country_name":  dest.Name,
			"sub_total":     refreshed.Totals.SubTotal,
			"shipping_fees": refreshed.Totals.ShippingFees,
			"total":         refreshed.Totals.Total,
		}).Error
	})
	if err != nil {
		if apperrors.IsContextError(err) {
			return nil, nil, apperrors.Wrap(apperrors.KindTimeout, "cart save timed out", err)
		}
		return nil, nil, apperrors.Wrap(apperrors.KindPersistence, "failed to save cart", err)
	}

	saved, err := s.findCartByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return saved, refreshed, nil
}

// FindUserCart loads a cart that must belong to userID
func (s *Service) FindUserCart(ctx context.Context, cartID, userID uint) (*Cart, error) {
	var c Cart
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ? AND user_id = ?", cartID, userID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "cart not found")
		}
		return nil, apperrors.FromContext(fmt.Errorf("failed to load cart: %w", err), "cart lookup timed out")
	}
	return &c, nil
}

// Private helper methods

func (s *Service) findCartByUser(ctx context.Context, userID uint) (*Cart, error) {
	var c Cart
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ?", userID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "cart not found")
		}
		return nil, apperrors.FromContext(fmt.Errorf("failed to load cart: %w", err), "cart lookup timed out")
	}
	return &c, nil
}

func (s *Service) ensureCart(tx *gorm.DB, userID uint) (*Cart, error) {
	var c Cart
	if err := tx.Where(Cart{UserID: userID}).FirstOrCreate(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return &c, nil
}

func guestKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}

func (s *Service) getGuestCart(ctx context.Context, sessionID string) (*SessionCart, error) {
	if sessionID == "" {
		return nil, apperrors.New(apperrors.KindValidation, "session ID required for guest cart")
	}

	cartData, err := s.redisClient.Get(ctx, guestKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		// Cart doesn't exist, return empty cart
		now := time.Now().UTC()
		return &SessionCart{
			SessionID: sessionID,
			Items:     []SessionCartItem{},
			CreatedAt: now,
			UpdatedAt: now,
			ExpiresAt: now.Add(s.guestTTL),
		}, nil
	} else if err != nil {
		return nil, apperrors.FromContext(fmt.Errorf("failed to load guest cart: %w", err), "guest cart lookup timed out")
	}

	var sessionCart SessionCart
	if err := json.Unmarshal([]byte(cartData), &sessionCart); err != nil {
		return nil, fmt.Errorf("failed to decode guest cart: %w", err)
	}
	return &sessionCart, nil
}

func (s *Service) updateGuestCart(ctx context.Context, sessionID string, mutate func(*SessionCart) error) error {
	guest, err := s.getGuestCart(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := mutate(guest); err != nil {
		return err
	}

	now := time.Now().UTC()
	guest.UpdatedAt = now
	guest.ExpiresAt = now.Add(s.guestTTL)

	cartData, err := json.Marshal(guest)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}
	if err := s.redisClient.Set(ctx, guestKey(sessionID), cartData, s.guestTTL).Err(); err != nil {
		return fmt.Errorf("failed to save guest cart: %w", err)
	}
	return nil
}
