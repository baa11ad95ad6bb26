// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one line of a client cart. It is untrusted: it carries no
// price and its quantity is only a request.
type CartLine struct {
	ProductID uint `json:"product_id" binding:"required"`
	VariantID uint `json:"variant_id" binding:"required"`
	SizeID    uint `json:"size_id" binding:"required"`
	Quantity  int  `json:"quantity"`
}

// LineKey identifies a purchasable size regardless of quantity
type LineKey struct {
	ProductID uint `json:"product_id" form:"product_id" binding:"required"`
	VariantID uint `json:"variant_id" form:"variant_id" binding:"required"`
	SizeID    uint `json:"size_id" form:"size_id" binding:"required"`
}

// Key returns the line's identity
func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, VariantID: l.VariantID, SizeID: l.SizeID}
}

// Coalesce merges lines with the same key, summing quantities and keeping
// the order of first occurrence. firstIndex maps each merged line to the
// position of its first occurrence in lines. A line with a quantity of zero
// or less is never merged so it is still reported at its own index.
func Coalesce(lines []CartLine) (merged []CartLine, firstIndex []int) {
	positions := make(map[LineKey]int, len(lines))
	for i, line := range lines {
		if line.Quantity <= 0 {
			merged = append(merged, line)
			firstIndex = append(firstIndex, i)
			continue
		}
		if pos, ok := positions[line.Key()]; ok {
			merged[pos].Quantity += line.Quantity
			continue
		}
		positions[line.Key()] = len(merged)
		merged = append(merged, line)
		firstIndex = append(firstIndex, i)
	}
	return merged, firstIndex
}

// Cart is a signed-in buyer's stored cart. Prices on the cart and its items
// are the last computed snapshot and are for display only.
type Cart struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	CountryCode  string          `gorm:"size:2" json:"country_code"`
	CountryName  string          `gorm:"size:100" json:"country_name"`
	SubTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"sub_total"`
	ShippingFees decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"shipping_fees"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// Lines returns the cart's lines without their stored prices
func (c *Cart) Lines() []CartLine {
	lines := make([]CartLine, len(c.Items))
	for i, item := range c.Items {
		lines[i] = item.Line()
	}
	return lines
}

// CartItem is one line of a stored cart
type CartItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CartID      uint            `gorm:"not null;uniqueIndex:idx_cart_items_line" json:"cart_id"`
	ProductID   uint            `gorm:"not null;uniqueIndex:idx_cart_items_line" json:"product_id"`
	VariantID   uint            `gorm:"not null;uniqueIndex:idx_cart_items_line" json:"variant_id"`
	SizeID      uint            `gorm:"not null;uniqueIndex:idx_cart_items_line" json:"size_id"`
	StoreID     uint            `gorm:"index" json:"store_id"`
	ProductSlug string          `gorm:"size:255" json:"product_slug"`
	VariantSlug string          `gorm:"size:255" json:"variant_slug"`
	SKU         string          `gorm:"size:100" json:"sku"`
	Name        string          `gorm:"size:255" json:"name"`
	VariantName string          `gorm:"size:255" json:"variant_name"`
	Image       string          `gorm:"size:500" json:"image"`
	Size        string          `gorm:"size:50" json:"size"`
	Quantity    int             `gorm:"not null;default:1" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	ShippingFee decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"shipping_fee"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_price"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Line returns the item's identity and requested quantity
func (i CartItem) Line() CartLine {
	return CartLine{ProductID: i.ProductID, VariantID: i.VariantID, SizeID: i.SizeID, Quantity: i.Quantity}
}

// TableName overrides the table name
func (Cart) TableName() string {
	return "carts"
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// SessionCart represents a cart session for guest users (stored in Redis)
type SessionCart struct {
	SessionID string            `json:"session_id"`
	Items     []SessionCartItem `json:"items"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Lines returns the guest cart's lines
func (c *SessionCart) Lines() []CartLine {
	lines := make([]CartLine, len(c.Items))
	for i, item := range c.Items {
		lines[i] = item.CartLine
	}
	return lines
}

// SessionCartItem represents a cart item for guest users
type SessionCartItem struct {
	CartLine
	AddedAt time.Time `json:"added_at"`
}

// CartTotals summarises a set of priced lines
type CartTotals struct {
	ItemCount     int             `json:"item_count"`     // Number of unique lines
	TotalQuantity int             `json:"total_quantity"` // Sum of fulfilled quantities
	SubTotal      decimal.Decimal `json:"sub_total"`      // Goods only
	ShippingFees  decimal.Decimal `json:"shipping_fees"`
	Total         decimal.Decimal `json:"total"`
}
