// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus represents payment status
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Order is one checkout. It owns one group per store in the cart.
type Order struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	OrderNumber   string        `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID        uint          `gorm:"not null;index" json:"user_id"`
	Email         string        `gorm:"size:255" json:"email"`
	Status        OrderStatus   `gorm:"not null;default:'pending'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"not null;default:'pending'" json:"payment_status"`

	// Financial Information
	SubTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"sub_total"`
	ShippingFees decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"shipping_fees"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	Currency     string          `gorm:"size:3;default:'USD'" json:"currency"`

	// Destination the order was priced for
	CountryCode     string  `gorm:"size:2" json:"country_code"`
	CountryName     string  `gorm:"size:100" json:"country_name"`
	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	Notes string `gorm:"type:text" json:"notes"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Groups        []OrderGroup         `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"groups"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderGroup is the part of an order fulfilled by a single store
type OrderGroup struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;uniqueIndex:idx_order_groups_store" json:"order_id"`
	StoreID   uint        `gorm:"not null;uniqueIndex:idx_order_groups_store;index" json:"store_id"`
	StoreName string      `gorm:"size:255" json:"store_name"`
	Status    OrderStatus `gorm:"not null;default:'pending'" json:"status"`

	SubTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"sub_total"`
	ShippingFees decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shipping_fees"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`

	ShippingService     string `gorm:"size:100" json:"shipping_service"`
	ShippingDeliveryMin int    `json:"shipping_delivery_min"`
	ShippingDeliveryMax int    `json:"shipping_delivery_max"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderGroupID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// OrderItem is an immutable copy of a revalidated cart line
type OrderItem struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	OrderGroupID uint   `gorm:"not null;index" json:"order_group_id"`
	OrderID      uint   `gorm:"not null;index" json:"order_id"`
	ProductID    uint   `gorm:"not null;index" json:"product_id"`
	VariantID    uint   `gorm:"not null" json:"variant_id"`
	SizeID       uint   `gorm:"not null" json:"size_id"`
	ProductSlug  string `gorm:"size:255" json:"product_slug"`
	VariantSlug  string `gorm:"size:255" json:"variant_slug"`
	SKU          string `gorm:"size:100" json:"sku"`
	Name         string `gorm:"not null;size:255" json:"name"`
	VariantName  string `gorm:"size:255" json:"variant_name"`
	Image        string `gorm:"size:500" json:"image"`
	Size         string `gorm:"size:50" json:"size"`

	Quantity    int             `gorm:"not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	ShippingFee decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shipping_fee"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedBy uint        `gorm:"index" json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
}

// Address is the shipping address embedded in Order
type Address struct {
	FirstName    string `gorm:"size:100" json:"first_name" binding:"required"`
	LastName     string `gorm:"size:100" json:"last_name" binding:"required"`
	Company      string `gorm:"size:100" json:"company"`
	AddressLine1 string `gorm:"size:255" json:"address_line1" binding:"required"`
	AddressLine2 string `gorm:"size:255" json:"address_line2"`
	City         string `gorm:"size:100" json:"city" binding:"required"`
	State        string `gorm:"size:100" json:"state"`
	PostalCode   string `gorm:"size:20" json:"postal_code"`
	Country      string `gorm:"size:2" json:"country" binding:"required,len=2"`
	Phone        string `gorm:"size:20" json:"phone"`
}

// FullName joins first and last name
func (a Address) FullName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderGroup) TableName() string         { return "order_groups" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// GenerateOrderNumber generates the public order number once the ID is known
func (o *Order) GenerateOrderNumber() string {
	// Format: ORD-YYYYMMDD-XXXXX
	return fmt.Sprintf("ORD-%s-%05d", o.CreatedAt.UTC().Format("20060102"), o.ID)
}

// CanBeCancelled checks if order can be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

// Group returns the group with the given ID
func (o *Order) Group(groupID uint) (*OrderGroup, bool) {
	for i := range o.Groups {
		if o.Groups[i].ID == groupID {
			return &o.Groups[i], true
		}
	}
	return nil, false
}

// ItemCount is the number of items across all groups
func (o *Order) ItemCount() int {
	n := 0
	for _, g := range o.Groups {
		n += len(g.Items)
	}
	return n
}
