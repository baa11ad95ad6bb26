// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/country"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"github.com/your-org/marketplace-backend/internal/pkg/metrics"
)

// CartStore loads a buyer's stored cart
type CartStore interface {
	FindUserCart(ctx context.Context, cartID, userID uint) (*cart.Cart, error)
}

// LineRevalidator prices cart lines against the catalog
type LineRevalidator interface {
	Revalidate(ctx context.Context, lines []cart.CartLine, dest country.Destination) []cart.LineResult
}

// OrderSplitter partitions validated items into per-store groups
type OrderSplitter interface {
	Split(ctx context.Context, items []cart.ValidatedLineItem, dest country.Destination) (*order.Plan, error)
}

// OrderPersister stores a plan atomically
type OrderPersister interface {
	Persist(ctx context.Context, header order.Header, plan *order.Plan) (*order.Order, error)
}

// OrderNotifier tells the buyer about a placed order
type OrderNotifier interface {
	SendOrderConfirmation(ctx context.Context, o *order.Order) error
}

// Service turns a stored cart into a placed order
type Service struct {
	carts       CartStore
	revalidator LineRevalidator
	splitter    OrderSplitter
	persister   OrderPersister
	notifier    OrderNotifier
	notifyAfter time.Duration
	currency    string
	metrics     *metrics.Metrics
	logger      *logrus.Logger
}

// NewService creates a new checkout service
func NewService(
	carts CartStore,
	revalidator LineRevalidator,
	splitter OrderSplitter,
	persister OrderPersister,
	cfg config.CheckoutConfig,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *Service {
	return &Service{
		carts:       carts,
		revalidator: revalidator,
		splitter:    splitter,
		persister:   persister,
		currency:    cfg.Currency,
		metrics:     m,
		logger:      logger,
	}
}

// SetNotifier sends a confirmation through n after every placed order. Each
// send gets at most timeout and never fails the checkout.
func (s *Service) SetNotifier(n OrderNotifier, timeout time.Duration) {
	s.notifier = n
	s.notifyAfter = timeout
}

// PlaceOrderRequest represents order placement data
type PlaceOrderRequest struct {
	UserID          uint          `json:"-"`
	Email           string        `json:"-"`
	CartID          uint          `json:"cart_id" binding:"required"`
	ShippingAddress order.Address `json:"shipping_address" binding:"required"`
	Notes           string        `json:"notes,omitempty"`
}

// PlaceOrderResult is the placed order
type PlaceOrderResult struct {
	OrderID uint         `json:"order_id"`
	Order   *order.Order `json:"order"`
}

// Summary previews how a cart would be split and priced without placing it
type Summary struct {
	Country  country.Destination `json:"country"`
	Plan     *order.Plan         `json:"plan,omitempty"`
	Failures []cart.LineFailure  `json:"failures"`
}

// PlaceOrder revalidates the buyer's cart for dest and persists it as one
// order with a group per store. A single failed line voids the whole
// checkout. The cart itself is left untouched.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest, dest country.Destination) (*PlaceOrderResult, error) {
	result, err := s.placeOrder(ctx, req, dest)
	if err != nil {
		kind := apperrors.KindOf(err)
		var lf *cart.LineFailuresError
		if errors.As(err, &lf) {
			kind = lf.Kind()
		}
		s.metrics.CheckoutFailed(string(kind))
		s.logger.WithFields(logrus.Fields{
			"user_id": req.UserID,
			"cart_id": req.CartID,
			"country": dest.Code,
			"kind":    kind,
		}).WithError(err).Warn("Checkout failed")
		return nil, err
	}

	s.metrics.OrderPlaced(len(result.Order.Groups))
	if s.notifier != nil {
		go s.notify(context.WithoutCancel(ctx), result.Order)
	}
	return result, nil
}

func (s *Service) notify(ctx context.Context, placed *order.Order) {
	if s.notifyAfter > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.notifyAfter)
		defer cancel()
	}

	if err := s.notifier.SendOrderConfirmation(ctx, placed); err != nil {
		s.logger.WithFields(logrus.Fields{
			"order_id":     placed.ID,
			"order_number": placed.OrderNumber,
		}).WithError(err).Warn("Order confirmation not sent")
	}
}

func (s *Service) placeOrder(ctx context.Context, req PlaceOrderRequest, dest country.Destination) (*PlaceOrderResult, error) {
	if err := dest.Validate(); err != nil {
		return nil, err
	}

	items, err := s.revalidateCart(ctx, req.CartID, req.UserID, dest)
	if err != nil {
		return nil, err
	}

	plan, err := s.splitter.Split(ctx, items, dest)
	if err != nil {
		return nil, err
	}

	placed, err := s.persister.Persist(ctx, order.Header{
		UserID:          req.UserID,
		Email:           req.Email,
		ShippingAddress: req.ShippingAddress,
		Currency:        s.currency,
		Destination:     dest,
		Notes:           req.Notes,
	}, plan)
	if err != nil {
		return nil, err
	}

	return &PlaceOrderResult{OrderID: placed.ID, Order: placed}, nil
}

// Summarize revalidates and splits the cart without persisting anything.
// Line failures are returned in the summary rather than as an error.
func (s *Service) Summarize(ctx context.Context, cartID, userID uint, dest country.Destination) (*Summary, error) {
	items, err := s.revalidateCart(ctx, cartID, userID, dest)
	summary := &Summary{Country: dest, Failures: []cart.LineFailure{}}
	var lf *cart.LineFailuresError
	if errors.As(err, &lf) {
		summary.Failures = lf.Failures
		return summary, nil
	}
	if err != nil {
		return nil, err
	}

	summary.Plan, err = s.splitter.Split(ctx, items, dest)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Service) revalidateCart(ctx context.Context, cartID, userID uint, dest country.Destination) ([]cart.ValidatedLineItem, error) {
	stored, err := s.carts.FindUserCart(ctx, cartID, userID)
	if err != nil {
		return nil, err
	}

	// stored prices are display-only; only the lines are trusted
	lines := stored.Lines()
	if len(lines) == 0 {
		return nil, apperrors.New(apperrors.KindValidation, "cart is empty")
	}

	results := s.revalidator.Revalidate(ctx, lines, dest)

	items := make([]cart.ValidatedLineItem, 0, len(results))
	var failures []cart.LineFailure
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures = append(failures, cart.NewLineFailure(r.Index, r.Line, r.Err))
		case r.Item.Quantity <= 0:
			failures = append(failures, cart.NewLineFailure(r.Index, r.Line,
				apperrors.New(apperrors.KindInvalidCartLine, "item is out of stock")))
		default:
			items = append(items, *r.Item)
		}
	}
	if len(failures) > 0 {
		return nil, &cart.LineFailuresError{Failures: failures}
	}
	return items, nil
}
