package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/catalog"
	"github.com/your-org/marketplace-backend/internal/domain/country"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/shipping"
	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
	"github.com/your-org/marketplace-backend/internal/pkg/logger"
	"github.com/your-org/marketplace-backend/internal/pkg/metrics"
	"github.com/your-org/marketplace-backend/internal/pkg/testutil"
	"gorm.io/gorm"
)

var (
	us       = country.Destination{Name: "United States", Code: "US"}
	atlantis = country.Destination{Name: "Atlantis", Code: "AT"}
)

type fixture struct {
	db       *gorm.DB
	m        testutil.Marketplace
	carts    *cart.Service
	checkout *Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t,
		&cart.Cart{}, &cart.CartItem{},
		&order.Order{}, &order.OrderGroup{}, &order.OrderItem{}, &order.OrderStatusHistory{},
	)
	m := testutil.SeedMarketplace(t, db)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.CheckoutConfig{
		Currency:                "USD",
		LookupTimeout:           2 * time.Second,
		MaxParallelLookups:      4,
		FallbackShippingService: "International Delivery",
		FallbackDeliveryMin:     7,
		FallbackDeliveryMax:     30,
		GuestCartTTL:            time.Hour,
	}
	log := logger.Discard()
	reader := catalog.NewRepository(db)
	calc := shipping.NewCalculator(reader, cfg, log)
	revalidator := cart.NewRevalidator(reader, calc, cfg, metrics.New(), log)
	carts := cart.NewService(db, client, reader, cart.NewSyncer(revalidator), cfg, log)

	svc := NewService(carts, revalidator, order.NewSplitter(calc), order.NewPersister(db, log), cfg, metrics.New(), log)
	return fixture{db: db, m: m, carts: carts, checkout: svc}
}

func (f fixture) cartWith(t *testing.T, userID uint, lines map[testutil.Line]int, keys ...testutil.Line) uint {
	t.Helper()
	owner := cart.Owner{UserID: &userID}
	for _, l := range keys {
		require.NoError(t, f.carts.AddLine(context.Background(), owner, cart.AddLineRequest{
			ProductID: l.ProductID, VariantID: l.VariantID, SizeID: l.SizeID, Quantity: lines[l],
		}))
	}
	resp, err := f.carts.GetCart(context.Background(), owner, us)
	require.NoError(t, err)
	require.NotNil(t, resp.CartID)
	return *resp.CartID
}

func placeReq(userID, cartID uint) PlaceOrderRequest {
	return PlaceOrderRequest{
		UserID: userID,
		Email:  "buyer@example.com",
		CartID: cartID,
		ShippingAddress: order.Address{
			FirstName:    "Ada",
			LastName:     "Lovelace",
			AddressLine1: "1 Main St",
			City:         "Springfield",
			Country:      "US",
		},
	}
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s got %s", want, got.String())
}

func TestPlaceOrder_TwoStores(t *testing.T) {
	f := newFixture(t)
	userID := uint(21)
	cartID := f.cartWith(t, userID, map[testutil.Line]int{f.m.Tee: 3, f.m.Mug: 5}, f.m.Tee, f.m.Mug)

	res, err := f.checkout.PlaceOrder(context.Background(), placeReq(userID, cartID), us)
	require.NoError(t, err)
	require.NotZero(t, res.OrderID)

	placed := res.Order
	require.Len(t, placed.Groups, 2)

	tee := placed.Groups[0]
	assert.Equal(t, f.m.ItemStore.ID, tee.StoreID)
	assert.Equal(t, "Thread & Co", tee.StoreName)
	assertMoney(t, "9", tee.ShippingFees)
	assertMoney(t, "69", tee.Total)
	assert.Equal(t, "Standard Post", tee.ShippingService)
	assert.Equal(t, 3, tee.ShippingDeliveryMin)
	assert.Equal(t, 7, tee.ShippingDeliveryMax)

	mug := placed.Groups[1]
	assert.Equal(t, f.m.FixedStore.ID, mug.StoreID)
	assertMoney(t, "10", mug.ShippingFees)
	assertMoney(t, "77.50", mug.Total)
	require.Len(t, mug.Items, 1)
	assertMoney(t, "13.50", mug.Items[0].Price)
	assert.Equal(t, "Courier", mug.ShippingService)

	assertMoney(t, "19", placed.ShippingFees)
	assertMoney(t, "127.50", placed.SubTotal)
	assertMoney(t, "146.50", placed.Total)
	assert.Equal(t, "USD", placed.Currency)
	assert.Equal(t, "United States", placed.CountryName)
	assert.Equal(t, order.OrderStatusPending, placed.Status)

	// placing an order leaves the cart alone
	lines, err := f.carts.Lines(context.Background(), cart.Owner{UserID: &userID})
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestPlaceOrder_ClampsToStock(t *testing.T) {
	f := newFixture(t)
	userID := uint(22)
	cartID := f.cartWith(t, userID, map[testutil.Line]int{f.m.Cap: 50}, f.m.Cap)

	res, err := f.checkout.PlaceOrder(context.Background(), placeReq(userID, cartID), us)
	require.NoError(t, err)
	require.Len(t, res.Order.Groups, 1)
	require.Len(t, res.Order.Groups[0].Items, 1)
	assert.Equal(t, 4, res.Order.Groups[0].Items[0].Quantity)
	assertMoney(t, "0", res.Order.ShippingFees)
	assertMoney(t, "48", res.Order.Total)
}

type recordingNotifier struct {
	sent chan *order.Order
	err  error
}

func (n *recordingNotifier) SendOrderConfirmation(ctx context.Context, o *order.Order) error {
	_, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return errors.New("no deadline")
	}
	n.sent <- o
	return n.err
}

func TestPlaceOrder_SendsConfirmation(t *testing.T) {
	f := newFixture(t)
	notifier := &recordingNotifier{sent: make(chan *order.Order, 1), err: errors.New("mail down")}
	f.checkout.SetNotifier(notifier, time.Second)

	userID := uint(27)
	cartID := f.cartWith(t, userID, map[testutil.Line]int{f.m.Tee: 1}, f.m.Tee)

	// the request context ending must not cancel the send
	ctx, cancel := context.WithCancel(context.Background())
	res, err := f.checkout.PlaceOrder(ctx, placeReq(userID, cartID), us)
	cancel()
	require.NoError(t, err)

	select {
	case sent := <-notifier.sent:
		assert.Equal(t, res.OrderID, sent.ID)
		assert.Equal(t, "buyer@example.com", sent.Email)
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation was not sent")
	}
}

func TestPlaceOrder_AnyFailedLineVoidsCheckout(t *testing.T) {
	f := newFixture(t)
	userID := uint(23)
	cartID := f.cartWith(t, userID, map[testutil.Line]int{f.m.Tee: 1, f.m.Mug: 1}, f.m.Tee, f.m.Mug)

	// mug sells out between adding it and checking out
	require.NoError(t, f.db.Model(&catalog.Size{}).Where("id = ?", f.m.Mug.SizeID).Update("quantity", 0).Error)

	_, err := f.checkout.PlaceOrder(context.Background(), placeReq(userID, cartID), us)
	var lf *cart.LineFailuresError
	require.True(t, errors.As(err, &lf))
	require.Len(t, lf.Failures, 1)
	assert.Equal(t, 1, lf.Failures[0].Index)
	assert.Equal(t, apperrors.KindInvalidCartLine, lf.Kind())

	var count int64
	require.NoError(t, f.db.Model(&order.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPlaceOrder_UnroutableDestination(t *testing.T) {
	f := newFixture(t)
	userID := uint(24)
	cartID := f.cartWith(t, userID, map[testutil.Line]int{f.m.Tee: 1, f.m.Mug: 1}, f.m.Tee, f.m.Mug)

	_, err := f.checkout.PlaceOrder(context.Background(), placeReq(userID, cartID), atlantis)
	var lf *cart.LineFailuresError
	require.True(t, errors.As(err, &lf))
	assert.Len(t, lf.Failures, 2)
	assert.Equal(t, apperrors.KindUnroutableShipping, lf.Kind())
	assert.Equal(t, "shipping not available to this destination", lf.Failures[0].Message)
}

func TestPlaceOrder_CartMustBelongToBuyer(t *testing.T) {
	f := newFixture(t)
	cartID := f.cartWith(t, 25, map[testutil.Line]int{f.m.Tee: 1}, f.m.Tee)

	_, err := f.checkout.PlaceOrder(context.Background(), placeReq(26, cartID), us)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	_, err = f.checkout.PlaceOrder(context.Background(), placeReq(25, cartID), country.Destination{Name: "Nowhere"})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestSummarize(t *testing.T) {
	f := newFixture(t)
	userID := uint(27)
	cartID := f.cartWith(t, userID, map[testutil.Line]int{f.m.Tee: 3, f.m.Mug: 5}, f.m.Tee, f.m.Mug)

	summary, err := f.checkout.Summarize(context.Background(), cartID, userID, us)
	require.NoError(t, err)
	require.NotNil(t, summary.Plan)
	assert.Empty(t, summary.Failures)
	assertMoney(t, "146.50", summary.Plan.Total)

	summary, err = f.checkout.Summarize(context.Background(), cartID, userID, atlantis)
	require.NoError(t, err)
	assert.Nil(t, summary.Plan)
	assert.Len(t, summary.Failures, 2)

	var count int64
	require.NoError(t, f.db.Model(&order.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}
