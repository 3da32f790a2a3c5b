package checkout

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/internal/branding"
	"github.com/perkstack/rewards-backend/internal/campaigns"
	"github.com/perkstack/rewards-backend/internal/cart"
	"github.com/perkstack/rewards-backend/internal/employees"
	"github.com/perkstack/rewards-backend/internal/orders"
	"github.com/perkstack/rewards-backend/internal/products"
	"github.com/perkstack/rewards-backend/pkg/db/models"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
	"github.com/perkstack/rewards-backend/pkg/gateway"
	"github.com/perkstack/rewards-backend/pkg/logger"
	"github.com/perkstack/rewards-backend/pkg/outbox"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubGateway struct {
	session *gateway.PaymentSession
	status  *gateway.PaymentStatus
	started []gateway.PaymentRequest
}

func (s *stubGateway) StartPayment(ctx context.Context, req gateway.PaymentRequest) (*gateway.PaymentSession, error) {
	s.started = append(s.started, req)
	if s.session != nil {
		return s.session, nil
	}
	return &gateway.PaymentSession{TransactionID: req.MerchantTransactionID, RedirectURL: "https://pay.test"}, nil
}

func (s *stubGateway) VerifyPayment(ctx context.Context, transactionID string) (*gateway.PaymentStatus, error) {
	if s.status == nil {
		return &gateway.PaymentStatus{Code: gateway.CodeSuccess, TransactionID: transactionID}, nil
	}
	return s.status, nil
}

type stubLocker struct {
	claims   map[string]bool
	released []string
}

func newStubLocker() *stubLocker {
	return &stubLocker{claims: map[string]bool{}}
}

func (s *stubLocker) AcquireCheckoutLock(ctx context.Context, employeeID string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (s *stubLocker) ReleaseCheckoutLock(ctx context.Context, employeeID string) error {
	return nil
}

func (s *stubLocker) ClaimPayment(ctx context.Context, paymentID string, ttl time.Duration) (bool, error) {
	if s.claims[paymentID] {
		return false, nil
	}
	s.claims[paymentID] = true
	return true, nil
}

func (s *stubLocker) ReleasePayment(ctx context.Context, paymentID string) error {
	delete(s.claims, paymentID)
	s.released = append(s.released, paymentID)
	return nil
}

type checkoutFixture struct {
	db       *gorm.DB
	svc      Service
	gateway  *stubGateway
	locker   *stubLocker
	employee *models.Employee
	product  *models.Product
}

func setupCheckoutDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	// The production schema lives in the goose migrations; sqlite fixtures
	// mirror it with portable DDL.
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  base_price TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  colors TEXT,
  sizes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS price_slabs (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  min_qty INTEGER NOT NULL,
  max_qty INTEGER,
  price TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS employees (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  full_name TEXT NOT NULL,
  points INTEGER NOT NULL DEFAULT 0,
  bulk_buy_allowed INTEGER NOT NULL DEFAULT 0,
  role TEXT NOT NULL DEFAULT 'user',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS campaigns (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  max_products_per_user INTEGER,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS campaign_products (
  campaign_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  PRIMARY KEY (campaign_id, product_id)
);`,
		`CREATE TABLE IF NOT EXISTS campaign_access (
  id TEXT PRIMARY KEY,
  campaign_id TEXT NOT NULL,
  email TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  employee_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  selected_color TEXT,
  selected_size TEXT,
  campaign_id TEXT,
  is_bulk INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  employee_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  selected_color TEXT,
  selected_size TEXT,
  campaign_id TEXT,
  status TEXT NOT NULL DEFAULT 'placed',
  metadata TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS brandings (
  id TEXT PRIMARY KEY,
  company_name TEXT NOT NULL,
  inr_per_point TEXT NOT NULL DEFAULT '1',
  max_selections_per_user INTEGER NOT NULL DEFAULT -1,
  signup_domains TEXT,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newCheckoutFixture(t *testing.T, points int64, basePrice string, stock, qty int) *checkoutFixture {
	t.Helper()
	db := setupCheckoutDB(t)
	logg := logger.New(logger.Options{})

	require.NoError(t, db.Create(&models.Branding{
		CompanyName:          "Perkstack",
		InrPerPoint:          "2",
		MaxSelectionsPerUser: -1,
	}).Error)

	employee := &models.Employee{Email: "sam@corp.test", FullName: "Sam", Points: points}
	require.NoError(t, db.Create(employee).Error)

	product := &models.Product{SKU: "SKU-1", Name: "Notebook", BasePrice: basePrice, Stock: stock, IsActive: true}
	require.NoError(t, db.Create(product).Error)

	require.NoError(t, db.Create(&models.CartItem{
		EmployeeID: employee.ID,
		ProductID:  product.ID,
		Quantity:   qty,
	}).Error)

	gw := &stubGateway{}
	locks := newStubLocker()
	svc, err := NewService(
		gormTxRunner{db: db},
		cart.NewRepository(db),
		orders.NewRepository(db),
		products.NewRepository(db),
		employees.NewRepository(db),
		campaigns.NewRepository(db),
		branding.NewRepository(db),
		gw,
		locks,
		outbox.NewService(outbox.NewRepository(db), logg),
		nil,
		logg,
	)
	require.NoError(t, err)

	return &checkoutFixture{
		db:       db,
		svc:      svc,
		gateway:  gw,
		locker:   locks,
		employee: employee,
		product:  product,
	}
}

func delivery() DeliveryInput {
	return DeliveryInput{Method: "office_pickup"}
}

func TestQuoteUsesPerUnitCeiling(t *testing.T) {
	// rate 2, price 99: ceil(99/2)=50 points per unit, 150 for three.
	fx := newCheckoutFixture(t, 200, "99", 10, 3)

	quote, err := fx.svc.Quote(context.Background(), fx.employee.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), quote.RequiredPoints)
	assert.True(t, quote.TotalAmount.Equal(decimal.NewFromInt(297)))
	assert.Equal(t, int64(0), quote.Deficit)
}

func TestCheckoutInsufficientPoints(t *testing.T) {
	fx := newCheckoutFixture(t, 100, "99", 10, 3)

	_, err := fx.svc.Checkout(context.Background(), fx.employee.ID, delivery())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientResource, pkgerrors.As(err).Code())

	var product models.Product
	require.NoError(t, fx.db.First(&product, "id = ?", fx.product.ID).Error)
	assert.Equal(t, 10, product.Stock)
}

func TestCheckoutOutOfStock(t *testing.T) {
	fx := newCheckoutFixture(t, 1000, "99", 2, 3)

	_, err := fx.svc.Checkout(context.Background(), fx.employee.ID, delivery())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientResource, pkgerrors.As(err).Code())
}

func TestCheckoutCommits(t *testing.T) {
	fx := newCheckoutFixture(t, 200, "99", 10, 3)

	receipt, err := fx.svc.Checkout(context.Background(), fx.employee.ID, delivery())
	require.NoError(t, err)
	require.Len(t, receipt.Orders, 1)
	assert.Equal(t, int64(150), receipt.UsedPoints)
	assert.True(t, strings.HasPrefix(receipt.Orders[0].OrderNumber, "ORD-"))
	assert.Equal(t, int64(150), receipt.Orders[0].Metadata.UsedPoints)
	assert.Equal(t, "99", receipt.Orders[0].Metadata.UnitPrice)

	var product models.Product
	require.NoError(t, fx.db.First(&product, "id = ?", fx.product.ID).Error)
	assert.Equal(t, 7, product.Stock)

	var employee models.Employee
	require.NoError(t, fx.db.First(&employee, "id = ?", fx.employee.ID).Error)
	assert.Equal(t, int64(50), employee.Points)

	var cartCount int64
	require.NoError(t, fx.db.Model(&models.CartItem{}).Where("employee_id = ?", fx.employee.ID).Count(&cartCount).Error)
	assert.Equal(t, int64(0), cartCount)

	var eventCount int64
	require.NoError(t, fx.db.Model(&models.OutboxEvent{}).Count(&eventCount).Error)
	// One order event plus a points balance event.
	assert.Equal(t, int64(2), eventCount)
}

func TestCheckoutEmptyCart(t *testing.T) {
	fx := newCheckoutFixture(t, 200, "99", 10, 3)
	require.NoError(t, fx.db.Where("employee_id = ?", fx.employee.ID).Delete(&models.CartItem{}).Error)

	_, err := fx.svc.Checkout(context.Background(), fx.employee.ID, delivery())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestStartCopayRequiresShortfall(t *testing.T) {
	fx := newCheckoutFixture(t, 500, "99", 10, 3)

	_, err := fx.svc.StartCopay(context.Background(), fx.employee.ID, delivery())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestStartCopayDeficitMath(t *testing.T) {
	// required 150, balance 100 → deficit 50, copay = 50 * 2 INR.
	fx := newCheckoutFixture(t, 100, "99", 10, 3)

	session, err := fx.svc.StartCopay(context.Background(), fx.employee.ID, delivery())
	require.NoError(t, err)
	assert.True(t, session.CopayInr.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(100), session.UsedPoints)
	require.Len(t, fx.gateway.started, 1)
	assert.True(t, fx.gateway.started[0].Amount.Equal(decimal.NewFromInt(100)))
}

func TestConfirmCopayAmountMismatch(t *testing.T) {
	fx := newCheckoutFixture(t, 100, "99", 10, 3)
	fx.gateway.status = &gateway.PaymentStatus{
		Code:   gateway.CodeSuccess,
		Amount: decimal.NewFromInt(99),
	}

	_, err := fx.svc.ConfirmCopay(context.Background(), fx.employee.ID, "txn-1", delivery())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePayment, pkgerrors.As(err).Code())

	// The claim is released so a corrected payment can be retried explicitly.
	assert.Contains(t, fx.locker.released, "txn-1")

	var orderCount int64
	require.NoError(t, fx.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(0), orderCount)
}

func TestConfirmCopayNotSettled(t *testing.T) {
	fx := newCheckoutFixture(t, 100, "99", 10, 3)
	fx.gateway.status = &gateway.PaymentStatus{
		Code:   "PAYMENT_PENDING",
		Amount: decimal.NewFromInt(100),
	}

	_, err := fx.svc.ConfirmCopay(context.Background(), fx.employee.ID, "txn-1", delivery())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePayment, pkgerrors.As(err).Code())
}

func TestConfirmCopayCommitsAndZeroesPoints(t *testing.T) {
	fx := newCheckoutFixture(t, 100, "99", 10, 3)
	fx.gateway.status = &gateway.PaymentStatus{
		Code:   gateway.CodeSuccess,
		Amount: decimal.NewFromInt(100),
	}

	receipt, err := fx.svc.ConfirmCopay(context.Background(), fx.employee.ID, "txn-1", delivery())
	require.NoError(t, err)
	require.Len(t, receipt.Orders, 1)
	require.NotNil(t, receipt.CopayInr)
	assert.True(t, receipt.CopayInr.Equal(decimal.NewFromInt(100)))

	metadata := receipt.Orders[0].Metadata
	require.NotNil(t, metadata.CopayInr)
	assert.Equal(t, "100", *metadata.CopayInr)
	require.NotNil(t, metadata.PaymentID)
	assert.Equal(t, "txn-1", *metadata.PaymentID)

	var employee models.Employee
	require.NoError(t, fx.db.First(&employee, "id = ?", fx.employee.ID).Error)
	assert.Equal(t, int64(0), employee.Points)

	var product models.Product
	require.NoError(t, fx.db.First(&product, "id = ?", fx.product.ID).Error)
	assert.Equal(t, 7, product.Stock)
}

func TestConfirmCopayRejectsReusedPayment(t *testing.T) {
	fx := newCheckoutFixture(t, 100, "99", 10, 3)
	fx.gateway.status = &gateway.PaymentStatus{
		Code:   gateway.CodeSuccess,
		Amount: decimal.NewFromInt(100),
	}

	_, err := fx.svc.ConfirmCopay(context.Background(), fx.employee.ID, "txn-1", delivery())
	require.NoError(t, err)

	_, err = fx.svc.ConfirmCopay(context.Background(), fx.employee.ID, "txn-1", delivery())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}
