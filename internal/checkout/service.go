package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/internal/campaigns"
	"github.com/perkstack/rewards-backend/internal/cart"
	"github.com/perkstack/rewards-backend/internal/employees"
	"github.com/perkstack/rewards-backend/internal/orders"
	"github.com/perkstack/rewards-backend/internal/pricing"
	"github.com/perkstack/rewards-backend/internal/products"
	"github.com/perkstack/rewards-backend/pkg/db/models"
	"github.com/perkstack/rewards-backend/pkg/enums"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
	"github.com/perkstack/rewards-backend/pkg/gateway"
	"github.com/perkstack/rewards-backend/pkg/logger"
	"github.com/perkstack/rewards-backend/pkg/metrics"
	"github.com/perkstack/rewards-backend/pkg/outbox"
	"github.com/perkstack/rewards-backend/pkg/outbox/payloads"
	"github.com/perkstack/rewards-backend/pkg/types"
)

const (
	checkoutLockTTL = 30 * time.Second
	paymentClaimTTL = 24 * time.Hour

	copayTxnPrefix = "CP"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type settingsLoader interface {
	Get(ctx context.Context) (*models.Branding, error)
	ConversionRate(ctx context.Context) (decimal.Decimal, error)
}

type campaignLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	HasAccess(ctx context.Context, campaignID uuid.UUID, email string) (bool, error)
}

type paymentGateway interface {
	StartPayment(ctx context.Context, req gateway.PaymentRequest) (*gateway.PaymentSession, error)
	VerifyPayment(ctx context.Context, transactionID string) (*gateway.PaymentStatus, error)
}

type locker interface {
	AcquireCheckoutLock(ctx context.Context, employeeID string, ttl time.Duration) (bool, error)
	ReleaseCheckoutLock(ctx context.Context, employeeID string) error
	ClaimPayment(ctx context.Context, paymentID string, ttl time.Duration) (bool, error)
	ReleasePayment(ctx context.Context, paymentID string) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service executes checkout orchestration for the regular cart.
type Service interface {
	Quote(ctx context.Context, employeeID uuid.UUID) (*Quote, error)
	Checkout(ctx context.Context, employeeID uuid.UUID, delivery DeliveryInput) (*Receipt, error)
	StartCopay(ctx context.Context, employeeID uuid.UUID, delivery DeliveryInput) (*CopaySession, error)
	ConfirmCopay(ctx context.Context, employeeID uuid.UUID, transactionID string, delivery DeliveryInput) (*Receipt, error)
}

// DeliveryInput captures where the redeemed goods go.
type DeliveryInput struct {
	Method  enums.DeliveryMethod
	Address string
}

// QuoteLine is one cart row priced for checkout.
type QuoteLine struct {
	Item      models.CartItem `json:"item"`
	Product   string          `json:"product"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Points    int64           `json:"points"`
}

// Quote is the full cost picture for the employee's cart.
type Quote struct {
	Lines          []QuoteLine     `json:"lines"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	RequiredPoints int64           `json:"requiredPoints"`
	Balance        int64           `json:"balance"`
	Deficit        int64           `json:"deficit"`
	CopayInr       decimal.Decimal `json:"copayInr"`
}

// CopaySession is the handle returned when a co-pay payment is opened.
type CopaySession struct {
	TransactionID string          `json:"transactionId"`
	RedirectURL   string          `json:"redirectUrl"`
	CopayInr      decimal.Decimal `json:"copayInr"`
	UsedPoints    int64           `json:"usedPoints"`
}

// Receipt summarizes a committed checkout.
type Receipt struct {
	Orders     []models.Order   `json:"orders"`
	UsedPoints int64            `json:"usedPoints"`
	CopayInr   *decimal.Decimal `json:"copayInr,omitempty"`
}

type service struct {
	tx           txRunner
	cartRepo     cart.Repository
	ordersRepo   orders.Repository
	productRepo  products.Repository
	employeeRepo employees.Repository
	campaignRepo campaignLoader
	settings     settingsLoader
	gateway      paymentGateway
	locks        locker
	outbox       outboxPublisher
	metrics      *metrics.CheckoutMetrics
	logger       *logger.Logger
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	cartRepo cart.Repository,
	ordersRepo orders.Repository,
	productRepo products.Repository,
	employeeRepo employees.Repository,
	campaignRepo campaignLoader,
	settings settingsLoader,
	paymentClient paymentGateway,
	locks locker,
	publisher outboxPublisher,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if employeeRepo == nil {
		return nil, fmt.Errorf("employee repository required")
	}
	if campaignRepo == nil {
		return nil, fmt.Errorf("campaign loader required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings loader required")
	}
	if paymentClient == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if locks == nil {
		return nil, fmt.Errorf("locker required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:           tx,
		cartRepo:     cartRepo,
		ordersRepo:   ordersRepo,
		productRepo:  productRepo,
		employeeRepo: employeeRepo,
		campaignRepo: campaignRepo,
		settings:     settings,
		gateway:      paymentClient,
		locks:        locks,
		outbox:       publisher,
		metrics:      checkoutMetrics,
		logger:       logg,
	}, nil
}

func (s *service) Quote(ctx context.Context, employeeID uuid.UUID) (*Quote, error) {
	employee, err := s.employeeRepo.FindByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	items, err := s.cartRepo.ListByEmployee(ctx, employeeID, false)
	if err != nil {
		return nil, err
	}
	return s.buildQuote(ctx, employee, items)
}

// Checkout runs the points-only path: the employee's balance must cover the
// full point requirement.
func (s *service) Checkout(ctx context.Context, employeeID uuid.UUID, delivery DeliveryInput) (*Receipt, error) {
	if err := validateDelivery(delivery); err != nil {
		return nil, err
	}
	release, err := s.lockEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	defer release()

	employee, items, quote, err := s.prepare(ctx, employeeID)
	if err != nil {
		s.reject(metrics.PathPoints, err)
		return nil, err
	}
	if employee.Points < quote.RequiredPoints {
		err := pkgerrors.Newf(
			pkgerrors.CodeInsufficientResource,
			"insufficient points: need %d, have %d", quote.RequiredPoints, employee.Points,
		)
		s.reject(metrics.PathPoints, err)
		return nil, err
	}

	receipt, err := s.commit(ctx, commitInput{
		employee: employee,
		items:    items,
		quote:    quote,
		delivery: delivery,
	})
	if err != nil {
		s.reject(metrics.PathPoints, err)
		return nil, err
	}
	s.metrics.IncCommitted(metrics.PathPoints)
	return receipt, nil
}

// StartCopay quotes the cart, requires a shortfall, and opens a gateway
// payment for the rupee difference.
func (s *service) StartCopay(ctx context.Context, employeeID uuid.UUID, delivery DeliveryInput) (*CopaySession, error) {
	if err := validateDelivery(delivery); err != nil {
		return nil, err
	}
	employee, _, quote, err := s.prepare(ctx, employeeID)
	if err != nil {
		s.reject(metrics.PathCopay, err)
		return nil, err
	}
	if employee.Points >= quote.RequiredPoints {
		err := pkgerrors.New(pkgerrors.CodeValidation, "points cover the full amount, use regular checkout")
		s.reject(metrics.PathCopay, err)
		return nil, err
	}

	transactionID := fmt.Sprintf("%s-%s", copayTxnPrefix, uuid.NewString())
	session, err := s.gateway.StartPayment(ctx, gateway.PaymentRequest{
		MerchantTransactionID: transactionID,
		EmployeeRef:           employee.ID.String(),
		Amount:                quote.CopayInr,
	})
	if err != nil {
		s.reject(metrics.PathCopay, err)
		return nil, err
	}
	return &CopaySession{
		TransactionID: session.TransactionID,
		RedirectURL:   session.RedirectURL,
		CopayInr:      quote.CopayInr,
		UsedPoints:    employee.Points,
	}, nil
}

// ConfirmCopay verifies the gateway payment and commits the order batch. The
// settled amount must match the recomputed co-pay to the paisa; anything else
// fails hard and is never retried automatically.
func (s *service) ConfirmCopay(ctx context.Context, employeeID uuid.UUID, transactionID string, delivery DeliveryInput) (*Receipt, error) {
	if err := validateDelivery(delivery); err != nil {
		return nil, err
	}
	if strings.TrimSpace(transactionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	release, err := s.lockEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	defer release()

	claimed, err := s.locks.ClaimPayment(ctx, transactionID, paymentClaimTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to claim payment")
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment has already been consumed")
	}
	receipt, err := s.confirmCopayClaimed(ctx, employeeID, transactionID, delivery)
	if err != nil {
		if releaseErr := s.locks.ReleasePayment(ctx, transactionID); releaseErr != nil && s.logger != nil {
			s.logger.Error(ctx, "failed to release payment claim", releaseErr)
		}
		s.reject(metrics.PathCopay, err)
		return nil, err
	}
	s.metrics.IncCommitted(metrics.PathCopay)
	return receipt, nil
}

func (s *service) confirmCopayClaimed(ctx context.Context, employeeID uuid.UUID, transactionID string, delivery DeliveryInput) (*Receipt, error) {
	employee, items, quote, err := s.prepare(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if employee.Points >= quote.RequiredPoints {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points cover the full amount, use regular checkout")
	}

	status, err := s.gateway.VerifyPayment(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !status.Paid() {
		return nil, pkgerrors.Newf(pkgerrors.CodePayment, "payment not settled: %s", status.Code)
	}
	if !status.Amount.Equal(quote.CopayInr) {
		s.metrics.IncAmountMismatch()
		if s.logger != nil {
			logCtx := s.logger.WithField(ctx, "payment_id", transactionID)
			s.logger.Warn(logCtx, fmt.Sprintf("co-pay amount mismatch: settled %s, expected %s", status.Amount, quote.CopayInr))
		}
		return nil, pkgerrors.Newf(
			pkgerrors.CodePayment,
			"settled amount %s does not match required co-pay %s", status.Amount, quote.CopayInr,
		)
	}

	return s.commit(ctx, commitInput{
		employee:  employee,
		items:     items,
		quote:     quote,
		delivery:  delivery,
		copay:     &quote.CopayInr,
		paymentID: &transactionID,
	})
}

type commitInput struct {
	employee  *models.Employee
	items     []models.CartItem
	quote     *Quote
	delivery  DeliveryInput
	copay     *decimal.Decimal
	paymentID *string
}

// commit is the single transactional boundary: guarded stock decrements,
// order inserts, points write, cart clear, and outbox emission all succeed or
// all roll back.
func (s *service) commit(ctx context.Context, input commitInput) (*Receipt, error) {
	copayPath := input.copay != nil
	usedPoints := input.quote.RequiredPoints
	if copayPath {
		usedPoints = input.employee.Points
	}

	var created []models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)
		employeeRepo := s.employeeRepo.WithTx(tx)

		for i, line := range input.quote.Lines {
			if err := productRepo.DecrementStock(ctx, line.Item.ProductID, line.Item.Quantity); err != nil {
				return err
			}

			number, err := orders.NextOrderNumber(ctx, tx, ordersRepo, time.Now())
			if err != nil {
				return err
			}
			metadata := types.OrderMetadata{
				UsedPoints:      line.Points,
				UnitPrice:       line.UnitPrice.String(),
				DeliveryMethod:  string(input.delivery.Method),
				DeliveryAddress: input.delivery.Address,
			}
			if copayPath && i == 0 {
				copayStr := input.copay.String()
				metadata.CopayInr = &copayStr
				metadata.PaymentID = input.paymentID
			}
			order, err := ordersRepo.Create(ctx, &models.Order{
				OrderNumber:   number,
				EmployeeID:    input.employee.ID,
				ProductID:     line.Item.ProductID,
				Quantity:      line.Item.Quantity,
				SelectedColor: line.Item.SelectedColor,
				SelectedSize:  line.Item.SelectedSize,
				CampaignID:    line.Item.CampaignID,
				Status:        enums.OrderStatusPlaced,
				Metadata:      metadata,
			})
			if err != nil {
				return err
			}
			created = append(created, *order)

			if err := s.emitOrderEvent(ctx, tx, order, copayPath, input); err != nil {
				return err
			}
		}

		if copayPath {
			if err := employeeRepo.ZeroPoints(ctx, input.employee.ID); err != nil {
				return err
			}
		} else if usedPoints > 0 {
			if err := employeeRepo.DeductPoints(ctx, input.employee.ID, usedPoints); err != nil {
				return err
			}
		}

		if usedPoints > 0 {
			event := outbox.DomainEvent{
				EventType:     enums.EventPointsBalanceChanged,
				AggregateType: enums.AggregateEmployee,
				AggregateID:   input.employee.ID,
				Actor:         &outbox.ActorRef{EmployeeID: input.employee.ID, Role: string(input.employee.Role)},
				Data: payloads.PointsBalanceChangedEvent{
					EmployeeID: input.employee.ID,
					Delta:      -usedPoints,
					Reason:     "checkout",
				},
				Version: 1,
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}

		return cartRepo.Clear(ctx, input.employee.ID, false)
	})
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{Orders: created, UsedPoints: usedPoints}
	if copayPath {
		receipt.CopayInr = input.copay
	}
	return receipt, nil
}

func (s *service) emitOrderEvent(ctx context.Context, tx *gorm.DB, order *models.Order, copayPath bool, input commitInput) error {
	actor := &outbox.ActorRef{EmployeeID: input.employee.ID, Role: string(input.employee.Role)}
	if copayPath {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCopayOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: payloads.CopayOrderPlacedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				EmployeeID:  order.EmployeeID,
				ProductID:   order.ProductID,
				Quantity:    order.Quantity,
				UsedPoints:  order.Metadata.UsedPoints,
				CopayInr:    input.copay.String(),
				PaymentID:   *input.paymentID,
			},
			Version: 1,
		})
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderPlacedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			EmployeeID:  order.EmployeeID,
			ProductID:   order.ProductID,
			Quantity:    order.Quantity,
			UsedPoints:  order.Metadata.UsedPoints,
		},
		Version: 1,
	})
}

// prepare loads the employee and cart, then runs every pre-payment check in
// order: non-empty cart, selection cap, product availability and stock, and
// campaign limits. The returned quote carries the point requirement and the
// co-pay figure for the current balance.
func (s *service) prepare(ctx context.Context, employeeID uuid.UUID) (*models.Employee, []models.CartItem, *Quote, error) {
	employee, err := s.employeeRepo.FindByID(ctx, employeeID)
	if err != nil {
		return nil, nil, nil, err
	}
	items, err := s.cartRepo.ListByEmployee(ctx, employeeID, false)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(items) == 0 {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	if err := s.checkSelectionCap(ctx, employee, len(items)); err != nil {
		return nil, nil, nil, err
	}
	quote, err := s.buildQuote(ctx, employee, items)
	if err != nil {
		return nil, nil, nil, err
	}
	return employee, items, quote, nil
}

func (s *service) buildQuote(ctx context.Context, employee *models.Employee, items []models.CartItem) (*Quote, error) {
	rate, err := s.settings.ConversionRate(ctx)
	if err != nil {
		return nil, err
	}

	quote := &Quote{
		Lines:       make([]QuoteLine, 0, len(items)),
		TotalAmount: decimal.Zero,
		Balance:     employee.Points,
	}
	for _, item := range items {
		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.IsActive {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "product %q is not available", product.Name)
		}
		if product.Stock < item.Quantity {
			return nil, pkgerrors.Newf(pkgerrors.CodeInsufficientResource, "product %q is out of stock", product.Name)
		}
		if item.CampaignID != nil {
			if err := s.checkCampaign(ctx, employee, items, item); err != nil {
				return nil, err
			}
		}

		unitPrice, err := pricing.ResolveUnitPrice(product, item.Quantity)
		if err != nil {
			return nil, err
		}
		perUnit, err := pricing.PointsPerUnit(unitPrice, rate)
		if err != nil {
			return nil, err
		}
		points := perUnit * int64(item.Quantity)
		quote.Lines = append(quote.Lines, QuoteLine{
			Item:      item,
			Product:   product.Name,
			UnitPrice: unitPrice,
			Points:    points,
		})
		quote.TotalAmount = quote.TotalAmount.Add(unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		quote.RequiredPoints += points
	}

	if employee.Points < quote.RequiredPoints {
		quote.Deficit = quote.RequiredPoints - employee.Points
		quote.CopayInr = decimal.NewFromInt(quote.Deficit).Mul(rate).Ceil()
	} else {
		quote.CopayInr = decimal.Zero
	}
	return quote, nil
}

func (s *service) checkCampaign(ctx context.Context, employee *models.Employee, items []models.CartItem, item models.CartItem) error {
	campaign, err := s.campaignRepo.FindByID(ctx, *item.CampaignID)
	if err != nil {
		return err
	}
	allowed, err := s.campaignRepo.HasAccess(ctx, campaign.ID, employee.Email)
	if err != nil {
		return err
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden, "campaign is restricted")
	}
	historical, err := s.ordersRepo.ListByEmployeeAndCampaign(ctx, employee.ID, campaign.ID)
	if err != nil {
		return err
	}
	// The item itself is excluded: its quantity enters as the requested
	// amount, not as in-progress usage.
	return campaigns.EvaluateLimit(campaign, campaigns.UsageInput{
		HistoricalOrders: historical,
		InProgressItems:  items,
		RequestedQty:     item.Quantity,
		ExcludeItemID:    &item.ID,
	})
}

func (s *service) checkSelectionCap(ctx context.Context, employee *models.Employee, incoming int) error {
	branding, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	if branding.MaxSelectionsPerUser < 0 {
		return nil
	}
	count, err := s.ordersRepo.CountByEmployee(ctx, employee.ID)
	if err != nil {
		return err
	}
	if count+int64(incoming) > int64(branding.MaxSelectionsPerUser) {
		return pkgerrors.Newf(
			pkgerrors.CodeLimitExceeded,
			"selection limit of %d products reached", branding.MaxSelectionsPerUser,
		)
	}
	return nil
}

func (s *service) lockEmployee(ctx context.Context, employeeID uuid.UUID) (func(), error) {
	acquired, err := s.locks.AcquireCheckoutLock(ctx, employeeID.String(), checkoutLockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to acquire checkout lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "another checkout is in progress")
	}
	return func() {
		if err := s.locks.ReleaseCheckoutLock(context.WithoutCancel(ctx), employeeID.String()); err != nil && s.logger != nil {
			s.logger.Error(ctx, "failed to release checkout lock", err)
		}
	}, nil
}

func (s *service) reject(path string, err error) {
	s.metrics.IncRejected(path, string(pkgerrors.As(err).Code()))
}

func validateDelivery(delivery DeliveryInput) error {
	if !delivery.Method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery method is invalid")
	}
	if delivery.Method == enums.DeliveryMethodHomeDelivery && strings.TrimSpace(delivery.Address) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required for home delivery")
	}
	return nil
}
