package bulkbuy

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
	"github.com/perkstack/rewards-backend/internal/orders"
	"github.com/perkstack/rewards-backend/internal/pricing"
	"github.com/perkstack/rewards-backend/pkg/db/models"
	"github.com/perkstack/rewards-backend/pkg/enums"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
	"github.com/perkstack/rewards-backend/pkg/logger"
	"github.com/perkstack/rewards-backend/pkg/metrics"
	"github.com/perkstack/rewards-backend/pkg/outbox"
	"github.com/perkstack/rewards-backend/pkg/outbox/payloads"
	"github.com/perkstack/rewards-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type employeeLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Employee, error)
}

type campaignLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	HasAccess(ctx context.Context, campaignID uuid.UUID, email string) (bool, error)
}

type campaignOrderLister interface {
	ListByEmployeeAndCampaign(ctx context.Context, employeeID, campaignID uuid.UUID) ([]models.Order, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns the bulk buy procurement workflow: submission freezes a priced
// snapshot, and a procurement or admin decision moves it out of pending
// exactly once.
type Service interface {
	Submit(ctx context.Context, employeeID uuid.UUID, input SubmitInput) (*models.BulkBuyRequest, error)
	Decide(ctx context.Context, requestID, deciderID uuid.UUID, input DecisionInput) (*models.BulkBuyRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*models.BulkBuyRequest, error)
	ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.BulkBuyRequest, error)
	ListPending(ctx context.Context) ([]models.BulkBuyRequest, error)
}

// SubmitInput carries the delivery details for a bulk buy submission.
type SubmitInput struct {
	DeliveryMethod  enums.DeliveryMethod
	DeliveryAddress string
}

// DecisionInput is an approval or rejection.
type DecisionInput struct {
	Approve bool
	Note    *string
}

type service struct {
	tx        txRunner
	repo      Repository
	cartRepo  cart.Repository
	products  productLoader
	employees employeeLoader
	campaigns campaignLoader
	orders    campaignOrderLister
	outbox    outboxPublisher
	metrics   *metrics.CheckoutMetrics
	logger    *logger.Logger
}

// NewService builds the bulk buy service.
func NewService(
	tx txRunner,
	repo Repository,
	cartRepo cart.Repository,
	products productLoader,
	employees employeeLoader,
	campaignRepo campaignLoader,
	orderLister campaignOrderLister,
	publisher outboxPublisher,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("bulk buy repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if employees == nil {
		return nil, fmt.Errorf("employee loader required")
	}
	if campaignRepo == nil {
		return nil, fmt.Errorf("campaign loader required")
	}
	if orderLister == nil {
		return nil, fmt.Errorf("order lister required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:        tx,
		repo:      repo,
		cartRepo:  cartRepo,
		products:  products,
		employees: employees,
		campaigns: campaignRepo,
		orders:    orderLister,
		outbox:    publisher,
		metrics:   checkoutMetrics,
		logger:    logg,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.BulkBuyRequest, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.BulkBuyRequest, error) {
	return s.repo.ListByEmployee(ctx, employeeID)
}

func (s *service) ListPending(ctx context.Context) ([]models.BulkBuyRequest, error) {
	return s.repo.ListByStatus(ctx, enums.BulkBuyStatusPendingApproval)
}

// Submit validates the bulk cart and persists a pending request with a frozen
// item snapshot. Points are never touched on this path.
func (s *service) Submit(ctx context.Context, employeeID uuid.UUID, input SubmitInput) (*models.BulkBuyRequest, error) {
	if !input.DeliveryMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery method is invalid")
	}
	if input.DeliveryMethod == enums.DeliveryMethodHomeDelivery && strings.TrimSpace(input.DeliveryAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required for home delivery")
	}

	employee, err := s.employees.FindByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !employee.BulkBuyAllowed {
		err := pkgerrors.New(pkgerrors.CodeForbidden, "employee is not enabled for bulk buying")
		s.reject(err)
		return nil, err
	}

	items, err := s.cartRepo.ListByEmployee(ctx, employeeID, true)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		err := pkgerrors.New(pkgerrors.CodeValidation, "bulk cart contains no items")
		s.reject(err)
		return nil, err
	}

	snapshot, total, err := s.freeze(ctx, employee, items)
	if err != nil {
		s.reject(err)
		return nil, err
	}

	var created *models.BulkBuyRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		number, err := orders.NextBulkBuyNumber(ctx, tx, repo, time.Now())
		if err != nil {
			return err
		}
		created, err = repo.Create(ctx, &models.BulkBuyRequest{
			RequestNumber:   number,
			EmployeeID:      employeeID,
			Status:          enums.BulkBuyStatusPendingApproval,
			Items:           snapshot,
			TotalAmount:     total.String(),
			DeliveryMethod:  string(input.DeliveryMethod),
			DeliveryAddress: input.DeliveryAddress,
		})
		if err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventBulkBuySubmitted,
			AggregateType: enums.AggregateBulkBuyRequest,
			AggregateID:   created.ID,
			Actor:         &outbox.ActorRef{EmployeeID: employeeID, Role: string(employee.Role)},
			Data: payloads.BulkBuySubmittedEvent{
				RequestID:     created.ID,
				RequestNumber: created.RequestNumber,
				EmployeeID:    employeeID,
				ItemCount:     len(snapshot),
				TotalAmount:   created.TotalAmount,
			},
			Version: 1,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		return cartRepo.Clear(ctx, employeeID, true)
	})
	if err != nil {
		s.reject(err)
		return nil, err
	}
	s.metrics.IncCommitted(metrics.PathBulkBuy)
	return created, nil
}

// Decide transitions a pending request to approved or rejected. Re-deciding
// an already-decided request fails with a state conflict and emits nothing.
func (s *service) Decide(ctx context.Context, requestID, deciderID uuid.UUID, input DecisionInput) (*models.BulkBuyRequest, error) {
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status.IsDecided() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "bulk buy request has already been decided")
	}
	decider, err := s.employees.FindByID(ctx, deciderID)
	if err != nil {
		return nil, err
	}

	status := enums.BulkBuyStatusRejected
	if input.Approve {
		status = enums.BulkBuyStatusApproved
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Decide(ctx, requestID, status, deciderID, input.Note); err != nil {
			return err
		}
		decided, err := repo.FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		request = decided

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBulkBuyDecided,
			AggregateType: enums.AggregateBulkBuyRequest,
			AggregateID:   requestID,
			Actor:         &outbox.ActorRef{EmployeeID: deciderID, Role: string(decider.Role)},
			Data: payloads.BulkBuyDecidedEvent{
				RequestID:     requestID,
				RequestNumber: decided.RequestNumber,
				EmployeeID:    decided.EmployeeID,
				Status:        status,
				DecidedBy:     deciderID,
				DecidedAt:     valueOrNow(decided.DecidedAt),
				DecisionNote:  input.Note,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// freeze resolves a unit price for every bulk cart line and returns the
// immutable snapshot plus the request total.
func (s *service) freeze(ctx context.Context, employee *models.Employee, items []models.CartItem) ([]types.BulkBuyItem, decimal.Decimal, error) {
	snapshot := make([]types.BulkBuyItem, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if !product.IsActive {
			return nil, decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "product %q is not available", product.Name)
		}
		if product.Stock < item.Quantity {
			return nil, decimal.Zero, pkgerrors.Newf(pkgerrors.CodeInsufficientResource, "product %q is out of stock", product.Name)
		}
		if item.CampaignID != nil {
			if err := s.checkCampaign(ctx, employee, items, item); err != nil {
				return nil, decimal.Zero, err
			}
		}

		unitPrice, err := pricing.ResolveUnitPrice(product, item.Quantity)
		if err != nil {
			return nil, decimal.Zero, err
		}
		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		snapshot = append(snapshot, types.BulkBuyItem{
			ProductID:     product.ID.String(),
			Name:          product.Name,
			SKU:           product.SKU,
			SelectedColor: item.SelectedColor,
			SelectedSize:  item.SelectedSize,
			Quantity:      item.Quantity,
			UnitPrice:     unitPrice.String(),
			LineTotal:     lineTotal.String(),
		})
		total = total.Add(lineTotal)
	}
	return snapshot, total, nil
}

func (s *service) checkCampaign(ctx context.Context, employee *models.Employee, items []models.CartItem, item models.CartItem) error {
	campaign, err := s.campaigns.FindByID(ctx, *item.CampaignID)
	if err != nil {
		return err
	}
	allowed, err := s.campaigns.HasAccess(ctx, campaign.ID, employee.Email)
	if err != nil {
		return err
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden, "campaign is restricted")
	}
	historical, err := s.orders.ListByEmployeeAndCampaign(ctx, employee.ID, campaign.ID)
	if err != nil {
		return err
	}
	return campaigns.EvaluateLimit(campaign, campaigns.UsageInput{
		HistoricalOrders: historical,
		InProgressItems:  items,
		RequestedQty:     item.Quantity,
		ExcludeItemID:    &item.ID,
	})
}

func (s *service) reject(err error) {
	s.metrics.IncRejected(metrics.PathBulkBuy, string(pkgerrors.As(err).Code()))
}

func valueOrNow(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return time.Now()
}
