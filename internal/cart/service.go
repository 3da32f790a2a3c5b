package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/perkstack/rewards-backend/internal/campaigns"
	"github.com/perkstack/rewards-backend/internal/pricing"
	"github.com/perkstack/rewards-backend/pkg/db/models"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

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

type settingsLoader interface {
	Get(ctx context.Context) (*models.Branding, error)
	ConversionRate(ctx context.Context) (decimal.Decimal, error)
}

// Service exposes cart operations for an authenticated employee.
type Service interface {
	AddItem(ctx context.Context, employeeID uuid.UUID, input ItemInput) (*models.CartItem, error)
	UpdateItem(ctx context.Context, employeeID, itemID uuid.UUID, input ItemInput) (*models.CartItem, error)
	RemoveItem(ctx context.Context, employeeID, itemID uuid.UUID) error
	Clear(ctx context.Context, employeeID uuid.UUID, bulk bool) error
	Preview(ctx context.Context, employeeID uuid.UUID, bulk bool) (*Preview, error)
}

// ItemInput is the payload for adding or updating a cart item.
type ItemInput struct {
	ProductID     uuid.UUID
	Quantity      int
	SelectedColor *string
	SelectedSize  *string
	CampaignID    *uuid.UUID
	IsBulk        bool
}

// PreviewLine is a priced cart row. Unit prices resolve against the current
// slab table, so the preview can drift from an earlier one if pricing changed.
type PreviewLine struct {
	Item        models.CartItem `json:"item"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
	Points      int64           `json:"points"`
}

// Preview is the priced view of a cart.
type Preview struct {
	Lines       []PreviewLine   `json:"lines"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	TotalPoints int64           `json:"totalPoints"`
}

type service struct {
	repo      Repository
	products  productLoader
	employees employeeLoader
	campaigns campaignLoader
	orders    campaignOrderLister
	settings  settingsLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, products productLoader, employees employeeLoader, campaignRepo campaignLoader, orders campaignOrderLister, settings settingsLoader) (Service, error) {
	if repo == nil {
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
	if orders == nil {
		return nil, fmt.Errorf("order lister required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings loader required")
	}
	return &service{
		repo:      repo,
		products:  products,
		employees: employees,
		campaigns: campaignRepo,
		orders:    orders,
		settings:  settings,
	}, nil
}

func (s *service) AddItem(ctx context.Context, employeeID uuid.UUID, input ItemInput) (*models.CartItem, error) {
	if err := s.validateItem(ctx, employeeID, input, nil); err != nil {
		return nil, err
	}
	if err := s.checkSelectionCap(ctx, employeeID, input.IsBulk); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, &models.CartItem{
		EmployeeID:    employeeID,
		ProductID:     input.ProductID,
		Quantity:      input.Quantity,
		SelectedColor: input.SelectedColor,
		SelectedSize:  input.SelectedSize,
		CampaignID:    input.CampaignID,
		IsBulk:        input.IsBulk,
	})
}

func (s *service) UpdateItem(ctx context.Context, employeeID, itemID uuid.UUID, input ItemInput) (*models.CartItem, error) {
	item, err := s.ownedItem(ctx, employeeID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.validateItem(ctx, employeeID, input, &itemID); err != nil {
		return nil, err
	}

	item.ProductID = input.ProductID
	item.Quantity = input.Quantity
	item.SelectedColor = input.SelectedColor
	item.SelectedSize = input.SelectedSize
	item.CampaignID = input.CampaignID
	item.IsBulk = input.IsBulk
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) RemoveItem(ctx context.Context, employeeID, itemID uuid.UUID) error {
	if _, err := s.ownedItem(ctx, employeeID, itemID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, itemID)
}

func (s *service) Clear(ctx context.Context, employeeID uuid.UUID, bulk bool) error {
	return s.repo.Clear(ctx, employeeID, bulk)
}

// Preview prices the cart with current slab tables and the current conversion
// rate. Items whose product vanished or went inactive are surfaced as errors
// so the client can prompt removal.
func (s *service) Preview(ctx context.Context, employeeID uuid.UUID, bulk bool) (*Preview, error) {
	items, err := s.repo.ListByEmployee(ctx, employeeID, bulk)
	if err != nil {
		return nil, err
	}
	rate, err := s.settings.ConversionRate(ctx)
	if err != nil {
		return nil, err
	}

	preview := &Preview{Lines: make([]PreviewLine, 0, len(items)), TotalAmount: decimal.Zero}
	for _, item := range items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, err
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
		line := PreviewLine{
			Item:        item,
			ProductName: product.Name,
			UnitPrice:   unitPrice,
			LineTotal:   unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
			Points:      points,
		}
		preview.Lines = append(preview.Lines, line)
		preview.TotalAmount = preview.TotalAmount.Add(line.LineTotal)
		preview.TotalPoints += points
	}
	return preview, nil
}

func (s *service) ownedItem(ctx context.Context, employeeID, itemID uuid.UUID) (*models.CartItem, error) {
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.EmployeeID != employeeID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart item belongs to another employee")
	}
	return item, nil
}

func (s *service) validateItem(ctx context.Context, employeeID uuid.UUID, input ItemInput, excludeItemID *uuid.UUID) error {
	if input.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}
	if err := validateVariant(product.Colors, input.SelectedColor, "color"); err != nil {
		return err
	}
	if err := validateVariant(product.Sizes, input.SelectedSize, "size"); err != nil {
		return err
	}

	if input.CampaignID == nil {
		return nil
	}
	return s.checkCampaign(ctx, employeeID, *input.CampaignID, input.ProductID, input.Quantity, excludeItemID)
}

func (s *service) checkCampaign(ctx context.Context, employeeID, campaignID, productID uuid.UUID, qty int, excludeItemID *uuid.UUID) error {
	campaign, err := s.campaigns.FindByID(ctx, campaignID)
	if err != nil {
		return err
	}
	if !campaign.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "campaign is not active")
	}

	employee, err := s.employees.FindByID(ctx, employeeID)
	if err != nil {
		return err
	}
	allowed, err := s.campaigns.HasAccess(ctx, campaignID, employee.Email)
	if err != nil {
		return err
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeForbidden, "campaign is restricted")
	}

	historical, err := s.orders.ListByEmployeeAndCampaign(ctx, employeeID, campaignID)
	if err != nil {
		return err
	}
	inProgress, err := s.allItems(ctx, employeeID)
	if err != nil {
		return err
	}
	return campaigns.EvaluateLimit(campaign, campaigns.UsageInput{
		HistoricalOrders: historical,
		InProgressItems:  inProgress,
		RequestedQty:     qty,
		ExcludeItemID:    excludeItemID,
	})
}

// checkSelectionCap enforces the portal-wide cap on distinct cart rows.
// A cap below zero means unlimited.
func (s *service) checkSelectionCap(ctx context.Context, employeeID uuid.UUID, bulk bool) error {
	branding, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	if branding.MaxSelectionsPerUser < 0 {
		return nil
	}
	items, err := s.repo.ListByEmployee(ctx, employeeID, bulk)
	if err != nil {
		return err
	}
	if len(items)+1 > branding.MaxSelectionsPerUser {
		return pkgerrors.Newf(
			pkgerrors.CodeLimitExceeded,
			"cart is limited to %d selections", branding.MaxSelectionsPerUser,
		)
	}
	return nil
}

// allItems gathers both cart halves so campaign usage counts pending bulk
// selections too.
func (s *service) allItems(ctx context.Context, employeeID uuid.UUID) ([]models.CartItem, error) {
	regular, err := s.repo.ListByEmployee(ctx, employeeID, false)
	if err != nil {
		return nil, err
	}
	bulk, err := s.repo.ListByEmployee(ctx, employeeID, true)
	if err != nil {
		return nil, err
	}
	return append(regular, bulk...), nil
}

func validateVariant(options []string, selected *string, label string) error {
	if len(options) == 0 {
		if selected != nil && strings.TrimSpace(*selected) != "" {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "product has no %s options", label)
		}
		return nil
	}
	if selected == nil || strings.TrimSpace(*selected) == "" {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s selection is required", label)
	}
	for _, option := range options {
		if strings.EqualFold(option, *selected) {
			return nil
		}
	}
	return pkgerrors.Newf(pkgerrors.CodeValidation, "selected %s is not offered", label)
}
