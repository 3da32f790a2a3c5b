package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/internal/pricing"
	"github.com/perkstack/rewards-backend/pkg/db/models"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns admin product management. All slab payloads pass through the
// pricing normalizer before touching storage.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, activeOnly bool) ([]models.Product, error)
	Create(ctx context.Context, input UpsertInput) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpsertInput) (*models.Product, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// UpsertInput is the admin payload for creating or updating a product.
type UpsertInput struct {
	SKU         string
	Name        string
	Description *string
	BasePrice   string
	Stock       int
	Colors      []string
	Sizes       []string
	RawSlabs    []pricing.SlabInput
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires the product service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *service) Create(ctx context.Context, input UpsertInput) (*models.Product, error) {
	product, slabs, err := s.validate(input)
	if err != nil {
		return nil, err
	}

	var created *models.Product
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created, err = repo.Create(ctx, product)
		if err != nil {
			return err
		}
		return repo.ReplaceSlabs(ctx, created.ID, slabs)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, created.ID)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpsertInput) (*models.Product, error) {
	product, slabs, err := s.validate(input)
	if err != nil {
		return nil, err
	}
	product.ID = id

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return err
		}
		if err := repo.Update(ctx, product); err != nil {
			return err
		}
		return repo.ReplaceSlabs(ctx, id, slabs)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

func (s *service) validate(input UpsertInput) (*models.Product, []models.PriceSlab, error) {
	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	basePrice, err := decimal.NewFromString(strings.TrimSpace(input.BasePrice))
	if err != nil || basePrice.IsNegative() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "base price must be a non-negative amount")
	}
	if input.Stock < 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}

	normalized, err := pricing.NormalizeSlabs(input.RawSlabs)
	if err != nil {
		return nil, nil, err
	}
	slabs := make([]models.PriceSlab, len(normalized))
	for i, slab := range normalized {
		slabs[i] = models.PriceSlab{
			MinQty: slab.MinQty,
			MaxQty: slab.MaxQty,
			Price:  slab.Price,
		}
	}

	return &models.Product{
		SKU:         sku,
		Name:        name,
		Description: input.Description,
		BasePrice:   basePrice.String(),
		Stock:       input.Stock,
		IsActive:    true,
		Colors:      append([]string(nil), input.Colors...),
		Sizes:       append([]string(nil), input.Sizes...),
	}, slabs, nil
}
