package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/pkg/db/models"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

// Repository exposes product reads, admin writes, and the guarded stock
// decrement the checkout commit relies on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, activeOnly bool) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	ReplaceSlabs(ctx context.Context, productID uuid.UUID, slabs []models.PriceSlab) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a products repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("PriceSlabs", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	return &product, nil
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	query := r.db.WithContext(ctx).
		Preload("PriceSlabs", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("created_at DESC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var items []models.Product
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{ID: product.ID}).
		Select("sku", "name", "description", "base_price", "stock", "colors", "sizes").
		Updates(product).Error
}

// ReplaceSlabs swaps the full tier table for the product. Callers must pass
// normalized slabs; raw admin input never reaches this method.
func (r *repository) ReplaceSlabs(ctx context.Context, productID uuid.UUID, slabs []models.PriceSlab) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", productID).Delete(&models.PriceSlab{}).Error; err != nil {
		return err
	}
	if len(slabs) == 0 {
		return nil
	}
	for i := range slabs {
		slabs[i].ProductID = productID
		slabs[i].Position = i
	}
	return db.Create(&slabs).Error
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

// DecrementStock is the in-transaction stock write. The stock >= qty guard
// re-validates availability so two concurrent checkouts cannot both succeed
// on the last units.
func (r *repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientResource, "product is out of stock")
	}
	return nil
}
