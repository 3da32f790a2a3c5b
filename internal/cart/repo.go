package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/pkg/db/models"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

// Repository persists cart items. Regular and bulk selections share a table
// and are split by the bulk flag.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.CartItem, error)
	ListByEmployee(ctx context.Context, employeeID uuid.UUID, bulk bool) ([]models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	Update(ctx context.Context, item *models.CartItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	Clear(ctx context.Context, employeeID uuid.UUID, bulk bool) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart item")
	}
	return &item, nil
}

func (r *repository) ListByEmployee(ctx context.Context, employeeID uuid.UUID, bulk bool) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND is_bulk = ?", employeeID, bulk).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list cart items")
	}
	return items, nil
}

func (r *repository) Create(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create cart item")
	}
	return item, nil
}

func (r *repository) Update(ctx context.Context, item *models.CartItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update cart item")
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.CartItem{})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "failed to delete cart item")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (r *repository) Clear(ctx context.Context, employeeID uuid.UUID, bulk bool) error {
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND is_bulk = ?", employeeID, bulk).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to clear cart")
	}
	return nil
}
