package employees

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/pkg/db/models"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

// Repository exposes employee lookups and the two balance mutations checkout
// performs. Balance writes are guarded updates so a concurrent spend aborts
// instead of driving the balance negative.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Employee, error)
	FindByEmail(ctx context.Context, email string) (*models.Employee, error)
	DeductPoints(ctx context.Context, id uuid.UUID, points int64) error
	ZeroPoints(ctx context.Context, id uuid.UUID) error
	SetBulkBuyAllowed(ctx context.Context, id uuid.UUID, allowed bool) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an employees repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	var employee models.Employee
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "employee not found")
		}
		return nil, err
	}
	return &employee, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Employee, error) {
	var employee models.Employee
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "employee not found")
		}
		return nil, err
	}
	return &employee, nil
}

// DeductPoints subtracts points atomically. The WHERE clause re-validates the
// balance inside the transaction; zero rows affected means another checkout
// spent the points first.
func (r *repository) DeductPoints(ctx context.Context, id uuid.UUID, points int64) error {
	if points < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "points to deduct must not be negative")
	}
	if points == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Employee{}).
		Where("id = ? AND points >= ?", id, points).
		UpdateColumn("points", gorm.Expr("points - ?", points))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientResource, "insufficient points balance")
	}
	return nil
}

// ZeroPoints empties the balance after a co-pay commit where the gateway
// covered the deficit.
func (r *repository) ZeroPoints(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Employee{}).
		Where("id = ?", id).
		UpdateColumn("points", 0)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "employee not found")
	}
	return nil
}

func (r *repository) SetBulkBuyAllowed(ctx context.Context, id uuid.UUID, allowed bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Employee{}).
		Where("id = ?", id).
		Update("bulk_buy_allowed", allowed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "employee not found")
	}
	return nil
}
