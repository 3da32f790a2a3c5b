package branding

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/pkg/db/models"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

// Repository reads and writes the portal-wide branding record. Conversion
// settings are always read fresh so an admin change applies to the next
// checkout without a restart.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context) (*models.Branding, error)
	Update(ctx context.Context, branding *models.Branding) error
	ConversionRate(ctx context.Context) (decimal.Decimal, error)
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

func (r *repository) Get(ctx context.Context) (*models.Branding, error) {
	var branding models.Branding
	err := r.db.WithContext(ctx).First(&branding).Error
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "branding is not configured")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load branding")
	}
	return &branding, nil
}

func (r *repository) Update(ctx context.Context, branding *models.Branding) error {
	if err := r.db.WithContext(ctx).Save(branding).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update branding")
	}
	return nil
}

// ConversionRate returns the INR value of one point. The stored value must be
// a positive decimal; anything else means the record was corrupted out of band.
func (r *repository) ConversionRate(ctx context.Context) (decimal.Decimal, error) {
	branding, err := r.Get(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	rate, err := decimal.NewFromString(branding.InrPerPoint)
	if err != nil || !rate.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeInternal, "branding conversion rate is invalid")
	}
	return rate, nil
}
