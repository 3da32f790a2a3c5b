package campaigns

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/pkg/db/models"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

// Repository exposes campaign lookups and membership management.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	ListActive(ctx context.Context) ([]models.Campaign, error)
	Create(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error)
	SetCap(ctx context.Context, id uuid.UUID, maxProductsPerUser *int) error
	LinkProduct(ctx context.Context, campaignID, productID uuid.UUID) error
	UnlinkProduct(ctx context.Context, campaignID, productID uuid.UUID) error
	HasAccess(ctx context.Context, campaignID uuid.UUID, email string) (bool, error)
	GrantAccess(ctx context.Context, campaignID uuid.UUID, email string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a campaigns repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
		}
		return nil, err
	}
	return &campaign, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&campaigns).Error
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *repository) Create(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error) {
	if err := r.db.WithContext(ctx).Create(campaign).Error; err != nil {
		return nil, err
	}
	return campaign, nil
}

func (r *repository) SetCap(ctx context.Context, id uuid.UUID, maxProductsPerUser *int) error {
	if maxProductsPerUser != nil && *maxProductsPerUser < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "max products per user must be positive or unset")
	}
	result := r.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ?", id).
		Update("max_products_per_user", maxProductsPerUser)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
	}
	return nil
}

func (r *repository) LinkProduct(ctx context.Context, campaignID, productID uuid.UUID) error {
	campaign := models.Campaign{ID: campaignID}
	return r.db.WithContext(ctx).
		Model(&campaign).
		Association("Products").
		Append(&models.Product{ID: productID})
}

func (r *repository) UnlinkProduct(ctx context.Context, campaignID, productID uuid.UUID) error {
	campaign := models.Campaign{ID: campaignID}
	return r.db.WithContext(ctx).
		Model(&campaign).
		Association("Products").
		Delete(&models.Product{ID: productID})
}

func (r *repository) HasAccess(ctx context.Context, campaignID uuid.UUID, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CampaignAccess{}).
		Where("campaign_id = ?", campaignID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count == 0 {
		// No access list means the campaign is open to everyone.
		return true, nil
	}

	err = r.db.WithContext(ctx).
		Model(&models.CampaignAccess{}).
		Where("campaign_id = ? AND LOWER(email) = ?", campaignID, strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) GrantAccess(ctx context.Context, campaignID uuid.UUID, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	return r.db.WithContext(ctx).Create(&models.CampaignAccess{
		CampaignID: campaignID,
		Email:      email,
	}).Error
}
