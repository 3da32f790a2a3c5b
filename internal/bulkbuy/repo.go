package bulkbuy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/pkg/db/models"
	"github.com/perkstack/rewards-backend/pkg/enums"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

// Repository persists bulk buy requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.BulkBuyRequest) (*models.BulkBuyRequest, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.BulkBuyRequest, error)
	ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.BulkBuyRequest, error)
	ListByStatus(ctx context.Context, status enums.BulkBuyStatus) ([]models.BulkBuyRequest, error)
	CountInYear(ctx context.Context, year int) (int64, error)
	Decide(ctx context.Context, id uuid.UUID, status enums.BulkBuyStatus, decidedBy uuid.UUID, note *string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a bulk buy repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.BulkBuyRequest) (*models.BulkBuyRequest, error) {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create bulk buy request")
	}
	return request, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BulkBuyRequest, error) {
	var request models.BulkBuyRequest
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&request).Error
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bulk buy request not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load bulk buy request")
	}
	return &request, nil
}

func (r *repository) ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.BulkBuyRequest, error) {
	var requests []models.BulkBuyRequest
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list bulk buy requests")
	}
	return requests, nil
}

func (r *repository) ListByStatus(ctx context.Context, status enums.BulkBuyStatus) ([]models.BulkBuyRequest, error) {
	var requests []models.BulkBuyRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&requests).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list bulk buy requests")
	}
	return requests, nil
}

func (r *repository) CountInYear(ctx context.Context, year int) (int64, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BulkBuyRequest{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to count bulk buy requests")
	}
	return count, nil
}

// Decide flips a pending request to its terminal status. The guard on the
// current status makes the transition single-shot even under concurrent
// deciders.
func (r *repository) Decide(ctx context.Context, id uuid.UUID, status enums.BulkBuyStatus, decidedBy uuid.UUID, note *string) error {
	if !status.IsDecided() {
		return pkgerrors.New(pkgerrors.CodeValidation, "decision must be approved or rejected")
	}
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.BulkBuyRequest{}).
		Where("id = ? AND status = ?", id, enums.BulkBuyStatusPendingApproval).
		Updates(map[string]any{
			"status":        status,
			"decided_by":    decidedBy,
			"decided_at":    now,
			"decision_note": note,
		})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "failed to decide bulk buy request")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "bulk buy request has already been decided")
	}
	return nil
}
