package campaigns

import (
	"github.com/google/uuid"

	"github.com/perkstack/rewards-backend/pkg/db/models"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

// UsageInput carries the state the limit evaluator needs: the employee's
// committed orders, whatever sits in the cart (regular or bulk) right now,
// the quantity being added, and the id of the cart item being updated so its
// own prior quantity does not count against itself.
type UsageInput struct {
	HistoricalOrders []models.Order
	InProgressItems  []models.CartItem
	RequestedQty     int
	ExcludeItemID    *uuid.UUID
}

// EvaluateLimit decides whether adding RequestedQty of a campaign-linked
// product would exceed the campaign's per-user cap. Only orders and items
// explicitly stamped with the campaign id count; orders placed before a
// product joined the campaign are never re-attributed.
func EvaluateLimit(campaign *models.Campaign, input UsageInput) error {
	if campaign == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
	}
	if input.RequestedQty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}
	if campaign.MaxProductsPerUser == nil {
		return nil
	}
	cap := *campaign.MaxProductsPerUser

	usage := 0
	for _, order := range input.HistoricalOrders {
		if order.CampaignID == nil || *order.CampaignID != campaign.ID {
			continue
		}
		usage += quantityOrOne(order.Quantity)
	}
	for _, item := range input.InProgressItems {
		if item.CampaignID == nil || *item.CampaignID != campaign.ID {
			continue
		}
		if input.ExcludeItemID != nil && item.ID == *input.ExcludeItemID {
			continue
		}
		usage += quantityOrOne(item.Quantity)
	}

	if usage+input.RequestedQty > cap {
		return pkgerrors.Newf(
			pkgerrors.CodeLimitExceeded,
			"campaign %q allows at most %d products per user",
			campaign.Name, cap,
		).WithDetails(map[string]any{
			"campaignId": campaign.ID.String(),
			"cap":        cap,
			"usage":      usage,
		})
	}
	return nil
}

func quantityOrOne(qty int) int {
	if qty < 1 {
		return 1
	}
	return qty
}
