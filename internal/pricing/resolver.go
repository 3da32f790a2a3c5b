package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/perkstack/rewards-backend/pkg/db/models"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

// ResolveUnitPrice returns the unit price the given quantity pays for the
// product. Slabs win over the base price when a tier covers the quantity and
// its stored price still parses to a usable amount; every other case falls
// back to the base price. The function is a pure snapshot computation so all
// three checkout paths price identically.
func ResolveUnitPrice(product *models.Product, qty int) (decimal.Decimal, error) {
	if product == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "product snapshot required")
	}
	if qty < 1 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a positive integer")
	}

	base, err := decimal.NewFromString(product.BasePrice)
	if err != nil {
		return decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "product %s has an invalid base price", product.SKU)
	}

	// Slabs arrive ascending: NormalizeSlabs sorts before persisting and the
	// repository loads them ORDER BY position, so the first matching tier is
	// the right one.
	for _, slab := range product.PriceSlabs {
		if qty < slab.MinQty {
			continue
		}
		if slab.MaxQty != nil && qty > *slab.MaxQty {
			continue
		}
		price, err := decimal.NewFromString(slab.Price)
		if err != nil || price.IsNegative() {
			// Stored slab rows predate the normalizer; a corrupt price
			// falls back to base rather than failing the checkout.
			return base, nil
		}
		return price, nil
	}

	return base, nil
}

// PointsPerUnit converts a unit price into points at the tenant's conversion
// rate, rounding up per unit. Per-unit ceiling (not per-line) is deliberate:
// it keeps the charge identical whether items are bought together or apart.
func PointsPerUnit(unitPrice, inrPerPoint decimal.Decimal) (int64, error) {
	if inrPerPoint.Sign() <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "inrPerPoint rate must be positive")
	}
	return unitPrice.Div(inrPerPoint).Ceil().IntPart(), nil
}
