package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/perkstack/rewards-backend/pkg/db/models"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

func slabProduct() *models.Product {
	nine := 9
	return &models.Product{
		SKU:       "MUG-01",
		BasePrice: "120",
		PriceSlabs: []models.PriceSlab{
			{MinQty: 1, MaxQty: &nine, Price: "100"},
			{MinQty: 10, MaxQty: nil, Price: "80"},
		},
	}
}

func TestResolveUnitPriceSlabBoundaries(t *testing.T) {
	t.Parallel()

	product := slabProduct()
	cases := []struct {
		qty  int
		want string
	}{
		{1, "100"},
		{5, "100"},
		{9, "100"},
		{10, "80"},
		{500, "80"},
	}
	for _, tc := range cases {
		price, err := ResolveUnitPrice(product, tc.qty)
		if err != nil {
			t.Fatalf("qty %d: %v", tc.qty, err)
		}
		if !price.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("qty %d: expected %s, got %s", tc.qty, tc.want, price)
		}
	}
}

func TestResolveUnitPriceRejectsNonPositiveQty(t *testing.T) {
	t.Parallel()

	_, err := ResolveUnitPrice(slabProduct(), 0)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for qty 0, got %v", err)
	}
}

func TestResolveUnitPriceNoSlabsUsesBase(t *testing.T) {
	t.Parallel()

	product := &models.Product{SKU: "PEN-01", BasePrice: "45.50"}
	price, err := ResolveUnitPrice(product, 3)
	if err != nil {
		t.Fatalf("ResolveUnitPrice: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("45.50")) {
		t.Fatalf("expected base price, got %s", price)
	}
}

func TestResolveUnitPriceCorruptSlabFallsBack(t *testing.T) {
	t.Parallel()

	product := &models.Product{
		SKU:       "BAG-01",
		BasePrice: "200",
		PriceSlabs: []models.PriceSlab{
			{MinQty: 1, Price: "oops"},
		},
	}
	price, err := ResolveUnitPrice(product, 2)
	if err != nil {
		t.Fatalf("ResolveUnitPrice: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected base fallback, got %s", price)
	}
}

func TestResolveUnitPriceGapFallsBack(t *testing.T) {
	t.Parallel()

	five := 5
	product := &models.Product{
		SKU:       "CAP-01",
		BasePrice: "60",
		PriceSlabs: []models.PriceSlab{
			{MinQty: 2, MaxQty: &five, Price: "50"},
		},
	}
	price, err := ResolveUnitPrice(product, 1)
	if err != nil {
		t.Fatalf("ResolveUnitPrice: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("qty outside every slab should pay base, got %s", price)
	}
}

func TestResolveUnitPriceDeterministic(t *testing.T) {
	t.Parallel()

	product := slabProduct()
	first, err := ResolveUnitPrice(product, 10)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := ResolveUnitPrice(product, 10)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if !first.Equal(second) {
		t.Fatalf("resolver is not deterministic: %s vs %s", first, second)
	}
}

func TestPointsPerUnitCeilsPerUnit(t *testing.T) {
	t.Parallel()

	points, err := PointsPerUnit(decimal.NewFromInt(99), decimal.NewFromInt(2))
	if err != nil {
		t.Fatalf("PointsPerUnit: %v", err)
	}
	if points != 50 {
		t.Fatalf("expected ceil(99/2)=50, got %d", points)
	}

	// qty multiplication happens at the caller: 50 * 3 = 150, never ceil(297/2).
	if points*3 != 150 {
		t.Fatalf("expected per-unit rounding to yield 150 for qty 3, got %d", points*3)
	}

	if _, err := PointsPerUnit(decimal.NewFromInt(10), decimal.Zero); err == nil {
		t.Fatal("expected error for non-positive rate")
	}
}
