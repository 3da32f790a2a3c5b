package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/pkg/db/models"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
)

type stubCartRepo struct {
	items   map[uuid.UUID]*models.CartItem
	created *models.CartItem
}

func newStubCartRepo(items ...*models.CartItem) *stubCartRepo {
	repo := &stubCartRepo{items: map[uuid.UUID]*models.CartItem{}}
	for _, item := range items {
		repo.items[item.ID] = item
	}
	return repo
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCartRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.CartItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	copied := *item
	return &copied, nil
}

func (s *stubCartRepo) ListByEmployee(ctx context.Context, employeeID uuid.UUID, bulk bool) ([]models.CartItem, error) {
	var out []models.CartItem
	for _, item := range s.items {
		if item.EmployeeID == employeeID && item.IsBulk == bulk {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (s *stubCartRepo) Create(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	item.ID = uuid.New()
	s.items[item.ID] = item
	s.created = item
	return item, nil
}

func (s *stubCartRepo) Update(ctx context.Context, item *models.CartItem) error {
	s.items[item.ID] = item
	return nil
}

func (s *stubCartRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(s.items, id)
	return nil
}

func (s *stubCartRepo) Clear(ctx context.Context, employeeID uuid.UUID, bulk bool) error {
	for id, item := range s.items {
		if item.EmployeeID == employeeID && item.IsBulk == bulk {
			delete(s.items, id)
		}
	}
	return nil
}

type stubProducts struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProducts) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

type stubEmployees struct {
	employee *models.Employee
}

func (s *stubEmployees) FindByID(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	return s.employee, nil
}

type stubCampaigns struct {
	campaign *models.Campaign
	access   bool
}

func (s *stubCampaigns) FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	if s.campaign == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
	}
	return s.campaign, nil
}

func (s *stubCampaigns) HasAccess(ctx context.Context, campaignID uuid.UUID, email string) (bool, error) {
	return s.access, nil
}

type stubOrders struct {
	orders []models.Order
}

func (s *stubOrders) ListByEmployeeAndCampaign(ctx context.Context, employeeID, campaignID uuid.UUID) ([]models.Order, error) {
	return s.orders, nil
}

type stubSettings struct {
	branding *models.Branding
	rate     decimal.Decimal
}

func (s *stubSettings) Get(ctx context.Context) (*models.Branding, error) {
	return s.branding, nil
}

func (s *stubSettings) ConversionRate(ctx context.Context) (decimal.Decimal, error) {
	return s.rate, nil
}

func intPtr(v int) *int            { return &v }
func strPtr(v string) *string      { return &v }
func idPtr(v uuid.UUID) *uuid.UUID { return &v }

func fixtureService(t *testing.T, repo *stubCartRepo, products *stubProducts, campaignRepo *stubCampaigns, orders *stubOrders, settings *stubSettings) Service {
	t.Helper()
	if settings == nil {
		settings = &stubSettings{
			branding: &models.Branding{MaxSelectionsPerUser: -1, InrPerPoint: "2"},
			rate:     decimal.NewFromInt(2),
		}
	}
	if campaignRepo == nil {
		campaignRepo = &stubCampaigns{access: true}
	}
	if orders == nil {
		orders = &stubOrders{}
	}
	svc, err := NewService(repo, products, &stubEmployees{employee: &models.Employee{Email: "a@corp.test"}}, campaignRepo, orders, settings)
	require.NoError(t, err)
	return svc
}

func TestAddItemValidatesProduct(t *testing.T) {
	employeeID := uuid.New()
	productID := uuid.New()
	products := &stubProducts{products: map[uuid.UUID]*models.Product{
		productID: {ID: productID, Name: "Bottle", BasePrice: "100", IsActive: false},
	}}
	svc := fixtureService(t, newStubCartRepo(), products, nil, nil, nil)

	_, err := svc.AddItem(context.Background(), employeeID, ItemInput{ProductID: productID, Quantity: 1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestAddItemRejectsUnknownVariant(t *testing.T) {
	employeeID := uuid.New()
	productID := uuid.New()
	products := &stubProducts{products: map[uuid.UUID]*models.Product{
		productID: {ID: productID, Name: "Tee", BasePrice: "100", IsActive: true, Colors: []string{"red", "blue"}},
	}}
	svc := fixtureService(t, newStubCartRepo(), products, nil, nil, nil)

	_, err := svc.AddItem(context.Background(), employeeID, ItemInput{
		ProductID:     productID,
		Quantity:      1,
		SelectedColor: strPtr("green"),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestAddItemEnforcesCampaignCap(t *testing.T) {
	employeeID := uuid.New()
	productID := uuid.New()
	campaignID := uuid.New()

	products := &stubProducts{products: map[uuid.UUID]*models.Product{
		productID: {ID: productID, Name: "Mug", BasePrice: "50", IsActive: true},
	}}
	campaignRepo := &stubCampaigns{
		campaign: &models.Campaign{ID: campaignID, Name: "Diwali", IsActive: true, MaxProductsPerUser: intPtr(5)},
		access:   true,
	}
	orders := &stubOrders{orders: []models.Order{
		{CampaignID: idPtr(campaignID), Quantity: 3},
	}}
	repo := newStubCartRepo(&models.CartItem{
		ID: uuid.New(), EmployeeID: employeeID, ProductID: productID,
		Quantity: 1, CampaignID: idPtr(campaignID),
	})
	svc := fixtureService(t, repo, products, campaignRepo, orders, nil)

	_, err := svc.AddItem(context.Background(), employeeID, ItemInput{
		ProductID:  productID,
		Quantity:   2,
		CampaignID: idPtr(campaignID),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeLimitExceeded, pkgerrors.As(err).Code())

	created, err := svc.AddItem(context.Background(), employeeID, ItemInput{
		ProductID:  productID,
		Quantity:   1,
		CampaignID: idPtr(campaignID),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created.Quantity)
}

func TestUpdateItemExcludesItself(t *testing.T) {
	employeeID := uuid.New()
	productID := uuid.New()
	campaignID := uuid.New()
	itemID := uuid.New()

	products := &stubProducts{products: map[uuid.UUID]*models.Product{
		productID: {ID: productID, Name: "Mug", BasePrice: "50", IsActive: true},
	}}
	campaignRepo := &stubCampaigns{
		campaign: &models.Campaign{ID: campaignID, Name: "Diwali", IsActive: true, MaxProductsPerUser: intPtr(4)},
		access:   true,
	}
	repo := newStubCartRepo(&models.CartItem{
		ID: itemID, EmployeeID: employeeID, ProductID: productID,
		Quantity: 4, CampaignID: idPtr(campaignID),
	})
	svc := fixtureService(t, repo, products, campaignRepo, nil, nil)

	updated, err := svc.UpdateItem(context.Background(), employeeID, itemID, ItemInput{
		ProductID:  productID,
		Quantity:   3,
		CampaignID: idPtr(campaignID),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Quantity)
}

func TestUpdateItemOwnership(t *testing.T) {
	employeeID := uuid.New()
	otherID := uuid.New()
	productID := uuid.New()
	itemID := uuid.New()

	products := &stubProducts{products: map[uuid.UUID]*models.Product{
		productID: {ID: productID, Name: "Mug", BasePrice: "50", IsActive: true},
	}}
	repo := newStubCartRepo(&models.CartItem{
		ID: itemID, EmployeeID: otherID, ProductID: productID, Quantity: 1,
	})
	svc := fixtureService(t, repo, products, nil, nil, nil)

	_, err := svc.UpdateItem(context.Background(), employeeID, itemID, ItemInput{ProductID: productID, Quantity: 1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestAddItemSelectionCap(t *testing.T) {
	employeeID := uuid.New()
	productID := uuid.New()
	products := &stubProducts{products: map[uuid.UUID]*models.Product{
		productID: {ID: productID, Name: "Pen", BasePrice: "10", IsActive: true},
	}}
	settings := &stubSettings{
		branding: &models.Branding{MaxSelectionsPerUser: 1, InrPerPoint: "1"},
		rate:     decimal.NewFromInt(1),
	}
	repo := newStubCartRepo(&models.CartItem{
		ID: uuid.New(), EmployeeID: employeeID, ProductID: productID, Quantity: 1,
	})
	svc := fixtureService(t, repo, products, nil, nil, settings)

	_, err := svc.AddItem(context.Background(), employeeID, ItemInput{ProductID: productID, Quantity: 1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeLimitExceeded, pkgerrors.As(err).Code())
}

func TestPreviewPricesWithSlabs(t *testing.T) {
	employeeID := uuid.New()
	productID := uuid.New()
	maxQty := 10
	products := &stubProducts{products: map[uuid.UUID]*models.Product{
		productID: {
			ID: productID, Name: "Notebook", BasePrice: "100", IsActive: true,
			PriceSlabs: []models.PriceSlab{
				{MinQty: 5, MaxQty: &maxQty, Price: "90"},
			},
		},
	}}
	repo := newStubCartRepo(&models.CartItem{
		ID: uuid.New(), EmployeeID: employeeID, ProductID: productID, Quantity: 5,
	})
	svc := fixtureService(t, repo, products, nil, nil, &stubSettings{
		branding: &models.Branding{MaxSelectionsPerUser: -1, InrPerPoint: "2"},
		rate:     decimal.NewFromInt(2),
	})

	preview, err := svc.Preview(context.Background(), employeeID, false)
	require.NoError(t, err)
	require.Len(t, preview.Lines, 1)
	assert.True(t, preview.Lines[0].UnitPrice.Equal(decimal.NewFromInt(90)))
	assert.True(t, preview.TotalAmount.Equal(decimal.NewFromInt(450)))
	// ceil(90/2) = 45 points per unit.
	assert.Equal(t, int64(225), preview.TotalPoints)
}
