package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/perkstack/rewards-backend/api/controllers"
	"github.com/perkstack/rewards-backend/api/middleware"
	"github.com/perkstack/rewards-backend/internal/branding"
	bulkbuysvc "github.com/perkstack/rewards-backend/internal/bulkbuy"
	"github.com/perkstack/rewards-backend/internal/campaigns"
	cartsvc "github.com/perkstack/rewards-backend/internal/cart"
	checkoutsvc "github.com/perkstack/rewards-backend/internal/checkout"
	"github.com/perkstack/rewards-backend/internal/employees"
	notificationsvc "github.com/perkstack/rewards-backend/internal/notifications"
	ordersrepo "github.com/perkstack/rewards-backend/internal/orders"
	productsvc "github.com/perkstack/rewards-backend/internal/products"
	"github.com/perkstack/rewards-backend/pkg/auth/session"
	"github.com/perkstack/rewards-backend/pkg/config"
	"github.com/perkstack/rewards-backend/pkg/enums"
	"github.com/perkstack/rewards-backend/pkg/logger"
	"github.com/perkstack/rewards-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            *gorm.DB
	Redis         *redis.Client
	Sessions      session.AccessSessionChecker
	Products      productsvc.Service
	Cart          cartsvc.Service
	Checkout      checkoutsvc.Service
	BulkBuy       bulkbuysvc.Service
	Notifications notificationsvc.Service
	Campaigns     campaigns.Repository
	Orders        ordersrepo.Repository
	Employees     employees.Repository
	Branding      branding.Repository
	Metrics       prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}

		r.Get("/me", controllers.EmployeeMe(deps.Employees, logg))
		r.Get("/branding", controllers.BrandingGet(deps.Branding, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.Products, logg))
			r.Get("/{productID}", controllers.ProductGet(deps.Products, logg))
		})

		r.Get("/campaigns", controllers.CampaignList(deps.Campaigns, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartPreview(deps.Cart, logg))
			r.Delete("/", controllers.CartClear(deps.Cart, logg))
			r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
			r.Put("/items/{itemID}", controllers.CartUpdateItem(deps.Cart, logg))
			r.Delete("/items/{itemID}", controllers.CartRemoveItem(deps.Cart, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/quote", controllers.CheckoutQuote(deps.Checkout, logg))
			r.Post("/", controllers.Checkout(deps.Checkout, logg))
			r.Post("/copay", controllers.CopayStart(deps.Checkout, logg))
			r.Post("/copay/confirm", controllers.CopayConfirm(deps.Checkout, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderListMine(deps.Orders, logg))
			r.Get("/{orderID}", controllers.OrderGet(deps.Orders, logg))
		})

		r.Route("/bulk-buy", func(r chi.Router) {
			r.Post("/", controllers.BulkBuySubmit(deps.BulkBuy, logg))
			r.Get("/", controllers.BulkBuyListMine(deps.BulkBuy, logg))
			r.Get("/{requestID}", controllers.BulkBuyGet(deps.BulkBuy, logg))
		})

		r.Get("/notifications", controllers.NotificationList(deps.Notifications, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.RoleAdmin))

			r.Route("/products", func(r chi.Router) {
				r.Post("/", controllers.ProductCreate(deps.Products, logg))
				r.Put("/{productID}", controllers.ProductUpdate(deps.Products, logg))
				r.Patch("/{productID}/active", controllers.ProductSetActive(deps.Products, logg))
			})

			r.Route("/campaigns", func(r chi.Router) {
				r.Post("/", controllers.CampaignCreate(deps.Campaigns, logg))
				r.Patch("/{campaignID}/cap", controllers.CampaignSetCap(deps.Campaigns, logg))
				r.Post("/{campaignID}/products/{productID}", controllers.CampaignLinkProduct(deps.Campaigns, logg))
				r.Delete("/{campaignID}/products/{productID}", controllers.CampaignUnlinkProduct(deps.Campaigns, logg))
				r.Post("/{campaignID}/access", controllers.CampaignGrantAccess(deps.Campaigns, logg))
			})

			r.Put("/branding", controllers.BrandingUpdate(deps.Branding, logg))
			r.Patch("/employees/{employeeID}/bulk-buy", controllers.EmployeeSetBulkBuyAllowed(deps.Employees, logg))
		})

		// approval surface is shared by admins and procurement
		r.Route("/admin/bulk-buy", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.RoleAdmin, enums.RoleProcurement))
			r.Get("/pending", controllers.BulkBuyListPending(deps.BulkBuy, logg))
			r.Post("/{requestID}/decision", controllers.BulkBuyDecide(deps.BulkBuy, logg))
		})
	})

	return r
}
