package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/gearshed-backend/api/controllers"
	"github.com/angelmondragon/gearshed-backend/api/middleware"
	"github.com/angelmondragon/gearshed-backend/internal/categories"
	"github.com/angelmondragon/gearshed-backend/internal/manage"
	"github.com/angelmondragon/gearshed-backend/internal/sheetsync"
	"github.com/angelmondragon/gearshed-backend/internal/transactions"
	"github.com/angelmondragon/gearshed-backend/pkg/config"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
)

// Params carries everything the HTTP surface is built from.
type Params struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           controllers.Pinger
	Inventory    controllers.InventoryReader
	Syncer       sheetsync.Syncer
	Transactions transactions.Service
	Manage       manage.Service
	Categories   categories.Service
	// Gatherer backs /metrics. Nil skips the route.
	Gatherer prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/health/live", controllers.HealthLive(cfg))

	var checkoutSync sheetsync.Syncer
	if cfg.Sync.BeforeCheckout {
		checkoutSync = p.Syncer
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", controllers.Health(cfg, logg, p.DB))

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.InventoryList(p.Inventory, logg))
			r.Get("/categories", controllers.InventoryCategories(p.Inventory, p.Syncer, logg))
			r.Get("/items/{category}", controllers.InventoryByCategory(p.Inventory, logg))
			r.Get("/item/{itemId}", controllers.InventoryItem(p.Inventory, logg))
			r.Get("/outings", controllers.InventoryOutings(p.Inventory, p.Syncer, logg))
			r.Get("/checked-out/{outing}", controllers.InventoryCheckedOut(p.Inventory, logg))
			r.Post("/sync-from-sheets", controllers.SyncFromSheets(p.Syncer, logg))
			r.Get("/validate-sheets", controllers.ValidateSheets(p.Syncer, logg))
		})

		r.Post("/checkout", controllers.Checkout(p.Transactions, checkoutSync, logg))
		r.Post("/checkin", controllers.Checkin(p.Transactions, logg))
		if cfg.FeatureFlags.Diagnostics {
			r.Post("/checkout/test-bulk", controllers.CheckoutBulk(p.Transactions, logg))
			r.Post("/checkin/test-bulk", controllers.CheckinBulk(p.Transactions, logg))
		}

		r.Route("/manage-inventory", func(r chi.Router) {
			r.Get("/items", controllers.ManageListItems(p.Manage, logg))
			r.Post("/items", controllers.ManageAddItem(p.Manage, logg))
			r.Get("/items/{itemId}", controllers.ManageGetItem(p.Manage, logg))
			r.Put("/items/{itemId}", controllers.ManageUpdateItem(p.Manage, logg))
			r.Delete("/items/{itemId}", controllers.ManageDeleteItem(p.Manage, logg))
			r.Get("/next-item-num/{class}", controllers.ManageNextItemNum(p.Manage, logg))
			r.Get("/transactions", controllers.ManageTransactions(p.Manage, logg))
		})

		r.Route("/metadata", func(r chi.Router) {
			r.Get("/categories", controllers.MetadataListCategories(p.Categories, logg))
			r.Post("/categories", controllers.MetadataAddCategory(p.Categories, logg))
			r.Put("/categories/{class}", controllers.MetadataUpdateCategory(p.Categories, logg))
		})
	})

	return r
}
