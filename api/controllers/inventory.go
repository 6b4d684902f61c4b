package controllers

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/angelmondragon/gearshed-backend/api/responses"
	"github.com/angelmondragon/gearshed-backend/api/validators"
	"github.com/angelmondragon/gearshed-backend/internal/sheetsync"
	"github.com/angelmondragon/gearshed-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gearshed-backend/pkg/errors"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
)

// InventoryReader is the cached catalog behind the consumer views.
type InventoryReader interface {
	ListVisibleItems(ctx context.Context) ([]models.Item, error)
	ListItemsByCategory(ctx context.Context, class string) ([]models.Item, error)
	GetItemByID(ctx context.Context, itemID string) (*models.Item, error)
	ListCategorySummaries(ctx context.Context) ([]models.CategorySummary, error)
	ListOutings(ctx context.Context) ([]models.OutingSummary, error)
	ListCheckedOutByOuting(ctx context.Context, outing string) ([]models.Item, error)
}

type categoriesResponse struct {
	Categories []models.CategorySummary `json:"categories"`
	Warning    string                   `json:"warning,omitempty"`
}

type outingsResponse struct {
	Outings []models.OutingSummary `json:"outings"`
	Warning string                 `json:"warning,omitempty"`
}

func cacheError(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
}

// InventoryList returns every item visible in the catalog.
func InventoryList(reader InventoryReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := reader.ListVisibleItems(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, cacheError(err, "list items"))
			return
		}
		responses.WriteSuccess(w, nonNilItems(items))
	}
}

// InventoryCategories returns per-class counts. ?sync=true runs a full sync
// first.
func InventoryCategories(reader InventoryReader, syncer sheetsync.Syncer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doSync, err := validators.ParseQueryBool(r, "sync")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := categoriesResponse{}
		if doSync {
			resp.Warning = syncFirst(r.Context(), syncer, logg)
		}
		summaries, err := reader.ListCategorySummaries(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, cacheError(err, "list categories"))
			return
		}
		resp.Categories = summaries
		if resp.Categories == nil {
			resp.Categories = []models.CategorySummary{}
		}
		responses.WriteSuccess(w, resp)
	}
}

func InventoryByCategory(reader InventoryReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		class, err := requiredParam(r, "category")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := reader.ListItemsByCategory(r.Context(), class)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, cacheError(err, "list category items"))
			return
		}
		responses.WriteSuccess(w, nonNilItems(items))
	}
}

func InventoryItem(reader InventoryReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := requiredParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := reader.GetItemByID(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, cacheError(err, "load item"))
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func InventoryOutings(reader InventoryReader, syncer sheetsync.Syncer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doSync, err := validators.ParseQueryBool(r, "sync")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := outingsResponse{}
		if doSync {
			resp.Warning = syncFirst(r.Context(), syncer, logg)
		}
		outings, err := reader.ListOutings(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, cacheError(err, "list outings"))
			return
		}
		resp.Outings = outings
		if resp.Outings == nil {
			resp.Outings = []models.OutingSummary{}
		}
		responses.WriteSuccess(w, resp)
	}
}

func InventoryCheckedOut(reader InventoryReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outing, err := requiredParam(r, "outing")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := reader.ListCheckedOutByOuting(r.Context(), outing)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, cacheError(err, "list checked out items"))
			return
		}
		responses.WriteSuccess(w, nonNilItems(items))
	}
}

func nonNilItems(items []models.Item) []models.Item {
	if items == nil {
		return []models.Item{}
	}
	return items
}
