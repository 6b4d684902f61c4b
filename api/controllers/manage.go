package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/gearshed-backend/api/responses"
	"github.com/angelmondragon/gearshed-backend/api/validators"
	"github.com/angelmondragon/gearshed-backend/internal/manage"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
	"github.com/angelmondragon/gearshed-backend/pkg/pagination"
)

type addItemRequest struct {
	ItemClass    string           `json:"itemClass" validate:"required,max=5"`
	ItemDesc     string           `json:"itemDesc" validate:"max=50"`
	ItemNum      string           `json:"itemNum" validate:"max=10"`
	ItemID       string           `json:"itemId" validate:"max=20"`
	Description  string           `json:"description" validate:"max=50"`
	IsTagged     bool             `json:"isTagged"`
	Condition    string           `json:"condition"`
	Status       string           `json:"status"`
	PurchaseDate string           `json:"purchaseDate" validate:"max=30"`
	Cost         *decimal.Decimal `json:"cost"`
	Notes        string           `json:"notes" validate:"max=200"`
	InApp        *bool            `json:"inApp"`
}

func (r addItemRequest) toInput() manage.AddItemInput {
	return manage.AddItemInput{
		ItemClass:    r.ItemClass,
		ItemDesc:     r.ItemDesc,
		ItemNum:      r.ItemNum,
		ItemID:       r.ItemID,
		Description:  r.Description,
		IsTagged:     r.IsTagged,
		Condition:    r.Condition,
		Status:       r.Status,
		PurchaseDate: r.PurchaseDate,
		Cost:         r.Cost,
		Notes:        r.Notes,
		InApp:        r.InApp,
	}
}

type updateItemRequest struct {
	ItemDesc     *string          `json:"itemDesc,omitempty" validate:"omitempty,max=50"`
	Description  *string          `json:"description,omitempty" validate:"omitempty,max=50"`
	IsTagged     *bool            `json:"isTagged,omitempty"`
	Condition    *string          `json:"condition,omitempty"`
	Status       *string          `json:"status,omitempty"`
	PurchaseDate *string          `json:"purchaseDate,omitempty" validate:"omitempty,max=30"`
	Cost         *decimal.Decimal `json:"cost,omitempty"`
	Notes        *string          `json:"notes,omitempty" validate:"omitempty,max=200"`
	InApp        *bool            `json:"inApp,omitempty"`
}

func (r updateItemRequest) toInput() manage.UpdateItemInput {
	return manage.UpdateItemInput{
		ItemDesc:     r.ItemDesc,
		Description:  r.Description,
		IsTagged:     r.IsTagged,
		Condition:    r.Condition,
		Status:       r.Status,
		PurchaseDate: r.PurchaseDate,
		Cost:         r.Cost,
		Notes:        r.Notes,
		InApp:        r.InApp,
	}
}

// ManageListItems returns every cached item, hidden and removed ones included.
func ManageListItems(svc manage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nonNilItems(items))
	}
}

func ManageGetItem(svc manage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := requiredParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func ManageAddItem(svc manage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Add(r.Context(), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func ManageUpdateItem(svc manage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := requiredParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Update(r.Context(), itemID, req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func ManageDeleteItem(svc manage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := requiredParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Delete(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func ManageNextItemNum(svc manage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		class, err := requiredParam(r, "class")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next, err := svc.NextItemNum(r.Context(), class)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, next)
	}
}

// ManageTransactions pages through the transaction log, newest first.
func ManageTransactions(svc manage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		q := r.URL.Query()
		page, err := svc.ListTransactions(r.Context(), manage.TransactionQuery{
			ItemID: q.Get("itemId"),
			Outing: q.Get("outing"),
			Limit:  limit,
			Cursor: q.Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
