package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/gearshed-backend/api/responses"
	"github.com/angelmondragon/gearshed-backend/api/validators"
	"github.com/angelmondragon/gearshed-backend/internal/sheetsync"
	"github.com/angelmondragon/gearshed-backend/internal/transactions"
	"github.com/angelmondragon/gearshed-backend/pkg/enums"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
)

type checkoutRequest struct {
	ItemIDs     []string `json:"itemIds" validate:"required,min=1,max=500,dive,required"`
	ScoutName   string   `json:"scoutName" validate:"required,max=100"`
	OutingName  string   `json:"outingName" validate:"required,max=100"`
	ProcessedBy string   `json:"processedBy" validate:"required,max=100"`
	Notes       string   `json:"notes" validate:"max=200"`
}

func (r checkoutRequest) toInput() transactions.CheckoutInput {
	return transactions.CheckoutInput{
		ItemIDs:     validators.SanitizeIDs(r.ItemIDs),
		ScoutName:   validators.SanitizeString(r.ScoutName, 100),
		OutingName:  validators.SanitizeString(r.OutingName, 100),
		ProcessedBy: validators.SanitizeString(r.ProcessedBy, 100),
		Notes:       validators.SanitizeString(r.Notes, 200),
	}
}

type checkinRequest struct {
	ItemIDs     []string `json:"itemIds" validate:"required,min=1,max=500,dive,required"`
	Conditions  []string `json:"conditions" validate:"max=500"`
	ProcessedBy string   `json:"processedBy" validate:"required,max=100"`
	Notes       string   `json:"notes" validate:"max=200"`
}

// toInput keeps ids and conditions paired by position, so ids are trimmed
// but never dropped.
func (r checkinRequest) toInput() transactions.CheckinInput {
	ids := make([]string, len(r.ItemIDs))
	for i, id := range r.ItemIDs {
		ids[i] = validators.SanitizeString(id, 0)
	}
	return transactions.CheckinInput{
		ItemIDs:     ids,
		Conditions:  r.Conditions,
		ProcessedBy: validators.SanitizeString(r.ProcessedBy, 100),
		Notes:       validators.SanitizeString(r.Notes, 200),
	}
}

type bulkRequest struct {
	Count int `json:"count" validate:"gte=0,max=500"`
}

type transactionResponse struct {
	Action   enums.TransactionAction   `json:"action"`
	Results  []transactions.ItemResult `json:"results"`
	Summary  transactions.Summary      `json:"summary"`
	Warnings []string                  `json:"warnings,omitempty"`
}

// Checkout checks items out to an outing. When syncer is set the cache is
// refreshed from the sheet first. Per-item failures are part of the 200
// response.
func Checkout(svc transactions.Service, syncer sheetsync.Syncer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var warnings []string
		if warn := syncFirst(r.Context(), syncer, logg); warn != "" {
			warnings = append(warnings, warn)
		}
		batch, err := svc.Checkout(r.Context(), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeBatch(w, r, svc, batch, warnings)
	}
}

func Checkin(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkinRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batch, err := svc.Checkin(r.Context(), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeBatch(w, r, svc, batch, nil)
	}
}

// CheckoutBulk and CheckinBulk are diagnostics for load testing.
func CheckoutBulk(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return bulk(svc, logg, svc.BulkCheckout)
}

func CheckinBulk(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return bulk(svc, logg, svc.BulkCheckin)
}

func bulk(svc transactions.Service, logg *logger.Logger, run func(ctx context.Context, count int) (*transactions.BatchResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		batch, err := run(r.Context(), req.Count)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeBatch(w, r, svc, batch, nil)
	}
}

// writeBatch replicates the committed part of batch to the sheet and writes
// the response. Replication failures only add a warning.
func writeBatch(w http.ResponseWriter, r *http.Request, svc transactions.Service, batch *transactions.BatchResult, warnings []string) {
	if err := svc.Replicate(r.Context(), batch); err != nil {
		warnings = append(warnings, warnReplicationFailed)
	}
	responses.WriteSuccess(w, transactionResponse{
		Action:   batch.Action,
		Results:  batch.Results,
		Summary:  batch.Summary,
		Warnings: warnings,
	})
}
