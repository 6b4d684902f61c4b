package controllers

import (
	"net/http"

	"github.com/angelmondragon/gearshed-backend/api/responses"
	"github.com/angelmondragon/gearshed-backend/internal/sheetsync"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
)

type syncResponse struct {
	ItemCount int              `json:"itemCount"`
	Report    sheetsync.Report `json:"report"`
}

// SyncFromSheets rebuilds the cache from the inventory sheet.
func SyncFromSheets(syncer sheetsync.Syncer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := syncer.FullSync(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, syncResponse{ItemCount: len(result.Items), Report: result.Report})
	}
}

// ValidateSheets reports what a sync would accept without writing anything.
func ValidateSheets(syncer sheetsync.Syncer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := syncer.ValidateOnly(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
