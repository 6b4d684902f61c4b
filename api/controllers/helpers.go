package controllers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/gearshed-backend/internal/sheetsync"
	pkgerrors "github.com/angelmondragon/gearshed-backend/pkg/errors"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
)

// Warnings surfaced alongside successful responses.
const (
	warnSyncFailed        = "sheet sync failed; showing cached inventory"
	warnSyncBusy          = "a sheet sync is already running; showing cached inventory"
	warnReplicationFailed = "spreadsheet update failed; changes are saved locally and will be overwritten by the next sync unless re-applied"
)

// pathParam returns the unescaped, trimmed chi URL parameter.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	return strings.TrimSpace(raw)
}

func requiredParam(r *http.Request, key string) (string, error) {
	value := pathParam(r, key)
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, key+" required").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}

// syncFirst runs a full sync ahead of a read or checkout. Failures never
// block the caller; they come back as a warning and the cache is used as is.
func syncFirst(ctx context.Context, syncer sheetsync.Syncer, logg *logger.Logger) string {
	if syncer == nil {
		return ""
	}
	if _, err := syncer.FullSync(ctx); err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
			return warnSyncBusy
		}
		if logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "sync before request failed")
		}
		return warnSyncFailed
	}
	return ""
}
