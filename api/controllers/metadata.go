package controllers

import (
	"net/http"

	"github.com/angelmondragon/gearshed-backend/api/responses"
	"github.com/angelmondragon/gearshed-backend/api/validators"
	"github.com/angelmondragon/gearshed-backend/internal/categories"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
)

type categoryRequest struct {
	Class     string `json:"class" validate:"required,max=5"`
	ClassDesc string `json:"classDesc" validate:"required,max=22"`
}

func (r categoryRequest) toInput() categories.Input {
	return categories.Input{Class: r.Class, ClassDesc: r.ClassDesc}
}

func MetadataListCategories(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listing, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func MetadataAddCategory(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req categoryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.Add(r.Context(), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

func MetadataUpdateCategory(svc categories.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		class, err := requiredParam(r, "class")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req categoryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.Update(r.Context(), class, req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}
