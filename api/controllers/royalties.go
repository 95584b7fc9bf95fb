package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/choppgest/choppgest-backend/api/responses"
	"github.com/choppgest/choppgest-backend/api/validators"
	"github.com/choppgest/choppgest-backend/internal/royalties"
	"github.com/choppgest/choppgest-backend/pkg/db/models"
	"github.com/choppgest/choppgest-backend/pkg/enums"
	pkgerrors "github.com/choppgest/choppgest-backend/pkg/errors"
	"github.com/choppgest/choppgest-backend/pkg/logger"
)

const maxRoyaltyPageSize = 200

// RoyaltyService is the billing surface the controllers depend on.
type RoyaltyService interface {
	Create(ctx context.Context, input royalties.CreateInput) (*models.Royalty, error)
	GenerateLink(ctx context.Context, royaltyID uuid.UUID, gateway enums.Gateway) (*models.Royalty, error)
	Cancel(ctx context.Context, royaltyID uuid.UUID, reason string) (*models.Royalty, error)
	Get(ctx context.Context, royaltyID uuid.UUID) (*models.Royalty, []models.PaymentLog, error)
	List(ctx context.Context, query royalties.ListQuery) ([]models.Royalty, error)
}

type generateLinkRequest struct {
	Gateway string `json:"gateway" validate:"required"`
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type royaltyDetailResponse struct {
	Royalty    *models.Royalty     `json:"royalty"`
	PaymentLog []models.PaymentLog `json:"payment_log"`
}

// RoyaltyCreate registers a new royalty charge for an establishment.
func RoyaltyCreate(svc RoyaltyService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "royalty service unavailable"))
			return
		}

		var payload royalties.CreateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		royalty, err := svc.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, royalty)
	}
}

// RoyaltyGenerateLink asks the chosen gateway for a payment link.
func RoyaltyGenerateLink(svc RoyaltyService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "royalty service unavailable"))
			return
		}

		royaltyID, err := royaltyIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload generateLinkRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		gateway, err := enums.ParseGateway(strings.TrimSpace(payload.Gateway))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid gateway"))
			return
		}

		royalty, err := svc.GenerateLink(r.Context(), royaltyID, gateway)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, royalty)
	}
}

// RoyaltyCancel is the operator-side cancellation.
func RoyaltyCancel(svc RoyaltyService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "royalty service unavailable"))
			return
		}

		royaltyID, err := royaltyIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		royalty, err := svc.Cancel(r.Context(), royaltyID, strings.TrimSpace(payload.Reason))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, royalty)
	}
}

// RoyaltyList returns charges, optionally filtered by establishment and status.
func RoyaltyList(svc RoyaltyService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "royalty service unavailable"))
			return
		}

		query := royalties.ListQuery{}

		if raw := strings.TrimSpace(r.URL.Query().Get("establishment_id")); raw != "" {
			establishmentID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid establishment_id"))
				return
			}
			query.EstablishmentID = &establishmentID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseRoyaltyStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status"))
				return
			}
			query.Status = &status
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, maxRoyaltyPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query.Limit = limit

		list, err := svc.List(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// RoyaltyDetail returns a charge with its full payment ledger.
func RoyaltyDetail(svc RoyaltyService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "royalty service unavailable"))
			return
		}

		royaltyID, err := royaltyIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		royalty, ledger, err := svc.Get(r.Context(), royaltyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, royaltyDetailResponse{Royalty: royalty, PaymentLog: ledger})
	}
}

func royaltyIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "royaltyId"))
	royaltyID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid royalty id")
	}
	return royaltyID, nil
}
