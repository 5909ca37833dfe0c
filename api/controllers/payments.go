package controllers

import (
	"net/http"

	"github.com/zawlinn/boostline-backend/api/responses"
	"github.com/zawlinn/boostline-backend/api/validators"
	"github.com/zawlinn/boostline-backend/internal/payments"
	pkgerrors "github.com/zawlinn/boostline-backend/pkg/errors"
	"github.com/zawlinn/boostline-backend/pkg/logger"
)

// PaymentAccept is the operator override crediting a flagged transaction.
func PaymentAccept(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		transactionID, err := validators.ParsePathID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Accept(r.Context(), transactionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"transaction_id": transactionID, "status": "accepted"})
	}
}

// PaymentReject discards a flagged transaction without crediting anything.
func PaymentReject(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		transactionID, err := validators.ParsePathID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Reject(r.Context(), transactionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"transaction_id": transactionID, "status": "rejected"})
	}
}
