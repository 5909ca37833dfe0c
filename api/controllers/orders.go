package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zawlinn/boostline-backend/api/responses"
	"github.com/zawlinn/boostline-backend/api/validators"
	"github.com/zawlinn/boostline-backend/internal/ledger"
	"github.com/zawlinn/boostline-backend/internal/settlement"
	pkgerrors "github.com/zawlinn/boostline-backend/pkg/errors"
	"github.com/zawlinn/boostline-backend/pkg/logger"
)

type outcomeResponse struct {
	OrderID           int64           `json:"order_id"`
	Applied           bool            `json:"applied"`
	FromStatus        string          `json:"from_status"`
	ObservedStatus    string          `json:"observed_status"`
	RecordedStatus    string          `json:"recorded_status"`
	DeliveredQuantity int64           `json:"delivered_quantity"`
	RefundAmount      decimal.Decimal `json:"refund_amount"`
}

func newOutcomeResponse(o *settlement.Outcome) outcomeResponse {
	return outcomeResponse{
		OrderID:           o.OrderID,
		Applied:           o.Applied,
		FromStatus:        o.FromStatus.String(),
		ObservedStatus:    o.ObservedStatus.String(),
		RecordedStatus:    o.RecordedStatus.String(),
		DeliveredQuantity: o.DeliveredQuantity,
		RefundAmount:      o.RefundAmount,
	}
}

// OrderComplete settles a manually fulfilled order as delivered in full.
func OrderComplete(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		orderID, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.ManualComplete(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOutcomeResponse(outcome))
	}
}

// OrderRefund fully refunds an order, reversing an earlier completion if
// one was counted.
func OrderRefund(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		orderID, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.ManualRefund(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOutcomeResponse(outcome))
	}
}

type settlementEventResponse struct {
	ID                string          `json:"id"`
	OrderID           int64           `json:"order_id"`
	Type              string          `json:"type"`
	FromStatus        string          `json:"from_status"`
	ToStatus          string          `json:"to_status"`
	RecordedStatus    string          `json:"recorded_status"`
	DeliveredQuantity int64           `json:"delivered_quantity"`
	RefundAmount      decimal.Decimal `json:"refund_amount"`
	SpendDelta        decimal.Decimal `json:"spend_delta"`
	CatalogDelta      int64           `json:"catalog_delta"`
	ReferralDelta     decimal.Decimal `json:"referral_delta"`
	LoyaltyDelta      decimal.Decimal `json:"loyalty_delta"`
	CreatedAt         string          `json:"created_at"`
}

// OrderEvents returns the settlement audit trail for one order.
func OrderEvents(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		orderID, err := validators.ParsePathID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		events, err := svc.ListByOrderID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settlement events"))
			return
		}

		out := make([]settlementEventResponse, 0, len(events))
		for _, ev := range events {
			out = append(out, settlementEventResponse{
				ID:                ev.ID.String(),
				OrderID:           ev.OrderID,
				Type:              ev.Type.String(),
				FromStatus:        ev.FromStatus.String(),
				ToStatus:          ev.ToStatus.String(),
				RecordedStatus:    ev.RecordedStatus.String(),
				DeliveredQuantity: ev.DeliveredQuantity,
				RefundAmount:      ev.RefundAmount,
				SpendDelta:        ev.SpendDelta,
				CatalogDelta:      ev.CatalogDelta,
				ReferralDelta:     ev.ReferralDelta,
				LoyaltyDelta:      ev.LoyaltyDelta,
				CreatedAt:         ev.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		responses.WriteSuccess(w, out)
	}
}
