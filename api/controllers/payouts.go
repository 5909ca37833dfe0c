package controllers

import (
	"net/http"

	"github.com/zawlinn/boostline-backend/api/responses"
	"github.com/zawlinn/boostline-backend/api/validators"
	"github.com/zawlinn/boostline-backend/internal/payouts"
	pkgerrors "github.com/zawlinn/boostline-backend/pkg/errors"
	"github.com/zawlinn/boostline-backend/pkg/logger"
)

// PayoutMarkPaid confirms an off-platform payout and releases the
// referrer's withdrawable balance.
func PayoutMarkPaid(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		payoutID, err := validators.ParsePathID(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkPaid(r.Context(), payoutID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"payout_id": payoutID, "status": "paid"})
	}
}
