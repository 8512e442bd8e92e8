package controllers

import (
	"context"
	"net/http"

	"github.com/wedanddone/wedanddone-backend/api/responses"
	"github.com/wedanddone/wedanddone-backend/api/validators"
	"github.com/wedanddone/wedanddone-backend/internal/contracts"
	"github.com/wedanddone/wedanddone-backend/internal/guestcount"
	"github.com/wedanddone/wedanddone-backend/internal/paymentplan"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
	"github.com/wedanddone/wedanddone-backend/pkg/money"
)

type PlanQuoter interface {
	Quote(ctx context.Context, owner guestcount.Owner, input contracts.QuoteInput) (paymentplan.Plan, error)
}

type quoteRequest struct {
	Module    string `json:"module" validate:"required,module"`
	Total     string `json:"total" validate:"required,amount"`
	PayInFull bool   `json:"pay_in_full"`
}

// QuotePlan recomputes the payment plan as the couple edits a module. It is
// open to guests; nothing is persisted.
func QuotePlan(svc PlanQuoter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}
		owner, err := ownerFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		total, err := money.ParseAmount(payload.Total)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid total"))
			return
		}
		plan, err := svc.Quote(r.Context(), owner, contracts.QuoteInput{
			Module:    enums.BoutiqueModule(payload.Module),
			Total:     total,
			PayInFull: payload.PayInFull,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPlanResponse(plan))
	}
}
