package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/wedanddone/wedanddone-backend/api/responses"
	"github.com/wedanddone/wedanddone-backend/api/validators"
	"github.com/wedanddone/wedanddone-backend/internal/checkout"
	"github.com/wedanddone/wedanddone-backend/internal/contracts"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	pkgerrors "github.com/wedanddone/wedanddone-backend/pkg/errors"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
	"github.com/wedanddone/wedanddone-backend/pkg/money"
)

type ContractService interface {
	Sign(ctx context.Context, input contracts.SignInput) (*models.Contract, error)
	Get(ctx context.Context, accountID, contractID uuid.UUID) (*models.Contract, error)
	List(ctx context.Context, accountID uuid.UUID) ([]models.Contract, error)
}

type signContractRequest struct {
	Module       string   `json:"module" validate:"required,module"`
	Total        string   `json:"total" validate:"required,amount"`
	PayInFull    bool     `json:"pay_in_full"`
	Fingerprint  string   `json:"fingerprint" validate:"required,max=64"`
	SignatureRef string   `json:"signature_ref" validate:"required,max=512"`
	LineItems    []string `json:"line_items" validate:"max=100,dive,max=500"`
}

func ListContracts(svc ContractService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contract service unavailable"))
			return
		}
		accountID, err := accountFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.List(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		docs := make([]contracts.Document, 0, len(rows))
		for i := range rows {
			docs = append(docs, contracts.DocumentFor(&rows[i]))
		}
		responses.WriteSuccess(w, docs)
	}
}

// SignContract persists the plan the couple signed. The body repeats the
// quote inputs so the server can recompute and compare fingerprints.
func SignContract(svc ContractService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contract service unavailable"))
			return
		}
		accountID, err := accountFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload signContractRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		total, err := money.ParseAmount(payload.Total)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid total"))
			return
		}
		contract, err := svc.Sign(r.Context(), contracts.SignInput{
			AccountID:    accountID,
			Module:       enums.BoutiqueModule(payload.Module),
			Total:        total,
			PayInFull:    payload.PayInFull,
			Fingerprint:  strings.TrimSpace(payload.Fingerprint),
			SignatureRef: strings.TrimSpace(payload.SignatureRef),
			LineItems:    payload.LineItems,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, contracts.DocumentFor(contract))
	}
}

func GetContract(svc ContractService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contract service unavailable"))
			return
		}
		accountID, err := accountFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contractID, err := uuidParam(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contract, err := svc.Get(r.Context(), accountID, contractID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contracts.DocumentFor(contract))
	}
}

type checkoutRequest struct {
	SourceID string `json:"source_id" validate:"required,max=255"`
}

type checkoutResponse struct {
	Contract   contracts.Document  `json:"contract"`
	Charge     *chargeResponse     `json:"charge,omitempty"`
	GuestCount *guestCountResponse `json:"guest_count,omitempty"`
	LockFailed bool                `json:"lock_failed"`
}

// CheckoutContract charges the amount due today on a signed contract.
func CheckoutContract(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		accountID, err := accountFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contractID, err := uuidParam(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Pay(r.Context(), checkout.PayInput{
			AccountID:  accountID,
			ContractID: contractID,
			SourceID:   payload.SourceID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := checkoutResponse{
			Contract:   contracts.DocumentFor(result.Contract),
			Charge:     newChargeResponse(result.Charge),
			LockFailed: result.LockFailed,
		}
		if result.GuestCount != nil {
			state := newGuestCountResponse(*result.GuestCount)
			resp.GuestCount = &state
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}
