package treasury

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obralink/obralink/internal/platform/httpx"
	"github.com/obralink/obralink/internal/shared"
)

// Handler exposes the money-moving endpoints: installment payments,
// contractor expenses and fee liquidations.
type Handler struct {
	logger   *slog.Logger
	coord    *Coordinator
	fees     *FeeEngine
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, coord *Coordinator, fees *FeeEngine) *Handler {
	return &Handler{logger: logger, coord: coord, fees: fees, validate: validator.New()}
}

// MountRoutes registers treasury routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/installments/{installmentID}/pay", h.payInstallment)
	r.Post("/projects/{projectID}/expenses", h.recordExpense)
	r.Post("/fees/liquidate", h.liquidateFee)
}

type payRequest struct {
	Amount    string `json:"amount" validate:"required"`
	Currency  string `json:"currency" validate:"required,oneof=ARS USD"`
	Method    string `json:"method" validate:"max=50"`
	Reference string `json:"reference" validate:"max=200"`
	Note      string `json:"note" validate:"max=500"`
}

// payInstallment records the dual-entry payment and, when the
// installment carries a fee percentage, liquidates the admin fee
// afterwards. A failed liquidation never undoes the payment; it comes
// back as fee_warning on the result.
func (h *Handler) payInstallment(w http.ResponseWriter, r *http.Request) {
	installmentID, err := uuid.Parse(chi.URLParam(r, "installmentID"))
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid installment id", err.Error())
		return
	}
	var req payRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	amount, err := shared.ParseAmount(req.Amount)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}

	result, err := h.coord.RecordPayment(r.Context(), installmentID, amount, shared.Currency(req.Currency),
		PaymentMeta{Method: req.Method, Reference: req.Reference, Note: req.Note})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}

	if pct := result.Installment.AdminFeePercentage; pct != nil && pct.IsPositive() {
		fee, warning := h.fees.LiquidateAfterPayment(r.Context(), LiquidationInput{
			PaymentAmount: amount,
			Currency:      shared.Currency(req.Currency),
			FeeType:       FeePercentage,
			FeeValue:      *pct,
			ProjectID:     result.Installment.ProjectID,
			InstallmentID: &installmentID,
			Description:   "admin fee on installment payment",
		})
		result.Fee = fee
		result.FeeWarning = warning
	}
	httpx.JSON(w, http.StatusCreated, result)
}

type expenseRequest struct {
	Amount    string `json:"amount" validate:"required"`
	Currency  string `json:"currency" validate:"required,oneof=ARS USD"`
	Method    string `json:"method" validate:"max=50"`
	Reference string `json:"reference" validate:"max=200"`
	Note      string `json:"note" validate:"max=500"`
}

func (h *Handler) recordExpense(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid project id", err.Error())
		return
	}
	var req expenseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	amount, err := shared.ParseAmount(req.Amount)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}

	result, err := h.coord.RecordExpense(r.Context(), projectID, amount, shared.Currency(req.Currency),
		PaymentMeta{Method: req.Method, Reference: req.Reference, Note: req.Note})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

type liquidateRequest struct {
	PaymentAmount string  `json:"payment_amount" validate:"required"`
	Currency      string  `json:"currency" validate:"required,oneof=ARS USD"`
	FeeType       string  `json:"fee_type" validate:"required,oneof=percentage fixed none"`
	FeeValue      string  `json:"fee_value"`
	ProjectID     string  `json:"project_id" validate:"required,uuid4"`
	InstallmentID *string `json:"installment_id" validate:"omitempty,uuid4"`
	Description   string  `json:"description" validate:"max=500"`
}

func (h *Handler) liquidateFee(w http.ResponseWriter, r *http.Request) {
	var req liquidateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	amount, err := shared.ParseAmount(req.PaymentAmount)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	feeValue := decimal.Zero
	if req.FeeValue != "" {
		if feeValue, err = decimal.NewFromString(req.FeeValue); err != nil {
			httpx.Problem(w, r, http.StatusBadRequest, "Invalid payload", "fee_value is not a number")
			return
		}
	}
	projectID, _ := uuid.Parse(req.ProjectID)
	var installmentID *uuid.UUID
	if req.InstallmentID != nil {
		id, err := uuid.Parse(*req.InstallmentID)
		if err != nil {
			httpx.Problem(w, r, http.StatusBadRequest, "Invalid installment id", err.Error())
			return
		}
		installmentID = &id
	}

	result, err := h.fees.Liquidate(r.Context(), LiquidationInput{
		PaymentAmount: amount,
		Currency:      shared.Currency(req.Currency),
		FeeType:       FeeType(req.FeeType),
		FeeValue:      feeValue,
		ProjectID:     projectID,
		InstallmentID: installmentID,
		Description:   req.Description,
	})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
