package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Nzyazin/cashdesk/internal/core/logger"
	"github.com/Nzyazin/cashdesk/internal/core/models"
	"github.com/Nzyazin/cashdesk/internal/core/usecase"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type CashDeskHandler struct {
	usecase  usecase.CashDeskUsecase
	validate *validator.Validate
	log      logger.Logger
}

type DenominationRequest struct {
	Value    int   `json:"value" validate:"gt=0"`
	Quantity int64 `json:"quantity" validate:"ne=0"`
}

type CashOperationRequest struct {
	CashierName   string                `json:"cashierName" validate:"required"`
	Currency      string                `json:"currency" validate:"required"`
	OperationType string                `json:"operationType" validate:"required"`
	Amount        decimal.Decimal       `json:"amount"`
	Denominations []DenominationRequest `json:"denominations" validate:"required,min=1,dive"`
}

type OperationResponse struct {
	Message     string    `json:"message"`
	OperationID uuid.UUID `json:"operationId"`
}

func NewCashDeskHandler(usecase usecase.CashDeskUsecase, log logger.Logger) *CashDeskHandler {
	return &CashDeskHandler{usecase: usecase, validate: validator.New(), log: log}
}

func (h *CashDeskHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/cash-operation", h.ProcessCashOperation).Methods(http.MethodPost)
}

func (h *CashDeskHandler) ProcessCashOperation(w http.ResponseWriter, r *http.Request) {
	body, err := h.decodeRequest(w, r)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.validate.Struct(body); err != nil {
		message := validationMessage(err)
		h.log.Warn("Request validation failed", logger.StringField("reason", message))
		WriteError(w, r, http.StatusBadRequest, message)
		return
	}

	rec, err := h.usecase.PerformOperation(r.Context(), toOperationRequest(body))
	if err != nil {
		h.handleOperationError(w, r, body, err)
		return
	}

	respondWithJSON(w, http.StatusOK, OperationResponse{
		Message:     "Operation successful",
		OperationID: rec.ID,
	})
}

func (h *CashDeskHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*CashOperationRequest, error) {
	var body CashOperationRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.log.Warn("Failed to decode request body", logger.ErrorField("error", err))
		return nil, errors.New("Invalid request payload.")
	}
	return &body, nil
}

func toOperationRequest(body *CashOperationRequest) *models.OperationRequest {
	deltas := make([]models.DenominationDelta, 0, len(body.Denominations))
	for _, d := range body.Denominations {
		deltas = append(deltas, models.DenominationDelta{FaceValue: d.Value, Quantity: d.Quantity})
	}
	return &models.OperationRequest{
		CashierName:   strings.TrimSpace(body.CashierName),
		Currency:      models.ParseCurrency(body.Currency),
		OperationType: models.ParseOperationType(body.OperationType),
		Amount:        body.Amount,
		Denominations: deltas,
	}
}

// validationMessage reports the first failing field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid request. Field '%s' failed on the '%s' rule.", fe.Namespace(), fe.Tag())
	}
	return "Invalid request."
}

func (h *CashDeskHandler) handleOperationError(w http.ResponseWriter, r *http.Request, body *CashOperationRequest, err error) {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		h.log.Error("Failed to process operation",
			logger.StringField("cashier", body.CashierName),
			logger.StringField("operation_type", body.OperationType),
			logger.ErrorField("error", err))
		WriteError(w, r, code, "Failed to process operation")
		return
	}
	WriteError(w, r, code, err.Error())
}
