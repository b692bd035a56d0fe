package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/logger"
	"github.com/Nzyazin/cashdesk/internal/core/models"
	"github.com/Nzyazin/cashdesk/internal/core/usecase"
	"github.com/gorilla/mux"
)

type CashBalanceHandler struct {
	usecase usecase.CashBalanceUsecase
	log     logger.Logger
}

func NewCashBalanceHandler(usecase usecase.CashBalanceUsecase, log logger.Logger) *CashBalanceHandler {
	return &CashBalanceHandler{usecase: usecase, log: log}
}

func (h *CashBalanceHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/cash-balance", h.GetBalances).Methods(http.MethodGet)
	router.HandleFunc("/cash-balance/summary", h.GetSummary).Methods(http.MethodGet)
}

func (h *CashBalanceHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	balances, err := h.usecase.GetBalances(r.Context(), filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, balances)
}

func (h *CashBalanceHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.usecase.Summary(r.Context(), filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (h *CashBalanceHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		h.log.Error("Failed to read balances", logger.ErrorField("error", err))
		WriteError(w, r, code, "Failed to read balances")
		return
	}
	WriteError(w, r, code, err.Error())
}

func parseFilter(r *http.Request) (usecase.BalanceFilter, error) {
	q := r.URL.Query()
	filter := usecase.BalanceFilter{Cashier: q.Get("cashier")}

	var err error
	if filter.From, err = parseTime(q.Get("dateFrom"), "dateFrom"); err != nil {
		return usecase.BalanceFilter{}, err
	}
	if filter.To, err = parseTime(q.Get("dateTo"), "dateTo"); err != nil {
		return usecase.BalanceFilter{}, err
	}
	return filter, nil
}

func parseTime(value, name string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(models.TimestampLayout, value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("Invalid request. %s must match %s.", name, models.TimestampLayout)
	}
	return &t, nil
}
