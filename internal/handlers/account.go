package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/apperr"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/httputil"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/models"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/services"
)

type AccountHandler struct {
	service *services.AccountService
	log     *zap.Logger
}

func NewAccountHandler(service *services.AccountService, log *zap.Logger) *AccountHandler {
	return &AccountHandler{service: service, log: log}
}

// GetAccounts lists the catalog. Query: region, minAR, maxPrice, status, search.
func (h *AccountHandler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAccountFilter(r)
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	accounts, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.List(w, accounts, len(accounts))
}

func parseAccountFilter(r *http.Request) (models.AccountFilter, error) {
	q := r.URL.Query()
	filter := models.AccountFilter{
		Region: models.Region(strings.TrimSpace(q.Get("region"))),
		Status: models.AccountStatus(strings.TrimSpace(q.Get("status"))),
		Search: strings.TrimSpace(q.Get("search")),
	}

	var details []apperr.FieldError
	if v := strings.TrimSpace(q.Get("minAR")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			details = append(details, apperr.FieldError{Field: "minAR", Message: "minAR must be an integer"})
		} else {
			filter.MinAR = &n
		}
	}
	if v := strings.TrimSpace(q.Get("maxPrice")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			details = append(details, apperr.FieldError{Field: "maxPrice", Message: "maxPrice must be a number"})
		} else {
			filter.MaxPrice = &f
		}
	}
	if len(details) > 0 {
		return filter, apperr.Validation("invalid query parameters", details...)
	}
	return filter, nil
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.OK(w, http.StatusOK, acct)
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var in models.AccountInput
	if err := httputil.DecodeJSON(r, w, &in); err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	acct, err := h.service.Create(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{
		Success: true,
		Data:    acct,
		Message: "account created successfully",
	})
}

func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var in models.AccountInput
	if err := httputil.DecodeJSON(r, w, &in); err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	acct, err := h.service.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{
		Success: true,
		Data:    acct,
		Message: "account updated successfully",
	})
}

func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.Message(w, http.StatusOK, "account deleted successfully")
}

func (h *AccountHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.OK(w, http.StatusOK, stats)
}
