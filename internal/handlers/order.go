package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/httputil"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/models"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/services"
)

type OrderHandler struct {
	service *services.OrderService
	log     *zap.Logger
}

func NewOrderHandler(service *services.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{service: service, log: log}
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := httputil.DecodeJSON(r, w, &req); err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	order, err := h.service.CreateOrder(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{
		Success: true,
		Data:    order,
		Message: "order created successfully",
	})
}

// GetOrders lists orders with their accounts, optionally filtered by ?status=.
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	status := models.OrderStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	orders, err := h.service.ListOrders(r.Context(), status)
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.List(w, orders, len(orders))
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.OK(w, http.StatusOK, order)
}

func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateOrderStatusRequest
	if err := httputil.DecodeJSON(r, w, &req); err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	order, err := h.service.UpdateOrderStatus(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		httputil.WriteError(w, r, h.log, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Envelope{
		Success: true,
		Data:    order,
		Message: "order status updated successfully",
	})
}
