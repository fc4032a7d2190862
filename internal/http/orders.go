package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/middlewares"
	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/models"
	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/services"
	"github.com/go-chi/chi/v5"
)

func CreateOrder(w http.ResponseWriter, r *http.Request) {
	draft := middlewares.GetParsedJSONData[models.OrderDraft](w, r)
	orderService := middlewares.GetServiceFromContext[models.OrderService](w, r, middlewares.OrderServiceKey)

	order, err := (*orderService).CreateOrder(r.Context(), draft)
	if err != nil {
		if errors.Is(err, services.ErrEmptyOrder) || errors.Is(err, services.ErrInvalidQuantity) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, fmt.Sprintf("Error occurred during creating order: %s", err.Error()), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	middlewares.EncodeJSONResponse(w, order)
}

func GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	orderService := middlewares.GetServiceFromContext[models.OrderService](w, r, middlewares.OrderServiceKey)

	order, err := (*orderService).GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}

		http.Error(w, fmt.Sprintf("Error occurred during getting order: %s", err.Error()), http.StatusInternalServerError)
		return
	}

	middlewares.EncodeJSONResponse(w, order)
}

func InitiatePayment(w http.ResponseWriter, r *http.Request) {
	success := false
	defer func() {
		middlewares.RecordPaymentOperation("initiate", success)
	}()

	orderID := chi.URLParam(r, "orderID")
	request := middlewares.GetParsedJSONData[models.PaymentInitiationRequest](w, r)
	paymentService := middlewares.GetServiceFromContext[models.PaymentService](w, r, middlewares.PaymentServiceKey)

	ack, err := (*paymentService).InitiatePayment(r.Context(), orderID, request.PhoneNumber)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}

		if errors.Is(err, services.ErrMissingPhoneNumber) {
			http.Error(w, "Phone number is required", http.StatusBadRequest)
			return
		}

		if errors.Is(err, services.ErrPaymentAlreadyCompleted) {
			http.Error(w, "Payment is already completed", http.StatusConflict)
			return
		}

		if errors.Is(err, services.ErrPaymentProcessing) {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}

		http.Error(w, fmt.Sprintf("Error occurred during initiating payment: %s", err.Error()), http.StatusInternalServerError)
		return
	}

	success = true
	middlewares.EncodeJSONResponse(w, ack)
}
