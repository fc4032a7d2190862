package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/middlewares"
	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/models"
	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/services"
	"github.com/go-chi/chi/v5"
)

// callbackEnvelope accepts both the bare gateway body and the variant
// wrapped in a jsonpayload field.
type callbackEnvelope struct {
	models.PaymentCallback
	JSONPayload *models.PaymentCallback `json:"jsonpayload"`
}

func writeCallbackResponse(w http.ResponseWriter, statusCode int, success bool, requestID string) {
	message := "failed"
	if success {
		message = "success"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	middlewares.EncodeJSONResponse(w, models.CallbackResponse{
		Message:   message,
		Success:   success,
		RequestID: requestID,
	})
}

// PaymentCallback consumes the gateway's asynchronous payment outcome. The
// status code alone tells the gateway whether to stop retrying: 404 marks an
// unknown transaction id as final, a handled failure and a replayed terminal
// outcome are both a 200. The envelope mirrors the outcome, so a handled
// failure answers 200 with the failed envelope.
func PaymentCallback(w http.ResponseWriter, r *http.Request) {
	success := false
	defer func() {
		middlewares.RecordPaymentOperation("callback", success)
	}()

	transactionID := chi.URLParam(r, "transactionID")
	reconciliationService := middlewares.GetServiceFromContext[models.ReconciliationService](w, r, middlewares.ReconciliationServiceKey)

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		writeCallbackResponse(w, http.StatusBadRequest, false, transactionID)
		return
	}

	var envelope callbackEnvelope
	if err := json.Unmarshal(buf.Bytes(), &envelope); err != nil {
		writeCallbackResponse(w, http.StatusBadRequest, false, transactionID)
		return
	}

	callback := envelope.PaymentCallback
	if envelope.JSONPayload != nil {
		callback = *envelope.JSONPayload
	}

	if callback.RequestTransactionID == "" {
		callback.RequestTransactionID = transactionID
	}

	if err := (*reconciliationService).ApplyCallback(r.Context(), callback); err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			writeCallbackResponse(w, http.StatusNotFound, false, callback.RequestTransactionID)
			return
		}

		writeCallbackResponse(w, http.StatusInternalServerError, false, callback.RequestTransactionID)
		return
	}

	success = true
	writeCallbackResponse(w, http.StatusOK, callback.Succeeded(), callback.RequestTransactionID)
}

// VerifyPayment re-runs the reconciliation transition against a freshly
// queried gateway status, compensating for a lost callback.
func VerifyPayment(w http.ResponseWriter, r *http.Request) {
	success := false
	defer func() {
		middlewares.RecordPaymentOperation("verify", success)
	}()

	transactionID := chi.URLParam(r, "transactionID")
	reconciliationService := middlewares.GetServiceFromContext[models.ReconciliationService](w, r, middlewares.ReconciliationServiceKey)

	order, err := (*reconciliationService).VerifyPayment(r.Context(), transactionID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}

		if errors.Is(err, services.ErrGatewayUnavailable) {
			http.Error(w, "Payment gateway is unavailable", http.StatusBadGateway)
			return
		}

		http.Error(w, fmt.Sprintf("Error occurred during verifying payment: %s", err.Error()), http.StatusInternalServerError)
		return
	}

	success = true
	middlewares.EncodeJSONResponse(w, order)
}

func RefundPayment(w http.ResponseWriter, r *http.Request) {
	success := false
	defer func() {
		middlewares.RecordPaymentOperation("refund", success)
	}()

	paymentID := chi.URLParam(r, "paymentID")
	request := middlewares.GetParsedJSONData[models.RefundRequest](w, r)
	paymentService := middlewares.GetServiceFromContext[models.PaymentService](w, r, middlewares.PaymentServiceKey)

	result, err := (*paymentService).Refund(r.Context(), paymentID, request.Reason, middlewares.GetSubjectFromContext(r))
	if err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			http.Error(w, "Payment not found", http.StatusNotFound)
			return
		}

		if errors.Is(err, services.ErrRefundIneligible) {
			http.Error(w, "Payment must be completed to be refunded", http.StatusBadRequest)
			return
		}

		http.Error(w, fmt.Sprintf("Error occurred during refunding payment: %s", err.Error()), http.StatusInternalServerError)
		return
	}

	success = result.Success
	middlewares.EncodeJSONResponse(w, result)
}
