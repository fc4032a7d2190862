package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/models"
	mock_models "github.com/IGIHOZO/E-GURA-2025-sub003/internal/models/mocks"
	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/services"
	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
)

func TestCreateOrderRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orderServiceMock := mock_models.NewMockOrderService(ctrl)

	testServer := httptest.NewServer(
		New(Config{}, nil, orderServiceMock, nil, nil).get(),
	)
	defer testServer.Close()

	draft := models.OrderDraft{
		CustomerName:  "Alice",
		CustomerPhone: "0788123456",
		Items: []models.OrderItem{
			{ProductID: "p-1", Name: "Phone case", Quantity: 2, UnitPrice: 1500},
		},
		Tax:           540,
		ShippingCost:  1000,
		PaymentMethod: models.PaymentMethodMobileMoney,
	}

	testCases := []struct {
		testName        string
		methodName      string
		targetURL       string
		body            func() io.Reader
		test            func(t *testing.T)
		expectedCode    int
		expectedMessage string
	}{
		{
			testName:        "Should return a validation error due to missing body",
			methodName:      "POST",
			targetURL:       "/api/orders",
			expectedCode:    http.StatusBadRequest,
			expectedMessage: "Error occurred during unmarshaling data unexpected end of JSON input\n",
		},
		{
			testName:   "Should return a validation error due to missing items",
			methodName: "POST",
			targetURL:  "/api/orders",
			test: func(t *testing.T) {
				orderServiceMock.EXPECT().CreateOrder(gomock.Any(), models.OrderDraft{CustomerName: "Alice"}).Return(nil, services.ErrEmptyOrder)
			},
			body: func() io.Reader {
				data, _ := json.Marshal(models.OrderDraft{CustomerName: "Alice"})
				return bytes.NewBuffer(data)
			},
			expectedCode:    http.StatusBadRequest,
			expectedMessage: "order must contain at least one item\n",
		},
		{
			testName:   "Should create order",
			methodName: "POST",
			targetURL:  "/api/orders",
			test: func(t *testing.T) {
				orderServiceMock.EXPECT().CreateOrder(gomock.Any(), draft).Return(&models.Order{
					ID:            "order-id",
					OrderNumber:   "ORD-20091117-0001",
					CustomerName:  "Alice",
					CustomerPhone: "0788123456",
					Items:         draft.Items,
					Subtotal:      3000,
					Tax:           540,
					ShippingCost:  1000,
					Total:         4540,
					Status:        models.OrderStatusPending,
					PaymentStatus: models.PaymentStatusPending,
					PaymentMethod: models.PaymentMethodMobileMoney,
					CreatedAt:     utils.RFC3339Date{Time: time.Date(2009, 11, 17, 0, 0, 0, 0, time.UTC)},
				}, nil)
			},
			body: func() io.Reader {
				data, _ := json.Marshal(draft)
				return bytes.NewBuffer(data)
			},
			expectedCode:    http.StatusCreated,
			expectedMessage: "{\"id\":\"order-id\",\"orderNumber\":\"ORD-20091117-0001\",\"customerName\":\"Alice\",\"customerPhone\":\"0788123456\",\"items\":[{\"productId\":\"p-1\",\"name\":\"Phone case\",\"quantity\":2,\"unitPrice\":1500}],\"subtotal\":3000,\"tax\":540,\"shippingCost\":1000,\"discount\":0,\"total\":4540,\"status\":\"pending\",\"paymentStatus\":\"pending\",\"paymentMethod\":\"mobile_money\",\"createdAt\":\"2009-11-17T00:00:00Z\"}",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.testName, func(t *testing.T) {
			var body io.Reader

			if tc.body != nil {
				body = tc.body()
			}

			if tc.test != nil {
				tc.test(t)
			}

			res, mes := utils.TestRequest(
				t,
				testServer,
				tc.methodName,
				tc.targetURL,
				map[string]string{"Content-Type": "application/json"},
				body,
			)
			res.Body.Close()

			assert.Equal(t, tc.expectedCode, res.StatusCode)
			assert.Equal(t, tc.expectedMessage, mes)
		})
	}
}

func TestGetOrderRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	orderServiceMock := mock_models.NewMockOrderService(ctrl)

	testServer := httptest.NewServer(
		New(Config{}, nil, orderServiceMock, nil, nil).get(),
	)
	defer testServer.Close()

	testCases := []struct {
		testName        string
		methodName      string
		targetURL       string
		test            func(t *testing.T)
		expectedCode    int
		expectedMessage string
	}{
		{
			testName:   "Should return error when order isn't exist",
			methodName: "GET",
			targetURL:  "/api/orders/unknown-id",
			test: func(t *testing.T) {
				orderServiceMock.EXPECT().GetOrder(gomock.Any(), "unknown-id").Return(nil, services.ErrOrderNotFound)
			},
			expectedCode:    http.StatusNotFound,
			expectedMessage: "Order not found\n",
		},
		{
			testName:   "Should return order",
			methodName: "GET",
			targetURL:  "/api/orders/order-id",
			test: func(t *testing.T) {
				orderServiceMock.EXPECT().GetOrder(gomock.Any(), "order-id").Return(&models.Order{
					ID:            "order-id",
					OrderNumber:   "ORD-20091117-0001",
					Subtotal:      3000,
					Tax:           540,
					ShippingCost:  1000,
					Total:         4540,
					Status:        models.OrderStatusConfirmed,
					PaymentStatus: models.PaymentStatusCompleted,
					PaymentMethod: models.PaymentMethodMobileMoney,
					CreatedAt:     utils.RFC3339Date{Time: time.Date(2009, 11, 17, 0, 0, 0, 0, time.UTC)},
				}, nil)
			},
			expectedCode:    http.StatusOK,
			expectedMessage: "{\"id\":\"order-id\",\"orderNumber\":\"ORD-20091117-0001\",\"subtotal\":3000,\"tax\":540,\"shippingCost\":1000,\"discount\":0,\"total\":4540,\"status\":\"confirmed\",\"paymentStatus\":\"completed\",\"paymentMethod\":\"mobile_money\",\"createdAt\":\"2009-11-17T00:00:00Z\"}",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.testName, func(t *testing.T) {
			if tc.test != nil {
				tc.test(t)
			}

			res, mes := utils.TestRequest(
				t,
				testServer,
				tc.methodName,
				tc.targetURL,
				nil,
				nil,
			)
			res.Body.Close()

			assert.Equal(t, tc.expectedCode, res.StatusCode)
			assert.Equal(t, tc.expectedMessage, mes)
		})
	}
}

func TestInitiatePaymentRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	paymentServiceMock := mock_models.NewMockPaymentService(ctrl)

	testServer := httptest.NewServer(
		New(Config{}, nil, nil, paymentServiceMock, nil).get(),
	)
	defer testServer.Close()

	testCases := []struct {
		testName        string
		methodName      string
		targetURL       string
		body            func() io.Reader
		test            func(t *testing.T)
		expectedCode    int
		expectedMessage string
	}{
		{
			testName:   "Should return error when phone number is missing",
			methodName: "POST",
			targetURL:  "/api/orders/order-id/pay",
			test: func(t *testing.T) {
				paymentServiceMock.EXPECT().InitiatePayment(gomock.Any(), "order-id", "").Return(nil, services.ErrMissingPhoneNumber)
			},
			body: func() io.Reader {
				return bytes.NewBufferString("{}")
			},
			expectedCode:    http.StatusBadRequest,
			expectedMessage: "Phone number is required\n",
		},
		{
			testName:   "Should return error when order isn't exist",
			methodName: "POST",
			targetURL:  "/api/orders/unknown-id/pay",
			test: func(t *testing.T) {
				paymentServiceMock.EXPECT().InitiatePayment(gomock.Any(), "unknown-id", "0788123456").Return(nil, services.ErrOrderNotFound)
			},
			body: func() io.Reader {
				data, _ := json.Marshal(models.PaymentInitiationRequest{PhoneNumber: "0788123456"})
				return bytes.NewBuffer(data)
			},
			expectedCode:    http.StatusNotFound,
			expectedMessage: "Order not found\n",
		},
		{
			testName:   "Should return error when payment is already completed",
			methodName: "POST",
			targetURL:  "/api/orders/order-id/pay",
			test: func(t *testing.T) {
				paymentServiceMock.EXPECT().InitiatePayment(gomock.Any(), "order-id", "0788123456").Return(nil, services.ErrPaymentAlreadyCompleted)
			},
			body: func() io.Reader {
				data, _ := json.Marshal(models.PaymentInitiationRequest{PhoneNumber: "0788123456"})
				return bytes.NewBuffer(data)
			},
			expectedCode:    http.StatusConflict,
			expectedMessage: "Payment is already completed\n",
		},
		{
			testName:   "Should return error when gateway rejects the request",
			methodName: "POST",
			targetURL:  "/api/orders/order-id/pay",
			test: func(t *testing.T) {
				paymentServiceMock.EXPECT().InitiatePayment(gomock.Any(), "order-id", "0788123456").Return(nil, services.ErrPaymentProcessing)
			},
			body: func() io.Reader {
				data, _ := json.Marshal(models.PaymentInitiationRequest{PhoneNumber: "0788123456"})
				return bytes.NewBuffer(data)
			},
			expectedCode:    http.StatusBadGateway,
			expectedMessage: "payment processing failed\n",
		},
		{
			testName:   "Should initiate payment",
			methodName: "POST",
			targetURL:  "/api/orders/order-id/pay",
			test: func(t *testing.T) {
				paymentServiceMock.EXPECT().InitiatePayment(gomock.Any(), "order-id", "0788123456").Return(&models.PaymentAck{
					TransactionID: "1234567890",
					Status:        "pending",
					Message:       "payment request sent, approve it on your phone",
				}, nil)
			},
			body: func() io.Reader {
				data, _ := json.Marshal(models.PaymentInitiationRequest{PhoneNumber: "0788123456"})
				return bytes.NewBuffer(data)
			},
			expectedCode:    http.StatusOK,
			expectedMessage: "{\"transactionId\":\"1234567890\",\"status\":\"pending\",\"message\":\"payment request sent, approve it on your phone\"}",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.testName, func(t *testing.T) {
			var body io.Reader

			if tc.body != nil {
				body = tc.body()
			}

			if tc.test != nil {
				tc.test(t)
			}

			res, mes := utils.TestRequest(
				t,
				testServer,
				tc.methodName,
				tc.targetURL,
				map[string]string{"Content-Type": "application/json"},
				body,
			)
			res.Body.Close()

			assert.Equal(t, tc.expectedCode, res.StatusCode)
			assert.Equal(t, tc.expectedMessage, mes)
		})
	}
}

func TestPaymentCallbackRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reconciliationServiceMock := mock_models.NewMockReconciliationService(ctrl)

	testServer := httptest.NewServer(
		New(Config{}, nil, nil, nil, reconciliationServiceMock).get(),
	)
	defer testServer.Close()

	successCallback := models.PaymentCallback{
		RequestTransactionID: "123",
		TransactionID:        "gw-1",
		ResponseCode:         "01",
		Status:               "Successfully",
		StatusDesc:           "Transaction completed",
		ReferenceNo:          "ref-1",
	}

	testCases := []struct {
		testName        string
		methodName      string
		targetURL       string
		body            func() io.Reader
		test            func(t *testing.T)
		expectedCode    int
		expectedMessage string
	}{
		{
			testName:   "Should return a validation error due to malformed body",
			methodName: "POST",
			targetURL:  "/api/payments/callback/123",
			body: func() io.Reader {
				return bytes.NewBufferString("not-json")
			},
			expectedCode:    http.StatusBadRequest,
			expectedMessage: "{\"message\":\"failed\",\"success\":false,\"request_id\":\"123\"}",
		},
		{
			testName:   "Should apply successful callback",
			methodName: "POST",
			targetURL:  "/api/payments/callback/123",
			test: func(t *testing.T) {
				reconciliationServiceMock.EXPECT().ApplyCallback(gomock.Any(), successCallback).Return(nil)
			},
			body: func() io.Reader {
				data, _ := json.Marshal(successCallback)
				return bytes.NewBuffer(data)
			},
			expectedCode:    http.StatusOK,
			expectedMessage: "{\"message\":\"success\",\"success\":true,\"request_id\":\"123\"}",
		},
		{
			testName:   "Should apply callback wrapped in jsonpayload",
			methodName: "POST",
			targetURL:  "/api/payments/callback/123",
			test: func(t *testing.T) {
				reconciliationServiceMock.EXPECT().ApplyCallback(gomock.Any(), successCallback).Return(nil)
			},
			body: func() io.Reader {
				data, _ := json.Marshal(map[string]models.PaymentCallback{"jsonpayload": successCallback})
				return bytes.NewBuffer(data)
			},
			expectedCode:    http.StatusOK,
			expectedMessage: "{\"message\":\"success\",\"success\":true,\"request_id\":\"123\"}",
		},
		{
			testName:   "Should take transaction id from the URL when body omits it",
			methodName: "POST",
			targetURL:  "/api/payments/callback/456",
			test: func(t *testing.T) {
				reconciliationServiceMock.EXPECT().ApplyCallback(gomock.Any(), models.PaymentCallback{
					RequestTransactionID: "456",
					ResponseCode:         "99",
					Status:               "Failed",
					StatusDesc:           "Insufficient funds",
				}).Return(nil)
			},
			body: func() io.Reader {
				return bytes.NewBufferString("{\"responsecode\":\"99\",\"status\":\"Failed\",\"statusdesc\":\"Insufficient funds\"}")
			},
			expectedCode:    http.StatusOK,
			expectedMessage: "{\"message\":\"failed\",\"success\":false,\"request_id\":\"456\"}",
		},
		{
			testName:   "Should answer a failed envelope for a handled failure outcome",
			methodName: "POST",
			targetURL:  "/api/payments/callback/789",
			test: func(t *testing.T) {
				reconciliationServiceMock.EXPECT().ApplyCallback(gomock.Any(), models.PaymentCallback{
					RequestTransactionID: "789",
					ResponseCode:         "99",
					Status:               "Failed",
				}).Return(nil)
			},
			body: func() io.Reader {
				return bytes.NewBufferString("{\"requesttransactionid\":\"789\",\"responsecode\":\"99\",\"status\":\"Failed\"}")
			},
			expectedCode:    http.StatusOK,
			expectedMessage: "{\"message\":\"failed\",\"success\":false,\"request_id\":\"789\"}",
		},
		{
			testName:   "Should return error for unknown transaction id",
			methodName: "POST",
			targetURL:  "/api/payments/callback/999",
			test: func(t *testing.T) {
				reconciliationServiceMock.EXPECT().ApplyCallback(gomock.Any(), gomock.Any()).Return(services.ErrOrderNotFound)
			},
			body: func() io.Reader {
				return bytes.NewBufferString("{\"requesttransactionid\":\"999\",\"responsecode\":\"01\"}")
			},
			expectedCode:    http.StatusNotFound,
			expectedMessage: "{\"message\":\"failed\",\"success\":false,\"request_id\":\"999\"}",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.testName, func(t *testing.T) {
			var body io.Reader

			if tc.body != nil {
				body = tc.body()
			}

			if tc.test != nil {
				tc.test(t)
			}

			res, mes := utils.TestRequest(
				t,
				testServer,
				tc.methodName,
				tc.targetURL,
				map[string]string{"Content-Type": "application/json"},
				body,
			)
			res.Body.Close()

			assert.Equal(t, tc.expectedCode, res.StatusCode)
			assert.Equal(t, tc.expectedMessage, mes)
		})
	}
}

func TestVerifyPaymentRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jwtServiceMock := mock_models.NewMockJWTService(ctrl)
	reconciliationServiceMock := mock_models.NewMockReconciliationService(ctrl)

	testServer := httptest.NewServer(
		New(Config{}, jwtServiceMock, nil, nil, reconciliationServiceMock).get(),
	)
	defer testServer.Close()

	adminToken := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		jwt.MapClaims{
			"sub": "admin",
		})

	testCases := []struct {
		testName        string
		methodName      string
		targetURL       string
		headers         map[string]string
		test            func(t *testing.T)
		expectedCode    int
		expectedMessage string
	}{
		{
			testName:        "Should return error when token is missing",
			methodName:      "GET",
			targetURL:       "/api/payments/verify/123",
			expectedCode:    http.StatusUnauthorized,
			expectedMessage: "Authorization header is required\n",
		},
		{
			testName:   "Should return error when order isn't exist",
			methodName: "GET",
			targetURL:  "/api/payments/verify/999",
			headers:    map[string]string{"Authorization": "Bearer token"},
			test: func(t *testing.T) {
				jwtServiceMock.EXPECT().ValidateToken("token").Return(adminToken, nil)
				reconciliationServiceMock.EXPECT().VerifyPayment(gomock.Any(), "999").Return(nil, services.ErrOrderNotFound)
			},
			expectedCode:    http.StatusNotFound,
			expectedMessage: "Order not found\n",
		},
		{
			testName:   "Should return error when gateway is unavailable",
			methodName: "GET",
			targetURL:  "/api/payments/verify/123",
			headers:    map[string]string{"Authorization": "Bearer token"},
			test: func(t *testing.T) {
				jwtServiceMock.EXPECT().ValidateToken("token").Return(adminToken, nil)
				reconciliationServiceMock.EXPECT().VerifyPayment(gomock.Any(), "123").Return(nil, services.ErrGatewayUnavailable)
			},
			expectedCode:    http.StatusBadGateway,
			expectedMessage: "Payment gateway is unavailable\n",
		},
		{
			testName:   "Should verify payment",
			methodName: "GET",
			targetURL:  "/api/payments/verify/123",
			headers:    map[string]string{"Authorization": "Bearer token"},
			test: func(t *testing.T) {
				externalID := "123"

				jwtServiceMock.EXPECT().ValidateToken("token").Return(adminToken, nil)
				reconciliationServiceMock.EXPECT().VerifyPayment(gomock.Any(), "123").Return(&models.Order{
					ID:            "order-id",
					OrderNumber:   "ORD-20091117-0001",
					ExternalID:    &externalID,
					Subtotal:      3000,
					Tax:           540,
					ShippingCost:  1000,
					Total:         4540,
					Status:        models.OrderStatusConfirmed,
					PaymentStatus: models.PaymentStatusCompleted,
					PaymentMethod: models.PaymentMethodMobileMoney,
					CreatedAt:     utils.RFC3339Date{Time: time.Date(2009, 11, 17, 0, 0, 0, 0, time.UTC)},
				}, nil)
			},
			expectedCode:    http.StatusOK,
			expectedMessage: "{\"id\":\"order-id\",\"orderNumber\":\"ORD-20091117-0001\",\"externalId\":\"123\",\"subtotal\":3000,\"tax\":540,\"shippingCost\":1000,\"discount\":0,\"total\":4540,\"status\":\"confirmed\",\"paymentStatus\":\"completed\",\"paymentMethod\":\"mobile_money\",\"createdAt\":\"2009-11-17T00:00:00Z\"}",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.testName, func(t *testing.T) {
			if tc.test != nil {
				tc.test(t)
			}

			res, mes := utils.TestRequest(
				t,
				testServer,
				tc.methodName,
				tc.targetURL,
				tc.headers,
				nil,
			)
			res.Body.Close()

			assert.Equal(t, tc.expectedCode, res.StatusCode)
			assert.Equal(t, tc.expectedMessage, mes)
		})
	}
}

func TestRefundPaymentRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jwtServiceMock := mock_models.NewMockJWTService(ctrl)
	paymentServiceMock := mock_models.NewMockPaymentService(ctrl)

	testServer := httptest.NewServer(
		New(Config{}, jwtServiceMock, nil, paymentServiceMock, nil).get(),
	)
	defer testServer.Close()

	adminToken := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		jwt.MapClaims{
			"sub": "admin",
		})

	testCases := []struct {
		testName        string
		methodName      string
		targetURL       string
		headers         map[string]string
		body            func() io.Reader
		test            func(t *testing.T)
		expectedCode    int
		expectedMessage string
	}{
		{
			testName:        "Should return error when token is missing",
			methodName:      "POST",
			targetURL:       "/api/payments/payment-id/refund",
			headers:         map[string]string{"Content-Type": "application/json"},
			expectedCode:    http.StatusUnauthorized,
			expectedMessage: "Authorization header is required\n",
		},
		{
			testName:   "Should return error when payment isn't exist",
			methodName: "POST",
			targetURL:  "/api/payments/unknown-id/refund",
			headers:    map[string]string{"Content-Type": "application/json", "Authorization": "Bearer token"},
			test: func(t *testing.T) {
				jwtServiceMock.EXPECT().ValidateToken("token").Return(adminToken, nil)
				paymentServiceMock.EXPECT().Refund(gomock.Any(), "unknown-id", "customer request", "admin").Return(nil, services.ErrPaymentNotFound)
			},
			body: func() io.Reader {
				data, _ := json.Marshal(models.RefundRequest{Reason: "customer request"})
				return bytes.NewBuffer(data)
			},
			expectedCode:    http.StatusNotFound,
			expectedMessage: "Payment not found\n",
		},
		{
			testName:   "Should return error when payment isn't completed",
			methodName: "POST",
			targetURL:  "/api/payments/payment-id/refund",
			headers:    map[string]string{"Content-Type": "application/json", "Authorization": "Bearer token"},
			test: func(t *testing.T) {
				jwtServiceMock.EXPECT().ValidateToken("token").Return(adminToken, nil)
				paymentServiceMock.EXPECT().Refund(gomock.Any(), "payment-id", "customer request", "admin").Return(nil, services.ErrRefundIneligible)
			},
			body: func() io.Reader {
				data, _ := json.Marshal(models.RefundRequest{Reason: "customer request"})
				return bytes.NewBuffer(data)
			},
			expectedCode:    http.StatusBadRequest,
			expectedMessage: "Payment must be completed to be refunded\n",
		},
		{
			testName:   "Should refund payment",
			methodName: "POST",
			targetURL:  "/api/payments/payment-id/refund",
			headers:    map[string]string{"Content-Type": "application/json", "Authorization": "Bearer token"},
			test: func(t *testing.T) {
				jwtServiceMock.EXPECT().ValidateToken("token").Return(adminToken, nil)
				paymentServiceMock.EXPECT().Refund(gomock.Any(), "payment-id", "customer request", "admin").Return(&models.RefundResult{
					Success: true,
					Message: "payment refunded",
				}, nil)
			},
			body: func() io.Reader {
				data, _ := json.Marshal(models.RefundRequest{Reason: "customer request"})
				return bytes.NewBuffer(data)
			},
			expectedCode:    http.StatusOK,
			expectedMessage: "{\"success\":true,\"message\":\"payment refunded\"}",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.testName, func(t *testing.T) {
			var body io.Reader

			if tc.body != nil {
				body = tc.body()
			}

			if tc.test != nil {
				tc.test(t)
			}

			res, mes := utils.TestRequest(
				t,
				testServer,
				tc.methodName,
				tc.targetURL,
				tc.headers,
				body,
			)
			res.Body.Close()

			assert.Equal(t, tc.expectedCode, res.StatusCode)
			assert.Equal(t, tc.expectedMessage, mes)
		})
	}
}
