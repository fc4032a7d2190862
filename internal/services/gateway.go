package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/models"
)

var (
	// ErrGatewayUnavailable covers network failures and non-2xx answers
	// during initiation; the order is left pending and the caller may retry
	// with a fresh transaction id.
	ErrGatewayUnavailable = errors.New("payment gateway is unavailable")
)

// TooManyRequestsError is returned when the gateway throttles us; RetryAfter
// carries the delay from the Retry-After header.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e *TooManyRequestsError) Error() string {
	return fmt.Sprintf("payment gateway throttled the request, retry after %s", e.RetryAfter)
}

// gatewayRequestTimeout bounds every outbound gateway call.
const gatewayRequestTimeout = 30 * time.Second

// defaultRetryAfter is used when a throttled answer has no usable
// Retry-After header.
const defaultRetryAfter = 60 * time.Second

type GatewayConfig struct {
	Endpoint      string
	Username      string
	AccountNumber string
	Secret        string
	CallbackURL   string
}

// GatewayClient signs and sends payment requests to the mobile-money
// gateway and parses its synchronous acknowledgements.
type GatewayClient struct {
	config GatewayConfig
	client *http.Client
}

func NewGatewayClient(config GatewayConfig) *GatewayClient {
	return &GatewayClient{
		config: config,
		client: &http.Client{Timeout: gatewayRequestTimeout},
	}
}

// paymentRequestEnvelope uses the gateway's field names verbatim; password
// carries the credential signature.
type paymentRequestEnvelope struct {
	Username             string  `json:"username"`
	Timestamp            string  `json:"timestamp"`
	Amount               float64 `json:"amount"`
	Password             string  `json:"password"`
	MobilePhoneNo        string  `json:"mobilephoneno"`
	RequestTransactionID string  `json:"requesttransactionid"`
	AccountNo            string  `json:"accountno"`
	CallbackURL          string  `json:"callbackurl"`
}

type statusRequestEnvelope struct {
	Username             string `json:"username"`
	Timestamp            string `json:"timestamp"`
	Password             string `json:"password"`
	RequestTransactionID string `json:"requesttransactionid"`
}

type gatewayResponseBody struct {
	Success       bool   `json:"success"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	ResponseCode  string `json:"responsecode"`
	StatusDesc    string `json:"statusdesc"`
	TransactionID string `json:"transactionid"`
	ReferenceNo   string `json:"referenceno"`
}

// GatewayResult is the parsed synchronous answer to a payment initiation.
// Parsing happens once, here at the client boundary; callers switch on the
// variant instead of probing raw fields.
type GatewayResult interface {
	gatewayResult()
}

// GatewayAccepted means the gateway queued the request and the customer has
// to approve it on their phone.
type GatewayAccepted struct {
	TransactionID string
	Message       string
}

// GatewayRejected means the gateway answered 200 but refused the request.
type GatewayRejected struct {
	Reason string
}

// GatewayMalformed means the gateway answered 200 with a body that doesn't
// match the documented shape; Raw is kept for diagnosis.
type GatewayMalformed struct {
	Raw string
}

func (GatewayAccepted) gatewayResult()  {}
func (GatewayRejected) gatewayResult()  {}
func (GatewayMalformed) gatewayResult() {}

func (g *GatewayClient) post(ctx context.Context, path string, envelope interface{}) ([]byte, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.Endpoint+path, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrGatewayUnavailable, err.Error())
	}
	defer res.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(res.Body); err != nil {
		return nil, fmt.Errorf("failed to read gateway response body: %w", err)
	}

	if res.StatusCode == http.StatusTooManyRequests {
		retryAfter := defaultRetryAfter
		if seconds, err := strconv.Atoi(res.Header.Get("Retry-After")); err == nil {
			retryAfter = time.Duration(seconds) * time.Second
		}
		return nil, &TooManyRequestsError{RetryAfter: retryAfter}
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrGatewayUnavailable, res.StatusCode)
	}

	return buf.Bytes(), nil
}

// RequestPayment sends the signed initiation request for an already
// persisted payment attempt. The error return is reserved for transport
// failures; a 200 answer always comes back as a GatewayResult variant.
func (g *GatewayClient) RequestPayment(ctx context.Context, amount float64, phoneNumber, transactionID string) (GatewayResult, error) {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	envelope := paymentRequestEnvelope{
		Username:             g.config.Username,
		Timestamp:            timestamp,
		Amount:               amount,
		Password:             SignGatewayCredentials(g.config.Username, g.config.AccountNumber, g.config.Secret, timestamp),
		MobilePhoneNo:        phoneNumber,
		RequestTransactionID: transactionID,
		AccountNo:            g.config.AccountNumber,
		CallbackURL:          g.config.CallbackURL,
	}

	raw, err := g.post(ctx, "/requesttopay", envelope)
	if err != nil {
		return nil, err
	}

	var body gatewayResponseBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return GatewayMalformed{Raw: string(raw)}, nil
	}

	if body.Success && body.Status == "Pending" {
		return GatewayAccepted{TransactionID: transactionID, Message: body.Message}, nil
	}

	reason := body.Message
	if reason == "" {
		reason = body.StatusDesc
	}
	if reason == "" {
		return GatewayMalformed{Raw: string(raw)}, nil
	}

	return GatewayRejected{Reason: reason}, nil
}

// QueryStatus polls the gateway for the outcome of a payment attempt and
// normalizes the answer into the callback shape, so the manual verification
// path drives the exact same transition logic as a pushed callback.
func (g *GatewayClient) QueryStatus(ctx context.Context, transactionID string) (*models.PaymentCallback, error) {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	envelope := statusRequestEnvelope{
		Username:             g.config.Username,
		Timestamp:            timestamp,
		Password:             SignGatewayCredentials(g.config.Username, g.config.AccountNumber, g.config.Secret, timestamp),
		RequestTransactionID: transactionID,
	}

	raw, err := g.post(ctx, "/gettransactionstatus", envelope)
	if err != nil {
		return nil, err
	}

	var body gatewayResponseBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gateway status response: %w", err)
	}

	callback := &models.PaymentCallback{
		RequestTransactionID: transactionID,
		TransactionID:        body.TransactionID,
		ResponseCode:         body.ResponseCode,
		Status:               body.Status,
		StatusDesc:           body.StatusDesc,
		ReferenceNo:          body.ReferenceNo,
	}

	return callback, nil
}
