package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/perkstack/rewards-backend/pkg/config"
	pkgerrors "github.com/perkstack/rewards-backend/pkg/errors"
	"github.com/perkstack/rewards-backend/pkg/logger"
)

const (
	payEndpoint    = "/pg/v1/pay"
	statusEndpoint = "/pg/v1/status"

	// CodeSuccess is the gateway's terminal success code. Anything else,
	// including pending states, is treated as not paid.
	CodeSuccess = "PAYMENT_SUCCESS"
)

var (
	errMerchantIDRequired = errors.New("gateway merchant id is required")
	errSaltKeyRequired    = errors.New("gateway salt key is required")
	errBaseURLRequired    = errors.New("gateway base url is required")
	errLoggerRequired     = errors.New("gateway logger is required")
)

// Client talks to the co-pay gateway over its checksum-signed JSON API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	merchantID string
	saltKey    string
	saltIndex  string
	redirect   string
	callback   string
	logger     *logger.Logger
}

// NewClient validates credentials and builds the gateway wrapper.
func NewClient(cfg config.GatewayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	merchantID := strings.TrimSpace(cfg.MerchantID)
	if merchantID == "" {
		return nil, errMerchantIDRequired
	}
	saltKey := strings.TrimSpace(cfg.SaltKey)
	if saltKey == "" {
		return nil, errSaltKeyRequired
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
		merchantID: merchantID,
		saltKey:    saltKey,
		saltIndex:  cfg.SaltIndex,
		redirect:   cfg.RedirectURL,
		callback:   cfg.CallbackURL,
		logger:     logg,
	}, nil
}

// PaymentRequest initiates a co-pay collection.
type PaymentRequest struct {
	MerchantTransactionID string
	EmployeeRef           string
	Amount                decimal.Decimal
}

// PaymentSession is the gateway's handle for a started payment.
type PaymentSession struct {
	TransactionID string `json:"transactionId"`
	RedirectURL   string `json:"redirectUrl"`
}

// PaymentStatus is the decoded verification result.
type PaymentStatus struct {
	Code          string
	TransactionID string
	Amount        decimal.Decimal
}

// Paid reports whether the gateway settled the payment.
func (s PaymentStatus) Paid() bool {
	return s.Code == CodeSuccess
}

type payPayload struct {
	MerchantID            string `json:"merchantId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	MerchantUserID        string `json:"merchantUserId"`
	Amount                int64  `json:"amount"`
	RedirectURL           string `json:"redirectUrl"`
	CallbackURL           string `json:"callbackUrl"`
}

type payResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		InstrumentResponse    struct {
			RedirectInfo struct {
				URL string `json:"url"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		Amount                int64  `json:"amount"`
		State                 string `json:"state"`
	} `json:"data"`
}

// StartPayment opens a payment session for the given rupee amount. The
// gateway wire format carries paise, so the amount is converted to minor
// units and must be an exact paise value.
func (c *Client) StartPayment(ctx context.Context, req PaymentRequest) (*PaymentSession, error) {
	if req.MerchantTransactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant transaction id is required")
	}
	minor, err := toMinorUnits(req.Amount)
	if err != nil {
		return nil, err
	}

	payload := payPayload{
		MerchantID:            c.merchantID,
		MerchantTransactionID: req.MerchantTransactionID,
		MerchantUserID:        req.EmployeeRef,
		Amount:                minor,
		RedirectURL:           c.redirect,
		CallbackURL:           c.callback,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to encode payment payload")
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	body, err := json.Marshal(map[string]string{"request": encoded})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to encode request body")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+payEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to build payment request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", c.checksum(encoded, payEndpoint))

	var decoded payResponse
	if err := c.do(ctx, httpReq, &decoded); err != nil {
		return nil, err
	}
	if !decoded.Success {
		return nil, pkgerrors.Newf(pkgerrors.CodePayment, "gateway rejected payment: %s", decoded.Message).
			WithDetails(map[string]any{"code": decoded.Code})
	}
	return &PaymentSession{
		TransactionID: decoded.Data.MerchantTransactionID,
		RedirectURL:   decoded.Data.InstrumentResponse.RedirectInfo.URL,
	}, nil
}

// VerifyPayment fetches the authoritative status for a transaction. Callers
// must compare the returned amount against their own expected amount.
func (c *Client) VerifyPayment(ctx context.Context, transactionID string) (*PaymentStatus, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	endpoint := fmt.Sprintf("%s/%s/%s", statusEndpoint, c.merchantID, transactionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to build status request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-MERCHANT-ID", c.merchantID)
	httpReq.Header.Set("X-VERIFY", c.checksum("", endpoint))

	var decoded statusResponse
	if err := c.do(ctx, httpReq, &decoded); err != nil {
		return nil, err
	}
	return &PaymentStatus{
		Code:          decoded.Code,
		TransactionID: decoded.Data.MerchantTransactionID,
		Amount:        fromMinorUnits(decoded.Data.Amount),
	}, nil
}

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to read gateway response")
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		c.logger.Error(ctx, "gateway unavailable", fmt.Errorf("gateway returned %d", resp.StatusCode))
		return pkgerrors.Newf(pkgerrors.CodeDependency, "gateway returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to decode gateway response")
	}
	return nil
}

// checksum implements the gateway's X-VERIFY scheme:
// sha256(base64Payload + endpoint + saltKey) in hex, suffixed with the salt
// key index.
func (c *Client) checksum(encodedPayload, endpoint string) string {
	sum := sha256.Sum256([]byte(encodedPayload + endpoint + c.saltKey))
	return hex.EncodeToString(sum[:]) + "###" + c.saltIndex
}

func toMinorUnits(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	minor := amount.Mul(decimal.NewFromInt(100))
	if !minor.Equal(minor.Truncate(0)) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be finer than paise")
	}
	return minor.IntPart(), nil
}

func fromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))
}
