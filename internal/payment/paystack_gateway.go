package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wristwatch-be/internal/apperror"
	"wristwatch-be/internal/logger"

	"go.uber.org/zap"
)

const (
	DefaultPaystackBaseURL  = "https://api.paystack.co"
	PaystackSignatureHeader = "x-paystack-signature"
	paystackSuccess         = "success"
)

type paystackGateway struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// ----------------- Constructor -----------------

func NewPaystackGateway(secretKey, baseURL string) Gateway {
	if secretKey == "" {
		logger.L().Warn("Paystack secret key is empty")
	}
	if baseURL == "" {
		baseURL = DefaultPaystackBaseURL
	}

	return &paystackGateway{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// paystackEnvelope is the shape of every Paystack API response.
type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackVerifyData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Channel   string `json:"channel"`
}

// ----------------- Initialize -----------------

func (p *paystackGateway) Initialize(ctx context.Context, in InitializeRequest) (*InitializeResponse, error) {
	const op = "paystack.initialize"

	log := logger.FromCtx(ctx).With(
		zap.String("reference", in.Reference),
		zap.Int64("amount", in.Amount),
		zap.String("currency", in.Currency),
	)

	body := map[string]interface{}{
		"email":        in.Email,
		"amount":       in.Amount,
		"currency":     in.Currency,
		"reference":    in.Reference,
		"callback_url": in.CallbackURL,
		"metadata":     in.Metadata,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		log.Error("Failed to marshal payment request", zap.Error(err))
		return nil, apperror.Payment(op, "payment initialization failed", err)
	}

	log.Info("Sending initialize request to Paystack")

	env, _, err := p.do(ctx, http.MethodPost, "/transaction/initialize", jsonBody)
	if err != nil {
		log.Error("Paystack initialize failed", zap.Error(err))
		return nil, apperror.Payment(op, "payment initialization failed", err)
	}

	var data paystackInitData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		log.Error("Failed decoding Paystack response", zap.Error(err))
		return nil, apperror.Payment(op, "payment initialization failed", err)
	}
	if data.AuthorizationURL == "" {
		return nil, apperror.Payment(op, "payment initialization failed", ErrProviderRejected)
	}
	if data.Reference == "" {
		data.Reference = in.Reference
	}

	log.Info("Paystack transaction initialized", zap.String("access_code", data.AccessCode))

	return &InitializeResponse{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

// ----------------- Verify -----------------

func (p *paystackGateway) Verify(ctx context.Context, reference string) (*Verification, error) {
	const op = "paystack.verify"

	log := logger.FromCtx(ctx).With(zap.String("reference", reference))

	env, raw, err := p.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		log.Error("Paystack verify failed", zap.Error(err))
		return nil, apperror.Payment(op, "payment verification failed", err)
	}

	var data paystackVerifyData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		log.Error("Failed decoding Paystack response", zap.Error(err))
		return nil, apperror.Payment(op, "payment verification failed", err)
	}

	v := &Verification{
		Success:   data.Status == paystackSuccess,
		Status:    data.Status,
		Reference: data.Reference,
		Amount:    data.Amount,
		Channel:   data.Channel,
		Raw:       raw,
	}
	log.Info("Paystack transaction verified", zap.String("status", v.Status))
	return v, nil
}

// ----------------- Webhook signature -----------------

// VerifySignature checks the HMAC-SHA512 of the raw body against the signature header.
func (p *paystackGateway) VerifySignature(payload []byte, signature string) error {
	if p.secretKey == "" || signature == "" {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha512.New, []byte(p.secretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return ErrInvalidSignature
	}
	return nil
}

func (p *paystackGateway) do(ctx context.Context, method, path string, body []byte) (*paystackEnvelope, json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read paystack response: %w", ErrProviderUnavailable, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var env paystackEnvelope
	if err := json.Unmarshal(bodyBytes, &env); err != nil {
		return nil, nil, fmt.Errorf("failed to decode paystack response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Status {
		return nil, nil, fmt.Errorf("%w: status %d: %s", ErrProviderRejected, resp.StatusCode, env.Message)
	}
	return &env, json.RawMessage(bodyBytes), nil
}
