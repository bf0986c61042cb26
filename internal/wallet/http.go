package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/google/logger"
)

type payoutRequest struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Reference string `json:"reference"`
}

type payoutResponse struct {
	Status string `json:"status"`
	Resp   string `json:"resp"`
	TxID   string `json:"txId"`
}

// HTTPWallet pays winners through an operator wallet service. The service is
// expected to pay each reference at most once.
type HTTPWallet struct {
	baseURL *url.URL
	token   string
	client  *http.Client
}

// NewHTTPWallet returns a wallet client for the service at baseURL.
func NewHTTPWallet(baseURL, token string) (*HTTPWallet, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse wallet URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid wallet URL %q", baseURL)
	}
	return &HTTPWallet{
		baseURL: u,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Transfer asks the wallet service to pay amount to to under reference.
func (w *HTTPWallet) Transfer(ctx context.Context, to string, amount uint64, reference string) error {
	if to == "" {
		return ErrInvalidRecipient
	}
	if reference == "" {
		return ErrMissingReference
	}

	endpoint := *w.baseURL
	endpoint.Path = path.Join(endpoint.Path, "payouts")

	body, err := json.Marshal(payoutRequest{
		Recipient: to,
		Amount:    amount,
		Reference: reference,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize payout: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create payout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("x-access-token", w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send payout request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read payout response: %w", err)
	}

	var out payoutResponse
	if err := json.Unmarshal(raw, &out); err == nil && out.Status == "error" {
		return fmt.Errorf("%w: %s", ErrTransferRejected, out.Resp)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("wallet returned %s", resp.Status)
	}

	logger.Infof("wallet paid %d to %s (reference %s, tx %s)", amount, to, reference, out.TxID)
	return nil
}
