package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"pokerbank/internal/config"
	"pokerbank/internal/money"
)

const (
	SandboxBaseURL    = "https://api-sandbox.dwolla.com"
	ProductionBaseURL = "https://api.dwolla.com"

	halJSON = "application/vnd.dwolla.v1.hal+json"
)

var (
	ErrInvalidTransfer  = errors.New("invalid transfer request")
	ErrTransferRejected = errors.New("transfer rejected by payment rail")
	ErrMissingReference = errors.New("payment rail returned no transfer reference")
	ErrRailDisabled     = errors.New("payment rail is not configured")
)

// Rail moves money between two funding sources and returns the rail's
// reference for the transfer.
type Rail interface {
	CreateTransfer(ctx context.Context, source, destination string, amount money.Amount) (string, error)
}

type ACHClient struct {
	baseURL string
	client  *http.Client
}

// NewRail returns an ACH client for the configured environment, or a rail that
// refuses every transfer when no credentials are set.
func NewRail(cfg config.ACHConfig) Rail {
	if strings.TrimSpace(cfg.Key) == "" {
		return DisabledRail{}
	}
	return NewACHClient(cfg, nil)
}

// NewACHClient authenticates with the client-credentials grant. base is used
// for the token exchange and may be nil.
func NewACHClient(cfg config.ACHConfig, base *http.Client) *ACHClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = SandboxBaseURL
		if cfg.Env == "production" {
			baseURL = ProductionBaseURL
		}
	}
	if base == nil {
		base = &http.Client{Timeout: 15 * time.Second}
	}
	creds := clientcredentials.Config{
		ClientID:     cfg.Key,
		ClientSecret: cfg.Secret,
		TokenURL:     baseURL + "/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := creds.Client(ctx)
	client.Timeout = base.Timeout
	return &ACHClient{baseURL: baseURL, client: client}
}

type link struct {
	Href string `json:"href"`
}

type transferAmount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type transferRequest struct {
	Links struct {
		Source      link `json:"source"`
		Destination link `json:"destination"`
	} `json:"_links"`
	Amount transferAmount `json:"amount"`
}

func (c *ACHClient) CreateTransfer(ctx context.Context, source, destination string, amount money.Amount) (string, error) {
	if source == "" || destination == "" || amount <= 0 {
		return "", ErrInvalidTransfer
	}
	var body transferRequest
	body.Links.Source.Href = source
	body.Links.Destination.Href = destination
	body.Amount = transferAmount{Currency: "USD", Value: amount.String()}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfers", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", halJSON)
	req.Header.Set("Accept", halJSON)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create transfer: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: status %d", ErrTransferRejected, resp.StatusCode)
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", ErrMissingReference
	}
	return location, nil
}

type DisabledRail struct{}

func (DisabledRail) CreateTransfer(context.Context, string, string, money.Amount) (string, error) {
	return "", ErrRailDisabled
}
