package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// IdentityClient checks verification status with the external identity
// provider.
type IdentityClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewIdentityClient(baseURL string, log *zap.Logger) *IdentityClient {
	return &IdentityClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

type VerificationStatus struct {
	UserID   string `json:"user_id"`
	Verified bool   `json:"verified"`
	Level    string `json:"level"`
}

func (c *IdentityClient) CheckVerification(ctx context.Context, userID string) (*VerificationStatus, error) {
	url := fmt.Sprintf("%s/v1/verifications/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &VerificationStatus{UserID: userID, Verified: false}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("identity service returned %d: %s", resp.StatusCode, string(body))
	}

	var status VerificationStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}
