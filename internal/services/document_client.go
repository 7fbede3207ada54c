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

// DocumentClient renders contract documents through the document store
// service and returns the stored document URL.
type DocumentClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewDocumentClient(baseURL string, log *zap.Logger) *DocumentClient {
	return &DocumentClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		log: log,
	}
}

type RenderContractRequest struct {
	ContractID string         `json:"contract_id"`
	Template   string         `json:"template"`
	Fields     map[string]any `json:"fields"`
}

type RenderContractResult struct {
	DocumentURL string `json:"document_url"`
}

func (c *DocumentClient) RenderContract(ctx context.Context, req RenderContractRequest) (*RenderContractResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/documents/render", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("document store unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("document store returned %d: %s", resp.StatusCode, string(b))
	}

	var result RenderContractResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}
