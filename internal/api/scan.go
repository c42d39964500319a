package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	pathScan        = "/api/scan"
	pathScanPhoto   = "/api/scan/photo"
	pathScanLabel   = "/api/scan/label"
	pathScanHistory = "/api/scan/history"
	pathPillScan    = "/api/v1/medications/pills/scan"
	pathPillConfirm = "/api/v1/medications/pills/confirm"
)

type UserContext struct {
	UserID             string `json:"userId"`
	TrackHistory       bool   `json:"trackHistory"`
	IncludeCharts      bool   `json:"include_charts,omitempty"`
	IncludeIngredients bool   `json:"include_ingredients,omitempty"`
}

type BarcodeRequest struct {
	Barcode     string      `json:"barcode"`
	UserContext UserContext `json:"user_context"`
}

// ImageRequest carries a base64 encoded image
type ImageRequest struct {
	Image       string      `json:"image"`
	UserContext UserContext `json:"user_context"`
}

type PillContext struct {
	UserID  string `json:"userId"`
	Imprint string `json:"imprint,omitempty"`
	Color   string `json:"color,omitempty"`
	Shape   string `json:"shape,omitempty"`
}

type PillRequest struct {
	Images  []string    `json:"images"`
	Context PillContext `json:"context"`
}

type PillConfirmRequest struct {
	ScanID        string `json:"scanId"`
	SelectedRxcui string `json:"selectedRxcui"`
	UserID        string `json:"userId"`
}

type PillConfirmResponse struct {
	Success         bool   `json:"success"`
	MedicationAdded bool   `json:"medicationAdded"`
	Error           string `json:"error,omitempty"`
}

// ScanItem is one entry of the scan history
type ScanItem struct {
	ID          int64           `json:"id"`
	ScanType    string          `json:"scan_type"`
	Timestamp   time.Time       `json:"scan_timestamp"`
	HealthScore *float64        `json:"health_score,omitempty"`
	ProductName string          `json:"product_name,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Page   int `json:"page"`
	Pages  int `json:"pages"`
}

type ScanHistoryResponse struct {
	Success    bool        `json:"success"`
	Data       []ScanItem  `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// ScanBarcode returns the backend's analysis as raw JSON
func (c *Client) ScanBarcode(ctx context.Context, req BarcodeRequest) (json.RawMessage, error) {
	return c.postRaw(ctx, pathScan, req)
}

func (c *Client) ScanFoodPhoto(ctx context.Context, req ImageRequest) (json.RawMessage, error) {
	return c.postRaw(ctx, pathScanPhoto, req)
}

func (c *Client) ScanProductLabel(ctx context.Context, req ImageRequest) (json.RawMessage, error) {
	return c.postRaw(ctx, pathScanLabel, req)
}

func (c *Client) ScanPill(ctx context.Context, req PillRequest) (json.RawMessage, error) {
	return c.postRaw(ctx, pathPillScan, req)
}

func (c *Client) ConfirmPill(ctx context.Context, req PillConfirmRequest) (PillConfirmResponse, error) {
	var resp PillConfirmResponse
	err := c.do(ctx, request{method: http.MethodPost, path: pathPillConfirm, body: req}, &resp)
	return resp, err
}

// ScanHistory fetches one page. An empty scanType returns every type.
func (c *Client) ScanHistory(ctx context.Context, userID string, limit int, scanType string) (ScanHistoryResponse, error) {
	q := url.Values{}
	q.Set("userId", userID)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("includeImages", "true")
	if scanType != "" {
		q.Set("scanType", scanType)
	}

	var resp ScanHistoryResponse
	err := c.do(ctx, request{method: http.MethodGet, path: pathScanHistory, query: q}, &resp)
	return resp, err
}

func (c *Client) DeleteScan(ctx context.Context, scanID int64, userID string) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   pathScanHistory + "/" + strconv.FormatInt(scanID, 10),
		body:   map[string]string{"userId": userID},
	}, nil)
}

func (c *Client) postRaw(ctx context.Context, path string, body any) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodPost, path: path, body: body}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
