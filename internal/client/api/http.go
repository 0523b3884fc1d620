package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rlaurindo/presenca-sync/internal/client/models"
	"github.com/rlaurindo/presenca-sync/internal/common"
)

// HTTPClient implements Client against two bases: the primary API and the
// offline bridge. Events are served by the primary API (bridge as
// fallback); the liveness probe, the user-scoped reads and the attendance
// writes live on the bridge.
type HTTPClient struct {
	baseURL        string
	offlineBaseURL string
	hc             *http.Client

	mu    sync.RWMutex
	token string
}

func NewHTTPClient(baseURL, offlineBaseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		offlineBaseURL: strings.TrimRight(offlineBaseURL, "/"),
		hc:             &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *HTTPClient) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Ping issues the liveness probe. Any transport failure or non-2xx status
// means offline. The caller bounds the timeout through ctx.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.offlineBaseURL+"/status", nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %s", common.ErrorUnavailable, resp.Status)
	}
	return nil
}

// ListEvents tries the primary API first and the offline bridge second,
// accepting either a {data:[...]} envelope or a bare array.
func (c *HTTPClient) ListEvents(ctx context.Context) ([]models.Event, error) {
	events, errPrimary := listFrom[models.Event](ctx, c, c.baseURL+"/eventos", false)
	if errPrimary == nil && len(events) > 0 {
		return events, nil
	}

	events, errBridge := listFrom[models.Event](ctx, c, c.offlineBaseURL+"/eventos", false)
	if errBridge == nil {
		return events, nil
	}
	if errPrimary != nil {
		return nil, errPrimary
	}
	return nil, errBridge
}

func (c *HTTPClient) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return listFrom[models.Account](ctx, c, c.offlineBaseURL+"/usuarios", true)
}

func (c *HTTPClient) ListRegistrations(ctx context.Context) ([]models.Registration, error) {
	return listFrom[models.Registration](ctx, c, c.offlineBaseURL+"/inscricoes", true)
}

func (c *HTTPClient) ListAttendance(ctx context.Context) ([]models.AttendanceRecord, error) {
	return listFrom[models.AttendanceRecord](ctx, c, c.offlineBaseURL+"/presencas", true)
}

func listFrom[T any](ctx context.Context, c *HTTPClient, url string, authed bool) ([]T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if authed {
		if tok := c.bearer(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, common.ErrorUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: status %s", common.ErrorUnavailable, resp.Status)
	}

	return decodeList[T](body)
}

// decodeList accepts both response shapes the servers produce: a bare JSON
// array and a {data: [...]} envelope.
func decodeList[T any](body []byte) ([]T, error) {
	var envelope struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data != nil {
		return envelope.Data, nil
	}

	var bare []T
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, fmt.Errorf("decoding list response: %w", err)
	}
	return bare, nil
}

// errorBody is the common error payload shape across both backends.
type errorBody struct {
	Error   string `json:"error"`
	Erro    string `json:"erro"`
	Message string `json:"message"`
}

func (e errorBody) text() string {
	for _, s := range []string{e.Erro, e.Error, e.Message} {
		if s != "" {
			return s
		}
	}
	return ""
}

// isDuplicateMessage recognizes the duplicate-attendance rejection in both
// the Portuguese and English phrasings the backends use.
func isDuplicateMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "já registrada") ||
		strings.Contains(msg, "ja registrada") ||
		strings.Contains(msg, "já existe") ||
		strings.Contains(msg, "already")
}

func (c *HTTPClient) CreateAttendance(ctx context.Context, reqBody CreateAttendanceRequest) (int64, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.offlineBaseURL+"/presencas", bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrorUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		var out struct {
			Data struct {
				ID int64 `json:"id"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return 0, fmt.Errorf("decoding create response: %w", err)
		}
		return out.Data.ID, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return 0, common.ErrorUnauthorized

	case resp.StatusCode >= 400 && resp.StatusCode <= 499:
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		if resp.StatusCode == http.StatusConflict || isDuplicateMessage(eb.text()) {
			return 0, fmt.Errorf("%w: %s", common.ErrorConflict, eb.text())
		}
		return 0, fmt.Errorf("%w: %s", common.ErrorRejected, eb.text())

	default:
		return 0, fmt.Errorf("%w: status %s", common.ErrorUnavailable, resp.Status)
	}
}

func (c *HTTPClient) SyncAttendance(ctx context.Context, items []BulkItem) ([]BulkResult, error) {
	payload, err := json.Marshal(struct {
		Presencas []BulkItem `json:"presencas"`
	}{Presencas: items})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sincronizar-presencas", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnavailable, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, common.ErrorUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %s", common.ErrorUnavailable, resp.Status)
	}

	var out struct {
		Success    bool         `json:"success"`
		Resultados []BulkResult `json:"resultados"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding bulk response: %w", err)
	}
	return out.Resultados, nil
}
