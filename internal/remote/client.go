package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/domain"
	"github.com/spec-kit/helpdesk-core/pkg/util"
)

// Client talks to the system-of-record REST service. It owns no state; every
// successful mutation is followed by cache invalidation in the coordinator.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewClient builds a client for the configured remote endpoint.
func NewClient(cfg config.RemoteConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		baseURL:    cfg.BaseURL,
		logger:     logger.With(zap.String("component", "remote_client")),
	}
}

// Ping verifies the remote endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/health/live", nil, http.StatusOK, nil)
}

// Categories

func (c *Client) ListCategories(ctx context.Context, page, limit int, search string) ([]domain.Category, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	if search != "" {
		query.Set("search", search)
	}
	var out []domain.Category
	if err := c.doJSON(ctx, http.MethodGet, "/categories?"+query.Encode(), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListCategoriesByQueue(ctx context.Context, queueID string) ([]domain.Category, error) {
	var out []domain.Category
	if err := c.doJSON(ctx, http.MethodGet, "/categories/queue/"+url.PathEscape(queueID), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	var out domain.Category
	if err := c.doJSON(ctx, http.MethodGet, "/categories/"+url.PathEscape(id), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	var out domain.Category
	if err := c.doJSON(ctx, http.MethodPost, "/categories", category, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CategoryPatch carries partial category updates.
type CategoryPatch struct {
	Name *string `json:"name,omitempty"`
}

func (c *Client) UpdateCategory(ctx context.Context, id string, patch CategoryPatch) (*domain.Category, error) {
	var out domain.Category
	if err := c.doJSON(ctx, http.MethodPatch, "/categories/"+url.PathEscape(id), patch, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/categories/"+url.PathEscape(id), nil, http.StatusNoContent, nil)
}

// Queues

func (c *Client) ListQueues(ctx context.Context, page, limit int, search string) ([]domain.Queue, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	if search != "" {
		query.Set("search", search)
	}
	var out []domain.Queue
	if err := c.doJSON(ctx, http.MethodGet, "/queues?"+query.Encode(), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetQueue(ctx context.Context, id string) (*domain.Queue, error) {
	var out domain.Queue
	if err := c.doJSON(ctx, http.MethodGet, "/queues/"+url.PathEscape(id), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateQueue(ctx context.Context, queue domain.Queue) (*domain.Queue, error) {
	var out domain.Queue
	if err := c.doJSON(ctx, http.MethodPost, "/queues", queue, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueuePatch carries partial queue updates.
type QueuePatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (c *Client) UpdateQueue(ctx context.Context, id string, patch QueuePatch) (*domain.Queue, error) {
	var out domain.Queue
	if err := c.doJSON(ctx, http.MethodPatch, "/queues/"+url.PathEscape(id), patch, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteQueue(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/queues/"+url.PathEscape(id), nil, http.StatusNoContent, nil)
}

func (c *Client) AddQueueUser(ctx context.Context, queueID, userID string) (*domain.Queue, error) {
	body := map[string]string{"user_id": userID}
	var out domain.Queue
	if err := c.doJSON(ctx, http.MethodPost, "/queues/"+url.PathEscape(queueID)+"/users", body, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveQueueUser(ctx context.Context, queueID, userID string) error {
	path := "/queues/" + url.PathEscape(queueID) + "/users/" + url.PathEscape(userID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, http.StatusNoContent, nil)
}

// History items

func (c *Client) ListHistoryByTicket(ctx context.Context, ticketID string) ([]domain.HistoryItem, error) {
	var out []domain.HistoryItem
	if err := c.doJSON(ctx, http.MethodGet, "/history-items/ticket/"+url.PathEscape(ticketID), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateHistoryItem(ctx context.Context, item domain.HistoryItem) (*domain.HistoryItem, error) {
	var out domain.HistoryItem
	if err := c.doJSON(ctx, http.MethodPost, "/history-items", item, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddComment(ctx context.Context, ticketID, userID, text string) (*domain.HistoryItem, error) {
	body := map[string]string{"user_id": userID, "text": text}
	path := "/history-items/ticket/" + url.PathEscape(ticketID) + "/comment"
	var out domain.HistoryItem
	if err := c.doJSON(ctx, http.MethodPost, path, body, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tickets

func (c *Client) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	var out domain.Ticket
	if err := c.doJSON(ctx, http.MethodGet, "/tickets/"+url.PathEscape(id), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTicket(ctx context.Context, ticket domain.Ticket) (*domain.Ticket, error) {
	var out domain.Ticket
	if err := c.doJSON(ctx, http.MethodPost, "/tickets", ticket, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TicketPatch carries partial ticket updates. QueueID and CategoryID travel
// together in a single write so no intermediate mismatched pair can be
// observed.
type TicketPatch struct {
	Status           *domain.TicketStatus   `json:"status,omitempty"`
	Priority         *domain.TicketPriority `json:"priority,omitempty"`
	AssigneeID       *string                `json:"assignee_id,omitempty"`
	QueueID          *string                `json:"queue_id,omitempty"`
	CategoryID       *string                `json:"category_id,omitempty"`
	AddDocumentID    *string                `json:"add_document_id,omitempty"`
	RemoveDocumentID *string                `json:"remove_document_id,omitempty"`
}

func (c *Client) PatchTicket(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	var out domain.Ticket
	if err := c.doJSON(ctx, http.MethodPatch, "/tickets/"+url.PathEscape(id), patch, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// doJSON issues a request and decodes the response when the status matches
// the expected success code. Any other outcome is a RemoteFailure.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return util.NewRemoteFailure(fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return util.NewRemoteFailure(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("remote request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return util.NewRemoteFailure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("remote returned unexpected status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return util.NewRemoteFailure(fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return util.NewRemoteFailure(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
