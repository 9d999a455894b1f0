package bookapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/bookcat/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 2
	baseRetryDelay    = 500 * time.Millisecond
)

// Client implements domain.CatalogClient against the book catalog REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithMaxRetries sets how often idempotent requests are retried
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryDelay sets the base delay of the exponential backoff
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithRateLimit throttles outgoing requests; rps <= 0 disables throttling
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithTracerProvider overrides the global tracer provider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer("bookcat/bookapi") }
}

// NewClient creates a new catalog API client
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		maxRetries: defaultMaxRetries,
		retryDelay: baseRetryDelay,
		logger:     logger,
		tracer:     otel.Tracer("bookcat/bookapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// idempotent reports whether a failed request may safely be repeated
func idempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodDelete
}

// doRequest performs a JSON request against the catalog API.
// Idempotent requests are retried with exponential backoff on transport
// errors and 5xx responses.
func (c *Client) doRequest(ctx context.Context, op, method, path string, query url.Values, payload any) (body []byte, err error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody []byte
	if payload != nil {
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", op, err)
		}
	}

	ctx, span := c.tracer.Start(ctx, "bookapi."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	retries := 0
	if idempotent(method) {
		retries = c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1))
			c.logger.Debug("retrying request", "op", op, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		var bodyReader io.Reader
		if reqBody != nil {
			bodyReader = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		requestID := uuid.NewString()
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		c.logger.Debug("catalog request", "op", op, "method", method, "url", reqURL, "request_id", requestID, "attempt", attempt)
		span.SetAttributes(attribute.Int("http.request.resend_count", attempt))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("catalog request failed", "op", op, "error", err, "request_id", requestID)
			lastErr = &domain.RemoteError{Op: op, Err: fmt.Errorf("%w: %v", domain.ErrServerOffline, err)}
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s response: %w", op, err)
		}

		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}

		remoteErr := &domain.RemoteError{
			Op:      op,
			Status:  resp.StatusCode,
			Message: parseErrorMessage(data),
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			remoteErr.Err = domain.ErrUnauthorized
			return nil, remoteErr
		case resp.StatusCode == http.StatusNotFound:
			remoteErr.Err = domain.ErrNotFound
			return nil, remoteErr
		case resp.StatusCode >= 500:
			c.logger.Warn("catalog server error",
				"op", op,
				"status", resp.StatusCode,
				"body", string(data),
				"attempt", attempt,
				"request_id", requestID,
			)
			lastErr = remoteErr
			continue
		default:
			c.logger.Error("catalog request rejected", "op", op, "status", resp.StatusCode, "body", string(data))
			return nil, remoteErr
		}
	}

	c.logger.Error("catalog request failed after retries", "op", op, "url", reqURL, "error", lastErr)
	return nil, lastErr
}

func decode[T any](op string, body []byte, dest *T) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", op, err)
	}
	return nil
}

// ListBooks returns all books, or those of one category when categoryID != 0
func (c *Client) ListBooks(ctx context.Context, categoryID int64) ([]domain.Book, error) {
	var query url.Values
	if categoryID != 0 {
		query = url.Values{}
		query.Set("categoryId", strconv.FormatInt(categoryID, 10))
	}

	body, err := c.doRequest(ctx, "list books", http.MethodGet, "/books", query, nil)
	if err != nil {
		return nil, err
	}

	var dtos []BookDTO
	if err := decode("list books", body, &dtos); err != nil {
		return nil, err
	}
	return MapBooks(dtos), nil
}

// GetBook returns a single book
func (c *Client) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	body, err := c.doRequest(ctx, "get book", http.MethodGet, bookPath(id), nil, nil)
	if err != nil {
		return nil, err
	}

	var dto BookDTO
	if err := decode("get book", body, &dto); err != nil {
		return nil, err
	}
	book := MapBook(dto)
	return &book, nil
}

// CreateBook creates a book and returns the stored record
func (c *Client) CreateBook(ctx context.Context, in domain.BookInput) (*domain.Book, error) {
	body, err := c.doRequest(ctx, "create book", http.MethodPost, "/books", nil, newBookPayload(in))
	if err != nil {
		return nil, err
	}

	var dto BookDTO
	if err := decode("create book", body, &dto); err != nil {
		return nil, err
	}
	book := MapBook(dto)
	return &book, nil
}

// UpdateBook patches a book and returns the stored record
func (c *Client) UpdateBook(ctx context.Context, id int64, in domain.BookInput) (*domain.Book, error) {
	body, err := c.doRequest(ctx, "update book", http.MethodPatch, bookPath(id), nil, newBookPayload(in))
	if err != nil {
		return nil, err
	}

	var dto BookDTO
	if err := decode("update book", body, &dto); err != nil {
		return nil, err
	}
	if dto.ID == 0 {
		dto.ID = id
	}
	book := MapBook(dto)
	return &book, nil
}

// DeleteBook removes a book
func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	_, err := c.doRequest(ctx, "delete book", http.MethodDelete, bookPath(id), nil, nil)
	return err
}

// ListCategories returns all categories
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	body, err := c.doRequest(ctx, "list categories", http.MethodGet, "/book-categories", nil, nil)
	if err != nil {
		return nil, err
	}

	var dtos []CategoryDTO
	if err := decode("list categories", body, &dtos); err != nil {
		return nil, err
	}
	return MapCategories(dtos), nil
}

// SeedCategories asks the service to insert its default categories
func (c *Client) SeedCategories(ctx context.Context) error {
	_, err := c.doRequest(ctx, "seed categories", http.MethodPost, "/book-categories/seed", nil, nil)
	return err
}

func bookPath(id int64) string {
	return "/books/" + strconv.FormatInt(id, 10)
}

// IsOffline reports whether err means the service could not be reached
func IsOffline(err error) bool {
	return errors.Is(err, domain.ErrServerOffline)
}

var _ domain.CatalogClient = (*Client)(nil)
