// Package shopify предоставляет клиент Admin API магазина и проверку вебхуков Shopify.
package shopify

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

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// DefaultAPIVersion задаёт версию Admin API по умолчанию.
const DefaultAPIVersion = "2024-10"

// ErrNotFound возвращается, если объект в магазине не найден.
var ErrNotFound = errors.New("shopify object not found")

// Config содержит параметры подключения к магазину.
type Config struct {
	ShopDomain  string
	AccessToken string
	APIVersion  string
	MaxRetries  int
	RetryWait   time.Duration
	Logger      *zap.Logger
}

// Client инкапсулирует HTTP-взаимодействие с Admin API Shopify.
type Client struct {
	baseURL     string
	accessToken string
	apiVersion  string
	httpClient  *retryablehttp.Client
}

// NewClient создаёт клиент Admin API. Ответы 429 и 5xx повторяются с учётом Retry-After.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.ShopDomain, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.RetryMax = 3
	if cfg.MaxRetries > 0 {
		rc.RetryMax = cfg.MaxRetries
	}
	if cfg.RetryWait > 0 {
		rc.RetryWaitMin = cfg.RetryWait
		rc.RetryWaitMax = cfg.RetryWait
	}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil
	if cfg.Logger != nil {
		rc.Logger = leveledLogger{cfg.Logger.Sugar()}
	}

	return &Client{
		baseURL:     base,
		accessToken: cfg.AccessToken,
		apiVersion:  apiVersion,
		httpClient:  rc,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	if c == nil || c.baseURL == "" {
		return 0, fmt.Errorf("shopify client not configured")
	}

	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(b)
	}

	url := fmt.Sprintf("%s/admin/api/%s/%s", c.baseURL, c.apiVersion, strings.TrimLeft(path, "/"))

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, ErrNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if out == nil {
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}

	return resp.StatusCode, nil
}

// GraphQLError описывает ошибку уровня GraphQL в ответе с кодом 200.
type GraphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []GraphQLError `json:"errors"`
}

// postGraphQL выполняет запрос к GraphQL Admin API и разбирает data в T.
func postGraphQL[T any](ctx context.Context, c *Client, query string, variables map[string]any) (*T, error) {
	var out graphQLResponse[T]
	body := map[string]any{
		"query":     query,
		"variables": variables,
	}
	if _, err := c.do(ctx, http.MethodPost, "graphql.json", body, &out); err != nil {
		return nil, err
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("graphql: %s", out.Errors[0].Message)
	}
	return &out.Data, nil
}

const collectionStatusQuery = `query CollectionStatus($id: ID!) {
  collection(id: $id) {
    id
    publishedOnCurrentPublication
  }
}`

// CollectionPublished сообщает, опубликована ли коллекция-витрина партнёра.
func (c *Client) CollectionPublished(ctx context.Context, collectionID string) (bool, error) {
	type data struct {
		Collection *struct {
			ID        string `json:"id"`
			Published bool   `json:"publishedOnCurrentPublication"`
		} `json:"collection"`
	}

	res, err := postGraphQL[data](ctx, c, collectionStatusQuery, map[string]any{
		"id": CollectionGID(collectionID),
	})
	if err != nil {
		return false, err
	}
	if res.Collection == nil {
		return false, ErrNotFound
	}
	return res.Collection.Published, nil
}

// CollectionGID приводит числовой ID коллекции к глобальному идентификатору GraphQL.
func CollectionGID(id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return "gid://shopify/Collection/" + id
}

// Customer описывает покупателя магазина.
type Customer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// FullName возвращает имя и фамилию покупателя.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// GetCustomer запрашивает покупателя по ID через REST Admin API.
func (c *Client) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	var out struct {
		Customer Customer `json:"customer"`
	}
	if _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("customers/%d.json", id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Customer, nil
}

type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}
