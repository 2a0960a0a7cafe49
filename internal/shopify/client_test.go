package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return NewClient(Config{
		ShopDomain:  url,
		AccessToken: "shpat_test",
		MaxRetries:  2,
		RetryWait:   10 * time.Millisecond,
	})
}

func TestCollectionPublished_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/admin/api/"+DefaultAPIVersion+"/graphql.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Shopify-Access-Token"); got != "shpat_test" {
			t.Errorf("access token = %q", got)
		}

		var body struct {
			Variables map[string]string `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Variables["id"] != "gid://shopify/Collection/123" {
			t.Errorf("id variable = %q", body.Variables["id"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"collection":{"id":"gid://shopify/Collection/123","publishedOnCurrentPublication":true}}}`))
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	published, err := client.CollectionPublished(ctx, "123")
	if err != nil {
		t.Fatalf("CollectionPublished error: %v", err)
	}
	if !published {
		t.Fatalf("published = false, want true")
	}
}

func TestCollectionPublished_Missing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"collection":null}}`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).CollectionPublished(context.Background(), "999")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCollectionPublished_GraphQLError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"Throttled"}]}`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).CollectionPublished(context.Background(), "1")
	if err == nil {
		t.Fatalf("expected graphql error")
	}
}

func TestGetCustomer_RetriesTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if r.URL.Path != "/admin/api/"+DefaultAPIVersion+"/customers/55.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"customer":{"id":55,"email":"ana@example.com","first_name":"Ana","last_name":"López"}}`))
	}))
	defer ts.Close()

	c, err := newTestClient(ts.URL).GetCustomer(context.Background(), 55)
	if err != nil {
		t.Fatalf("GetCustomer error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
	if c.Email != "ana@example.com" || c.FullName() != "Ana López" {
		t.Fatalf("unexpected customer: %+v", c)
	}
}

func TestGetCustomer_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).GetCustomer(context.Background(), 1)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
