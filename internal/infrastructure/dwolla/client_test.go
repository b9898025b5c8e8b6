package dwolla

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"horizon/internal/domain/payments"
)

type fakeDwolla struct {
	t          *testing.T
	srv        *httptest.Server
	tokenCalls atomic.Int32

	mu     sync.Mutex
	bodies map[string]map[string]any
}

func (f *fakeDwolla) body(path string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[path]
}

func newFakeDwolla(t *testing.T, routes map[string]http.HandlerFunc) *fakeDwolla {
	t.Helper()
	f := &fakeDwolla{t: t, bodies: map[string]map[string]any{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		if user, pass, ok := r.BasicAuth(); ok {
			if user != "key" || pass != "secret" {
				t.Errorf("basic auth = %q/%q", user, pass)
			}
		} else if err := r.ParseForm(); err != nil || r.PostForm.Get("client_id") != "key" {
			t.Errorf("token request missing credentials")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"dwolla-token","token_type":"bearer","expires_in":3600}`))
	})
	for path, h := range routes {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer dwolla-token" {
				t.Errorf("%s Authorization = %q", r.URL.Path, got)
			}
			if got := r.Header.Get("Accept"); got != halJSON {
				t.Errorf("%s Accept = %q", r.URL.Path, got)
			}
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.mu.Lock()
			f.bodies[r.URL.Path] = body
			f.mu.Unlock()
			h(w, r)
		})
	}

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeDwolla) client() *Client {
	return NewClientWithBaseURL("key", "secret", f.srv.URL, f.srv.Client())
}

func TestBaseURL(t *testing.T) {
	if BaseURL("sandbox") != "https://api-sandbox.dwolla.com" {
		t.Error("sandbox base url")
	}
	if BaseURL("production") != "https://api.dwolla.com" {
		t.Error("production base url")
	}
}

func TestCreateCustomer(t *testing.T) {
	var f *fakeDwolla
	f = newFakeDwolla(t, map[string]http.HandlerFunc{
		"/customers": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Location", f.srv.URL+"/customers/cust-123")
			w.WriteHeader(http.StatusCreated)
		},
	})

	url, err := f.client().CreateCustomer(context.Background(), payments.CustomerParams{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Type: "personal",
		Address1: "1 Main St", City: "Springfield", State: "NY", PostalCode: "11101",
		DateOfBirth: "1990-01-01", SSN: "1234",
	})
	if err != nil {
		t.Fatalf("CreateCustomer() error = %v", err)
	}
	if url != f.srv.URL+"/customers/cust-123" {
		t.Errorf("url = %q", url)
	}
	if payments.ExtractCustomerID(url) != "cust-123" {
		t.Errorf("customer id = %q", payments.ExtractCustomerID(url))
	}

	body := f.body("/customers")
	if body["type"] != "personal" || body["ssn"] != "1234" || body["postalCode"] != "11101" {
		t.Errorf("customer body = %v", body)
	}
}

func TestAddFundingSource(t *testing.T) {
	var f *fakeDwolla
	f = newFakeDwolla(t, map[string]http.HandlerFunc{
		"/on-demand-authorizations": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"_links":{"self":{"href":"https://api-sandbox.dwolla.com/on-demand-authorizations/oda-1"}},"bodyText":"I agree"}`))
		},
		"/customers/cust-1/funding-sources": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Location", f.srv.URL+"/funding-sources/fs-1")
			w.WriteHeader(http.StatusCreated)
		},
	})

	url, err := f.client().AddFundingSource(context.Background(), payments.FundingSourceParams{
		CustomerID:     "cust-1",
		ProcessorToken: "processor-sandbox-1",
		BankName:       "Plaid Checking",
	})
	if err != nil {
		t.Fatalf("AddFundingSource() error = %v", err)
	}
	if url != f.srv.URL+"/funding-sources/fs-1" {
		t.Errorf("url = %q", url)
	}

	body := f.body("/customers/cust-1/funding-sources")
	if body["plaidToken"] != "processor-sandbox-1" || body["name"] != "Plaid Checking" {
		t.Errorf("funding source body = %v", body)
	}
	links, _ := body["_links"].(map[string]any)
	if _, ok := links["self"]; !ok {
		t.Errorf("on-demand authorization links not forwarded: %v", body["_links"])
	}
	if f.tokenCalls.Load() != 1 {
		t.Errorf("token calls = %d, want 1 (token reused)", f.tokenCalls.Load())
	}
}

func TestAddFundingSource_NoLocation(t *testing.T) {
	f := newFakeDwolla(t, map[string]http.HandlerFunc{
		"/on-demand-authorizations": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"_links":{}}`))
		},
		"/customers/cust-1/funding-sources": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		},
	})

	url, err := f.client().AddFundingSource(context.Background(), payments.FundingSourceParams{CustomerID: "cust-1"})
	if err != nil || url != "" {
		t.Errorf("AddFundingSource() = %q, %v; want empty url, nil", url, err)
	}
}

func TestRemoveAndDeactivate(t *testing.T) {
	f := newFakeDwolla(t, map[string]http.HandlerFunc{
		"/funding-sources/fs-1": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		},
		"/customers/cust-1": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		},
	})
	client := f.client()
	ctx := context.Background()

	if err := client.RemoveFundingSource(ctx, f.srv.URL+"/funding-sources/fs-1"); err != nil {
		t.Fatalf("RemoveFundingSource() error = %v", err)
	}
	if f.body("/funding-sources/fs-1")["removed"] != true {
		t.Errorf("remove body = %v", f.body("/funding-sources/fs-1"))
	}

	if err := client.DeactivateCustomer(ctx, "/customers/cust-1"); err != nil {
		t.Fatalf("DeactivateCustomer() error = %v", err)
	}
	if f.body("/customers/cust-1")["status"] != "deactivated" {
		t.Errorf("deactivate body = %v", f.body("/customers/cust-1"))
	}
}

func TestAPIError(t *testing.T) {
	f := newFakeDwolla(t, map[string]http.HandlerFunc{
		"/customers": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":"ValidationError","message":"Validation error(s) present.","_embedded":{"errors":[{"code":"Duplicate","message":"A customer with the specified email already exists.","path":"/email"}]}}`))
		},
	})

	_, err := f.client().CreateCustomer(context.Background(), payments.CustomerParams{Email: "dup@example.com"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Code != "ValidationError" || len(apiErr.Embedded.Errors) != 1 || apiErr.StatusCode != 400 {
		t.Errorf("apiErr = %+v", apiErr)
	}
}
