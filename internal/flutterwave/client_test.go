package flutterwave

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() CustomerProfile {
	return CustomerProfile{
		Email: "ada@example.com",
		Name:  CustomerName{First: "Ada", Last: "Lovelace"},
		Phone: CustomerPhone{CountryCode: "234", Number: "8012345678"},
	}
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.Error(t, err)

	_, err = NewClient(Config{SecretKey: "sk_test"}, nil)
	assert.NoError(t, err)

	_, err = NewClient(Config{ClientID: "id", ClientSecret: "secret"}, nil)
	assert.NoError(t, err)
}

func TestAccessToken_SecretKeyFallback(t *testing.T) {
	client, err := NewClient(Config{SecretKey: "sk_test"}, nil)
	require.NoError(t, err)

	token, err := client.accessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sk_test", token)
}

func TestAccessToken_CachedAcrossCalls(t *testing.T) {
	var tokenRequests atomic.Int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "id", r.Form.Get("client_id"))
		_, _ = w.Write([]byte(`{"access_token":"tok_abc","expires_in":600}`))
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok_abc", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(envelope[Customer]{
			Status: "success",
			Data:   Customer{ID: "cus_123"},
		})
	}))
	defer apiSrv.Close()

	client, err := NewClient(Config{
		BaseURL:      apiSrv.URL,
		TokenURL:     tokenSrv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
	}, nil)
	require.NoError(t, err)

	for range 3 {
		_, err := client.GetCustomer(context.Background(), "cus_123")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), tokenRequests.Load(), "token should be fetched once and cached")
}

func TestCreateCustomer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/customers", r.URL.Path)

		var got CustomerProfile
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "ada@example.com", got.Email)
		assert.Equal(t, "Ada", got.Name.First)

		_ = json.NewEncoder(w).Encode(envelope[Customer]{
			Status: "success",
			Data:   Customer{ID: "cus_123", Email: "ada@example.com"},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk"}, nil)
	require.NoError(t, err)

	customer, err := client.CreateCustomer(context.Background(), testProfile())
	require.NoError(t, err)
	assert.Equal(t, "cus_123", customer.ID)
}

func TestCreateCustomer_IncompleteProfile(t *testing.T) {
	client, err := NewClient(Config{SecretKey: "sk"}, nil)
	require.NoError(t, err)

	_, err = client.CreateCustomer(context.Background(), CustomerProfile{Email: "ada@example.com"})
	assert.Error(t, err)
}

func TestUpdateCustomer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/customers/cus_123", r.URL.Path)
		_ = json.NewEncoder(w).Encode(envelope[Customer]{
			Status: "success",
			Data:   Customer{ID: "cus_123", Email: "ada@example.com"},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk"}, nil)
	require.NoError(t, err)

	customer, err := client.UpdateCustomer(context.Background(), "cus_123", testProfile())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", customer.Email)
}

func TestCreateDynamicVirtualAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/virtual-accounts", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))

		assert.Equal(t, "cus_123", payload["customer_id"])
		assert.Equal(t, float64(3600), payload["expiry"])
		assert.Equal(t, float64(100), payload["amount"])
		assert.Equal(t, "NGN", payload["currency"])
		assert.Equal(t, "dynamic", payload["account_type"])
		assert.Equal(t, "VentroPay wallet funding", payload["narration"])

		reference, _ := payload["reference"].(string)
		assert.True(t, strings.HasPrefix(reference, "vp_"), "reference %q should carry the vp_ prefix", reference)

		_ = json.NewEncoder(w).Encode(envelope[VirtualAccount]{
			Status: "success",
			Data: VirtualAccount{
				ID:            "va_1",
				AccountNumber: "0123456789",
				BankName:      "Wema Bank",
				Currency:      "NGN",
				Status:        "active",
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk"}, nil)
	require.NoError(t, err)

	account, err := client.CreateDynamicVirtualAccount(context.Background(), "cus_123")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", account.AccountNumber)
	assert.Equal(t, "Wema Bank", account.BankName)
}

func TestCreateDynamicVirtualAccount_RequiresCustomerID(t *testing.T) {
	client, err := NewClient(Config{SecretKey: "sk"}, nil)
	require.NoError(t, err)

	_, err = client.CreateDynamicVirtualAccount(context.Background(), "")
	assert.Error(t, err)
}

func TestDo_RejectedRequestSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"failed","message":"invalid phone"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk"}, nil)
	require.NoError(t, err)

	_, err = client.CreateCustomer(context.Background(), testProfile())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid phone")
}

func TestListCustomers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		_ = json.NewEncoder(w).Encode(envelope[[]Customer]{
			Status: "success",
			Data:   []Customer{{ID: "cus_1"}, {ID: "cus_2"}},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk"}, nil)
	require.NoError(t, err)

	customers, err := client.ListCustomers(context.Background())
	require.NoError(t, err)
	assert.Len(t, customers, 2)
}
