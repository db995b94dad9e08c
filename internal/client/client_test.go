package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/client"
	"github.com/car-storefront-api/internal/config"
	"github.com/car-storefront-api/internal/importer"
	"github.com/car-storefront-api/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(url, token string) *client.Client {
	return client.New(config.ClientConfig{
		BackendURL:     url,
		Token:          token,
		RequestTimeout: 2 * time.Second,
		RetryDelay:     time.Millisecond,
	}, zerolog.Nop())
}

func TestClient_FetchSettings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/settings", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(models.SiteSettings{SiteName: "Loja", PrimaryColor: "#000000"})
	}))
	defer srv.Close()

	got, err := newClient(srv.URL+"/", "").FetchSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Loja", got.SiteName)
}

func TestClient_RetriesTransientStatusOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode([]models.Seller{{ID: "s1", Name: "Ana"}})
	}))
	defer srv.Close()

	sellers, err := newClient(srv.URL, "tok").ListSellers(context.Background())
	require.NoError(t, err)
	assert.Len(t, sellers, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_GivesUpAfterOneRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, "").FetchSettings(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUpstream))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Seller not found"}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, "secret").CreateCar(context.Background(), &models.CarInput{Brand: "Fiat"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, "Seller not found", apperrors.UserMessage(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr *apperrors.AppError
	}{
		{"error field", http.StatusConflict, `{"error":"Seller has cars","code":"data_conflict"}`, "Seller has cars", apperrors.ErrConflict},
		{"structured detail", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"}]}`, `[{"msg":"field required"}]`, apperrors.ErrInvalidInput},
		{"no body", http.StatusUnauthorized, ``, "request failed with status code 401", apperrors.ErrUnauthorized},
		{"server error", http.StatusInternalServerError, `oops`, "request failed with status code 500", apperrors.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newClient(srv.URL, "").FetchSettings(context.Background())
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, tt.wantErr))
			assert.Equal(t, tt.want, apperrors.UserMessage(err))
		})
	}
}

func TestClient_ConnectionErrorIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newClient(url, "").FetchSettings(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUpstream))
}

func TestClient_LoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var req models.LoginRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "admin", req.Username)
			_ = json.NewEncoder(w).Encode(models.LoginResponse{Token: "jwt-token", Username: "admin"})
		case "/api/admin/sellers":
			assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	c := newClient(srv.URL, "")
	resp, err := c.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", resp.Token)
	assert.Equal(t, "jwt-token", c.Token())

	_, err = c.ListSellers(context.Background())
	require.NoError(t, err)
}

func TestClient_ResolveImageURL(t *testing.T) {
	c := newClient("https://api.example.com/", "")

	assert.Equal(t, "", c.ResolveImageURL(""))
	assert.Equal(t, "https://cdn.example.com/a.jpg", c.ResolveImageURL("https://cdn.example.com/a.jpg"))
	assert.Equal(t, "https://api.example.com/uploads/images/a.jpg", c.ResolveImageURL("/uploads/images/a.jpg"))
	assert.Equal(t, "https://api.example.com/uploads/a.jpg", c.ResolveImageURL("uploads/a.jpg"))
}

// The importer drives the client against a backend that rejects one row.
func TestClient_ImportAgainstBackend(t *testing.T) {
	var created []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var input models.CarInput
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		if input.Brand == "Chevrolet" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"Failed to create car"}`))
			return
		}
		created = append(created, input.Brand)
		_ = json.NewEncoder(w).Encode(models.Car{ID: "c1", Brand: input.Brand})
	}))
	defer srv.Close()

	csv := strings.Join([]string{
		"marca,modelo,ano,km,preco,descricao",
		"Toyota,Corolla,2022,35000,125000.00,Revisado",
		"Honda,Civic,2021",
		"Chevrolet,Onix,2023,1000,89000,Zero km",
	}, "\n")
	preview, err := importer.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 2, preview.Len())

	outcome, err := importer.NewSubmitter(newClient(srv.URL, "tok")).Run(context.Background(), preview.Rows, "seller-1")
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.SuccessCount)
	assert.Equal(t, []string{"Toyota"}, created)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, models.RowError{Line: 4, Vehicle: "Chevrolet Onix", Message: "Failed to create car"}, outcome.Errors[0])
}

func TestClient_CreateCarIsSentOnce(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if posts.Add(1) == 1 {
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		_ = json.NewEncoder(w).Encode(models.Car{ID: "c1"})
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, "tok").CreateCar(context.Background(), &models.CarInput{Brand: "Fiat"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUpstream))
	assert.Equal(t, int32(1), posts.Load())
}

func TestClient_ImportAttemptsEachRowOnce(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if posts.Add(1) == 1 {
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		_ = json.NewEncoder(w).Encode(models.Car{ID: "c1"})
	}))
	defer srv.Close()

	preview := importer.ParseText("marca,modelo,ano,km,preco,descricao\nToyota,Corolla,2022,1000,50000,ok\n", time.Now())
	outcome, err := importer.NewSubmitter(newClient(srv.URL, "tok")).Run(context.Background(), preview.Rows, "seller-1")
	require.NoError(t, err)

	assert.Equal(t, int32(1), posts.Load())
	assert.Equal(t, 0, outcome.SuccessCount)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, 2, outcome.Errors[0].Line)
}
