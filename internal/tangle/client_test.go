package tangle_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanglekit/artmarket/internal/tangle"
)

const testSeed = "SEED9SEED9SEED9SEED9SEED9SEED9SEED9SEED9SEED9SEED9SEED9SEED9SEED9SEED9SEED9SEED99"

func TestAllocateAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/addresses", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, testSeed, req["seed"])
		assert.Equal(t, float64(3), req["index"])

		json.NewEncoder(w).Encode(map[string]string{"address": "ADDR9AT9INDEX9THREE"})
	}))
	defer srv.Close()

	c := tangle.NewHTTPClient(srv.URL, testSeed, 5*time.Second)

	addr, err := c.AllocateAddress(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "ADDR9AT9INDEX9THREE", addr)
}

func TestBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/balances/SOMEADDRESS9", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]uint64{"balance": 1500})
	}))
	defer srv.Close()

	c := tangle.NewHTTPClient(srv.URL, testSeed, 5*time.Second)

	balance, err := c.Balance(context.Background(), "SOMEADDRESS9")
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), balance)
}

func TestAccountBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/account/balance", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]uint64{"balance": 9000})
	}))
	defer srv.Close()

	c := tangle.NewHTTPClient(srv.URL, testSeed, 5*time.Second)

	balance, err := c.AccountBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(9000), balance)
}

func TestSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/transfers", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "DEST9ADDRESS", req["address"])
		assert.Equal(t, float64(250), req["amount"])
		assert.Equal(t, "commission", req["memo"])

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := tangle.NewHTTPClient(srv.URL, testSeed, 5*time.Second)
	require.NoError(t, c.Send(context.Background(), 250, "DEST9ADDRESS", "commission"))
}

func TestSend_InsufficientFunds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	c := tangle.NewHTTPClient(srv.URL, testSeed, 5*time.Second)
	err := c.Send(context.Background(), 1_000_000, "DEST9ADDRESS", "")
	assert.ErrorIs(t, err, tangle.ErrInsufficientFunds)
}

func TestSend_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := tangle.NewHTTPClient(srv.URL, testSeed, 5*time.Second)
	err := c.Send(context.Background(), 1, "DEST9ADDRESS", "")
	assert.ErrorIs(t, err, tangle.ErrLedgerUnavailable)
}

func TestBalance_NodeDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	c := tangle.NewHTTPClient(srv.URL, testSeed, time.Second)
	_, err := c.Balance(context.Background(), "SOMEADDRESS9")
	assert.ErrorIs(t, err, tangle.ErrLedgerUnavailable)
}

func TestGenerateSeed(t *testing.T) {
	seed, err := tangle.GenerateSeed()
	require.NoError(t, err)
	require.Len(t, seed, 81)

	for _, r := range seed {
		valid := (r >= 'A' && r <= 'Z') || r == '9'
		assert.True(t, valid, "seed contains invalid rune %q", r)
	}
}

func TestGenerateSeed_Unique(t *testing.T) {
	a, err := tangle.GenerateSeed()
	require.NoError(t, err)
	b, err := tangle.GenerateSeed()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
