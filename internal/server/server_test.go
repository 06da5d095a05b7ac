package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-service/internal/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	t      *testing.T
	srv    *Server
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		ServerPort:       "0",
		StoreDriver:      config.DriverMemory,
		NotifyBufferSize: 16,
		AdjustMaxRetries: 3,
	}
	srv, err := NewServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return &testServer{t: t, srv: srv, router: srv.GetRouter()}
}

func (ts *testServer) do(method, path string, body interface{}) (int, envelope) {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func (ts *testServer) createAccount(email, balance string) string {
	ts.t.Helper()
	code, env := ts.do("POST", "/admin/accounts", map[string]string{"email": email, "initial_balance": balance})
	require.Equal(ts.t, http.StatusCreated, code)
	var acc struct {
		AccountID string `json:"account_id"`
	}
	require.NoError(ts.t, json.Unmarshal(env.Data, &acc))
	return acc.AccountID
}

func (ts *testServer) balance(userID string) string {
	ts.t.Helper()
	code, env := ts.do("GET", "/users/"+userID+"/account", nil)
	require.Equal(ts.t, http.StatusOK, code)
	var acc struct {
		Balance string `json:"balance"`
	}
	require.NoError(ts.t, json.Unmarshal(env.Data, &acc))
	return acc.Balance
}

func TestWithdrawalLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createAccount("alice@example.com", "1000000")

	code, env := ts.do("POST", "/users/"+user+"/withdrawals", map[string]string{
		"amount":                     "200000",
		"destination_name":           "Example Bank",
		"destination_account_number": "123",
		"destination_holder_name":    "Alice",
	})
	require.Equal(t, http.StatusCreated, code)
	var tx struct {
		TransactionID string `json:"transaction_id"`
		Status        string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tx))
	assert.Equal(t, "PENDING", tx.Status)
	assert.Equal(t, "800000.00", ts.balance(user))

	code, env = ts.do("PUT", "/admin/transactions/"+tx.TransactionID+"/status", map[string]string{"status": "rejected"})
	require.Equal(t, http.StatusOK, code)
	var change struct {
		Applied      bool   `json:"applied"`
		BalanceDelta string `json:"balance_delta"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &change))
	assert.True(t, change.Applied)
	assert.Equal(t, "200000.00", change.BalanceDelta)
	assert.Equal(t, "1000000.00", ts.balance(user))

	code, _ = ts.do("PUT", "/admin/transactions/"+tx.TransactionID+"/status", map[string]string{"status": "PENDING"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "800000.00", ts.balance(user))

	require.Eventually(t, func() bool {
		_, env := ts.do("GET", "/users/"+user+"/notifications", nil)
		var list []struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(env.Data, &list) != nil {
			return false
		}
		for _, n := range list {
			if strings.HasPrefix(n.Message, "Withdrawal refunded") {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTransferOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	a := ts.createAccount("a@example.com", "300000")
	b := ts.createAccount("b@example.com", "50000")

	code, env := ts.do("POST", "/users/"+a+"/transfers", map[string]string{"recipient": "b@example.com", "amount": "100000"})
	require.Equal(t, http.StatusCreated, code)
	var res struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Success)
	assert.Equal(t, "200000.00", ts.balance(a))
	assert.Equal(t, "150000.00", ts.balance(b))

	code, env = ts.do("POST", "/users/"+a+"/transfers", map[string]string{"recipient": "b@example.com", "amount": "999999"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	var rejected struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rejected))
	assert.False(t, rejected.Success)
	assert.Equal(t, "insufficient_funds", rejected.Code)

	code, env = ts.do("PUT", "/admin/transactions/"+firstTransactionID(t, ts, a)+"/status", map[string]string{"status": "REJECTED"})
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "immutable_transaction", env.Error.Code)
}

func firstTransactionID(t *testing.T, ts *testServer, user string) string {
	t.Helper()
	code, env := ts.do("GET", "/users/"+user+"/transactions?type=transfer", nil)
	require.Equal(t, http.StatusOK, code)
	var list []struct {
		TransactionID string `json:"transaction_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.NotEmpty(t, list)
	return list[0].TransactionID
}

func TestAdjustBalanceOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createAccount("a@example.com", "10")

	code, _ := ts.do("POST", "/admin/accounts/"+user+"/balance", map[string]string{"amount": "15.5", "mode": "add"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "25.50", ts.balance(user))

	code, _ = ts.do("POST", "/admin/accounts/"+user+"/balance", map[string]string{"amount": "3", "mode": "set"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "3.00", ts.balance(user))

	code, env := ts.do("POST", "/admin/accounts/"+user+"/balance", map[string]string{"amount": "3", "mode": "double"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", env.Error.Code)

	code, env = ts.do("GET", "/admin/accounts/"+user+"/adjustments", nil)
	require.Equal(t, http.StatusOK, code)
	var history []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Len(t, history, 2)
}

func TestRequestValidation(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createAccount("a@example.com", "10")

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"bad user id", "GET", "/users/not-a-uuid/account", nil, http.StatusBadRequest, "invalid_input"},
		{"unknown user", "GET", "/users/00000000-0000-0000-0000-000000000001/account", nil, http.StatusNotFound, "account_not_found"},
		{"bad amount", "POST", "/users/" + user + "/deposits", map[string]string{"amount": "abc"}, http.StatusBadRequest, "invalid_amount"},
		{"zero amount", "POST", "/users/" + user + "/deposits", map[string]string{"amount": "0"}, http.StatusBadRequest, "invalid_amount"},
		{"sub-cent amount", "POST", "/users/" + user + "/deposits", map[string]string{"amount": "0.005"}, http.StatusBadRequest, "invalid_amount"},
		{"sub-cent adjustment", "POST", "/admin/accounts/" + user + "/balance", map[string]string{"amount": "1.001", "mode": "add"}, http.StatusBadRequest, "invalid_amount"},
		{"bad idempotency key", "POST", "/users/" + user + "/deposits", map[string]string{"amount": "1", "idempotency_key": "x"}, http.StatusBadRequest, "invalid_input"},
		{"bad status", "PUT", "/admin/transactions/00000000-0000-0000-0000-000000000001/status", map[string]string{"status": "DONE"}, http.StatusBadRequest, "invalid_status"},
		{"unknown transaction", "PUT", "/admin/transactions/00000000-0000-0000-0000-000000000001/status", map[string]string{"status": "SUCCESS"}, http.StatusNotFound, "transaction_not_found"},
		{"bad type filter", "GET", "/users/" + user + "/transactions?type=loan", nil, http.StatusBadRequest, "invalid_input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := ts.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `wallet_service_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestCompanyBankAccountsOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	code, _ := ts.do("PUT", "/admin/company-bank-accounts", map[string]interface{}{
		"accounts": []map[string]string{
			{"bank_name": "Bank A", "account_number": "111", "account_holder_name": "Wallet Co"},
		},
	})
	require.Equal(t, http.StatusOK, code)

	code, env := ts.do("GET", "/company-bank-accounts", nil)
	require.Equal(t, http.StatusOK, code)
	var list []struct {
		BankName string `json:"bank_name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Bank A", list[0].BankName)
}
