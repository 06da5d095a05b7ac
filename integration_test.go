package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"wallet-service/internal/config"
	"wallet-service/internal/server"
)

type IntegrationTestSuite struct {
	suite.Suite
	postgresContainer *postgres.PostgresContainer
	serverInstance    *server.Server
	baseURL           string
	client            *http.Client
}

func TestIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	suite.Run(t, new(IntegrationTestSuite))
}

func (suite *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("wallet"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		suite.T().Fatalf("Failed to start postgres container: %s", err)
	}
	suite.postgresContainer = ctr

	host, err := ctr.Host(ctx)
	suite.Require().NoError(err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	suite.Require().NoError(err)

	// Migrations run through the server's AUTO_MIGRATE path.
	cfg := &config.Config{
		DBHost:           host,
		DBPort:           port.Port(),
		DBUser:           "postgres",
		DBPassword:       "password",
		DBName:           "wallet",
		DBSSLMode:        "disable",
		ServerPort:       "0", // Let OS choose a free port
		StoreDriver:      config.DriverPostgres,
		AutoMigrate:      true,
		NotifyBufferSize: 64,
		AdjustMaxRetries: 5,
	}

	serverInstance, serverPort, err := server.StartServer(cfg)
	if err != nil {
		suite.T().Fatalf("Failed to start application server: %s", err)
	}
	suite.serverInstance = serverInstance
	suite.baseURL = "http://localhost:" + serverPort
	suite.client = &http.Client{Timeout: 30 * time.Second}

	suite.Require().NoError(suite.waitForServerReady())
}

func (suite *IntegrationTestSuite) waitForServerReady() error {
	timeout := 30 * time.Second
	start := time.Now()

	for time.Since(start) < timeout {
		resp, err := http.Get(suite.baseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after %v", timeout)
}

func (suite *IntegrationTestSuite) TearDownSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if suite.serverInstance != nil {
		suite.serverInstance.Stop(ctx)
	}
	if suite.postgresContainer != nil {
		suite.postgresContainer.Terminate(context.Background())
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (suite *IntegrationTestSuite) call(method, path string, body interface{}) (int, envelope) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, suite.baseURL+path, reader)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := suite.client.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	var env envelope
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (suite *IntegrationTestSuite) createAccount(balance string) (string, string) {
	email := uuid.NewString()[:8] + "@example.com"
	status, env := suite.call("POST", "/admin/accounts", map[string]string{
		"email":           email,
		"full_name":       "Integration User",
		"initial_balance": balance,
	})
	suite.Require().Equal(http.StatusCreated, status)

	var acc struct {
		AccountID string `json:"account_id"`
	}
	suite.Require().NoError(json.Unmarshal(env.Data, &acc))
	return acc.AccountID, email
}

func (suite *IntegrationTestSuite) balance(userID string) decimal.Decimal {
	status, env := suite.call("GET", "/users/"+userID+"/account", nil)
	suite.Require().Equal(http.StatusOK, status)

	var acc struct {
		Balance string `json:"balance"`
	}
	suite.Require().NoError(json.Unmarshal(env.Data, &acc))
	return decimal.RequireFromString(acc.Balance)
}

func (suite *IntegrationTestSuite) assertBalance(userID, want string) {
	got := suite.balance(userID)
	suite.True(got.Equal(decimal.RequireFromString(want)), "balance: want %s, got %s", want, got)
}

func (suite *IntegrationTestSuite) setStatus(txID, status string) (int, envelope) {
	return suite.call("PUT", "/admin/transactions/"+txID+"/status", map[string]string{"status": status, "actor": "integration"})
}

func (suite *IntegrationTestSuite) withdraw(userID, amount string) (int, envelope) {
	return suite.call("POST", "/users/"+userID+"/withdrawals", map[string]string{
		"amount":                     amount,
		"destination_name":           "Example Bank",
		"destination_account_number": "0001",
		"destination_holder_name":    "Integration User",
	})
}

func transactionID(env envelope) string {
	var tx struct {
		TransactionID string `json:"transaction_id"`
	}
	_ = json.Unmarshal(env.Data, &tx)
	return tx.TransactionID
}

func (suite *IntegrationTestSuite) TestWithdrawalRejectAndReopen() {
	user, _ := suite.createAccount("1000000")

	status, env := suite.withdraw(user, "200000")
	suite.Require().Equal(http.StatusCreated, status)
	txID := transactionID(env)
	suite.assertBalance(user, "800000")

	status, _ = suite.setStatus(txID, "REJECTED")
	suite.Require().Equal(http.StatusOK, status)
	suite.assertBalance(user, "1000000")

	status, env = suite.setStatus(txID, "REJECTED")
	suite.Require().Equal(http.StatusOK, status)
	var change struct {
		Applied bool `json:"applied"`
	}
	suite.Require().NoError(json.Unmarshal(env.Data, &change))
	suite.False(change.Applied)
	suite.assertBalance(user, "1000000")

	status, _ = suite.setStatus(txID, "PENDING")
	suite.Require().Equal(http.StatusOK, status)
	suite.assertBalance(user, "800000")
}

func (suite *IntegrationTestSuite) TestDepositApproveThenReverse() {
	user, _ := suite.createAccount("0")

	status, env := suite.call("POST", "/users/"+user+"/deposits", map[string]string{"amount": "500000"})
	suite.Require().Equal(http.StatusCreated, status)
	txID := transactionID(env)
	suite.assertBalance(user, "0")

	status, _ = suite.setStatus(txID, "SUCCESS")
	suite.Require().Equal(http.StatusOK, status)
	suite.assertBalance(user, "500000")

	status, _ = suite.setStatus(txID, "REJECTED")
	suite.Require().Equal(http.StatusOK, status)
	suite.assertBalance(user, "0")
}

func (suite *IntegrationTestSuite) TestTransferBetweenAccounts() {
	sender, _ := suite.createAccount("300000")
	recipient, recipientEmail := suite.createAccount("50000")

	status, _ := suite.call("POST", "/users/"+sender+"/transfers", map[string]string{
		"recipient": recipientEmail,
		"amount":    "100000",
	})
	suite.Require().Equal(http.StatusCreated, status)
	suite.assertBalance(sender, "200000")
	suite.assertBalance(recipient, "150000")

	status, env := suite.call("POST", "/users/"+sender+"/transfers", map[string]string{
		"recipient": "nobody@example.com",
		"amount":    "1",
	})
	suite.Equal(http.StatusNotFound, status)
	var res struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
	}
	suite.Require().NoError(json.Unmarshal(env.Data, &res))
	suite.False(res.Success)
	suite.Equal("recipient_not_found", res.Code)
}

func (suite *IntegrationTestSuite) TestIdempotentWithdrawal() {
	user, _ := suite.createAccount("100")
	key := uuid.NewString()

	body := map[string]string{
		"amount":                     "30",
		"destination_name":           "Example Bank",
		"destination_account_number": "0001",
		"destination_holder_name":    "Integration User",
		"idempotency_key":            key,
	}
	status, first := suite.call("POST", "/users/"+user+"/withdrawals", body)
	suite.Require().Equal(http.StatusCreated, status)
	status, second := suite.call("POST", "/users/"+user+"/withdrawals", body)
	suite.Require().Equal(http.StatusCreated, status)

	suite.Equal(transactionID(first), transactionID(second))
	suite.assertBalance(user, "70")
}

func (suite *IntegrationTestSuite) TestConcurrentWithdrawalsNeverOverdraw() {
	user, _ := suite.createAccount("100")

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw, _ := json.Marshal(map[string]string{
				"amount":                     "10",
				"destination_name":           "Example Bank",
				"destination_account_number": "0001",
				"destination_holder_name":    "Integration User",
			})
			resp, err := suite.client.Post(suite.baseURL+"/users/"+user+"/withdrawals", "application/json", bytes.NewReader(raw))
			if err != nil {
				return
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusCreated {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	suite.Equal(10, created)
	suite.assertBalance(user, "0")
}

func (suite *IntegrationTestSuite) TestConcurrentSetStatusCreditsOnce() {
	user, _ := suite.createAccount("0")
	status, env := suite.call("POST", "/users/"+user+"/deposits", map[string]string{"amount": "25"})
	suite.Require().Equal(http.StatusCreated, status)
	txID := transactionID(env)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw, _ := json.Marshal(map[string]string{"status": "SUCCESS"})
			req, _ := http.NewRequest("PUT", suite.baseURL+"/admin/transactions/"+txID+"/status", bytes.NewReader(raw))
			if resp, err := suite.client.Do(req); err == nil {
				resp.Body.Close()
			}
		}()
	}
	wg.Wait()

	suite.assertBalance(user, "25")
}

func (suite *IntegrationTestSuite) TestAdminAdjustBalance() {
	user, _ := suite.createAccount("10")

	status, _ := suite.call("POST", "/admin/accounts/"+user+"/balance", map[string]string{"amount": "-4", "mode": "add"})
	suite.Require().Equal(http.StatusOK, status)
	suite.assertBalance(user, "6")

	status, _ = suite.call("POST", "/admin/accounts/"+user+"/balance", map[string]string{"amount": "42.42", "mode": "set"})
	suite.Require().Equal(http.StatusOK, status)
	suite.assertBalance(user, "42.42")

	status, env := suite.call("POST", "/admin/accounts/"+user+"/balance", map[string]string{"amount": "-100", "mode": "add"})
	suite.Equal(http.StatusUnprocessableEntity, status)
	suite.Require().NotNil(env.Error)
	suite.Equal("insufficient_funds", env.Error.Code)
	suite.assertBalance(user, "42.42")
}

func (suite *IntegrationTestSuite) TestNotificationsDelivered() {
	user, _ := suite.createAccount("100")
	_, env := suite.withdraw(user, "10")
	suite.setStatus(transactionID(env), "CANCELLED")

	suite.Eventually(func() bool {
		status, env := suite.call("GET", "/users/"+user+"/notifications", nil)
		if status != http.StatusOK {
			return false
		}
		var list []json.RawMessage
		return json.Unmarshal(env.Data, &list) == nil && len(list) >= 3
	}, 5*time.Second, 50*time.Millisecond)
}
