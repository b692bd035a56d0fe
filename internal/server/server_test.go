package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/logger"
	"github.com/Nzyazin/cashdesk/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:        "0",
		APIKey:      "test-key",
		LockTimeout: time.Second,
		Audit: config.AuditConfig{
			Sink:                 config.AuditSinkFile,
			Dir:                  t.TempDir(),
			Schedule:             "@every 1h",
			TransactionCapacity:  100,
			TransactionBatchSize: 10,
			TransactionInterval:  time.Hour,
			BalanceCapacity:      100,
			BalanceBatchSize:     10,
			BalanceInterval:      time.Hour,
			WriteTimeout:         time.Second,
			ShutdownTimeout:      5 * time.Second,
		},
	}
}

func serve(s *Server, method, target, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if key != "" {
		req.Header.Set("FIB-X-AUTH", key)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func TestServerEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	s, err := NewServer(cfg, logger.NewNopLogger())
	require.NoError(t, err)

	rr := serve(s, http.MethodPost, "/api/v1/cash-operation", "",
		`{"cashierName":"MARTINA","currency":"EUR","operationType":"DEPOSIT","amount":200,"denominations":[{"value":50,"quantity":2},{"value":100,"quantity":1}]}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(s, http.MethodPost, "/api/v1/cash-operation", "test-key",
		`{"cashierName":"MARTINA","currency":"EUR","operationType":"DEPOSIT","amount":200,"denominations":[{"value":50,"quantity":2},{"value":100,"quantity":1}]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = serve(s, http.MethodGet, "/api/v1/cash-balance?cashier=MARTINA", "test-key", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"totalAmount":100`)

	rr = serve(s, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `cashdesk_operations_total{operation="DEPOSIT",result="success"} 1`)
	assert.Contains(t, rr.Body.String(), "http_request_duration_seconds")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	transactions, err := os.ReadFile(filepath.Join(cfg.Audit.Dir, "transactions.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(transactions), " - DEPOSIT : MARTINA OperationRequest{")
	assert.Contains(t, string(transactions), "denominations=2x50, 1x100}")

	balances, err := os.ReadFile(filepath.Join(cfg.Audit.Dir, "balances.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(balances), " - MARTINA: {EUR=[100x10, 22x50, 1x100]}")
}

func TestNewServerRejectsBadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.Schedule = "whenever"

	_, err := NewServer(cfg, logger.NewNopLogger())
	assert.Error(t, err)
}
