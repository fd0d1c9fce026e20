package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sentinel-be/internal/bootstrap"
	"sentinel-be/internal/config"
	"sentinel-be/internal/dto"
	"sentinel-be/internal/server"
	"sentinel-be/pkg/database"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type envelope[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATASET_PATH", filepath.Join("..", "..", "data", "outbreaks.jsonl"))
	t.Setenv("LOG_FILE_PATH", filepath.Join(t.TempDir(), "sentinel.log"))
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("EMBEDDING_PROVIDER", "local")
	t.Setenv("NATS_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DISPATCH_DRY_RUN", "true")
}

func call[T any](t *testing.T, app *fiber.App, method, path, body string) envelope[T] {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, 30_000)
	require.NoError(t, err)

	var env envelope[T]
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	require.Equal(t, resp.StatusCode, env.Code, string(raw))
	return env
}

// runLifecycle starts a run over HTTP, waits for it and walks the read and
// review endpoints.
func runLifecycle(t *testing.T, db *gorm.DB) {
	cfg := config.Load()
	container := bootstrap.NewContainer(db, cfg)
	t.Cleanup(container.Shutdown)
	app := server.New(cfg, container).GetApp()

	started := call[dto.StartRunResponse](t, app, "POST", "/api/run/start", `{"num_cases":4}`)
	require.True(t, started.Success)
	runId := started.Data.RunId
	require.NotEmpty(t, runId)

	var status dto.RunStatusResponse
	require.Eventually(t, func() bool {
		status = call[dto.RunStatusResponse](t, app, "GET", "/api/run/"+runId+"/status", "").Data
		return status.Status != "running"
	}, 60*time.Second, 100*time.Millisecond)
	require.Equal(t, "completed", status.Status, "error: %v", status.Error)
	assert.Equal(t, 4, status.Processed)
	assert.Equal(t, 4, status.Total)

	dashboard := call[dto.DashboardResponse](t, app, "GET", "/api/dashboard", "").Data
	assert.GreaterOrEqual(t, len(dashboard.RecentCases), 4)
	assert.Equal(t, runId, dashboard.CurrentRunMetrics["run_id"])

	detail := call[dto.CaseDetailResponse](t, app, "GET", "/api/case/case_001?run_id="+runId, "")
	require.True(t, detail.Success)
	assert.Equal(t, runId, detail.Data.Case.RunId)
	require.NotNil(t, detail.Data.Decision)
	assert.NotEmpty(t, detail.Data.AgentOutputs)

	missing := call[map[string]interface{}](t, app, "GET", "/api/case/ghost", "")
	assert.Equal(t, 404, missing.Code)
	assert.Equal(t, "Case 'ghost' not found", missing.Message)

	for _, p := range dashboard.PendingApprovalsQueue {
		if p.RunId != runId {
			continue
		}
		approved := call[dto.ApprovalResponse](t, app, "POST", "/api/approval/"+p.CaseId, fmt.Sprintf(`{"decision":"approve","run_id":%q,"reviewer_name":"integration"}`, runId))
		require.True(t, approved.Success, approved.Message)
		assert.Equal(t, "approved", approved.Data.Status)
		break
	}
}

func TestRunLifecycleInMemory(t *testing.T) {
	setupEnv(t)
	runLifecycle(t, nil)
}

func TestRunLifecyclePostgres(t *testing.T) {
	if err := godotenv.Load("../../.env"); err != nil {
		t.Logf("Warning: Could not load ../../.env: %v", err)
	}
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}
	setupEnv(t)

	db, err := database.NewGormDBFromDSN(dsn, database.WithLogLevel("warn"))
	require.NoError(t, err, "run cmd/migrate against this database first")
	runLifecycle(t, db)
}
