package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryEnv points the CLI at a throwaway in-memory deployment.
func memoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SIB_STORAGE_DRIVER", "memory")
	t.Setenv("SIB_REDIS_ENABLED", "false")
	t.Setenv("SIB_DOCUMENTS_DIR", t.TempDir())
	t.Setenv("SIB_GATEWAY_RESULT_DELAY", "0")
	t.Setenv("SIB_JWT_SECRET", "cli-test-secret")
	t.Setenv("SIB_LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestToken_MintsVerifiableToken(t *testing.T) {
	memoryEnv(t)
	id := uuid.New()

	out, err := run(t, "token", "--role", "manager", "--id", id.String())
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, id.String(), got["actor_id"])
	assert.Equal(t, "MANAGER", got["role"])

	claims, err := service.NewJWTTokenService("cli-test-secret", 0, "insurance-settlement").Validate(got["token"])
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, domain.RoleManager, claims.Role)
}

func TestToken_RejectsUnknownRole(t *testing.T) {
	memoryEnv(t)

	_, err := run(t, "token", "--role", "auditor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestToken_RequiresSecret(t *testing.T) {
	memoryEnv(t)
	t.Setenv("SIB_JWT_SECRET", "")

	_, err := run(t, "token", "--role", "admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
}

func TestSweep_ReportsEmptyRun(t *testing.T) {
	memoryEnv(t)

	out, err := run(t, "sweep")
	require.NoError(t, err)

	var report service.SweepReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Zero(t, report.PayoutsRefunded)
	assert.Zero(t, report.CertificatesIssued)
}

func TestStockAdd(t *testing.T) {
	memoryEnv(t)
	manager, insurer := uuid.New(), uuid.New()

	out, err := run(t, "stock", "add",
		"--manager", manager.String(), "--insurer", insurer.String(),
		"--class", "Motor Private", "--quantity", "25")
	require.NoError(t, err)

	var stock domain.CertificateStock
	require.NoError(t, json.Unmarshal([]byte(out), &stock))
	assert.Equal(t, manager, stock.ManagerID)
	assert.Equal(t, "Motor Private", stock.ProductClass)
	assert.Equal(t, 25, stock.Quantity)
}

func TestStockAdd_Validation(t *testing.T) {
	memoryEnv(t)

	_, err := run(t, "stock", "add",
		"--manager", "not-a-uuid", "--insurer", uuid.NewString(),
		"--class", "Motor", "--quantity", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid manager id")

	_, err = run(t, "stock", "add",
		"--manager", uuid.NewString(), "--insurer", uuid.NewString(),
		"--class", "Motor", "--quantity", "0")
	require.Error(t, err)
}

func TestPartyAddManager(t *testing.T) {
	memoryEnv(t)

	out, err := run(t, "party", "add-manager", "--name", "Jane Wanjiru", "--phone", "0722000000")
	require.NoError(t, err)

	var m domain.Manager
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.Equal(t, "Jane Wanjiru", m.FullName)
}

func TestPartyAddAgent_UnknownManager(t *testing.T) {
	memoryEnv(t)

	_, err := run(t, "party", "add-agent", "--manager", uuid.NewString(), "--name", "A", "--phone", "0712345678")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown manager")
}

func TestProductAdd(t *testing.T) {
	memoryEnv(t)

	out, err := run(t, "product", "add",
		"--manager", uuid.NewString(), "--insurer", uuid.NewString(),
		"--name", "Motor Private", "--percent", "4.5")
	require.NoError(t, err)

	var got struct {
		Product     domain.Product         `json:"product"`
		Calculation domain.CalculationKind `json:"calculation"`
		Rate        decimal.Decimal        `json:"rate"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Motor Private", got.Product.Name)
	assert.Equal(t, domain.CalculationPercentageOfValue, got.Calculation)
	assert.True(t, got.Rate.Equal(decimal.RequireFromString("4.5")))
}

func TestPremiumFromFlags(t *testing.T) {
	calc, err := premiumFromFlags("", "2500")
	require.NoError(t, err)
	assert.Equal(t, domain.CalculationFlatRate, calc.Kind())

	_, err = premiumFromFlags("", "")
	assert.Error(t, err)

	_, err = premiumFromFlags("abc", "")
	assert.Error(t, err)

	_, err = premiumFromFlags("-1", "")
	assert.Error(t, err)
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	memoryEnv(t)

	_, err := run(t, "migrate", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}
