package postgres

import (
	"context"
	"testing"
	"time"

	"insurance-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productCols = []string{"id", "manager_id", "insurer_id", "name", "calculation_kind", "rate", "created_at"}

func TestProductRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepo(mock)
	p := &domain.Product{
		ID: uuid.New(), ManagerID: uuid.New(), InsurerID: uuid.New(), Name: "MOTOR_PRIVATE",
		Calculation: domain.PercentageOfValue{RatePercent: decimal.NewFromInt(5)},
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectExec("INSERT INTO products").
		WithArgs(p.ID, p.ManagerID, p.InsurerID, p.Name, domain.CalculationPercentageOfValue, p.Calculation.Rate(), p.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_Create_RequiresCalculation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	err = NewProductRepo(mock).Create(context.Background(), &domain.Product{ID: uuid.New()})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepo(mock)
	id := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(productCols).
			AddRow(id, uuid.New(), uuid.New(), "THIRD_PARTY", domain.CalculationFlatRate, decimal.NewFromInt(7500), now))

	p, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, domain.CalculationFlatRate, p.Calculation.Kind())
	premium, err := p.Calculation.Premium(decimal.Zero)
	require.NoError(t, err)
	assert.True(t, premium.Equal(decimal.NewFromInt(7500)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_GetByID_UnknownCalculation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(productCols).
			AddRow(id, uuid.New(), uuid.New(), "X", domain.CalculationKind("TIERED"), decimal.NewFromInt(1), time.Now()))

	_, err = repo.GetByID(context.Background(), id)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
