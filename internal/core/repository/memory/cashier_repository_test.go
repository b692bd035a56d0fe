package memory_test

import (
	"testing"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/logger"
	"github.com/Nzyazin/cashdesk/internal/core/models"
	"github.com/Nzyazin/cashdesk/internal/core/repository"
	"github.com/Nzyazin/cashdesk/internal/core/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) repository.CashierRepository {
	t.Helper()
	repo, err := memory.NewCashierRepository(memory.DefaultSeed(), logger.NewNopLogger())
	require.NoError(t, err)
	return repo
}

func TestDefaultSeed(t *testing.T) {
	repo := newRepo(t)

	assert.Equal(t, []string{"LINDA", "MARTINA", "PETER"}, repo.Names())

	linda, err := repo.Get("LINDA")
	require.NoError(t, err)
	assert.Equal(t, int64(100), linda.Quantity(models.CurrencyEUR, 10))
	assert.Equal(t, int64(20), linda.Quantity(models.CurrencyEUR, 50))
	assert.Equal(t, int64(50), linda.Quantity(models.CurrencyBGN, 10))
	assert.Equal(t, int64(10), linda.Quantity(models.CurrencyBGN, 50))

	eur, err := repo.SnapshotCurrency("LINDA", models.CurrencyEUR)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), eur.Total())
}

func TestGetUnknownCashier(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.Get("JOHN")
	assert.ErrorIs(t, err, repository.ErrCashierNotFound)
	assert.False(t, repo.Exists("JOHN"))
}

func TestApplyDeltaCreditCreatesEntries(t *testing.T) {
	repo := newRepo(t)
	at := time.Date(2025, 8, 24, 18, 45, 0, 0, time.UTC)

	bal, err := repo.ApplyDelta("PETER", models.CurrencyEUR, []models.DenominationDelta{
		{FaceValue: 100, Quantity: 1},
		{FaceValue: 50, Quantity: 2},
	}, repository.Credit, at)
	require.NoError(t, err)

	assert.Equal(t, int64(1), bal.Quantity(100))
	assert.Equal(t, int64(22), bal.Quantity(50))
	for _, d := range bal.Denominations {
		if d.FaceValue == 100 || d.FaceValue == 50 {
			assert.Equal(t, at, d.LastUpdated)
		}
	}
}

func TestApplyDeltaDebitIsAllOrNothing(t *testing.T) {
	repo := newRepo(t)
	before, err := repo.Holdings("MARTINA", models.CurrencyBGN)
	require.NoError(t, err)

	_, err = repo.ApplyDelta("MARTINA", models.CurrencyBGN, []models.DenominationDelta{
		{FaceValue: 10, Quantity: 5},
		{FaceValue: 50, Quantity: 11},
	}, repository.Debit, time.Now())
	require.ErrorIs(t, err, repository.ErrNegativeQuantity)

	after, err := repo.Holdings("MARTINA", models.CurrencyBGN)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestApplyDeltaDebitAbsentFaceValue(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.ApplyDelta("MARTINA", models.CurrencyBGN, []models.DenominationDelta{
		{FaceValue: 100, Quantity: 1},
	}, repository.Debit, time.Now())
	assert.ErrorIs(t, err, repository.ErrNegativeQuantity)
}

func TestSnapshotsAreCopies(t *testing.T) {
	repo := newRepo(t)

	snap, err := repo.SnapshotCurrency("LINDA", models.CurrencyEUR)
	require.NoError(t, err)
	snap.Denominations[0].Quantity = 999

	holdings, err := repo.Holdings("LINDA", models.CurrencyEUR)
	require.NoError(t, err)
	holdings[10] = 0

	fresh, err := repo.SnapshotCurrency("LINDA", models.CurrencyEUR)
	require.NoError(t, err)
	assert.Equal(t, int64(100), fresh.Quantity(10))
}

func TestNewCashierRepositoryRejectsBadSeed(t *testing.T) {
	_, err := memory.NewCashierRepository([]memory.SeedCashier{
		{Name: "A", Balances: map[models.Currency][]models.DenominationDelta{
			models.CurrencyEUR: {{FaceValue: 7, Quantity: 1}},
		}},
	}, logger.NewNopLogger())
	assert.Error(t, err)

	_, err = memory.NewCashierRepository([]memory.SeedCashier{{Name: "A"}, {Name: "A"}}, logger.NewNopLogger())
	assert.Error(t, err)
}
