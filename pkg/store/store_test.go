package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/phishsmith/internal/models"
)

func sampleOutcomes() []models.Outcome {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return []models.Outcome{
		{
			URL: "https://onlinesbi-secure.xyz/login",
			Result: &models.AnalysisResult{
				URL:            "https://onlinesbi-secure.xyz/login",
				Timestamp:      ts,
				Confidence:     0.82,
				IsPhishing:     true,
				TargetBank:     "sbi",
				TargetBankName: "State Bank of India",
			},
		},
		{URL: "https://unreachable.example", Error: "capture render https://unreachable.example: timeout"},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "phishing_results.json")
	s := NewFileStore(path)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	require.NoError(t, s.Save(ctx, sampleOutcomes()))
	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "sbi", loaded[0].Result.TargetBank)
	assert.True(t, loaded[1].Failed())
	assert.NoError(t, s.Close())
}

func TestFileStoreEmptyIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	s := NewFileStore(path)
	require.NoError(t, s.Save(context.Background(), nil))

	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestOpen(t *testing.T) {
	s, err := Open("file", "x.json")
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open("redis", "x")
	assert.ErrorContains(t, err, "unsupported storage type")
}

func TestSQLStoreSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewSQLStore(db)
	insert := regexp.QuoteMeta(insertResult)

	mock.ExpectBegin()
	mock.ExpectExec(insert).
		WithArgs(sqlmock.AnyArg(), "https://onlinesbi-secure.xyz/login", sqlmock.AnyArg(), 0.82, true, "sbi", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insert).
		WithArgs(sqlmock.AnyArg(), "https://unreachable.example", sqlmock.AnyArg(), 0.0, false, nil, "capture render https://unreachable.example: timeout", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Save(context.Background(), sampleOutcomes()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreSaveRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertResult)).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = NewSQLStore(db).Save(context.Background(), sampleOutcomes())
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreLoad(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	payload, err := json.Marshal(sampleOutcomes()[0])
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta(selectResults)).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(string(payload)))

	loaded, err := NewSQLStore(db).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 0.82, loaded[0].Result.Confidence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open("database", filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, sampleOutcomes()))
	require.NoError(t, s.Save(ctx, sampleOutcomes()[:1]))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, "https://onlinesbi-secure.xyz/login", loaded[0].URL)
	assert.True(t, loaded[1].Failed())
	assert.Equal(t, "State Bank of India", loaded[2].Result.TargetBankName)
}
