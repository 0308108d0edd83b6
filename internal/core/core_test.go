// AngelaMos | 2026
// core_test.go

package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayBounds(t *testing.T) {
	nairobi := time.FixedZone("EAT", 3*60*60)

	tests := []struct {
		name      string
		in        time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "mid day",
			in:        time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
			wantStart: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "exact midnight",
			in:        time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "year end",
			in:        time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
			wantStart: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "location kept",
			in:        time.Date(2026, 3, 10, 1, 0, 0, 0, nairobi),
			wantStart: time.Date(2026, 3, 10, 0, 0, 0, 0, nairobi),
			wantEnd:   time.Date(2026, 3, 11, 0, 0, 0, 0, nairobi),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := DayBounds(tt.in)
			assert.True(t, tt.wantStart.Equal(start), "start %s", start)
			assert.True(t, tt.wantEnd.Equal(end), "end %s", end)
		})
	}
}

func TestCivilDate(t *testing.T) {
	nairobi := time.FixedZone("EAT", 3*60*60)

	a := CivilDate(time.Date(2026, 3, 10, 23, 0, 0, 0, nairobi))
	b := CivilDate(time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC))
	assert.Equal(t, a, b)

	c := CivilDate(time.Date(2026, 3, 11, 0, 0, 1, 0, nairobi))
	assert.Equal(t, a.AddDate(0, 0, 1), c)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)

	ok, err := VerifyPassword("correct horse battery", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = VerifyPasswordTimingSafe("anything", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = VerifyPassword("x", "not-a-hash")
	assert.Error(t, err)
}

func TestRefreshTokenHashing(t *testing.T) {
	a, err := GenerateRefreshToken()
	require.NoError(t, err)
	b, err := GenerateRefreshToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, HashToken(a), HashToken(a))
	assert.Len(t, HashToken(a), 64)
}

func TestSecretEqual(t *testing.T) {
	assert.True(t, SecretEqual("k", "k"))
	assert.False(t, SecretEqual("k", "K"))
	assert.False(t, SecretEqual("", ""))
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestJSONError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "quota",
			err:      QuotaExceededError("question", 10),
			wantCode: http.StatusTooManyRequests,
			wantBody: "QUOTA_EXCEEDED",
		},
		{
			name:     "provider",
			err:      ProviderUnavailableError("down"),
			wantCode: http.StatusBadGateway,
			wantBody: "PROVIDER_UNAVAILABLE",
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
			wantBody: "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			JSONError(rec, tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)

			var body Response
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantBody, body.Error.Code)
		})
	}
}

func TestQuotaErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("ask: %w", QuotaExceededError("question", 10))
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.True(t, IsAppError(err))
}

func TestPaginated(t *testing.T) {
	rec := httptest.NewRecorder()
	Paginated(rec, []int{1, 2}, 2, 2, 5)

	var body Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.NotNil(t, body.Meta)
	assert.Equal(t, 3, body.Meta.TotalPages)
}
