package sqlguard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/urbanbot/server/internal/core/error"
)

func TestFilterRejectsTextWithoutSelect(t *testing.T) {
	inputs := []string{
		"",
		"I cannot answer that",
		"SHOW TABLES",
		"DELETE FROM accident_logs",
		"sel ect * from traffic_logs",
	}
	for _, in := range inputs {
		q, err := Filter(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, errx.ErrUnsafeQuery), in)
		assert.False(t, q.Valid())
	}
}

func TestFilterRejectsBannedTokensAfterSelect(t *testing.T) {
	inputs := []string{
		"SELECT 1; DELETE FROM accident_logs",
		"select * from t; update t set a=1",
		"SELECT 1; DROP TABLE traffic_logs",
		"Select 1; INSERT INTO t VALUES (1)",
		"sElEcT 1; ALTER TABLE t ADD c INT",
		"SELECT updated_at FROM traffic_logs",
	}
	for _, in := range inputs {
		_, err := Filter(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, errx.ErrUnsafeQuery), in)
	}
}

func TestFilterTruncatesPreambleAndAppendsLimit(t *testing.T) {
	q, err := Filter("Here is the query:\nSELECT city, COUNT(*) FROM traffic_logs GROUP BY city")
	require.NoError(t, err)
	assert.Equal(t, "SELECT city, COUNT(*) FROM traffic_logs GROUP BY city LIMIT 100", q.String())
}

func TestFilterKeepsExistingLimit(t *testing.T) {
	in := "SELECT * FROM aqi_logs ORDER BY timestamp DESC limit 5"
	q, err := Filter("sure! " + in)
	require.NoError(t, err)
	assert.Equal(t, in, q.String())
}

func TestFilterWithLimitUsesConfiguredCap(t *testing.T) {
	q, err := FilterWithLimit("SELECT 1", 25)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 LIMIT 25", q.String())

	q, err = FilterWithLimit("SELECT 1", 0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 LIMIT 100", q.String())
}

func TestMustFilterPanicsOnUnsafeText(t *testing.T) {
	assert.Panics(t, func() { MustFilter("DROP TABLE x") })
	assert.NotPanics(t, func() { MustFilter("SELECT COUNT(*) FROM accident_logs") })
}

func TestZeroSafeQueryIsInvalid(t *testing.T) {
	var q SafeQuery
	assert.False(t, q.Valid())
	assert.Equal(t, "", q.String())
}
