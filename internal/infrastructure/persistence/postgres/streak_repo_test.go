package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learning-streak/internal/domain/streak"
	"github.com/alem-hub/learning-streak/pkg/timeutil"
)

func TestHistoryColumn_RoundTrip(t *testing.T) {
	history := []streak.DayRecord{
		{Date: timeutil.Date(2026, 8, 23), Duration: 30, LessonsCompleted: 2},
		{Date: timeutil.Date(2026, 8, 24), Duration: 45, LessonsCompleted: 1},
	}

	data, err := marshalHistory(history)
	require.NoError(t, err)

	got, err := unmarshalHistory(data)
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i, want := range history {
		assert.True(t, got[i].Date.Equal(want.Date), "дата должна пережить JSONB без сдвига дня")
		assert.Equal(t, want.Duration, got[i].Duration)
		assert.Equal(t, want.LessonsCompleted, got[i].LessonsCompleted)
	}
}

func TestHistoryColumn_EmptyValues(t *testing.T) {
	data, err := marshalHistory(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data), "пустая история пишется как пустой массив, не null")

	got, err := unmarshalHistory(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistoryColumn_CorruptedData(t *testing.T) {
	_, err := unmarshalHistory([]byte(`{broken`))
	assert.Error(t, err)

	_, err = unmarshalHistory([]byte(`[{"date":"not-a-date","duration":30,"lessonsCompleted":1}]`))
	assert.Error(t, err)
}
