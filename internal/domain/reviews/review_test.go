package reviews

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitValidatesRating(t *testing.T) {
	for _, rating := range []int{-1, 6} {
		_, err := Submit(SubmitParams{ID: "r", ListingID: "l", CustomerID: "c", Rating: rating, Body: "ok"})
		assert.ErrorIs(t, err, ErrInvalidRating)
	}
	_, err := Submit(SubmitParams{ID: "r", ListingID: "l", CustomerID: "c", Rating: 3, Body: "  "})
	assert.ErrorIs(t, err, ErrBodyRequired)
}

func TestSubmitRecordsEvent(t *testing.T) {
	r, err := Submit(SubmitParams{ID: "r", ListingID: "l", CustomerID: "c", Rating: 4, Body: " tidy ", CreatedAt: time.Now()})
	require.NoError(t, err)

	assert.Equal(t, "tidy", r.Body)
	require.Len(t, r.PendingEvents(), 1)
	assert.Equal(t, "review.submitted", r.PendingEvents()[0].EventName())
}

func TestEmptyInput(t *testing.T) {
	assert.True(t, SubmitParams{Rating: 0, Body: "text"}.Empty())
	assert.True(t, SubmitParams{Rating: 4, Body: " "}.Empty())
	assert.False(t, SubmitParams{Rating: 4, Body: "text"}.Empty())
}

func TestAverageIsExactMean(t *testing.T) {
	assert.Nil(t, Average(nil))

	avg := Average([]*Review{{Rating: 5}, {Rating: 4}, {Rating: 4}})
	require.NotNil(t, avg)
	assert.InDelta(t, 13.0/3.0, *avg, 1e-12)
}

func TestUniqueID(t *testing.T) {
	assert.Equal(t, ReviewID("l-1:c-1"), UniqueID("l-1", "c-1"))
}
