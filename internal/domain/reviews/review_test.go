package reviews

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit(t *testing.T) {
	at := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	review, err := Submit(SubmitParams{ID: "r1", BookingID: "b1", ListingID: "l1", AuthorID: " renter ", Rating: 5, Comment: "  great stay ", CreatedAt: at})
	require.NoError(t, err)

	assert.Equal(t, "renter", review.AuthorID)
	assert.Equal(t, "great stay", review.Comment)
	assert.Len(t, review.PendingEvents(), 1)
}

func TestSubmit_Validation(t *testing.T) {
	for _, rating := range []int{0, 6, -1} {
		_, err := Submit(SubmitParams{ID: "r1", BookingID: "b1", Rating: rating})
		assert.ErrorIs(t, err, ErrInvalidRating)
	}

	_, err := Submit(SubmitParams{ID: "r1", BookingID: "b1", Rating: 3, Comment: strings.Repeat("x", maxCommentLength+1)})
	assert.Error(t, err)
}

func TestAverageRating(t *testing.T) {
	assert.Zero(t, AverageRating(nil))
	assert.InDelta(t, 4.5, AverageRating([]*Review{{Rating: 4}, {Rating: 5}}), 0.0001)
}
