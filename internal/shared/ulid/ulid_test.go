package ulid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULID_TimeRoundTrip(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	id := NewULID()
	assert.Len(t, id, 26)

	ts, err := Time(id)
	require.NoError(t, err)
	assert.True(t, ts.After(before), "ulid time should be recent")
}

func TestTime_Invalid(t *testing.T) {
	_, err := Time("not-a-ulid")
	assert.Error(t, err)
}
