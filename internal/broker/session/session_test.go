package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockNYSE(t *testing.T) {
	ny, err := time.LoadLocation(NYSE.Location)
	require.NoError(t, err)

	// Wednesday 10:00, open
	c := Clock(time.Date(2024, 4, 10, 10, 0, 0, 0, ny), NYSE)
	assert.True(t, c.IsOpen)
	assert.Equal(t, time.Date(2024, 4, 10, 16, 0, 0, 0, ny), c.NextClose)
	assert.Equal(t, time.Date(2024, 4, 11, 9, 30, 0, 0, ny), c.NextOpen)

	// Friday after the close rolls over the weekend
	c = Clock(time.Date(2024, 4, 12, 17, 0, 0, 0, ny), NYSE)
	assert.False(t, c.IsOpen)
	assert.Equal(t, time.Date(2024, 4, 15, 9, 30, 0, 0, ny), c.NextOpen)
	assert.Equal(t, time.Date(2024, 4, 15, 16, 0, 0, 0, ny), c.NextClose)

	// Before the open on a weekday
	c = Clock(time.Date(2024, 4, 10, 8, 0, 0, 0, ny), NYSE)
	assert.False(t, c.IsOpen)
	assert.Equal(t, time.Date(2024, 4, 10, 9, 30, 0, 0, ny), c.NextOpen)
}

func TestClockNSEClosesAtHalfPastThree(t *testing.T) {
	ist, err := time.LoadLocation(NSE.Location)
	require.NoError(t, err)

	assert.True(t, Clock(time.Date(2024, 4, 10, 15, 29, 0, 0, ist), NSE).IsOpen)
	assert.False(t, Clock(time.Date(2024, 4, 10, 15, 30, 0, 0, ist), NSE).IsOpen)
	assert.False(t, Clock(time.Date(2024, 4, 13, 11, 0, 0, 0, ist), NSE).IsOpen)
}
