package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustInterval(t *testing.T, start, end string) Interval {
	t.Helper()
	s, err := time.Parse(time.RFC3339, start)
	require.NoError(t, err)
	e, err := time.Parse(time.RFC3339, end)
	require.NoError(t, err)
	iv, err := New(s, e)
	require.NoError(t, err)
	return iv
}

func TestNewRejectsDegenerateSpans(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	_, err := New(at, at)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = New(at.Add(time.Hour), at)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNewNormalizesToUTC(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	start := time.Date(2024, 6, 1, 9, 0, 0, 0, loc)
	iv, err := New(start, start.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, time.UTC, iv.Start.Location())
	assert.Equal(t, time.UTC, iv.End.Location())
	assert.True(t, iv.Start.Equal(start))
}

func TestOverlapsIsSymmetric(t *testing.T) {
	a := mustInterval(t, "2024-06-01T10:00:00Z", "2024-06-01T11:00:00Z")
	b := mustInterval(t, "2024-06-01T10:30:00Z", "2024-06-01T11:30:00Z")
	c := mustInterval(t, "2024-06-01T12:00:00Z", "2024-06-01T13:00:00Z")

	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))
	assert.False(t, a.Overlaps(c))
	assert.False(t, c.Overlaps(a))
	assert.True(t, a.Overlaps(a))
}

func TestTouchingEndpointsDoNotOverlap(t *testing.T) {
	a := mustInterval(t, "2024-06-01T10:00:00Z", "2024-06-01T10:30:00Z")
	b := mustInterval(t, "2024-06-01T10:30:00Z", "2024-06-01T11:00:00Z")

	assert.False(t, a.Overlaps(b))
	assert.False(t, b.Overlaps(a))
}

func TestContainsHalfOpen(t *testing.T) {
	iv := mustInterval(t, "2024-06-01T10:00:00Z", "2024-06-01T11:00:00Z")

	assert.True(t, iv.Contains(iv.Start))
	assert.True(t, iv.Contains(iv.Start.Add(30*time.Minute)))
	assert.False(t, iv.Contains(iv.End))
	assert.False(t, iv.Contains(iv.Start.Add(-time.Nanosecond)))
}

func TestDuration(t *testing.T) {
	iv := mustInterval(t, "2024-06-01T10:00:00Z", "2024-06-01T10:45:00Z")
	assert.Equal(t, 45*time.Minute, iv.Duration())
}
