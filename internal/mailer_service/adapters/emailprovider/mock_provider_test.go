package emailprovider

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(failRate float64, seed int64) *MockProvider {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMockProvider(logger, "test", failRate, 0, 0, rand.New(rand.NewSource(seed)))
}

func TestMockProvider_ZeroFailRateDeliversAll(t *testing.T) {
	provider := newTestProvider(0, 1)

	result, err := provider.Send(context.Background(), Request{
		PostID:     "post-1",
		Recipients: []string{"a@example.com", "b@example.com", "c@example.com"},
		Subject:    "s",
		Content:    "c",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Delivered)
	assert.Empty(t, result.Failures)
	assert.NotEmpty(t, result.MessageID)
}

func TestMockProvider_FullFailRateFailsAll(t *testing.T) {
	provider := newTestProvider(1.0, 1)

	result, err := provider.Send(context.Background(), Request{
		PostID:     "post-1",
		Recipients: []string{"a@example.com", "b@example.com"},
		Subject:    "s",
		Content:    "c",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 0, result.Delivered)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, "simulated bounce", result.Failures[0].Reason)
}

func TestMockProvider_SuccessRequiresZeroFailures(t *testing.T) {
	// with a 50% rate and a fixed seed, some recipients bounce; the overall
	// result must report failure whenever at least one did
	provider := newTestProvider(0.5, 42)

	recipients := make([]string, 20)
	for i := range recipients {
		recipients[i] = "user@example.com"
	}

	result, err := provider.Send(context.Background(), Request{
		PostID:     "post-1",
		Recipients: recipients,
		Subject:    "s",
		Content:    "c",
	})
	require.NoError(t, err)
	assert.Equal(t, len(recipients), result.Delivered+len(result.Failures))
	assert.Equal(t, len(result.Failures) == 0, result.Success)
	assert.False(t, result.Success, "a 50% bounce rate over 20 sends is effectively certain to fail at least once")
}

func TestMockProvider_DefaultsNameWhenEmpty(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := NewMockProvider(logger, "", 0, 0, 0, nil)
	assert.Equal(t, "mock-mailer", provider.Name())
}
