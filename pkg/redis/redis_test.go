package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, NewRedisConfig().Validate())
	assert.Error(t, NewRedisConfig().WithHost("").Validate())
	assert.Error(t, NewRedisConfig().WithPort(0).Validate())
	assert.Error(t, NewRedisConfig().WithDatabase(16).Validate())
	assert.Equal(t, "cache:6380", NewRedisConfig().WithHost("cache").WithPort(6380).Addr())
}

func TestConfig_Options(t *testing.T) {
	config := NewRedisConfig().WithDatabase(2).WithPassword("secret")
	config.ClientName = "weather-inference"

	opts := config.options()
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, "weather-inference", opts.ClientName)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 20, opts.MaxActiveConns)
}

func TestClient_CheckUnreachable(t *testing.T) {
	client, err := NewClient(NewRedisConfig().WithHost("127.0.0.1").WithPort(1))
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	check := client.Check(t.Context(), 500*time.Millisecond)
	assert.False(t, check.Healthy)
	assert.Equal(t, "127.0.0.1:1", check.Address)
	assert.NotEmpty(t, check.Error)
}

func TestNewClient_RejectsInvalidConfig(t *testing.T) {
	_, err := NewClient(NewRedisConfig().WithPort(70000))
	assert.Error(t, err)

	client, err := NewClient(nil)
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", client.GetConfig().Addr())
	_ = client.Close()
}

func TestLock_KeyAndToken(t *testing.T) {
	client, err := NewClient(nil)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	opts := NewLockOptions().WithLockNamespace("prediction")
	first := NewLock(client, "historical", opts)
	second := NewLock(client, "historical", opts)

	assert.Equal(t, "prediction::historical", first.Key())
	assert.NotEqual(t, first.value, second.value)
	assert.Equal(t, "historical", NewLock(client, "historical", nil).Key())
}

func TestEvaluateWindow(t *testing.T) {
	for hit := int64(1); hit <= 5; hit++ {
		result := evaluateWindow(5, hit, 30000)
		assert.True(t, result.Allowed, "hit %d", hit)
		assert.Equal(t, int(5-hit), result.Remaining)
	}

	denied := evaluateWindow(5, 6, 1500)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 0, denied.Remaining)
	assert.Equal(t, 1500*time.Millisecond, denied.ResetAfter)
}

func TestFixedWindowLimiter_DisabledAllowsEverything(t *testing.T) {
	limiter := NewFixedWindowLimiter(nil, "sample", 0, time.Minute)
	result, err := limiter.Allow(t.Context(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, "sample::ratelimit::10.0.0.1", limiter.windowKey("10.0.0.1"))
}

func TestNewScheduledTaskLock_Defaults(t *testing.T) {
	lock := NewScheduledTaskLock(nil, "prediction", 0)
	assert.Equal(t, 5*time.Minute, lock.opts.TTL)
	assert.Equal(t, 100*time.Second, lock.opts.RefreshInterval)
	assert.Equal(t, "prediction", lock.opts.LockNamespace)
}
