package redisclient

import (
	"context"
	"testing"
	"time"

	"pharmacy-ops/internal/service"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "session:abc", sessionKey("abc"))
}

func TestCreateSkipsExpiredSession(t *testing.T) {
	// an unreachable address: Create must return before touching the network
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	defer rdb.Close()
	sessions := (&Client{rdb: rdb}).Sessions()

	err := sessions.Create(context.Background(), &service.Session{
		Token:     "expired",
		Username:  "alice",
		ExpiresAt: time.Now().Add(-time.Minute),
	})

	require.NoError(t, err)
}

func TestGetReportsConnectionErrors(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	sessions := (&Client{rdb: rdb}).Sessions()

	_, err := sessions.Get(context.Background(), "token")

	assert.Error(t, err)
}
