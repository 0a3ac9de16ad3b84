package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewClientRequiresAddr(t *testing.T) {
	_, err := NewClient(context.Background(), Options{Addr: "  "})
	assert.EqualError(t, err, "redis: addr is empty")
}

func TestNewClientUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := NewClient(ctx, Options{Addr: "127.0.0.1:1"})
	assert.Nil(t, client)
	assert.ErrorContains(t, err, "redis: ping 127.0.0.1:1")
}
