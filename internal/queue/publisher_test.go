package queue

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDialTimeout(t *testing.T) {
	assert.Equal(t, defaultDialTimeout, dialTimeout(context.Background()))

	long, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	assert.Equal(t, defaultDialTimeout, dialTimeout(long))

	short, cancel2 := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel2()
	d := dialTimeout(short)
	assert.LessOrEqual(t, d, 300*time.Millisecond)
	assert.Greater(t, d, time.Duration(0))

	expired, cancel3 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel3()
	assert.Equal(t, time.Millisecond, dialTimeout(expired))
}

// A broker that accepts TCP but never speaks AMQP must not hold the caller
// past its deadline.
func TestPublishGivesUpOnSilentBroker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	p := NewPublisher("amqp://guest:guest@"+ln.Addr().String()+"/", zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = p.PublishBookingEvent(ctx, BookingEvent{Type: BookingCreated, BookingID: "b1"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}
