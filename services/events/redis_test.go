package eventsvc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	logsvc "github.com/trezcool/elimu/services/logger"
)

type fakeRedis struct {
	mu       sync.Mutex
	messages map[string][][]byte
	block    chan struct{}
	err      error
	closed   bool
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	if f.block != nil {
		<-f.block
	}
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.mu.Lock()
	if f.messages == nil {
		f.messages = make(map[string][][]byte)
	}
	f.messages[channel] = append(f.messages[channel], message.([]byte))
	f.mu.Unlock()
	cmd.SetVal(1)
	return cmd
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func testLogger() core.Logger {
	return logsvc.NewRollbarLogger(zap.NewNop().Sugar(), core.NewTestConfig())
}

func TestRedisPublisher_Publish(t *testing.T) {
	client := &fakeRedis{}
	pub := newRedisPublisher(client, "elimu.progress", testLogger())

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	kinds := []course.EventKind{course.EventLectureCompleted, course.EventQuizSubmitted, course.EventCertificateIssued}
	for _, kind := range kinds {
		require.NoError(t, pub.Publish(context.Background(), course.Event{Kind: kind, LearnerID: "l1", CourseID: "c1", OccurredAt: at}))
	}
	require.NoError(t, pub.Close())
	assert.True(t, client.closed)

	msgs := client.messages["elimu.progress"]
	require.Len(t, msgs, len(kinds))
	for i, raw := range msgs {
		var evt course.Event
		require.NoError(t, json.Unmarshal(raw, &evt))
		assert.Equal(t, kinds[i], evt.Kind)
		assert.Equal(t, "l1", evt.LearnerID)
		assert.True(t, at.Equal(evt.OccurredAt))
	}
}

func TestRedisPublisher_DoesNotBlock(t *testing.T) {
	client := &fakeRedis{block: make(chan struct{})}
	pub := newRedisPublisher(client, "ch", testLogger())

	var full bool
	for i := 0; i < queueSize+2; i++ {
		if err := pub.Publish(context.Background(), course.Event{Kind: course.EventQuizSubmitted}); err != nil {
			assert.True(t, errors.Is(err, ErrQueueFull))
			full = true
			break
		}
	}
	assert.True(t, full)

	close(client.block)
	require.NoError(t, pub.Close())
	assert.Error(t, pub.Publish(context.Background(), course.Event{}))
}

func TestRedisPublisher_SendErrorsAreLogged(t *testing.T) {
	client := &fakeRedis{err: errors.New("connection refused")}
	pub := newRedisPublisher(client, "ch", testLogger())

	assert.NoError(t, pub.Publish(context.Background(), course.Event{Kind: course.EventQuizValidated}))
	require.NoError(t, pub.Close())
	assert.Empty(t, client.messages)
}
