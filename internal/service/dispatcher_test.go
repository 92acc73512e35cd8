package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edupay-dashboard/pkg/jobs"
)

func TestInlineDispatcherRunsImmediately(t *testing.T) {
	ran := false
	require.NoError(t, InlineDispatcher{}.Dispatch(fetchJobType, func() { ran = true }))
	assert.True(t, ran)
}

func TestQueueDispatcherRunsTasks(t *testing.T) {
	d := NewQueueDispatcher(jobs.QueueConfig{Workers: 2, BufferSize: 4})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	defer d.Stop()

	var count int32
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Dispatch(fetchJobType, func() { atomic.AddInt32(&count, 1) }))
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&count) == 3 }, time.Second, 5*time.Millisecond)
}
