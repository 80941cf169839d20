package framework

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bitleak/lmstfy/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"opsguard/pkg/lmstfyx"
	"opsguard/pkg/logger"
)

// fakeSource 内存队列
type fakeSource struct {
	mu       sync.Mutex
	items    []*Message
	acked    []string
	released []*Message
	errs     int // 前 n 次 Consume 返回错误
}

func (f *fakeSource) Consume(ctx context.Context, queue string, timeout, _ time.Duration) (*Message, error) {
	f.mu.Lock()
	if f.errs > 0 {
		f.errs--
		f.mu.Unlock()
		return nil, errors.New("connection reset")
	}
	if len(f.items) > 0 {
		msg := f.items[0]
		f.items = f.items[1:]
		f.mu.Unlock()
		msg.Queue = queue
		return msg, nil
	}
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, nil
	}
}

func (f *fakeSource) Ack(_ context.Context, _ string, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, id)
	return nil
}

func (f *fakeSource) Release(_ context.Context, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, msg)
	return nil
}

func (f *fakeSource) snapshot() ([]string, []*Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked...), append([]*Message(nil), f.released...)
}

func testLogger(t *testing.T) logger.Logger {
	return logger.FromZap(zaptest.NewLogger(t))
}

func TestPreProcessorStopsAtFirstError(t *testing.T) {
	var ran []string
	step := func(name string, err error) Step {
		return Step{Name: name, Run: func(context.Context) error {
			ran = append(ran, name)
			return err
		}}
	}
	boom := errors.New("boom")

	err := NewPreProcessor(step("a", nil), step("b", boom), step("c", nil)).Run(context.Background())

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Index)
	assert.Equal(t, "b", stepErr.Step)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, ran)
}

func TestPreProcessorHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewPreProcessor(Step{Name: "a", Run: func(context.Context) error {
		called = true
		return nil
	}}).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestProcessorSettlesByAction(t *testing.T) {
	actions := map[string]lmstfyx.JobRespStatus{
		"ok":     lmstfyx.JobRespStatusSuccess,
		"retry":  lmstfyx.JobRespStatusRelease,
		"broken": lmstfyx.JobRespStatusBury,
		"tired":  lmstfyx.JobRespStatusRelease,
	}
	proc := func(_ context.Context, job *client.Job) *lmstfyx.JobResp {
		return &lmstfyx.JobResp{Action: actions[job.ID]}
	}

	src := &fakeSource{}
	p := NewProcessor(&ProcessorConfig{Concurrency: 1, Timeout: time.Second, MaxAttempts: 3}, proc, src, testLogger(t))

	in := make(chan *Message, 4)
	in <- &Message{ID: "ok", Queue: "events"}
	in <- &Message{ID: "retry", Queue: "events", Attempts: 1}
	in <- &Message{ID: "broken", Queue: "events"}
	in <- &Message{ID: "tired", Queue: "events", Attempts: 2}

	require.NoError(t, p.Start(context.Background(), in))
	p.SignalShutdown()
	p.Wait()

	acked, released := src.snapshot()
	assert.ElementsMatch(t, []string{"ok", "broken", "tired"}, acked)
	require.Len(t, released, 1)
	assert.Equal(t, "retry", released[0].ID)
}

func TestSubscriberForwardsAndSurvivesErrors(t *testing.T) {
	src := &fakeSource{
		errs:  2,
		items: []*Message{{ID: "1"}, {ID: "2"}},
	}
	s := NewSubscriber(&SubscriberConfig{
		QueueName:    "events",
		Concurrency:  1,
		Timeout:      10 * time.Millisecond,
		ErrorBackoff: time.Millisecond,
	}, src, testLogger(t))

	out := make(chan *Message, 2)
	require.NoError(t, s.Start(context.Background(), out))

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case msg := <-out:
			got = append(got, msg.ID)
			assert.Equal(t, "events", msg.Queue)
		case <-time.After(2 * time.Second):
			t.Fatal("subscriber did not forward message")
		}
	}

	s.Stop()
	s.Wait()
	assert.Equal(t, []string{"1", "2"}, got)
}

func TestSubscriberReleasesInFlightMessageOnStop(t *testing.T) {
	src := &fakeSource{items: []*Message{{ID: "1"}}}
	s := NewSubscriber(&SubscriberConfig{
		QueueName:    "events",
		Concurrency:  1,
		Timeout:      10 * time.Millisecond,
		ErrorBackoff: time.Millisecond,
	}, src, testLogger(t))

	// 无缓冲且无人读取，消息只能停留在 Subscriber 手中
	out := make(chan *Message)
	require.NoError(t, s.Start(context.Background(), out))

	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return len(src.items) == 0
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	s.Wait()

	_, released := src.snapshot()
	require.Len(t, released, 1)
	assert.Equal(t, "1", released[0].ID)
}
