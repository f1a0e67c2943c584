package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/resilience"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

// fakeReader serves msgs in order, then blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	closed    int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "artifacts.rebuilt", "test-group")
	require.NoError(t, p.Publish(context.Background(), Event{Key: "ontology.json", Value: map[string]string{"kind": "ontology"}}))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "ontology.json", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"kind":"ontology"}`, string(w.msgs[0].Value))
	assert.Equal(t, "content-type", w.msgs[0].Headers[0].Key)
	assert.Equal(t, "artifacts.rebuilt", p.Topic())

	w.err = errors.New("broker down")
	assert.ErrorContains(t, p.Publish(context.Background(), Event{Key: "k", Value: 1}), "broker down")
	assert.Error(t, p.Publish(context.Background(), Event{Key: "k", Value: func() {}}))
}

func TestConsumerRetriesThenSkips(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{{Offset: 1, Value: []byte("bad")}, {Offset: 2, Value: []byte("good")}}}
	var mu sync.Mutex
	attempts := map[string]int{}
	c := newConsumer(r, "t", func(_ context.Context, _ []byte, value []byte) error {
		mu.Lock()
		defer mu.Unlock()
		attempts[string(value)]++
		if string(value) == "bad" {
			return errors.New("cannot apply")
		}
		return nil
	})
	c.retry = resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return len(r.commits()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{1, 2}, r.commits())
	mu.Lock()
	assert.Equal(t, 2, attempts["bad"])
	assert.Equal(t, 1, attempts["good"])
	mu.Unlock()

	require.NoError(t, c.Close())
	assert.Equal(t, 1, r.closed)
}

func TestConsumerPermanentFailureIsNotRetried(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{{Offset: 7}}}
	calls := 0
	c := newConsumer(r, "t", func(context.Context, []byte, []byte) error {
		calls++
		return resilience.Permanent(errors.New("garbage"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	require.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 1, calls)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Key string `json:"key"`
	}
	v, err := DecodeJSON[payload]([]byte(`{"key":"ontology.json"}`))
	require.NoError(t, err)
	assert.Equal(t, "ontology.json", v.Key)

	_, err = DecodeJSON[payload]([]byte(`{`))
	assert.Error(t, err)
}
