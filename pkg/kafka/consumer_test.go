package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback_service/pkg/logger"
)

// fakeReader serves queued messages and cancels the run once drained.
type fakeReader struct {
	msgs      []kafka.Message
	fetchErrs []error
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		return kafka.Message{}, err
	}
	if len(r.msgs) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type payload struct {
	Name string `json:"name"`
}

func TestConsumerRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		msgs: []kafka.Message{
			{Offset: 1, Value: []byte(`{"name":"ok"}`)},
			{Offset: 2, Value: []byte(`not json`)},
			{Offset: 3, Value: []byte(`{"name":"fail"}`)},
			{Offset: 4, Value: []byte(`{"name":"ok"}`)},
		},
		fetchErrs: []error{errors.New("broker hiccup")},
		cancel:    cancel,
	}
	c := &Consumer{reader: reader, logger: logger.NewNop()}

	var seen []string
	err := c.Run(ctx, DecodeJSON(func(_ context.Context, p payload) error {
		seen = append(seen, p.Name)
		if p.Name == "fail" {
			return errors.New("handler failed")
		}
		return nil
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"ok", "fail", "ok"}, seen)
	assert.Equal(t, []int64{1, 4}, reader.committed)
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(Config{})
	assert.Error(t, err)

	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}
