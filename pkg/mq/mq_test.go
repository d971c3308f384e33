package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"FoodTok.com/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeKind(t *testing.T) {
	cases := []struct {
		before, after string
		want          ChangeKind
	}{
		{"", `{"id":"v"}`, ChangeCreate},
		{"null", `{"id":"v"}`, ChangeCreate},
		{`{"id":"v"}`, `{"id":"v"}`, ChangeUpdate},
		{`{"id":"v"}`, "", ChangeDelete},
		{`{"id":"v"}`, " null ", ChangeDelete},
		{"", "", ChangeMalformed},
		{"null", "null", ChangeMalformed},
	}
	for _, c := range cases {
		e := &ChangeEvent{Before: json.RawMessage(c.before), After: json.RawMessage(c.after)}
		assert.Equal(t, c.want, e.Kind(), "before=%q after=%q", c.before, c.after)
	}
}

func TestNewChangeEvent(t *testing.T) {
	e, err := NewChangeEvent("e1", "videos/v1", nil, map[string]string{"id": "v1"})
	require.NoError(t, err)
	assert.Equal(t, ChangeCreate, e.Kind())
	assert.False(t, e.Timestamp.IsZero())
}

type handlerFunc func(ctx context.Context, e *ChangeEvent) error

func (f handlerFunc) HandleChangeEvent(ctx context.Context, e *ChangeEvent) error { return f(ctx, e) }

type recordingPublisher struct {
	events []*ChangeEvent
	err    error
}

func (p *recordingPublisher) PublishChangeEvent(_ context.Context, e *ChangeEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func body(t *testing.T, attempt int) []byte {
	b, err := json.Marshal(&ChangeEvent{EventID: "e1", Path: "videos/v1", After: json.RawMessage(`{}`), Attempt: attempt})
	require.NoError(t, err)
	return b
}

func TestProcess(t *testing.T) {
	ctx := context.Background()
	ok := handlerFunc(func(context.Context, *ChangeEvent) error { return nil })
	failing := handlerFunc(func(context.Context, *ChangeEvent) error { return errors.New("transient") })

	pub := &recordingPublisher{}
	assert.Equal(t, actionAck, process(ctx, body(t, 0), ok, pub))
	assert.Empty(t, pub.events)

	assert.Equal(t, actionDiscard, process(ctx, []byte("not json"), ok, pub))

	assert.Equal(t, actionAck, process(ctx, body(t, 0), failing, pub))
	require.Len(t, pub.events, 1)
	assert.Equal(t, 1, pub.events[0].Attempt)

	// 达到上限后确认并丢弃
	assert.Equal(t, actionAck, process(ctx, body(t, constants.MaxRedeliveries-1), failing, pub))
	assert.Len(t, pub.events, 1)

	broken := &recordingPublisher{err: errors.New("channel closed")}
	assert.Equal(t, actionRequeue, process(ctx, body(t, 0), failing, broken))
}
