package mqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"interop-dashboard/internal/model"
)

type doneToken struct {
	err  error
	done chan struct{}
}

func newToken(err error, completed bool) *doneToken {
	t := &doneToken{err: err, done: make(chan struct{})}
	if completed {
		close(t.done)
	}
	return t
}

func (t *doneToken) Wait() bool                     { <-t.done; return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{}          { return t.done }
func (t *doneToken) Error() error                   { return t.err }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return QoS }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// fakeClient overrides the calls under test; anything else panics on the nil embed.
type fakeClient struct {
	mqtt.Client
	handler   mqtt.MessageHandler
	subErr    error
	pubToken  *doneToken
	published []fakeMessage
	retained  bool
}

func (f *fakeClient) Subscribe(topic string, qos byte, cb mqtt.MessageHandler) mqtt.Token {
	f.handler = cb
	return newToken(f.subErr, true)
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.published = append(f.published, fakeMessage{topic: topic, payload: payload.([]byte)})
	f.retained = retained
	return f.pubToken
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTopicToSite(t *testing.T) {
	cases := []struct {
		topic string
		site  string
		ok    bool
	}{
		{"interop/lab1/snapshot", "lab1", true},
		{"interop//snapshot", "", false},
		{"interop/lab1/atuador", "", false},
		{"machine/lab1/snapshot", "", false},
		{"interop/lab1/snapshot/extra", "", false},
	}
	for _, tc := range cases {
		site, ok := TopicToSite(tc.topic)
		if site != tc.site || ok != tc.ok {
			t.Fatalf("TopicToSite(%q) = %q, %v; want %q, %v", tc.topic, site, ok, tc.site, tc.ok)
		}
	}
}

func TestSubscribeForwardsSnapshotsForSite(t *testing.T) {
	fc := &fakeClient{}
	var got []model.Snapshot
	if err := Subscribe(fc, "lab1", quietLogger(), func(s model.Snapshot) { got = append(got, s) }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	fc.handler(fc, fakeMessage{topic: "interop/lab1/snapshot", payload: []byte(`{"sensor":{"entrada":4,"saida":1}}`)})
	fc.handler(fc, fakeMessage{topic: "interop/lab2/snapshot", payload: []byte(`{"sensor":{"entrada":9}}`)})
	fc.handler(fc, fakeMessage{topic: "interop/lab1/snapshot", payload: []byte(`not json`)})
	fc.handler(fc, fakeMessage{topic: "bogus", payload: []byte(`{}`)})

	if len(got) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(got))
	}
	if v := model.Normalize(got[0]); v.PeopleCount != 3 {
		t.Fatalf("unexpected view %+v", v)
	}
}

func TestSubscribeError(t *testing.T) {
	fc := &fakeClient{subErr: errors.New("not authorized")}
	if err := Subscribe(fc, "", quietLogger(), func(model.Snapshot) {}); err == nil {
		t.Fatalf("expected subscribe error")
	}
}

func TestPublisherSetActuator(t *testing.T) {
	fc := &fakeClient{pubToken: newToken(nil, true)}
	p, err := NewPublisher(fc, "lab1")
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	if err := p.SetActuator(context.Background(), true); err != nil {
		t.Fatalf("SetActuator: %v", err)
	}
	if len(fc.published) != 1 || fc.published[0].topic != "interop/lab1/atuador" || !fc.retained {
		t.Fatalf("unexpected publish %+v retained=%v", fc.published, fc.retained)
	}
	if string(fc.published[0].payload) != `{"estado":true}` {
		t.Fatalf("unexpected payload %s", fc.published[0].payload)
	}
}

func TestPublisherErrors(t *testing.T) {
	if _, err := NewPublisher(&fakeClient{}, ""); err == nil {
		t.Fatalf("expected error for empty site")
	}

	fc := &fakeClient{pubToken: newToken(errors.New("connection lost"), true)}
	p, _ := NewPublisher(fc, "lab1")
	if err := p.SetActuator(context.Background(), false); err == nil {
		t.Fatalf("expected publish error")
	}

	fc.pubToken = newToken(nil, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.SetActuator(ctx, false); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
