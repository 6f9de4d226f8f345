package kafka_test

import (
	"context"
	"errors"
	"testing"

	"github.com/next-trace/scg-mediator/adapters/kafka"
	cbus "github.com/next-trace/scg-mediator/contract/bus"
	berr "github.com/next-trace/scg-mediator/contract/errors"
)

type record struct {
	topic   string
	key     []byte
	value   []byte
	headers map[string]string
}

type fakeWriter struct {
	calls []record
	err   error
}

func (f *fakeWriter) Write(_ context.Context, topic string, key, value []byte, headers map[string]string) error {
	f.calls = append(f.calls, record{topic, key, value, headers})
	return f.err
}

type ev struct{ Name string }

func (ev) Topic() string { return "evt.orders" }

type ev2WithTopic struct{ X int }

func (e ev2WithTopic) Topic() string { return "evt.ev2" }

func TestKafka_PublishIntegration(t *testing.T) {
	fw := &fakeWriter{}
	ad := kafka.New(fw)

	po := cbus.PublishOptions{TopicOverride: "evt.override", Key: "key1", Headers: map[string]string{"ph": "pv"}}
	if err := ad.PublishIntegration(t.Context(), ev{Name: "E"}, po); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(fw.calls) != 1 {
		t.Fatalf("want 1, got %d", len(fw.calls))
	}

	p := fw.calls[0]
	if p.topic != "evt.override" {
		t.Fatalf("topic: %s", p.topic)
	}

	if string(p.key) != "key1" {
		t.Fatalf("key: %s", string(p.key))
	}

	if p.headers["ph"] != "pv" || p.headers["content-type"] != "application/json" {
		t.Fatalf("pub headers: %+v", p.headers)
	}

	if string(p.value) != `{"Name":"E"}` {
		t.Fatalf("value: %s", p.value)
	}
}

func TestKafka_Publish_DefaultTopic_WithPointerEvent(t *testing.T) {
	fw := &fakeWriter{}
	ad := kafka.New(fw)

	if err := ad.PublishIntegration(t.Context(), &ev2WithTopic{X: 2}, cbus.PublishOptions{}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(fw.calls) != 1 || fw.calls[0].topic != "evt.ev2" {
		t.Fatalf("calls: %+v", fw.calls)
	}

	if fw.calls[0].key != nil {
		t.Fatalf("unkeyed record got key %q", fw.calls[0].key)
	}
}

func TestKafka_Errors(t *testing.T) {
	if err := kafka.New(nil).PublishIntegration(t.Context(), ev{Name: "E"}, cbus.PublishOptions{}); !errors.Is(err, berr.ErrPublishFailed) {
		t.Fatalf("nil writer: got %v", err)
	}

	boom := errors.New("leader not available")

	err := kafka.New(&fakeWriter{err: boom}).PublishIntegration(t.Context(), ev{}, cbus.PublishOptions{})
	if !errors.Is(err, berr.ErrPublishFailed) || !errors.Is(err, boom) {
		t.Fatalf("want wrapped write error, got %v", err)
	}

	err = kafka.New(&fakeWriter{err: context.DeadlineExceeded}).PublishIntegration(t.Context(), ev{}, cbus.PublishOptions{})
	if !errors.Is(err, context.DeadlineExceeded) || errors.Is(err, berr.ErrPublishFailed) {
		t.Fatalf("want bare context error, got %v", err)
	}
}
