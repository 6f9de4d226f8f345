package inmemory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/next-trace/scg-mediator/adapters/inmemory"
	cbus "github.com/next-trace/scg-mediator/contract/bus"
	berr "github.com/next-trace/scg-mediator/contract/errors"
)

type integ struct {
	T string `json:"t"`
}

func (i integ) Topic() string { return i.T }

type unserializable struct{ C chan int }

func (unserializable) Topic() string { return "bad" }

func TestInmemory_PublishRecordings(t *testing.T) {
	p := inmemory.New()

	if err := p.PublishIntegration(t.Context(), integ{T: "topic"}, cbus.PublishOptions{Key: "k"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if err := p.PublishIntegration(t.Context(), integ{T: "topic"}, cbus.PublishOptions{TopicOverride: "other"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msgs := p.Messages()
	if len(msgs) != 2 {
		t.Fatalf("want 2 messages, got %d", len(msgs))
	}

	if msgs[0].Topic != "topic" || msgs[0].Key != "k" || msgs[0].Headers["key"] != "k" {
		t.Fatalf("first: %+v", msgs[0])
	}

	if msgs[1].Topic != "other" || string(msgs[1].Body) != `{"t":"topic"}` {
		t.Fatalf("second: topic=%s body=%s", msgs[1].Topic, msgs[1].Body)
	}

	msgs[0].Topic = "changed"
	if p.Messages()[0].Topic != "topic" {
		t.Fatal("Messages must return a copy")
	}
}

func TestInmemory_FailuresAndReset(t *testing.T) {
	p := inmemory.New()
	cause := errors.New("broker down")

	p.FailWith(cause)

	err := p.PublishIntegration(t.Context(), integ{T: "x"}, cbus.PublishOptions{})
	if !errors.Is(err, berr.ErrPublishFailed) || !errors.Is(err, cause) {
		t.Fatalf("want wrapped failure, got %v", err)
	}

	if err := p.PublishIntegration(t.Context(), unserializable{}, cbus.PublishOptions{}); !errors.Is(err, berr.ErrSerializationFailed) {
		t.Fatalf("want ErrSerializationFailed, got %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if err := p.PublishIntegration(ctx, integ{T: "x"}, cbus.PublishOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}

	p.Reset()

	if err := p.PublishIntegration(t.Context(), integ{T: "x"}, cbus.PublishOptions{}); err != nil {
		t.Fatalf("publish after reset: %v", err)
	}

	if n := len(p.Messages()); n != 1 {
		t.Fatalf("want 1 message after reset, got %d", n)
	}
}

func TestInmemory_ConcurrentPublish(t *testing.T) {
	p := inmemory.New()

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			_ = p.PublishIntegration(t.Context(), integ{T: "c"}, cbus.PublishOptions{})
		})
	}

	wg.Wait()

	if n := len(p.Messages()); n != 50 {
		t.Fatalf("want 50 messages, got %d", n)
	}
}
