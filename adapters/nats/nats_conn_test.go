package nats_test

import (
	"errors"
	"testing"

	"github.com/next-trace/scg-mediator/adapters/nats"
	berr "github.com/next-trace/scg-mediator/contract/errors"
)

func TestNewWithNATS_EmptyURL(t *testing.T) {
	_, _, err := nats.NewWithNATS(nats.Config{})
	if err == nil {
		t.Fatalf("expected error")
	}

	if !errors.Is(err, berr.ErrInvalidConfig) {
		t.Fatalf("want ErrInvalidConfig, got %v", err)
	}
}

func TestNewWithNATS_Unreachable(t *testing.T) {
	_, _, err := nats.NewWithNATS(nats.Config{URL: "nats://127.0.0.1:1", MaxReconnects: -1})
	if !errors.Is(err, berr.ErrPublishFailed) {
		t.Fatalf("want ErrPublishFailed, got %v", err)
	}
}
