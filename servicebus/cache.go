package servicebus

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// pipelineCache memoizes one pipeline per request type.
// A type is built at most once at a time; concurrent callers wait for that build.
// Failed builds are not memoized so a later call can succeed after registration.
type pipelineCache struct {
	entries sync.Map // reflect.Type -> *cacheEntry
}

type cacheEntry struct {
	ready chan struct{}
	p     *pipeline
	err   error
}

func (c *pipelineCache) getOrBuild(
	ctx context.Context,
	t reflect.Type,
	build func() (*pipeline, error),
) (*pipeline, error) {
	if v, ok := c.entries.Load(t); ok {
		return v.(*cacheEntry).wait(ctx)
	}

	e := &cacheEntry{ready: make(chan struct{})}
	if v, loaded := c.entries.LoadOrStore(t, e); loaded {
		return v.(*cacheEntry).wait(ctx)
	}

	defer func() {
		if r := recover(); r != nil {
			e.err = fmt.Errorf("build pipeline %s: panic: %v", t, r)
			c.entries.CompareAndDelete(t, e)
			close(e.ready)
			panic(r)
		}
	}()

	e.p, e.err = build()
	if e.err != nil {
		c.entries.CompareAndDelete(t, e)
	}

	close(e.ready)

	return e.p, e.err
}

// len reports the number of cached or in-flight pipelines.
func (c *pipelineCache) len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})

	return n
}

func (e *cacheEntry) wait(ctx context.Context) (*pipeline, error) {
	select {
	case <-e.ready:
		return e.p, e.err
	default:
	}

	select {
	case <-e.ready:
		return e.p, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
