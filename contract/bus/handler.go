package bus

import "context"

// RequestHandler handles requests of type Req and returns a result of type Res.
// Implementations must be safe for concurrent use by multiple goroutines.
type RequestHandler[Req Request, Res any] interface {
	Handle(ctx context.Context, r Req) (Res, error)
}

// CommandHandler handles void requests of type C.
// Implementations must be safe for concurrent use by multiple goroutines.
type CommandHandler[C Command] interface {
	Handle(ctx context.Context, c C) error
}

// RequestHandlerFunc adapts a function to RequestHandler.
type RequestHandlerFunc[Req Request, Res any] func(ctx context.Context, r Req) (Res, error)

func (f RequestHandlerFunc[Req, Res]) Handle(ctx context.Context, r Req) (Res, error) { return f(ctx, r) }

// CommandHandlerFunc adapts a function to CommandHandler.
type CommandHandlerFunc[C Command] func(ctx context.Context, c C) error

func (f CommandHandlerFunc[C]) Handle(ctx context.Context, c C) error { return f(ctx, c) }
