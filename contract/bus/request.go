package bus

import "fmt"

// Request is a marker for messages dispatched to exactly one handler.
// A request is identified by its concrete runtime type.
type Request interface{}

// Command is a request that changes state. Commands are usually void.
type Command = Request

// Query is a request that reads state and produces a result.
type Query = Request

// Shape distinguishes result-bearing requests from void requests.
// Middleware is registered per shape.
type Shape uint8

const (
	// ShapeResult marks requests whose handler returns a value.
	ShapeResult Shape = iota + 1
	// ShapeVoid marks requests whose handler returns only an error.
	ShapeVoid
)

func (s Shape) String() string {
	switch s {
	case ShapeResult:
		return "result"
	case ShapeVoid:
		return "void"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}
