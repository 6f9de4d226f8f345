// Package inmemory provides a recording integration publisher for tests and examples.
package inmemory
