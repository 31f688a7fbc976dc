package store

import (
	"context"
	"errors"
)

type Store interface {
	CounterStore
	Init(ctx context.Context) error
	Close(ctx context.Context) error
}

// Common errors
var (
	ErrInternal        = errors.New("internal error")
	ErrCounterNotFound = errors.New("counter not found")
)
