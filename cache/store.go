package cache

import (
	"context"
	"errors"
)

// ErrNoKey is returned when the key function finds no key in the context.
var ErrNoKey = errors.New("key not found")

type KeyFunc func(ctx context.Context) (string, bool)

// Store scopes a Cache to a namespace and derives the key from the context.
type Store[S any] struct {
	core      Cache[S]
	namespace string
	keyFn     KeyFunc
}

func NewStore[S any](core Cache[S], namespace string, keyFn KeyFunc) Store[S] {
	return Store[S]{
		core:      core,
		namespace: namespace,
		keyFn:     keyFn,
	}
}

func (c Store[S]) key(ctx context.Context) (string, error) {
	key, ok := c.keyFn(ctx)
	if !ok || key == "" {
		return "", ErrNoKey
	}
	return c.namespace + ":" + key, nil
}

func (c Store[S]) Set(ctx context.Context, val S) error {
	key, err := c.key(ctx)
	if err != nil {
		return err
	}
	return c.core.Set(ctx, key, val)
}

func (c Store[S]) Get(ctx context.Context) (S, bool, error) {
	key, err := c.key(ctx)
	if err != nil {
		var zero S
		return zero, false, err
	}
	return c.core.Get(ctx, key)
}

func (c Store[S]) Del(ctx context.Context) error {
	key, err := c.key(ctx)
	if err != nil {
		return err
	}
	return c.core.Del(ctx, key)
}
