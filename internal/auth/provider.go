// Package auth abstracts credential acquisition for the model endpoints.
package auth

import (
	"context"
	"errors"

	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/contextutil"
)

// ErrAuthFailure is returned when no usable credential can be produced.
var ErrAuthFailure = errors.New("auth failure")

// DummyKey is the placeholder credential used by WithDummyFallback.
const DummyKey = "__dummy"

// TokenProvider produces the bearer credential sent with each model request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenProviderFunc adapts a function to TokenProvider.
type TokenProviderFunc func(ctx context.Context) (string, error)

// Token calls f(ctx).
func (f TokenProviderFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Static returns a provider that always yields key. An empty key fails with ErrAuthFailure.
func Static(key string) TokenProvider {
	return TokenProviderFunc(func(context.Context) (string, error) {
		if key == "" {
			return "", ErrAuthFailure
		}
		return key, nil
	})
}

// WithDummyFallback wraps p so that a failure degrades to DummyKey instead of an error.
// Only local, unauthenticated endpoints accept the dummy key; every degradation is logged.
func WithDummyFallback(p TokenProvider) TokenProvider {
	return TokenProviderFunc(func(ctx context.Context) (string, error) {
		token, err := p.Token(ctx)
		if err == nil {
			return token, nil
		}
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "credential unavailable, using dummy key",
			"error", err,
		)
		return DummyKey, nil
	})
}
