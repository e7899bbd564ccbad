package models

import "context"

// contextKey - приватный тип для ключей контекста, чтобы избежать коллизий.
type contextKey string

// IdentityContextKey используется как ключ для хранения *Identity в контексте запроса.
const IdentityContextKey contextKey = "identity"

// WithIdentity возвращает контекст с сохраненной личностью.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}

// IdentityFromContext извлекает личность из контекста.
// Для анонимного запроса возвращает nil.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(IdentityContextKey).(*Identity)
	return identity
}
