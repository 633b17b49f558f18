package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID - заголовок, в котором клиент может передать свой
// идентификатор запроса. Если заголовок пуст, генерируется новый UUID.
const HeaderRequestID = "X-Request-ID"

type contextKey int

const requestIDKey contextKey = iota

// RequestID - middleware присвоения идентификатора запроса
//
// Назначение:
// Каждый запрос получает уникальный request_id, который попадает
// в логи, в заголовок ответа и в envelope всех JSON ответов.
// Позволяет связать жалобу клиента с конкретной записью в логах.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(HeaderRequestID, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID возвращает request_id из context запроса
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
