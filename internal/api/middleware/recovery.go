package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// Recovery - middleware для восстановления после паники в handlers
//
// Назначение:
// Перехватывает panic в HTTP handlers и предотвращает падение всего сервера.
// Логирует информацию об ошибке и stack trace для отладки.
// Возвращает клиенту корректный HTTP ответ 500 Internal Server Error.
//
// Функции:
// - Перехват panic в любом handler
// - Логирование сообщения об ошибке и полного stack trace
// - Возврат 500 Internal Server Error клиенту
// - Продолжение обработки последующих запросов
//
// Важность:
// Критически важен для стабильности сервера в production.
// Даже если в коде есть необработанная ошибка, сервер продолжит работу.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic in http handler",
						zap.Any("panic", err),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.String("request_id", GetRequestID(r.Context())),
						zap.ByteString("stack", debug.Stack()),
					)

					// Детали паники клиенту не раскрываются
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
