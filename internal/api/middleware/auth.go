package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
)

// debugUsername и debugPassword для защиты debug endpoints.
// Загружаются из переменных окружения DEBUG_USERNAME и DEBUG_PASSWORD.
// Если не установлены, debug endpoints будут недоступны в production.
var (
	debugUsername = os.Getenv("DEBUG_USERNAME")
	debugPassword = os.Getenv("DEBUG_PASSWORD")
)

// DebugAuth - middleware для защиты debug/pprof endpoints
//
// Назначение:
// Защищает debug endpoints (/debug/pprof/*) от неавторизованного доступа.
// Использует HTTP Basic Authentication для простоты.
//
// Конфигурация:
// - DEBUG_USERNAME: имя пользователя для доступа к debug endpoints
// - DEBUG_PASSWORD: пароль для доступа к debug endpoints
// - Если переменные не установлены, доступ запрещен (403)
//
// Безопасность:
// - Использует constant-time сравнение для предотвращения timing attacks
// - В production ОБЯЗАТЕЛЬНО установить DEBUG_USERNAME и DEBUG_PASSWORD
//
// Использование:
//
//	debug := router.PathPrefix("/debug").Subrouter()
//	debug.Use(middleware.DebugAuth)
func DebugAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Если credentials не настроены, запрещаем доступ в production
		if debugUsername == "" || debugPassword == "" {
			// В development (если явно не настроено) разрешаем доступ
			if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Debug endpoints disabled. Set DEBUG_USERNAME and DEBUG_PASSWORD.", http.StatusForbidden)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// Constant-time сравнение для предотвращения timing attacks
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(debugUsername)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(debugPassword)) == 1

		if !userMatch || !passMatch {
			w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
