// http реализует REST-слой auth-сервиса.
// Здесь выполняется только декодирование запросов и маппинг данных/ошибок
// доменного слоя; вся валидация и бизнес-логика — в пакете service.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/dobro-platform/auth-service/internal/service"
)

// Handlers агрегирует зависимости REST-эндпоинтов.
type Handlers struct {
	service *service.Service
}

func NewHandlers(s *service.Service) *Handlers {
	return &Handlers{service: s}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
