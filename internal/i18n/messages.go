package i18n

var catalogue = map[string]map[string]string{
	LocaleRU: {
		"error.bad_request":                "Некорректный запрос",
		"error.not_found":                  "Не найдено",
		"error.internal":                   "Внутренняя ошибка сервера",
		"error.rate_limited":               "Слишком много запросов, повторите через %d сек.",
		"error.rate_limit_unavailable":     "Сервис ограничения запросов недоступен",
		"error.resource_unknown":           "Неизвестный ресурс",
		"error.action_unknown":             "Неизвестное действие",
		"error.id_invalid":                 "Некорректный идентификатор",
		"error.order_not_found":            "Заказ не найден",
		"error.order_number_exists":        "Заказ с таким номером уже существует",
		"error.order_number_required":      "Номер заказа обязателен",
		"error.stage_not_found":            "Этап не найден",
		"error.stage_transition_invalid":   "Недопустимый переход статуса этапа",
		"error.validation":                 "Ошибка проверки данных",
		"error.reference_blocked":          "Удаление невозможно: запись используется",
		"error.driver_not_found":           "Водитель не найден",
		"error.vehicle_not_found":          "Транспорт не найден",
		"error.client_not_found":           "Перевозчик не найден",
		"error.customer_not_found":         "Заказчик не найден",
		"error.customer_address_not_found": "Адрес не найден",
		"error.user_not_found":             "Пользователь не найден",
		"error.username_exists":            "Пользователь с таким логином уже существует",
		"error.role_not_found":             "Роль не найдена",
		"error.role_exists":                "Роль с таким названием уже существует",
		"error.document_not_found":         "Документ не найден",
		"error.notification_event_invalid": "Неизвестный тип уведомления",
		"error.telegram_not_configured":    "Telegram bot is not configured",
		"error.telegram_send_failed":       "Не удалось отправить сообщение в Telegram",
		"error.settings_invalid":           "Некорректные настройки",
		"error.password_min_length":        "Пароль должен содержать не менее %d символов",
		"error.password_require_letter":    "Пароль должен содержать букву",
		"error.password_require_number":    "Пароль должен содержать цифру",
	},
	LocaleEN: {
		"error.bad_request":                "Bad request",
		"error.not_found":                  "Not found",
		"error.internal":                   "Internal server error",
		"error.rate_limited":               "Too many requests, retry in %d seconds",
		"error.rate_limit_unavailable":     "Rate limiter unavailable",
		"error.resource_unknown":           "Unknown resource",
		"error.action_unknown":             "Unknown action",
		"error.id_invalid":                 "Invalid id",
		"error.order_not_found":            "Order not found",
		"error.order_number_exists":        "Order number already exists",
		"error.order_number_required":      "Order number is required",
		"error.stage_not_found":            "Stage not found",
		"error.stage_transition_invalid":   "Invalid stage status transition",
		"error.validation":                 "Validation failed",
		"error.reference_blocked":          "Cannot delete: record is referenced",
		"error.driver_not_found":           "Driver not found",
		"error.vehicle_not_found":          "Vehicle not found",
		"error.client_not_found":           "Carrier not found",
		"error.customer_not_found":         "Customer not found",
		"error.customer_address_not_found": "Address not found",
		"error.user_not_found":             "User not found",
		"error.username_exists":            "Username already exists",
		"error.role_not_found":             "Role not found",
		"error.role_exists":                "Role already exists",
		"error.document_not_found":         "Document not found",
		"error.notification_event_invalid": "Unknown notification event",
		"error.telegram_not_configured":    "Telegram bot is not configured",
		"error.telegram_send_failed":       "Telegram delivery failed",
		"error.settings_invalid":           "Invalid settings",
		"error.password_min_length":        "Password must be at least %d characters",
		"error.password_require_letter":    "Password must contain a letter",
		"error.password_require_number":    "Password must contain a digit",
	},
}
