package domain

import (
	"errors"
	"fmt"
	"time"
)

// Базовая таксономия ошибок ядра. Ошибки шлюза и роутера терминальны для
// одного запроса; ошибки планировщика изолируются по задаче и никогда
// не роняют процесс.
var (
	// ErrAuthentication — отсутствует или не совпадает общий секрет/учётка.
	ErrAuthentication = errors.New("ошибка аутентификации")
	// ErrValidation — событие не прошло структурную проверку.
	ErrValidation = errors.New("некорректное событие")
	// ErrPermissionDenied — тариф или права пользователя недостаточны.
	ErrPermissionDenied = errors.New("доступ запрещён")
	// ErrRenderFailed — не удалось построить отчёт по основному шаблону.
	ErrRenderFailed = errors.New("ошибка построения отчёта")
	// ErrDeliveryFailed — транспорт не принял сообщение.
	ErrDeliveryFailed = errors.New("ошибка доставки сообщения")
)

// RateLimitError сообщает об отказе в допуске с подсказкой, когда повторить.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("превышен лимит запросов, повторите через %d сек", int(e.RetryAfter.Seconds())+1)
}
