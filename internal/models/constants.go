package models

const (
	// DefaultPageSize количество заявок на страницу списка по умолчанию
	DefaultPageSize = 50

	// MaxPageSize верхняя граница размера страницы
	MaxPageSize = 500

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000

	// RateLimitRequests количество запросов в окне
	RateLimitRequests = 60

	// RateLimitWindow окно ограничения частоты запросов в секундах
	RateLimitWindow = 60

	// CustomIDFormat формат человекочитаемого номера заявки
	CustomIDFormat = "REQ-%06d"
)
