package domain

import "errors"

var (
	// ErrNotFound возвращается репозиториями, если запись отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrCacheMiss — ключа нет в кэше или срок его жизни истёк.
	ErrCacheMiss = errors.New("cache miss")
	// ErrInvalidRange — конец диапазона раньше начала.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrUnknownColor — код цвета облачения отсутствует в таблице соответствий.
	ErrUnknownColor = errors.New("unknown vestment color code")
	// ErrInvalidLocalTime — некорректные поля локального времени.
	ErrInvalidLocalTime = errors.New("invalid local time")
	// ErrInvalidTimeOfDay — время в шаблоне не в формате HH:mm.
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
	// ErrUpstream — внешний календарь вернул ошибку или некорректный ответ.
	ErrUpstream = errors.New("calendar provider failure")
	// ErrConflict — запись с таким ключом уже существует.
	ErrConflict = errors.New("conflict")
)
