package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки предусловий (precondition errors): окно закрыто, неверный
	// статус слота, отправитель не участник. Никогда не глотаются и не
	// ретраятся автоматически.
	ErrSlotLocked           = errors.New("match window is locked")
	ErrSlotAlreadyStarted   = errors.New("slot has already been started")
	ErrSlotNotStarted       = errors.New("slot has not been started yet")
	ErrSlotAlreadyFinalized = errors.New("slot has already been finalized")
	ErrSlotNotFinalized     = errors.New("slot is not finalized")
	ErrSlotNotDisputed      = errors.New("slot is not disputed")
	ErrSlotDisputed         = errors.New("slot is disputed and awaits operator resolution")
	ErrNotAParticipant      = errors.New("submitter is not a participant of this match")

	// Ошибки валидации
	ErrValidationFailed       = errors.New("validation failed")
	ErrInvalidDiscipline      = errors.New("invalid discipline")
	ErrInvalidRaceLength      = errors.New("invalid race length")
	ErrScorecardInvalid       = errors.New("scorecard is invalid")
	ErrScorecardScoreMismatch = errors.New("scorecard scores do not match the race targets")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrPasswordTooShort     = errors.New("password is too short")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Конфликты
	ErrPlayerEmailConflict = errors.New("email address is already in use")

	// Ошибки, специфичные для сущностей
	ErrPlayerNotFound = errors.New("player not found")
	ErrMatchNotFound  = errors.New("match not found")
	ErrSlotNotFound   = errors.New("match slot not found")
	ErrAuditNotFound  = errors.New("finalize audit not found")
)
