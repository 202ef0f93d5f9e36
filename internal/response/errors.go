package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Session ───────────────────────────────────────────────────────
	ErrTokenRequired   ErrCode = "TOKEN_REQUIRED"
	ErrAccessDenied    ErrCode = "ACCESS_DENIED"
	ErrSessionActive   ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionClosed   ErrCode = "SESSION_CLOSED"
	ErrSessionNotReady ErrCode = "SESSION_NOT_VALIDATED"

	// ─── Test-specific ─────────────────────────────────────────────────
	ErrUnknownTest        ErrCode = "UNKNOWN_TEST"
	ErrTestCompleted      ErrCode = "TEST_COMPLETED"
	ErrTestActive         ErrCode = "TEST_ACTIVE"
	ErrNoActiveTest       ErrCode = "NO_ACTIVE_TEST"
	ErrWrongTest          ErrCode = "WRONG_TEST"
	ErrConfigUnavailable  ErrCode = "CONFIG_UNAVAILABLE"
	ErrInvalidAnswer      ErrCode = "INVALID_ANSWER"
	ErrSubmissionFailed   ErrCode = "SUBMISSION_FAILED"
	ErrSubmissionsPending ErrCode = "SUBMISSIONS_PENDING"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Session ───────────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Token sesi diperlukan."
	case ErrAccessDenied:
		return "Token tidak valid atau sesi telah berakhir."
	case ErrSessionActive:
		return "Sesi tes ini sudah dibuka di tab atau perangkat lain."
	case ErrSessionClosed:
		return "Sesi tes telah ditutup."
	case ErrSessionNotReady:
		return "Sesi belum divalidasi."

	// ─── Test-specific ─────────────────────────────────────────────────
	case ErrUnknownTest:
		return "Jenis tes tidak dikenal."
	case ErrTestCompleted:
		return "Tes ini sudah diselesaikan dan tidak dapat diulang."
	case ErrTestActive:
		return "Tes lain sedang berlangsung."
	case ErrNoActiveTest:
		return "Tidak ada tes yang sedang berlangsung."
	case ErrWrongTest:
		return "Masukan tidak sesuai dengan tes yang sedang berlangsung."
	case ErrConfigUnavailable:
		return "Konfigurasi tes tidak tersedia. Hubungi penyelenggara."
	case ErrInvalidAnswer:
		return "Jawaban tidak valid."
	case ErrSubmissionFailed:
		return "Gagal menyimpan hasil. Coba lagi."
	case ErrSubmissionsPending:
		return "Masih ada hasil tes yang belum tersimpan."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
