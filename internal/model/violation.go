package model

// ViolationReason enumerates the proctoring signals that count against a candidate.
type ViolationReason string

const (
	ViolationTabHidden      ViolationReason = "TAB_HIDDEN"
	ViolationFocusLost      ViolationReason = "FOCUS_LOST"
	ViolationFullscreenExit ViolationReason = "FULLSCREEN_EXIT"
	ViolationRestrictedKey  ViolationReason = "RESTRICTED_KEY"
	ViolationContextMenu    ViolationReason = "CONTEXT_MENU"
)

// MaxViolations is the number of violations within one test that forces submission.
const MaxViolations = 3

// Message returns the candidate-facing description of the violation.
func (r ViolationReason) Message() string {
	switch r {
	case ViolationTabHidden:
		return "Terdeteksi berpindah tab atau minimize browser!"
	case ViolationFocusLost:
		return "Terdeteksi keluar dari jendela tes!"
	case ViolationFullscreenExit:
		return "Keluar dari mode fullscreen!"
	case ViolationRestrictedKey:
		return "Shortcut keyboard terlarang terdeteksi!"
	case ViolationContextMenu:
		return "Klik kanan tidak diperbolehkan!"
	default:
		return "Pelanggaran terdeteksi."
	}
}
