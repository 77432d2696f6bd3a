package protocol

const (
	// Protocol/transport validation.
	ErrBadRequest = "E_BAD_REQUEST"

	// Job routing.
	ErrBusy = "E_BUSY"

	// Generation outcome.
	ErrEmptyInput       = "E_EMPTY_INPUT"
	ErrGenerationFailed = "E_GENERATION_FAILED"
	ErrInternal         = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:       {},
	ErrBusy:             {},
	ErrEmptyInput:       {},
	ErrGenerationFailed: {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
