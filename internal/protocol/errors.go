package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"
	ErrProtoSchema     = "E_PROTO_SCHEMA"

	// Session routing.
	ErrSessionBusy  = "E_SESSION_BUSY"
	ErrSessionEnded = "E_SESSION_ENDED"

	// Interaction layer.
	ErrMissingDependency = "E_MISSING_DEPENDENCY"
	ErrMissingEntity     = "E_MISSING_ENTITY"
	ErrInvalidPlacement  = "E_INVALID_PLACEMENT"
	ErrStateConflict     = "E_STATE_CONFLICT"
	ErrInternal          = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:   {},
	ErrProtoVersion:      {},
	ErrProtoSchema:       {},
	ErrSessionBusy:       {},
	ErrSessionEnded:      {},
	ErrMissingDependency: {},
	ErrMissingEntity:     {},
	ErrInvalidPlacement:  {},
	ErrStateConflict:     {},
	ErrInternal:          {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
