package lifecycle

import "github.com/rs/zerolog"

// ErrorKind classifies an error at its point of origin.
type ErrorKind int

const (
	// SetupError is fatal: the service cannot become useful (failed
	// command registration, broken gateway connection). Triggers shutdown.
	SetupError ErrorKind = iota
	// InteractionError covers failed replies to a user. Logged only.
	InteractionError
	// InternalError covers store I/O failing mid-request. The request
	// fails gracefully; the service keeps running.
	InternalError
)

func (k ErrorKind) String() string {
	switch k {
	case SetupError:
		return "setup"
	case InteractionError:
		return "interaction"
	case InternalError:
		return "internal"
	default:
		return "unknown"
	}
}

// ErrorHandler decides how to react to a classified error. It is injected
// into the services so escalation policy lives in one place.
type ErrorHandler interface {
	OnError(kind ErrorKind, err error)
}

// ShutdownErrorHandler logs every classified error and escalates setup
// errors to the shutdown signal.
type ShutdownErrorHandler struct {
	signal *Signal
	log    zerolog.Logger
}

// NewShutdownErrorHandler builds the default error strategy.
func NewShutdownErrorHandler(signal *Signal, log zerolog.Logger) *ShutdownErrorHandler {
	return &ShutdownErrorHandler{signal: signal, log: log}
}

// OnError implements ErrorHandler.
func (h *ShutdownErrorHandler) OnError(kind ErrorKind, err error) {
	h.log.Error().Err(err).Str("kind", kind.String()).Msg("Service error")
	if kind == SetupError {
		h.signal.Broadcast()
	}
}
