package evnet

import "errors"

// Sentinel errors returned by the public contract. Transient conditions
// (would-block, in-progress, already-connected) are never surfaced this
// way — see spec §7; they are retried silently on the next tick.
var (
	// ErrInvalidConfig is returned when the supplied options produce an invalid configuration.
	ErrInvalidConfig = errors.New("evnet: invalid configuration")
	// ErrUnknownSocket is returned when a socket index does not refer to a live socket.
	ErrUnknownSocket = errors.New("evnet: unknown socket index")
	// ErrNotConnected is returned by Send when the target socket is not in the connected state.
	ErrNotConnected = errors.New("evnet: socket not connected")
	// ErrReconnectExhausted names a spent client reconnect budget. The poll loop does not
	// return it: it terminates and removes such a socket.
	ErrReconnectExhausted = errors.New("evnet: reconnect budget exhausted")
	// ErrFramingViolation is returned when a declared payload length exceeds the safety cap.
	ErrFramingViolation = errors.New("evnet: framing violation")
	// ErrHandshakeFailed is returned when a security handshake cannot complete.
	ErrHandshakeFailed = errors.New("evnet: handshake failed")
	// ErrNoSecurityDriver is returned when no handshake driver is registered for a security level.
	ErrNoSecurityDriver = errors.New("evnet: no handshake driver for security level")
	// ErrTLSMaterialMissing is returned when a TLS security level is requested without key/cert paths.
	ErrTLSMaterialMissing = errors.New("evnet: TLS key or certificate path not configured")
	// ErrPoolOversize names an allocation request above MaxPoolSize. Nothing returns it:
	// Pool.Alloc reports such a request with ok=false and Event falls back to the
	// general allocator, whose failure is fatal (spec §7: allocation failure is fatal).
	ErrPoolOversize = errors.New("evnet: allocation exceeds pool capacity")
	// ErrQueueEmpty is returned by EventQueue.PopFront when the queue has nothing to deliver.
	ErrQueueEmpty = errors.New("evnet: event queue is empty")
)
