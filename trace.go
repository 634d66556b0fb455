package evnet

import "log"

// traceFlag identifies a trace severity, mirroring the tag set passed to
// netPrintf in original_source/include/network/network_system.h.
type traceFlag int

const (
	traceVerbose traceFlag = iota
	traceVerboseHandshake
	traceError
	traceErrorHandshake
	traceFlow
)

func (f traceFlag) String() string {
	switch f {
	case traceVerbose:
		return "verbose"
	case traceVerboseHandshake:
		return "verbose-handshake"
	case traceError:
		return "error"
	case traceErrorHandshake:
		return "error-handshake"
	case traceFlow:
		return "flow"
	default:
		return "unknown"
	}
}

// tracef writes a severity-tagged line to log.Default() when the System's
// configuration enables that severity. Errors are always traced;
// verbose/verbose-handshake/flow are gated by Config.verbose and
// Config.flow respectively.
func (s *System) tracef(flag traceFlag, format string, args ...any) {
	switch flag {
	case traceVerbose, traceVerboseHandshake:
		if !s.cfg.verbose {
			return
		}
	case traceFlow:
		if !s.cfg.flow {
			return
		}
	}
	log.Printf("evnet[%s] "+format, append([]any{flag}, args...)...)
}
