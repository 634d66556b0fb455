package evnet

import "sync/atomic"

// Metrics tracks runtime counters for a System. Shaped on the
// Metrics interface in Atsika-aznet/metrics.go, with the Azure
// transaction-style counters replaced by socket-level ones relevant to a
// framed TCP runtime.
type Metrics interface {
	IncrementBytesSent(n int64)
	IncrementBytesReceived(n int64)
	IncrementEventsDispatched()
	IncrementHandshakeFailures()
	IncrementReconnects()

	GetBytesSent() int64
	GetBytesReceived() int64
	GetEventsDispatched() int64
	GetHandshakeFailures() int64
	GetReconnects() int64
}

// DefaultMetrics implements Metrics with atomic counters.
type DefaultMetrics struct {
	bytesSent         int64
	bytesReceived     int64
	eventsDispatched  int64
	handshakeFailures int64
	reconnects        int64
}

// NewDefaultMetrics returns a zeroed DefaultMetrics.
func NewDefaultMetrics() *DefaultMetrics { return &DefaultMetrics{} }

func (m *DefaultMetrics) IncrementBytesSent(n int64)     { atomic.AddInt64(&m.bytesSent, n) }
func (m *DefaultMetrics) IncrementBytesReceived(n int64) { atomic.AddInt64(&m.bytesReceived, n) }
func (m *DefaultMetrics) IncrementEventsDispatched()     { atomic.AddInt64(&m.eventsDispatched, 1) }
func (m *DefaultMetrics) IncrementHandshakeFailures()    { atomic.AddInt64(&m.handshakeFailures, 1) }
func (m *DefaultMetrics) IncrementReconnects()           { atomic.AddInt64(&m.reconnects, 1) }

func (m *DefaultMetrics) GetBytesSent() int64         { return atomic.LoadInt64(&m.bytesSent) }
func (m *DefaultMetrics) GetBytesReceived() int64     { return atomic.LoadInt64(&m.bytesReceived) }
func (m *DefaultMetrics) GetEventsDispatched() int64  { return atomic.LoadInt64(&m.eventsDispatched) }
func (m *DefaultMetrics) GetHandshakeFailures() int64 { return atomic.LoadInt64(&m.handshakeFailures) }
func (m *DefaultMetrics) GetReconnects() int64        { return atomic.LoadInt64(&m.reconnects) }
