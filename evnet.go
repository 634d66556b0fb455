// Package evnet implements a cooperative, single-threaded event-driven
// network runtime: a cross-platform TCP client/server library that
// multiplexes many non-blocking sockets behind one poll loop
// (*System).ProcessQueue, with optional TLS and a framed "event" message
// format as the unit of application data.
//
// There are no background goroutines on the I/O path: each ProcessQueue
// call makes one pass over the socket table, using select() for readiness;
// sockets whose I/O crypto/tls has taken over are instead probed with a
// short deadline on every pass. This
// mirrors the embeddable, explicit-handle shape of Atsika-aznet's client,
// generalized from one storage driver to an arbitrary socket table.
package evnet
