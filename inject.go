package evnet

// InjectBuffer feeds buf into socket index's receive buffer exactly as if
// it had arrived from the network, enabling deterministic fuzz/replay of
// the deserializer without a real peer (spec.md §6). The bytes are decoded
// by DrainInjected, or by the receive path the next time ProcessQueue finds
// the socket readable (ProcessQueue alone does not decode them for a
// socket with nothing to read). Partial frames split across multiple
// InjectBuffer calls behave exactly like a TCP stream split across
// multiple reads.
func (s *System) InjectBuffer(socketIndex int, buf []byte) error {
	sock, ok := s.GetSock(socketIndex)
	if !ok {
		return ErrUnknownSocket
	}
	sock.rx.append(buf)
	return nil
}

// DrainInjected runs the deserialize loop over a socket's rx buffer
// without requiring a live fd or a ProcessQueue tick, and pushes every
// complete frame onto the inbound queue. Test fixtures that feed a whole
// replay buffer via InjectBuffer then call DrainInjected followed by
// ProcessQueue to observe callback delivery.
func (s *System) DrainInjected(socketIndex int) (int, error) {
	sock, ok := s.GetSock(socketIndex)
	if !ok {
		return 0, ErrUnknownSocket
	}
	n := 0
	for {
		ev, consumed, ok, err := deserializeFrame(s.pool, sock.rx.Bytes())
		if err != nil {
			return n, err
		}
		if !ok {
			break
		}
		sock.rx.consume(consumed)
		ev.SrcSock = int32(sock.Index)
		s.queue.PushBack(ev)
		sock.EventsDelivered++
		n++
	}
	return n, nil
}
