package trajstore

import "context"

// Close seals the open segment, writes its index and releases the output
// folder lock. It is idempotent; a closed store cannot be reopened. After a
// failed write the open segment is released without an index.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	if s.err != nil {
		s.segments.Abort()
	} else if err := s.segments.Close(s.sealIndex); err != nil {
		firstErr = err
	}
	if err := s.lock.Unlock(); err != nil && firstErr == nil {
		firstErr = err
	}
	s.opts.logger.LogClose(context.Background(), len(s.segments.Segments()), firstErr)
	return firstErr
}
