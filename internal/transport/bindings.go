package transport

// bind records that c has touched sessionID. Bindings last until c disconnects.
func (s *implServer) bind(sessionID string, c *conn) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[c]; !ok {
		return
	}
	subs := s.bindings[sessionID]
	if subs == nil {
		subs = make(map[*conn]struct{})
		s.bindings[sessionID] = subs
	}
	subs[c] = struct{}{}
	c.sessions[sessionID] = struct{}{}
}

// unbindAll drops every binding of c. Callers hold s.mu.
func (s *implServer) unbindAll(c *conn) {
	for id := range c.sessions {
		if subs := s.bindings[id]; subs != nil {
			delete(subs, c)
			if len(subs) == 0 {
				delete(s.bindings, id)
			}
		}
	}
	c.sessions = nil
}

// targets returns origin plus the live connections bound to sessionID, each once.
func (s *implServer) targets(sessionID string, origin *conn) []*conn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*conn{origin}
	for c := range s.bindings[sessionID] {
		if c != origin {
			out = append(out, c)
		}
	}
	return out
}
