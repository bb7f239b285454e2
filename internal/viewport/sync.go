package viewport

// Stack is the layer registry. It resolves partner IDs and pushes transform
// changes from one layer to its partners.
type Stack struct {
	layers      [layerCount]*Layer
	propagating bool
	// OnRepaint is called for every layer that needs repainting.
	OnRepaint func(LayerID)
}

// Layer resolves id, returning nil for removed or unknown layers.
func (s *Stack) Layer(id LayerID) *Layer {
	if id < 0 || id >= layerCount {
		return nil
	}
	return s.layers[id]
}

// Put registers l under its ID, replacing any previous layer.
func (s *Stack) Put(l *Layer) {
	s.layers[l.id] = l
}

// Remove drops a layer. Partners referring to it skip it on propagation.
func (s *Stack) Remove(id LayerID) {
	if s.Layer(id) != nil {
		s.layers[id] = nil
	}
}

// Link declares to as a partner of from.
func (s *Stack) Link(from LayerID, to ...LayerID) {
	l := s.Layer(from)
	if l == nil {
		return
	}
	for _, id := range to {
		if id != from {
			l.partners = append(l.partners, id)
		}
	}
}

// Ordered returns the registered layers bottom to top.
func (s *Stack) Ordered() []*Layer {
	out := make([]*Layer, 0, layerCount)
	for _, l := range s.layers {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

// Propagate copies the transform of from into each partner and requests a
// repaint of all of them. Pushes triggered while a propagation is running
// are dropped.
func (s *Stack) Propagate(from LayerID) {
	src := s.Layer(from)
	if src == nil || s.propagating {
		return
	}
	s.propagating = true
	defer func() { s.propagating = false }()
	s.RequestRepaint(from)
	for _, id := range src.partners {
		p := s.Layer(id)
		if p == nil {
			continue
		}
		p.transform = src.transform
		s.RequestRepaint(id)
	}
}

// RequestRepaint marks a layer dirty.
func (s *Stack) RequestRepaint(id LayerID) {
	l := s.Layer(id)
	if l == nil {
		return
	}
	l.dirty = true
	if s.OnRepaint != nil {
		s.OnRepaint(id)
	}
}

// Dirty reports whether any layer waits for a repaint.
func (s *Stack) Dirty() bool {
	for _, l := range s.layers {
		if l != nil && l.dirty {
			return true
		}
	}
	return false
}

// Painted clears every dirty flag.
func (s *Stack) Painted() {
	for _, l := range s.layers {
		if l != nil {
			l.dirty = false
		}
	}
}
