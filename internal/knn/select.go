package knn

type candidate struct {
	dist float64
	idx  int
}

func (c candidate) less(o candidate) bool {
	return c.dist < o.dist || (c.dist == o.dist && c.idx < o.idx)
}

// selector keeps the k best candidates offered so far, sorted ascending.
type selector struct {
	k   int
	buf []candidate
}

func newSelector(k int) *selector {
	return &selector{k: k, buf: make([]candidate, 0, k)}
}

func (s *selector) reset() { s.buf = s.buf[:0] }

func (s *selector) offer(dist float64, idx int) {
	c := candidate{dist: dist, idx: idx}
	if len(s.buf) == s.k && !c.less(s.buf[s.k-1]) {
		return
	}
	pos := len(s.buf)
	for pos > 0 && c.less(s.buf[pos-1]) {
		pos--
	}
	if len(s.buf) < s.k {
		s.buf = append(s.buf, candidate{})
	}
	copy(s.buf[pos+1:], s.buf[pos:len(s.buf)-1])
	s.buf[pos] = c
}

// writeTo copies the selected indices into dst.
func (s *selector) writeTo(dst []int) {
	for i, c := range s.buf {
		dst[i] = c.idx
	}
}
