package alg

// ReverseSorter orders objects descending by the score function, the shape
// every ranking in this package needs.
type ReverseSorter[Obj any] struct {
	objects []*Obj
	by      func(*Obj) float64
}

func (s *ReverseSorter[Obj]) Len() int {
	return len(s.objects)
}

func (s *ReverseSorter[Obj]) Swap(i, j int) {
	s.objects[i], s.objects[j] = s.objects[j], s.objects[i]
}

func (s *ReverseSorter[Obj]) Less(i, j int) bool {
	return s.by(s.objects[i]) > s.by(s.objects[j])
}
