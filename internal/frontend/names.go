package frontend

import "fmt"

// NameSource allocates fresh identifiers for the lowering stages. It is
// a value, threaded explicitly stage to stage as an argument/return
// pair; there is no ambient global counter. The counter is monotonic and
// never reused within a run, so every synthesized name is unique no
// matter which stage allocated it.
type NameSource struct {
	next int
}

// Names returns a source starting at the given counter value.
func Names(start int) NameSource {
	return NameSource{next: start}
}

// Fresh returns a new identifier derived from base and the advanced
// source. The same source always yields the same name.
func (s NameSource) Fresh(base string) (string, NameSource) {
	return fmt.Sprintf("%s_%d", base, s.next), NameSource{next: s.next + 1}
}

// Count returns the current counter value.
func (s NameSource) Count() int { return s.next }
