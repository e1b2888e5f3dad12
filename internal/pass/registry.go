package pass

import "fmt"

// All returns every selectable pass, in a stable display order.
func All() []Pass {
	return []Pass{
		Simplify(),
		CSE(),
		Inline(),
		Fuse(),
		Sequentialise(),
		ExtractGPU(),
		ExtractMulticore(),
		Allocate(),
		AllocateMulticore(),
		DoubleBuffer(),
		LowerInPlace(),
	}
}

// Lookup resolves a selector, accepting both the long and the one-letter
// form.
func Lookup(selector string) (Pass, error) {
	for _, p := range All() {
		if p.Name == selector || p.Short == selector {
			return p, nil
		}
	}
	return Pass{}, fmt.Errorf("unknown pass %q", selector)
}
