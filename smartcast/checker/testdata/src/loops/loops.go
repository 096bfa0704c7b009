package loops

func show(...any) bool { return true }

// LoopCarried resets p on some iterations: the fact proven before the loop
// must not survive the back edge.
func LoopCarried(items []int) int {
	p := new(int)
	total := 0
	for _, it := range items {
		if p != nil {
			total += *p + it
		}
		if it == 0 {
			p = nil
		}
	}
	show(p)
	return total
}

func Stays(items []int) {
	p := new(int)
	for range items {
		show(p) // want `p is non-nil`
	}
	show(p) // want `p is non-nil`
}

func AlwaysNil(n int) {
	var p *int
	for i := 0; i < n; i++ {
		println(*p) // want "nil dereference: p is always nil here"
	}
}

func NeverNil(n int) {
	p := new(int)
	for i := 0; i < n; i++ {
		if p == nil { // want "condition p == nil is always false"
			return
		}
	}
}

func SetInLoop(items []*int) int {
	var last *int
	for _, it := range items {
		if it != nil {
			last = it
		}
	}
	if last == nil {
		return 0
	}
	return *last
}

func RangeValue(items []*int) int {
	total := 0
	for _, it := range items {
		if it == nil {
			continue
		}
		show(it) // want `it is non-nil`
		total += *it
	}
	return total
}

func Labeled(rows [][]*int) int {
	n := 0
outer:
	for _, row := range rows {
		for _, v := range row {
			if v == nil {
				continue outer
			}
			n += *v
		}
	}
	return n
}
