package conditions

const debug = false

func Redundant(p *int) int {
	if p == nil {
		return 0
	}
	if p != nil { // want "condition p != nil is always true"
		return *p
	}
	return 1
}

func Never(p *int) {
	if p != nil {
		return
	}
	if p != nil { // want "condition p != nil is always false"
		println(*p)
	}
}

func Flag(ok bool) {
	if ok {
		return
	}
	if ok { // want "condition ok is always false"
		println("ok")
	}
}

func FlagCompare(ok bool) {
	if ok == false {
		return
	}
	if !ok { // want "condition !ok is always false"
		println("not ok")
	}
}

func Constant() {
	if debug {
		println("debug")
	}
}

func Tagless(p *int) int {
	switch {
	case p == nil:
		return 0
	case p != nil: // want "condition p != nil is always true"
		return *p
	}
	return 1
}

func Both(p, q *int) int {
	if p == nil || q == nil {
		return 0
	}
	if p != nil && q != nil { // want "condition p != nil && q != nil is always true"
		return *p + *q
	}
	return 1
}

func Either(p, q *int) int {
	if p != nil || q != nil {
		if p == nil {
			return *q
		}
		return *p
	}
	return 0
}

func Untracked(n int) bool {
	if n > 0 {
		return true
	}
	return false
}

func Loop(p *int) int {
	n := 0
	for p != nil {
		n++
		p = next(p)
	}
	return n
}

func next(p *int) *int {
	if *p > 10 {
		return nil
	}
	v := *p + 1
	return &v
}
