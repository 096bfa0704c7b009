package lib

//smartcast:contract returns(true) implies p != nil
func Present(p *int) bool { return p != nil }

func Deref() int {
	var p *int
	return *p
}
