package invalid

//smartcast:contract returns(true) implies missing != nil
func Broken(p *int) bool { return p != nil }

//smartcast:contract returns(true) implies p != nil
func Fine(p *int) bool { return p != nil }

func UseBroken(p *int) int {
	if Broken(p) { // want `invalid contract on invalid.Broken: malformed contract: unknown parameter "missing"`
		return *p
	}
	if Broken(p) {
		return 1
	}
	return 0
}

func UseFine(p *int) int {
	if Fine(p) {
		return *p
	}
	return 0
}
