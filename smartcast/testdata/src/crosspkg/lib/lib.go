package lib

//smartcast:contract returns(true) implies p != nil
func Present(p *int) bool { return p != nil } // want Present:`contract\[returns\(true\) implies p != nil\]`

//smartcast:contract returns(true) implies p == nil
func Absent(p *int) bool { return p == nil } // want Absent:`contract\[returns\(true\) implies p == nil\]`

//smartcast:contract returns() implies p != nil
func MustNotNil(p *int) { // want MustNotNil:`contract\[returns\(\) implies p != nil\]`
	if p == nil {
		panic("lib: nil pointer")
	}
}

type Config struct {
	Name string
}

//smartcast:contract returns(nil) implies c != nil
func Validate(c *Config) error { // want Validate:`contract\[returns\(nil\) implies c != nil\]`
	if c == nil {
		return errNilConfig
	}
	return nil
}

type validationError struct{}

func (validationError) Error() string { return "lib: nil config" }

var errNilConfig error = validationError{}

// Checker validates pointers.
type Checker interface {
	//smartcast:contract returns(true) implies p != nil
	Check(p *int) bool // want Check:`contract\[returns\(true\) implies p != nil\]`
}

// Plain carries no contract.
func Plain(p *int) bool { return p != nil }
