package filecontract

import (
	"errors"
	"reflect"
)

type notFound struct{}

func (*notFound) Error() string { return "not found" }

// Exists gets its contract from the contract file.
func Exists(p *int) bool { return p != nil }

// Bad names an unknown parameter in the contract file.
func Bad(p *int) bool { return p != nil }

// Empty looks through v with reflection, so a nil pointer counts as empty.
func Empty(v any) bool {
	rv := reflect.ValueOf(v)
	return !rv.IsValid() || rv.Kind() == reflect.Pointer && rv.IsNil()
}

func UseExists() int {
	var p *int
	if Exists(p) { // want `condition Exists\(p\) is always false`
		return *p
	}
	return 0
}

func UseBad(p *int) int {
	if Bad(p) { // want `invalid contract on filecontract\.Bad: malformed contract: unknown parameter "q"`
		return *p
	}
	if Bad(p) {
		return 1
	}
	return 0
}

func UseAs(err error) bool {
	var target *notFound
	if errors.As(err, &target) {
		if err == nil { // want "condition err == nil is always false"
			return false
		}
		return true
	}
	return false
}

func UseEmpty() int {
	p := new(int)
	if Empty(p) { // want `condition Empty\(p\) is always false`
		return 0
	}
	return *p
}
