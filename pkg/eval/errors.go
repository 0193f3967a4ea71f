package eval

import "errors"

var (
	// ErrSyntax is returned for lex/parse failures in a deferred expression.
	ErrSyntax = errors.New("expression syntax error")
	// ErrUnresolvedName is returned when a dotted name has no scope binding.
	ErrUnresolvedName = errors.New("unresolved name in expression")
	// ErrUnknownFunc is returned when a call references an unregistered primitive.
	ErrUnknownFunc = errors.New("unknown function")
	// ErrArgCount is returned when a call is given the wrong number of arguments.
	ErrArgCount = errors.New("wrong number of arguments")
	// ErrType is returned when an operand has the wrong dynamic type for an operator.
	ErrType = errors.New("type error in expression")
)
