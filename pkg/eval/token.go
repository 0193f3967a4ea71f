package eval

import "fmt"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokLParen
	tokRParen
	tokComma
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPow
	tokEq
	tokNeq
	tokLt
	tokLe
	tokGt
	tokGe
	tokAnd
	tokOr
	tokNot
	tokTrue
	tokFalse
)

type token struct {
	kind  tokenKind
	text  string  // raw text for idents/operators
	num   float64 // populated for tokNumber
	str   string  // populated for tokString (unescaped contents)
	pos   int
}

var keywords = map[string]tokenKind{
	"and":   tokAnd,
	"or":    tokOr,
	"not":   tokNot,
	"true":  tokTrue,
	"false": tokFalse,
}

func (t token) String() string {
	if t.text != "" {
		return fmt.Sprintf("%q", t.text)
	}
	return fmt.Sprintf("token(%d)", t.kind)
}
