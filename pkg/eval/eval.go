package eval

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// NameResolver is satisfied by scope.Scope (and anything else that can
// answer a dotted-name lookup); kept as a minimal local interface so this
// package has no import-time dependency on pkg/scope.
type NameResolver interface {
	LookupDotted(dotted string) (any, error)
}

// Context carries everything an Eval call needs beyond the expression
// source itself: the scope to resolve names against, and the seed/path
// pair that derives this call's private RNG stream.
type Context struct {
	Scope NameResolver
	Seed  uint64
	Path  string // stable identifier: template path + index + field name
}

// Eval parses and evaluates a deferred (!ev) expression source string.
func Eval(source string, ctx Context) (any, error) {
	e, err := parseExpr(source)
	if err != nil {
		return nil, err
	}
	rng := NewStream(ctx.Seed, ctx.Path)
	return evalExpr(e, ctx, rng)
}

// ToInt rounds a numeric result to the nearest integer, per spec §4.4:
// "where a distribution is used in an integer context, result is rounded
// to nearest integer."
func ToInt(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(math.Round(n)), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%w: cannot round %T to int", ErrType, v)
	}
}

func evalExpr(e expr, ctx Context, rng *rand.Rand) (any, error) {
	switch n := e.(type) {
	case numberLit:
		return n.value, nil
	case stringLit:
		return n.value, nil
	case boolLit:
		return n.value, nil

	case nameRef:
		if ctx.Scope == nil {
			return nil, fmt.Errorf("%w: %s (no scope in context)", ErrUnresolvedName, n.dotted)
		}
		v, err := ctx.Scope.LookupDotted(n.dotted)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnresolvedName, n.dotted, err)
		}
		return v, nil

	case unaryExpr:
		x, err := evalExpr(n.x, ctx, rng)
		if err != nil {
			return nil, err
		}
		switch n.op {
		case tokMinus:
			f, err := asFloat(x)
			if err != nil {
				return nil, err
			}
			return -f, nil
		case tokNot:
			b, err := asBool(x)
			if err != nil {
				return nil, err
			}
			return !b, nil
		}
		return nil, fmt.Errorf("%w: unsupported unary operator", ErrType)

	case binaryExpr:
		return evalBinary(n, ctx, rng)

	case callExpr:
		return evalCall(n, ctx, rng)
	}
	return nil, fmt.Errorf("%w: unknown expression node %T", ErrType, e)
}

func evalBinary(n binaryExpr, ctx Context, rng *rand.Rand) (any, error) {
	// Short-circuit boolean operators.
	if n.op == tokAnd || n.op == tokOr {
		x, err := evalExpr(n.x, ctx, rng)
		if err != nil {
			return nil, err
		}
		xb, err := asBool(x)
		if err != nil {
			return nil, err
		}
		if n.op == tokAnd && !xb {
			return false, nil
		}
		if n.op == tokOr && xb {
			return true, nil
		}
		y, err := evalExpr(n.y, ctx, rng)
		if err != nil {
			return nil, err
		}
		return asBool(y)
	}

	x, err := evalExpr(n.x, ctx, rng)
	if err != nil {
		return nil, err
	}
	y, err := evalExpr(n.y, ctx, rng)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case tokEq:
		return valuesEqual(x, y), nil
	case tokNeq:
		return !valuesEqual(x, y), nil
	}

	xf, xerr := asFloat(x)
	yf, yerr := asFloat(y)
	if xerr != nil || yerr != nil {
		return nil, fmt.Errorf("%w: comparison/arithmetic requires numeric operands", ErrType)
	}
	switch n.op {
	case tokPlus:
		return xf + yf, nil
	case tokMinus:
		return xf - yf, nil
	case tokStar:
		return xf * yf, nil
	case tokSlash:
		if yf == 0 {
			return nil, fmt.Errorf("%w: division by zero", ErrType)
		}
		return xf / yf, nil
	case tokPow:
		return math.Pow(xf, yf), nil
	case tokLt:
		return xf < yf, nil
	case tokLe:
		return xf <= yf, nil
	case tokGt:
		return xf > yf, nil
	case tokGe:
		return xf >= yf, nil
	}
	return nil, fmt.Errorf("%w: unsupported binary operator", ErrType)
}

func evalCall(n callExpr, ctx Context, rng *rand.Rand) (any, error) {
	args := make([]any, len(n.args))
	for i, a := range n.args {
		v, err := evalExpr(a, ctx, rng)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch n.fn {
	case "normal", "lognormal", "uniform":
		mu, sigma, err := twoFloats(n.fn, args)
		if err != nil {
			return nil, err
		}
		switch n.fn {
		case "normal":
			return sampleNormal(rng, mu, sigma), nil
		case "lognormal":
			return sampleLognormal(rng, mu, sigma), nil
		default:
			return sampleUniform(rng, mu, sigma), nil
		}
	case "poisson":
		lambda, err := oneFloat(n.fn, args)
		if err != nil {
			return nil, err
		}
		return samplePoisson(rng, lambda), nil
	case "exponential":
		lambda, err := oneFloat(n.fn, args)
		if err != nil {
			return nil, err
		}
		return sampleExponential(rng, lambda), nil
	case "discrete":
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: discrete() takes (values, weights)", ErrArgCount)
		}
		values, ok := args[0].([]any)
		if !ok {
			return nil, fmt.Errorf("%w: discrete() first argument must be a list", ErrType)
		}
		rawWeights, ok := args[1].([]any)
		if !ok {
			return nil, fmt.Errorf("%w: discrete() second argument must be a list", ErrType)
		}
		weights := make([]float64, len(rawWeights))
		for i, w := range rawWeights {
			f, err := asFloat(w)
			if err != nil {
				return nil, err
			}
			weights[i] = f
		}
		return sampleDiscrete(rng, values, weights)
	case "choice":
		return sampleChoice(rng, args)
	case "round":
		f, err := oneFloat(n.fn, args)
		if err != nil {
			return nil, err
		}
		return math.Round(f), nil
	case "abs":
		f, err := oneFloat(n.fn, args)
		if err != nil {
			return nil, err
		}
		return math.Abs(f), nil
	case "min":
		return reduceFloats(n.fn, args, math.Min)
	case "max":
		return reduceFloats(n.fn, args, math.Max)
	default:
		if ctx.Scope != nil {
			if v, err := ctx.Scope.LookupDotted(n.fn); err == nil {
				if fn, ok := v.(Callable); ok {
					return fn.Call(args)
				}
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunc, n.fn)
	}
}

// Callable is satisfied by a scope-bound value that a deferred expression
// may invoke as a function call, e.g. a scoring scope's population(species)
// or budget_exceeded() helpers. Checked only after the fixed distribution
// and arithmetic primitives above fail to match, so a registered helper can
// never shadow a built-in.
type Callable interface {
	Call(args []any) (any, error)
}

func reduceFloats(name string, args []any, f func(a, b float64) float64) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: %s() requires at least one argument", ErrArgCount, name)
	}
	acc, err := asFloat(args[0])
	if err != nil {
		return nil, err
	}
	for _, a := range args[1:] {
		v, err := asFloat(a)
		if err != nil {
			return nil, err
		}
		acc = f(acc, v)
	}
	return acc, nil
}

func oneFloat(name string, args []any) (float64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: %s() takes exactly one argument", ErrArgCount, name)
	}
	return asFloat(args[0])
}

func twoFloats(name string, args []any) (float64, float64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("%w: %s() takes exactly two arguments", ErrArgCount, name)
	}
	a, err := asFloat(args[0])
	if err != nil {
		return 0, 0, err
	}
	b, err := asFloat(args[1])
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: expected a number, got %T", ErrType, v)
	}
}

func asBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: expected a boolean, got %T", ErrType, v)
	}
	return b, nil
}

func valuesEqual(x, y any) bool {
	xf, xerr := asFloat(x)
	yf, yerr := asFloat(y)
	if xerr == nil && yerr == nil {
		return xf == yf
	}
	return x == y
}
