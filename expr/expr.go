// Copyright 2020 Aleksandr Demakin. All rights reserved.

// Package expr evaluates arithmetic expressions in posit arithmetic.
//
//	1 + 2*3
//	sqrt(2) / -(1 + minpos)
//	fma(0.1, 10, -1)
//	dot(maxpos, 1, 1, 1, maxpos, -1)
//
// Every literal is parsed exactly and rounded once to the target configuration.
// Every operator rounds its result, except fma and dot, which are fused.
package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/zeebo/errs"

	"github.com/avdva/posit"
	"github.com/avdva/posit/quire"
)

var (
	// Error is the class of all expr errors.
	Error = errs.Class("expr")

	// ErrUnknownIdent is returned for names, which are neither constants nor functions.
	ErrUnknownIdent = errors.New("unknown identifier")
	// ErrUnknownFunction is returned for calls of undefined functions.
	ErrUnknownFunction = errors.New("unknown function")
	// ErrArity is returned when a function is called with a wrong number of arguments.
	ErrArity = errors.New("wrong number of arguments")
)

//nolint:govet // participle grammar tags are not standard struct tags
type sum struct {
	Left  *product   `@@`
	Right []*sumTail `@@*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type sumTail struct {
	Op    string   `@("+" | "-")`
	Right *product `@@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type product struct {
	Left  *unary         `@@`
	Right []*productTail `@@*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type productTail struct {
	Op    string `@("*" | "/")`
	Right *unary `@@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type unary struct {
	Op      string   `  ( @("-" | "+")`
	Operand *unary   `    @@ )`
	Primary *primary `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type primary struct {
	Number *string `  @Number`
	Call   *call   `| @@`
	Ident  *string `| @Ident`
	Sub    *sum    `| "(" @@ ")"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type call struct {
	Pos  lexer.Position
	Name string `@Ident "("`
	Args []*sum `( @@ ( "," @@ )* )? ")"`
}

var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[-+*/(),]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var exprParser = participle.MustBuild[sum](
	participle.Lexer(exprLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Expression is a parsed expression. It may be evaluated in any configuration,
// concurrently.
type Expression struct {
	src  string
	root *sum
}

// Parse parses src.
func Parse(src string) (*Expression, error) {
	if strings.TrimSpace(src) == "" {
		return nil, Error.New("parsing failed: empty expression")
	}
	root, err := exprParser.ParseString("", src)
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("parsing failed: %w", err))
	}
	return &Expression{src: src, root: root}, nil
}

// MustParse is like Parse, but panics on error.
func MustParse(src string) *Expression {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

// Eval parses src and evaluates it in cfg.
func Eval(cfg posit.Config, src string) (posit.Posit, error) {
	e, err := Parse(src)
	if err != nil {
		return cfg.NaR(), err
	}
	return e.Eval(cfg)
}

// String returns the source of e.
func (e *Expression) String() string {
	return e.src
}

// Eval evaluates e in cfg. Arithmetic traps of a Trap configuration are returned as errors.
func (e *Expression) Eval(cfg posit.Config) (res posit.Posit, err error) {
	if err := cfg.Validate(); err != nil {
		return posit.Posit{}, Error.Wrap(err)
	}
	ev := evaluator{cfg: cfg}
	trapErr := posit.Catch(func() {
		res, err = ev.sum(e.root)
	})
	if trapErr != nil {
		return cfg.NaR(), Error.Wrap(trapErr)
	}
	if err != nil {
		return cfg.NaR(), err
	}
	return res, nil
}

type evaluator struct {
	cfg posit.Config
}

func (ev evaluator) sum(s *sum) (posit.Posit, error) {
	res, err := ev.product(s.Left)
	if err != nil {
		return res, err
	}
	for _, t := range s.Right {
		right, err := ev.product(t.Right)
		if err != nil {
			return right, err
		}
		if t.Op == "+" {
			res = res.Add(right)
		} else {
			res = res.Sub(right)
		}
	}
	return res, nil
}

func (ev evaluator) product(p *product) (posit.Posit, error) {
	res, err := ev.unary(p.Left)
	if err != nil {
		return res, err
	}
	for _, t := range p.Right {
		right, err := ev.unary(t.Right)
		if err != nil {
			return right, err
		}
		if t.Op == "*" {
			res = res.Mul(right)
		} else {
			res = res.Div(right)
		}
	}
	return res, nil
}

func (ev evaluator) unary(u *unary) (posit.Posit, error) {
	if u.Primary != nil {
		return ev.primary(u.Primary)
	}
	res, err := ev.unary(u.Operand)
	if err != nil || u.Op == "+" {
		return res, err
	}
	return res.Neg(), nil
}

func (ev evaluator) primary(p *primary) (posit.Posit, error) {
	switch {
	case p.Number != nil:
		res, err := ev.cfg.FromString(*p.Number)
		if err != nil {
			return res, Error.Wrap(err)
		}
		return res, nil
	case p.Call != nil:
		return ev.call(p.Call)
	case p.Ident != nil:
		return ev.constant(*p.Ident)
	default:
		return ev.sum(p.Sub)
	}
}

const (
	piDigits = "3.14159265358979323846264338327950288419716939937510582097494459"
	eDigits  = "2.71828182845904523536028747135266249775724709369995957496696763"
)

func (ev evaluator) constant(name string) (posit.Posit, error) {
	switch strings.ToLower(name) {
	case "nar":
		return ev.cfg.NaR(), nil
	case "maxpos":
		return ev.cfg.MaxPos(), nil
	case "minpos":
		return ev.cfg.MinPos(), nil
	case "pi":
		return ev.cfg.MustFromString(piDigits), nil
	case "e":
		return ev.cfg.MustFromString(eDigits), nil
	default:
		return ev.cfg.NaR(), Error.Wrap(fmt.Errorf("%w: %q", ErrUnknownIdent, name))
	}
}

type function struct {
	arity int // -1 for variadic.
	eval  func(cfg posit.Config, args []posit.Posit) (posit.Posit, error)
}

func unaryFunc(fn func(posit.Posit) posit.Posit) function {
	return function{arity: 1, eval: func(_ posit.Config, args []posit.Posit) (posit.Posit, error) {
		return fn(args[0]), nil
	}}
}

var functions = map[string]function{
	"sqrt":  unaryFunc(posit.Posit.Sqrt),
	"abs":   unaryFunc(posit.Posit.Abs),
	"neg":   unaryFunc(posit.Posit.Neg),
	"recip": unaryFunc(posit.Posit.Reciprocal),
	"next":  unaryFunc(posit.Posit.Next),
	"prev":  unaryFunc(posit.Posit.Prev),
	"min": {arity: 2, eval: func(_ posit.Config, args []posit.Posit) (posit.Posit, error) {
		return posit.Min(args[0], args[1]), nil
	}},
	"max": {arity: 2, eval: func(_ posit.Config, args []posit.Posit) (posit.Posit, error) {
		return posit.Max(args[0], args[1]), nil
	}},
	"fma": {arity: 3, eval: func(_ posit.Config, args []posit.Posit) (posit.Posit, error) {
		return posit.FMA(args[0], args[1], args[2]), nil
	}},
	"sum": {arity: -1, eval: quire.Sum},
	"dot": {arity: -1, eval: func(cfg posit.Config, args []posit.Posit) (posit.Posit, error) {
		if len(args)%2 != 0 {
			return cfg.NaR(), Error.Wrap(fmt.Errorf("%w: dot needs pairs, got %d arguments", ErrArity, len(args)))
		}
		x, y := make([]posit.Posit, 0, len(args)/2), make([]posit.Posit, 0, len(args)/2)
		for i := 0; i < len(args); i += 2 {
			x, y = append(x, args[i]), append(y, args[i+1])
		}
		return quire.Dot(cfg, x, y)
	}},
}

func (ev evaluator) call(c *call) (posit.Posit, error) {
	name := strings.ToLower(c.Name)
	fn, found := functions[name]
	if !found {
		return ev.cfg.NaR(), Error.Wrap(fmt.Errorf("%w: %q at %s", ErrUnknownFunction, c.Name, c.Pos))
	}
	switch {
	case fn.arity < 0 && len(c.Args) == 0:
		return ev.cfg.NaR(), Error.Wrap(fmt.Errorf("%w: %s needs arguments", ErrArity, name))
	case fn.arity >= 0 && len(c.Args) != fn.arity:
		return ev.cfg.NaR(), Error.Wrap(fmt.Errorf("%w: %s takes %d, got %d", ErrArity, name, fn.arity, len(c.Args)))
	}
	args := make([]posit.Posit, len(c.Args))
	for i, arg := range c.Args {
		var err error
		if args[i], err = ev.sum(arg); err != nil {
			return args[i], err
		}
	}
	return fn.eval(ev.cfg, args)
}
