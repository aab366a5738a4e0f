package preprocessor

import (
	"strconv"
	"strings"

	"github.com/tcztzy/xcc-sub000/internal/cc/diag"
)

// PPValue is a C integer value carrying one of two numeric kinds: signed
// (int64) or unsigned 64-bit (wraps modulo 2^64).
type PPValue struct {
	Signed   int64
	Unsigned uint64
	IsUnsigned bool
}

func signedValue(v int64) PPValue  { return PPValue{Signed: v} }
func unsignedValue(v uint64) PPValue { return PPValue{Unsigned: v, IsUnsigned: true} }

func (v PPValue) asUint64() uint64 {
	if v.IsUnsigned {
		return v.Unsigned
	}
	return uint64(v.Signed)
}

func (v PPValue) IsZero() bool {
	if v.IsUnsigned {
		return v.Unsigned == 0
	}
	return v.Signed == 0
}

func (v PPValue) String() string {
	if v.IsUnsigned {
		return strconv.FormatUint(v.Unsigned, 10)
	}
	return strconv.FormatInt(v.Signed, 10)
}

func boolValue(b bool) PPValue {
	if b {
		return signedValue(1)
	}
	return signedValue(0)
}

// promote applies C's "if either operand is unsigned, both are treated as
// unsigned" rule.
func promote(l, r PPValue) (lv, rv uint64, unsigned bool) {
	if l.IsUnsigned || r.IsUnsigned {
		return l.asUint64(), r.asUint64(), true
	}
	return uint64(l.Signed), uint64(r.Signed), false
}

// EvalCondExpr evaluates a #if/#elif condition expression with C integer
// semantics: unsigned arithmetic wraps modulo 2^64, division/modulo by zero
// is a diagnostic, and && / || never evaluate their dead operand.
func EvalCondExpr(expr CondExpr) (PPValue, error) {
	switch e := expr.(type) {
	case ConstantInt:
		return evalConstantInt(e.Value)
	case Ident:
		return signedValue(0), nil // remaining identifiers become 0 —
	case Apply:
		return signedValue(0), nil // unknown function-like calls collapse to 0 —
	case Not:
		x, err := EvalCondExpr(e.X)
		if err != nil {
			return PPValue{}, err
		}
		return boolValue(x.IsZero()), nil
	case UnaryOp:
		x, err := EvalCondExpr(e.X)
		if err != nil {
			return PPValue{}, err
		}
		switch e.Op {
		case "-":
			if x.IsUnsigned {
				return unsignedValue(-x.Unsigned), nil
			}
			return signedValue(-x.Signed), nil
		case "~":
			if x.IsUnsigned {
				return unsignedValue(^x.Unsigned), nil
			}
			return signedValue(^x.Signed), nil
		default:
			return x, nil
		}
	case And:
		l, err := EvalCondExpr(e.L)
		if err != nil {
			return PPValue{}, err
		}
		if l.IsZero() {
			return signedValue(0), nil // short-circuit: dead side never evaluated
		}
		r, err := EvalCondExpr(e.R)
		if err != nil {
			return PPValue{}, err
		}
		return boolValue(!r.IsZero()), nil
	case Or:
		l, err := EvalCondExpr(e.L)
		if err != nil {
			return PPValue{}, err
		}
		if !l.IsZero() {
			return signedValue(1), nil // short-circuit: dead side never evaluated
		}
		r, err := EvalCondExpr(e.R)
		if err != nil {
			return PPValue{}, err
		}
		return boolValue(!r.IsZero()), nil
	case Compare:
		return evalCompare(e)
	case BinaryOp:
		return evalBinary(e)
	default:
		return PPValue{}, diag.NewWithCode(diag.StagePP, "", "Invalid #if expression", diag.CodeInvalidIfExpr)
	}
}

func evalConstantInt(lex string) (PPValue, error) {
	body := strings.TrimRight(lex, "uUlL")
	unsigned := strings.ContainsAny(lex[len(body):], "uU")
	base := 10
	switch {
	case strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X"):
		base = 16
		body = body[2:]
	case strings.HasPrefix(body, "0") && len(body) > 1:
		base = 8
		body = body[1:]
	}
	if body == "" {
		body = "0"
	}
	n, err := strconv.ParseUint(body, base, 64)
	if err != nil {
		return PPValue{}, diag.NewWithCode(diag.StagePP, "", "Invalid integer constant: "+lex, diag.CodeInvalidIfExpr)
	}
	if unsigned || n > 1<<63-1 {
		return unsignedValue(n), nil
	}
	return signedValue(int64(n)), nil
}

func evalCompare(e Compare) (PPValue, error) {
	l, err := EvalCondExpr(e.Left)
	if err != nil {
		return PPValue{}, err
	}
	r, err := EvalCondExpr(e.Right)
	if err != nil {
		return PPValue{}, err
	}
	lv, rv, unsigned := promote(l, r)
	var result bool
	if unsigned {
		switch e.Op {
		case "==":
			result = lv == rv
		case "!=":
			result = lv != rv
		case "<":
			result = lv < rv
		case ">":
			result = lv > rv
		case "<=":
			result = lv <= rv
		case ">=":
			result = lv >= rv
		}
	} else {
		li, ri := int64(lv), int64(rv)
		switch e.Op {
		case "==":
			result = li == ri
		case "!=":
			result = li != ri
		case "<":
			result = li < ri
		case ">":
			result = li > ri
		case "<=":
			result = li <= ri
		case ">=":
			result = li >= ri
		}
	}
	return boolValue(result), nil
}

func evalBinary(e BinaryOp) (PPValue, error) {
	l, err := EvalCondExpr(e.Left)
	if err != nil {
		return PPValue{}, err
	}
	r, err := EvalCondExpr(e.Right)
	if err != nil {
		return PPValue{}, err
	}
	lv, rv, unsigned := promote(l, r)
	if (e.Op == "/" || e.Op == "%") && rv == 0 {
		return PPValue{}, diag.NewWithCode(diag.StagePP, "", "Division by zero in #if", diag.CodeInvalidIfExpr)
	}
	var result uint64
	switch e.Op {
	case "+":
		result = lv + rv
	case "-":
		result = lv - rv
	case "*":
		result = lv * rv
	case "/":
		if unsigned {
			result = lv / rv
		} else {
			result = uint64(int64(lv) / int64(rv))
		}
	case "%":
		if unsigned {
			result = lv % rv
		} else {
			result = uint64(int64(lv) % int64(rv))
		}
	case "&":
		result = lv & rv
	case "|":
		result = lv | rv
	case "^":
		result = lv ^ rv
	case "<<":
		result = lv << rv
	case ">>":
		if unsigned {
			result = lv >> rv
		} else {
			result = uint64(int64(lv) >> rv)
		}
	}
	if unsigned {
		return unsignedValue(result), nil
	}
	return signedValue(int64(result)), nil
}
