package vm

import (
	"github.com/chewxy/math32"
	"github.com/viterin/vek/vek32"
)

// binaryOp evaluates lhs op rhs into the dynamic value out. Two scalars give a
// scalar; if either side is audio the result is audio over the run range.
// Operand order is kept as given: Sub, Div and Pow are not commutative.
func binaryOp(c *Context, op BinOp, lhs, rhs Value, out int32) {
	la, ra := c.Audio(lhs), c.Audio(rhs)
	if la == nil && ra == nil {
		c.setScalarResult(out, scalarOp(op, c.Scalar(lhs), c.Scalar(rhs)))
		return
	}
	var ls, rs float32
	if la == nil {
		ls = c.Scalar(lhs)
	}
	if ra == nil {
		rs = c.Scalar(rhs)
	}
	dst := c.audioResult(out)
	switch {
	case la != nil && ra != nil:
		audioOp(op, dst, la, ra)
	case la != nil:
		audioScalarOp(op, dst, la, rs)
	default:
		scalarAudioOp(op, dst, ls, ra)
	}
}

func scalarOp(op BinOp, x, y float32) float32 {
	switch op {
	case Add:
		return finite(x + y)
	case Mul:
		return finite(x * y)
	case Sub:
		return finite(x - y)
	case Div:
		if y == 0 {
			return 0
		}
		return finite(x / y)
	case Pow:
		return finite(math32.Pow(x, y))
	}
	return 0
}

func audioOp(op BinOp, dst, x, y []float32) {
	switch op {
	case Add:
		vek32.Add_Into(dst, x, y)
	case Mul:
		vek32.Mul_Into(dst, x, y)
	case Sub:
		vek32.Sub_Into(dst, x, y)
	case Div:
		for i := range dst {
			dst[i] = scalarOp(Div, x[i], y[i])
		}
	case Pow:
		for i := range dst {
			dst[i] = math32.Pow(x[i], y[i])
		}
	}
	finiteAll(dst)
}

func audioScalarOp(op BinOp, dst, x []float32, y float32) {
	switch op {
	case Add:
		vek32.AddNumber_Into(dst, x, y)
	case Mul:
		vek32.MulNumber_Into(dst, x, y)
	case Sub:
		vek32.SubNumber_Into(dst, x, y)
	case Div:
		if y == 0 {
			clear(dst)
			return
		}
		vek32.DivNumber_Into(dst, x, y)
	case Pow:
		for i := range dst {
			dst[i] = math32.Pow(x[i], y)
		}
	}
	finiteAll(dst)
}

func scalarAudioOp(op BinOp, dst []float32, x float32, y []float32) {
	switch op {
	case Add:
		vek32.AddNumber_Into(dst, y, x)
	case Mul:
		vek32.MulNumber_Into(dst, y, x)
	case Sub:
		vek32.MulNumber_Into(dst, y, -1)
		vek32.AddNumber_Inplace(dst, x)
	case Div:
		for i := range dst {
			dst[i] = scalarOp(Div, x, y[i])
		}
	case Pow:
		for i := range dst {
			dst[i] = math32.Pow(x, y[i])
		}
	}
	finiteAll(dst)
}

// finiteAll applies finite to a buffer.
func finiteAll(dst []float32) {
	for i, x := range dst {
		dst[i] = finite(x)
	}
}

// finite maps NaN and infinities to zero.
func finite(x float32) float32 {
	if math32.IsNaN(x) || math32.IsInf(x, 0) {
		return 0
	}
	return x
}
