package types

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// numericSignPositive/Negative/NaN are the sign words of PostgreSQL's
// binary NUMERIC layout.
const (
	numericSignPositive = 0x0000
	numericSignNegative = 0x4000
	numericSignNaN      = 0xC000

	numericMaxPrecision = 28 //  "reject values whose precision exceeds 28 decimal digits"
)

// Numeric wraps shopspring/decimal.Decimal with the PostgreSQL base-10000
// binary NUMERIC codec: {ndigits:i16, weight:i16, sign:i16, dscale:i16,
// digits:[i16]}. decimal.Decimal's own (value *big.Int, exp int32)
// representation is close enough to (mantissa, scale, sign) that we build
// directly on top of it rather than re-deriving a big-integer type.
type Numeric struct {
	Decimal decimal.Decimal
	IsNaN   bool
	Valid   bool
}

func (Numeric) AcceptsOID(oid uint32) bool { return oid == OIDNumeric }

// FromSqlBinary decodes PostgreSQL's base-10000 NUMERIC wire format.
func (n *Numeric) FromSqlBinary(oid uint32, raw []byte) error {
	if len(raw) < 8 {
		return fmt.Errorf("numeric: payload too short (%d bytes)", len(raw))
	}
	ndigits := int(int16(binary.BigEndian.Uint16(raw[0:2])))
	weight := int(int16(binary.BigEndian.Uint16(raw[2:4])))
	sign := binary.BigEndian.Uint16(raw[4:6])
	dscale := int(int16(binary.BigEndian.Uint16(raw[6:8])))

	if sign == numericSignNaN {
		n.IsNaN = true
		n.Valid = true
		return nil
	}
	if sign != numericSignPositive && sign != numericSignNegative {
		return fmt.Errorf("numeric: unrecognized sign word 0x%04x", sign)
	}

	digits := make([]int16, ndigits)
	for i := 0; i < ndigits; i++ {
		off := 8 + i*2
		digits[i] = int16(binary.BigEndian.Uint16(raw[off : off+2]))
	}

	mantissa := new(big.Int)
	for _, d := range digits {
		mantissa.Mul(mantissa, big.NewInt(10000))
		mantissa.Add(mantissa, big.NewInt(int64(d)))
	}

	// Each base-10000 digit after the weight'th contributes 4 decimal
	// places; the total decimal exponent shift from the digit array's
	// value to the true value is 4*(weight - (ndigits-1)).
	exponentFromDigits := 4 * (weight - (ndigits - 1))
	if ndigits == 0 {
		exponentFromDigits = 0
	}

	// Normalize mantissa to dscale decimal places exactly.
	wantExp := -dscale
	for exponentFromDigits > wantExp {
		mantissa.Mul(mantissa, big.NewInt(10))
		exponentFromDigits--
	}
	for exponentFromDigits < wantExp {
		mantissa.Div(mantissa, big.NewInt(10))
		exponentFromDigits++
	}

	if sign == numericSignNegative {
		mantissa.Neg(mantissa)
	}

	if digitCount(mantissa) > numericMaxPrecision {
		return &PrecisionOverflowError{Value: mantissa.String()}
	}

	n.Decimal = decimal.NewFromBigInt(mantissa, int32(-dscale))
	n.Valid = true
	return nil
}

// ToSqlBinary encodes to PostgreSQL's base-10000 NUMERIC wire format.
func (n Numeric) ToSqlBinary() ([]byte, error) {
	if n.IsNaN {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint16(buf[4:6], numericSignNaN)
		return buf, nil
	}

	coeff := n.Decimal.Coefficient()
	exp := n.Decimal.Exponent()
	sign := uint16(numericSignPositive)
	if coeff.Sign() < 0 {
		sign = numericSignNegative
		coeff = new(big.Int).Abs(coeff)
	}

	if digitCount(coeff) > numericMaxPrecision {
		return nil, &PrecisionOverflowError{Value: n.Decimal.String()}
	}

	dscale := 0
	if exp < 0 {
		dscale = int(-exp)
	}

	// Pad coeff so its decimal length is a multiple of 4 aligned to the
	// base-10000 digit boundary implied by exp, then split into digits.
	shift := int((4 - ((-exp)%4+4)%4) % 4)
	scaled := new(big.Int).Set(coeff)
	for i := 0; i < shift; i++ {
		scaled.Mul(scaled, big.NewInt(10))
	}

	var digits []int16
	tmp := new(big.Int).Set(scaled)
	base := big.NewInt(10000)
	for tmp.Sign() != 0 {
		mod := new(big.Int)
		tmp.DivMod(tmp, base, mod)
		digits = append([]int16{int16(mod.Int64())}, digits...)
	}
	if len(digits) == 0 {
		digits = nil
	}

	weight := len(digits) - 1 - (shift+3)/4
	if len(digits) == 0 {
		weight = 0
	} else {
		// weight counts base-10000 digits before the decimal point minus one.
		totalDigits4 := (int(-exp) + shift) / 4 // digits after the point, in base-10000 units
		weight = len(digits) - 1 - totalDigits4
	}

	buf := make([]byte, 8+len(digits)*2)
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(digits)))
	binary.BigEndian.PutUint16(buf[2:4], uint16(int16(weight)))
	binary.BigEndian.PutUint16(buf[4:6], sign)
	binary.BigEndian.PutUint16(buf[6:8], uint16(dscale))
	for i, d := range digits {
		binary.BigEndian.PutUint16(buf[8+i*2:10+i*2], uint16(d))
	}
	return buf, nil
}

func digitCount(v *big.Int) int {
	if v.Sign() == 0 {
		return 1
	}
	abs := new(big.Int).Abs(v)
	return len(abs.String())
}

// PrecisionOverflowError is raised when a NUMERIC value's precision
// exceeds the 28-decimal-digit limit this codec supports.
type PrecisionOverflowError struct {
	Value string
}

func (e *PrecisionOverflowError) Error() string {
	return fmt.Sprintf("numeric value %q exceeds 28 digits of precision", e.Value)
}
