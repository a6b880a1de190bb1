package format

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultDecimals is the number of fractional digits of the native token.
const DefaultDecimals = 12

// InvalidBalance is returned instead of a formatted amount when the input cannot be parsed.
const InvalidBalance = "Error: Invalid balance format"

const maxFractionDigits = 4

var printer = message.NewPrinter(language.English)

// FormatBalance renders a raw fixed-point amount as a human-readable decimal
// with thousands separators and at most four fractional digits. Amounts smaller
// than 10^(decimals-4) round to "0".
func FormatBalance(raw any, decimals int) string {
	if decimals < 0 {
		return InvalidBalance
	}
	value, err := parseAmount(raw)
	if err != nil {
		return InvalidBalance
	}

	digits := value.String()
	if len(digits) <= decimals {
		padded := strings.Repeat("0", decimals-len(digits)) + digits
		fraction := trimFraction(padded)
		if fraction == "" {
			return "0"
		}
		return "0." + fraction
	}

	split := len(digits) - decimals
	whole := groupThousands(digits[:split])
	fraction := trimFraction(digits[split:])
	if fraction == "" {
		return whole
	}
	return whole + "." + fraction
}

// BalanceValue formats raw like FormatBalance and converts the result into a
// numeric display value. The InvalidBalance sentinel is returned unchanged.
func BalanceValue(raw any, decimals int) any {
	formatted := FormatBalance(raw, decimals)
	if formatted == InvalidBalance {
		return formatted
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(formatted, ",", ""), 64)
	if err != nil {
		return InvalidBalance
	}
	return f
}

func trimFraction(digits string) string {
	if len(digits) > maxFractionDigits {
		digits = digits[:maxFractionDigits]
	}
	return strings.TrimRight(digits, "0")
}

func groupThousands(digits string) string {
	if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
		return printer.Sprintf("%d", n)
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func parseAmount(raw any) (*big.Int, error) {
	var value *big.Int
	switch v := raw.(type) {
	case nil:
		return nil, fmt.Errorf("empty amount")
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("empty amount")
		}
		value = new(big.Int).Set(v)
	case big.Int:
		value = new(big.Int).Set(&v)
	case string:
		return parseAmountString(v)
	case json.Number:
		return parseAmountString(v.String())
	case int:
		value = big.NewInt(int64(v))
	case int32:
		value = big.NewInt(int64(v))
	case int64:
		value = big.NewInt(v)
	case uint:
		value = new(big.Int).SetUint64(uint64(v))
	case uint32:
		value = new(big.Int).SetUint64(uint64(v))
	case uint64:
		value = new(big.Int).SetUint64(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, fmt.Errorf("non-integral amount: %v", v)
		}
		value, _ = big.NewFloat(v).Int(nil)
	case fmt.Stringer:
		return parseAmountString(v.String())
	default:
		return nil, fmt.Errorf("unsupported amount type %T", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %s", value)
	}
	return value, nil
}

func parseAmountString(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	value, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %q", s)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %s", value)
	}
	return value, nil
}
