package symbol

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrUnsupportedStyle = errors.New("unsupported symbol style")
	ErrInvalidSymbol    = errors.New("invalid symbol")
)

// Style is a vendor symbol convention.
type Style int

const (
	Plain     Style = iota // "600000"
	Goldminer              // "SHSE.600000" / "SZSE.000001"
	Tushare                // "600000.SH" / "000001.SZ"
	Wind                   // same suffixes as Tushare
	JoinQuant              // "600000.XSHG" / "000001.XSHE"
)

func (s Style) String() string {
	switch s {
	case Plain:
		return "plain"
	case Goldminer:
		return "goldminer"
	case Tushare:
		return "tushare"
	case Wind:
		return "wind"
	case JoinQuant:
		return "joinquant"
	default:
		return fmt.Sprintf("style(%d)", int(s))
	}
}

// ParseStyle accepts the vendor names and their short forms: gm, ts, wd, jq.
// An empty name is Plain.
func ParseStyle(name string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "plain", "none":
		return Plain, nil
	case "gm", "goldminer":
		return Goldminer, nil
	case "ts", "tushare":
		return Tushare, nil
	case "wd", "wind":
		return Wind, nil
	case "jq", "joinquant":
		return JoinQuant, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedStyle, name)
}

var digits = regexp.MustCompile(`\d+`)

// CodeOnly extracts the numeric code: "SZ000001", "600519.SH", "SHSE.600000" => digits.
func CodeOnly(sym string) (string, error) {
	sym = strings.TrimSpace(sym)
	if sym == "" {
		return "", fmt.Errorf("%w: empty symbol", ErrInvalidSymbol)
	}
	code := digits.FindString(sym)
	if code == "" {
		return "", fmt.Errorf("%w: no digits in %q", ErrInvalidSymbol, sym)
	}
	return code, nil
}

// IsShanghai reports whether code trades on SSE. Only a leading 6 counts;
// BSE codes fall through to Shenzhen.
func IsShanghai(code string) bool {
	return strings.HasPrefix(code, "6")
}

// Format maps one symbol to style.
func Format(sym string, style Style) (string, error) {
	code, err := CodeOnly(sym)
	if err != nil {
		return "", err
	}
	sh := IsShanghai(code)
	switch style {
	case Plain:
		return code, nil
	case Goldminer:
		if sh {
			return "SHSE." + code, nil
		}
		return "SZSE." + code, nil
	case Tushare, Wind:
		if sh {
			return code + ".SH", nil
		}
		return code + ".SZ", nil
	case JoinQuant:
		if sh {
			return code + ".XSHG", nil
		}
		return code + ".XSHE", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedStyle, style)
	}
}

// FormatAll maps every symbol; the result has the same length and order.
func FormatAll(symbols []string, style Style) ([]string, error) {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		v, err := Format(s, style)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
