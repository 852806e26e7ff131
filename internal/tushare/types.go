package tushare

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type request struct {
	APIName string         `json:"api_name"`
	Token   string         `json:"token"`
	Params  map[string]any `json:"params"`
	Fields  string         `json:"fields"`
}

type response struct {
	RequestID string `json:"request_id"`
	Code      int    `json:"code"`
	Msg       string `json:"msg"`
	Data      *Table `json:"data"`
}

// Table is the column/row payload every tushare pro endpoint returns.
type Table struct {
	Fields []string `json:"fields"`
	Items  [][]any  `json:"items"`
}

func (t *Table) column(name string) (int, error) {
	for i, f := range t.Fields {
		if f == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("tushare: field %q not in %v", name, t.Fields)
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// asFlag reads is_open, which arrives as 1/0 or "1"/"0" depending on the API version.
func asFlag(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case json.Number:
		n, err := x.Int64()
		return n != 0, err
	case float64:
		return x != 0, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n != 0, err
	default:
		return false, fmt.Errorf("unexpected flag %T(%v)", v, v)
	}
}
