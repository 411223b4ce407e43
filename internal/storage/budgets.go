package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"expense-tracker/internal/core"
	"expense-tracker/internal/log"
)

// infinityToken is how an uncapped month is written in the budget file.
// JSON has no literal for infinity.
const infinityToken = "Infinity"

// JSONBudgets is a BudgetStore backed by a 13-element JSON array.
type JSONBudgets struct {
	path string
}

var _ BudgetStore = (*JSONBudgets)(nil)

func NewJSONBudgets(path string) *JSONBudgets {
	return &JSONBudgets{path: path}
}

func (b *JSONBudgets) LoadBudgets(ctx context.Context) core.Budgets {
	budgets, err := readBudgets(b.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger().DebugContext(ctx, "Budget file missing, using defaults", log.FieldPath, b.path)
		return core.DefaultBudgets()
	case err != nil:
		logger().WarnContext(ctx, "Budget file unreadable, using defaults", log.FieldPath, b.path, "error", err)
		return core.DefaultBudgets()
	}
	return budgets
}

func (b *JSONBudgets) SaveBudgets(ctx context.Context, budgets core.Budgets) error {
	if err := SaveBudgets(b.path, budgets); err != nil {
		return err
	}
	logger().DebugContext(ctx, "Budgets saved", log.FieldPath, b.path)
	return nil
}

// LoadBudgets reads the budget table at path. A missing, empty or invalid
// file yields core.DefaultBudgets.
func LoadBudgets(path string) core.Budgets {
	budgets, err := readBudgets(path)
	if err != nil {
		return core.DefaultBudgets()
	}
	return budgets
}

func readBudgets(path string) (core.Budgets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Budgets{}, err
	}
	return decodeBudgets(data)
}

func decodeBudgets(data []byte) (core.Budgets, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(quoteBareInfinity(data), &raw); err != nil {
		return core.Budgets{}, fmt.Errorf("decode budgets: %w", err)
	}
	var budgets core.Budgets
	if len(raw) != len(budgets) {
		return core.Budgets{}, fmt.Errorf("decode budgets: expected %d entries, got %d", len(budgets), len(raw))
	}
	for m := 1; m <= 12; m++ {
		v, err := decodeBudget(raw[m])
		if err != nil {
			return core.Budgets{}, fmt.Errorf("decode budget for %s: %w", core.MonthName(m), err)
		}
		budgets[m] = v
	}
	if err := budgets.Validate(); err != nil {
		return core.Budgets{}, err
	}
	return budgets, nil
}

// decodeBudget accepts a number, null (no cap) or the infinity token as a string.
func decodeBudget(raw json.RawMessage) (float64, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	switch v := v.(type) {
	case nil:
		return math.Inf(1), nil
	case float64:
		return v, nil
	case string:
		switch strings.ToLower(v) {
		case "infinity", "inf":
			return math.Inf(1), nil
		}
	}
	return 0, fmt.Errorf("unexpected value %s", raw)
}

// quoteBareInfinity turns the non-standard Infinity literal written by other
// JSON encoders into the string token before decoding.
func quoteBareInfinity(data []byte) []byte {
	if !bytes.Contains(data, []byte(infinityToken)) {
		return data
	}
	var out bytes.Buffer
	inString, escaped := false, false
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case inString:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
		case c == '"':
			inString = true
		case bytes.HasPrefix(data[i:], []byte(infinityToken)):
			out.WriteString(`"` + infinityToken + `"`)
			i += len(infinityToken) - 1
			continue
		}
		out.WriteByte(c)
	}
	return out.Bytes()
}

func encodeBudgets(budgets core.Budgets) ([]byte, error) {
	if err := budgets.Validate(); err != nil {
		return nil, err
	}
	values := make([]any, len(budgets))
	for m := 1; m <= 12; m++ {
		if math.IsInf(budgets[m], 1) {
			values[m] = infinityToken
		} else {
			values[m] = budgets[m]
		}
	}
	return json.Marshal(values)
}

// SaveBudgets overwrites path with the budget table.
func SaveBudgets(path string, budgets core.Budgets) error {
	data, err := encodeBudgets(budgets)
	if err != nil {
		return fmt.Errorf("encode budgets: %w", err)
	}
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write budgets: %w", err)
	}
	return nil
}
