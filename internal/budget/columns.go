package budget

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"obra/internal"
)

// ColumnMap holds zero-based column indexes per role. Cost is -1 when unmapped.
type ColumnMap struct {
	Code     int
	Unit     int
	Text     int
	Quantity int
	Price    int
	Cost     int
}

// ColumnLetters is the spreadsheet-letter form used in import profiles.
type ColumnLetters struct {
	Code     string `toml:"code"`
	Unit     string `toml:"unit"`
	Text     string `toml:"text"`
	Quantity string `toml:"quantity"`
	Price    string `toml:"price"`
	Cost     string `toml:"cost,omitempty"`
}

// Resolve converts letters to indexes once, before any row is processed.
func (l ColumnLetters) Resolve() (ColumnMap, error) {
	var m ColumnMap
	var err error
	required := []struct {
		role   string
		letter string
		dst    *int
	}{
		{"code", l.Code, &m.Code},
		{"unit", l.Unit, &m.Unit},
		{"text", l.Text, &m.Text},
		{"quantity", l.Quantity, &m.Quantity},
		{"price", l.Price, &m.Price},
	}
	for _, r := range required {
		if *r.dst, err = columnIndex(r.role, r.letter); err != nil {
			return ColumnMap{}, err
		}
	}
	m.Cost = -1
	if strings.TrimSpace(l.Cost) != "" {
		if m.Cost, err = columnIndex("cost", l.Cost); err != nil {
			return ColumnMap{}, err
		}
	}
	return m, nil
}

func columnIndex(role, letter string) (int, error) {
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if letter == "" {
		return 0, internal.NewInputError("columns."+role, "column letter is required")
	}
	n, err := excelize.ColumnNameToNumber(letter)
	if err != nil {
		return 0, internal.NewInputError("columns."+role, fmt.Sprintf("bad column %q: %v", letter, err))
	}
	return n - 1, nil
}

// Width is the minimum number of cells a row needs to cover every mapped column.
func (m ColumnMap) Width() int {
	w := 0
	for _, idx := range []int{m.Code, m.Unit, m.Text, m.Quantity, m.Price, m.Cost} {
		if idx+1 > w {
			w = idx + 1
		}
	}
	return w
}

func (m ColumnMap) Validate() error {
	for role, idx := range map[string]int{"code": m.Code, "unit": m.Unit, "text": m.Text, "quantity": m.Quantity, "price": m.Price} {
		if idx < 0 {
			return internal.NewInputError("columns."+role, "column is not mapped")
		}
	}
	if m.Cost < -1 {
		return internal.NewInputError("columns.cost", "bad index")
	}
	return nil
}
