// Package sheets даёт доступ к устаревшим профилям партнёров, которые хранятся
// в таблице Google Sheets: первая строка содержит заголовки, строка ищется по email.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

var (
	// ErrNotFound возвращается, если строка с таким email не найдена.
	ErrNotFound = errors.New("legacy profile not found")
	// ErrInvalidColumn возвращается при попытке изменить неизвестную или защищённую колонку.
	ErrInvalidColumn = errors.New("invalid column")
)

const emailColumn = "email"

// Profile представляет строку таблицы в виде «заголовок → значение».
type Profile map[string]string

// Store читает и обновляет строки листа.
type Store struct {
	values        *gsheets.SpreadsheetsValuesService
	spreadsheetID string
	readRange     string
	anchor        anchor
}

// anchor указывает на верхнюю левую ячейку диапазона чтения.
type anchor struct {
	sheet string
	col   string
	row   int
}

// parseAnchor извлекает лист и начальную ячейку из диапазона в нотации A1.
// Диапазон без "!", который не похож на ячейки, считается именем листа.
func parseAnchor(readRange string) (anchor, error) {
	sheet, cells := "", readRange
	if i := strings.LastIndex(readRange, "!"); i >= 0 {
		sheet, cells = readRange[:i], readRange[i+1:]
	}

	start := cells
	if j := strings.Index(cells, ":"); j >= 0 {
		start = cells[:j]
	}

	col, row, ok := splitCell(start)
	if !ok {
		if sheet == "" && !strings.Contains(cells, ":") {
			return anchor{sheet: readRange, col: "A", row: 1}, nil
		}
		return anchor{}, fmt.Errorf("invalid sheet range %q", readRange)
	}
	return anchor{sheet: sheet, col: col, row: row}, nil
}

func splitCell(cell string) (string, int, bool) {
	cell = strings.ToUpper(strings.TrimSpace(cell))

	n := 0
	for n < len(cell) && cell[n] >= 'A' && cell[n] <= 'Z' {
		n++
	}
	col, digits := cell[:n], cell[n:]
	if len(col) > 3 {
		return "", 0, false
	}
	if col == "" {
		col = "A"
	}

	if strings.Trim(digits, "0123456789") != "" {
		return "", 0, false
	}

	row := 1
	if digits != "" {
		v, err := strconv.Atoi(digits)
		if err != nil || v < 1 {
			return "", 0, false
		}
		row = v
	}
	return col, row, true
}

// rowTarget возвращает ячейку, с которой начинается строка idx прочитанных значений.
func (a anchor) rowTarget(idx int) string {
	cell := fmt.Sprintf("%s%d", a.col, a.row+idx)
	if a.sheet == "" {
		return cell
	}
	return a.sheet + "!" + cell
}

// NewStore подключается к Sheets API. readRange задаётся в нотации A1, например "Afiliados!A1:Z".
func NewStore(ctx context.Context, spreadsheetID, readRange string, opts ...option.ClientOption) (*Store, error) {
	a, err := parseAnchor(readRange)
	if err != nil {
		return nil, err
	}

	srv, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Store{
		values:        srv.Spreadsheets.Values,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
		anchor:        a,
	}, nil
}

func (s *Store) load(ctx context.Context) ([][]interface{}, error) {
	resp, err := s.values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	return resp.Values, nil
}

// Get возвращает профиль по email.
func (s *Store) Get(ctx context.Context, email string) (Profile, error) {
	rows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	idx, err := findRow(rows, email)
	if err != nil {
		return nil, err
	}
	return toProfile(rows[0], rows[idx]), nil
}

// Patch обновляет перечисленные колонки строки с указанным email и возвращает новый профиль.
// Неизвестные колонки отклоняются.
func (s *Store) Patch(ctx context.Context, email string, changes Profile) (Profile, error) {
	rows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	idx, err := findRow(rows, email)
	if err != nil {
		return nil, err
	}

	updated, err := applyPatch(rows[0], rows[idx], changes)
	if err != nil {
		return nil, err
	}

	_, err = s.values.Update(s.spreadsheetID, s.anchor.rowTarget(idx), &gsheets.ValueRange{
		Values: [][]interface{}{updated},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("update sheet row: %w", err)
	}

	return toProfile(rows[0], updated), nil
}

func headerName(v interface{}) string {
	return strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
}

func findRow(rows [][]interface{}, email string) (int, error) {
	if len(rows) == 0 {
		return 0, ErrNotFound
	}

	col := -1
	for i, h := range rows[0] {
		if headerName(h) == emailColumn {
			col = i
			break
		}
	}
	if col < 0 {
		return 0, fmt.Errorf("sheet has no %q column", emailColumn)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	for i := 1; i < len(rows); i++ {
		if col < len(rows[i]) && strings.ToLower(strings.TrimSpace(fmt.Sprint(rows[i][col]))) == email {
			return i, nil
		}
	}
	return 0, ErrNotFound
}

func toProfile(header, row []interface{}) Profile {
	p := make(Profile, len(header))
	for i, h := range header {
		name := headerName(h)
		if name == "" {
			continue
		}
		if i < len(row) {
			p[name] = fmt.Sprint(row[i])
		} else {
			p[name] = ""
		}
	}
	return p
}

func applyPatch(header, row []interface{}, changes Profile) ([]interface{}, error) {
	updated := make([]interface{}, len(header))
	copy(updated, row)
	for i := range updated {
		if updated[i] == nil {
			updated[i] = ""
		}
	}

	for key, value := range changes {
		name := strings.ToLower(strings.TrimSpace(key))
		if name == emailColumn {
			return nil, fmt.Errorf("%w: %q is read-only", ErrInvalidColumn, emailColumn)
		}

		col := -1
		for i, h := range header {
			if headerName(h) == name {
				col = i
				break
			}
		}
		if col < 0 {
			return nil, fmt.Errorf("%w: unknown %q", ErrInvalidColumn, key)
		}
		updated[col] = value
	}

	return updated, nil
}
