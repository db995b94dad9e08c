package importer

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/models"
)

// Column positions in the template
const (
	colBrand = iota
	colModel
	colYear
	colKm
	colPrice
	colDescription
	colStatus
	colFeatured
	colImage1
	colImage2
	colImage3
)

// MinFields is the number of fields a line needs to become a row
const MinFields = colDescription + 1

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SkippedLine records a non-blank data line that was too short to import
type SkippedLine struct {
	Line   int    `json:"line"`
	Fields int    `json:"fields"`
	Reason string `json:"reason"`
}

// Preview is the parsed content of a CSV file, in file order
type Preview struct {
	Rows    []models.ImportRow `json:"rows"`
	Skipped []SkippedLine      `json:"skipped,omitempty"`
}

// Len returns the number of rows that will be submitted
func (p *Preview) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Rows)
}

// CheckFileName rejects anything that does not look like a CSV file
func CheckFileName(name string) error {
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "please select a CSV file (got %q)", filepath.Base(name))
	}
	return nil
}

// Parse reads a whole CSV file and coerces its lines into rows.
func Parse(r io.Reader) (*Preview, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "CSV file is not valid UTF-8 text")
	}

	return ParseText(string(data), time.Now()), nil
}

// ParseText splits text into lines, drops blank ones, ignores the header and
// maps the remaining lines positionally. Lines with fewer than MinFields
// fields are reported in Skipped instead of Rows. now supplies the default
// year.
func ParseText(text string, now time.Time) *Preview {
	preview := &Preview{Rows: []models.ImportRow{}}
	headerSeen := false

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSuffix(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !headerSeen {
			headerSeen = true
			continue
		}

		lineNo := i + 1
		fields := SplitLine(line)
		if len(fields) < MinFields {
			preview.Skipped = append(preview.Skipped, SkippedLine{
				Line:   lineNo,
				Fields: len(fields),
				Reason: fmt.Sprintf("expected at least %d fields, got %d", MinFields, len(fields)),
			})
			continue
		}

		preview.Rows = append(preview.Rows, coerceRow(lineNo, fields, now))
	}

	return preview
}

func coerceRow(lineNo int, fields []string, now time.Time) models.ImportRow {
	year, ok := leadingInt(field(fields, colYear))
	if !ok || year == 0 {
		year = now.Year()
	}
	km, _ := leadingInt(field(fields, colKm))
	price, _ := leadingFloat(field(fields, colPrice))

	status := models.CarStatus(field(fields, colStatus))
	if status == "" {
		status = models.CarStatusAvailable
	}

	images := make([]string, 0, 3)
	for _, col := range []int{colImage1, colImage2, colImage3} {
		if img := field(fields, col); img != "" {
			images = append(images, img)
		}
	}

	return models.ImportRow{
		Line:        lineNo,
		Brand:       field(fields, colBrand),
		Model:       field(fields, colModel),
		Year:        year,
		Km:          km,
		Price:       price,
		Description: field(fields, colDescription),
		Status:      status,
		Featured:    strings.EqualFold(field(fields, colFeatured), "true"),
		Images:      images,
	}
}

func field(fields []string, idx int) string {
	if idx < len(fields) {
		return fields[idx]
	}
	return ""
}

// leadingInt parses the integer prefix of s ("35000km" -> 35000).
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := signLen(s)
	digits := end
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// leadingFloat parses the decimal prefix of s ("125000.00 BRL" -> 125000).
func leadingFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := signLen(s)
	mantissa := 0
	for end < len(s) && isDigit(s[end]) {
		end++
		mantissa++
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && isDigit(s[end]) {
			end++
			mantissa++
		}
	}
	if mantissa == 0 {
		return 0, false
	}

	// exponent only counts when it has digits
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		exp += signLen(s[exp:])
		start := exp
		for exp < len(s) && isDigit(s[exp]) {
			exp++
		}
		if exp > start {
			end = exp
		}
	}

	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func signLen(s string) int {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		return 1
	}
	return 0
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
