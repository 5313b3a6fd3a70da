package csvmap

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseResult is the outcome of reading one CSV file.
type ParseResult struct {
	Delimiter rune
	Headers   []string
	Rows      []NormalizedRow
}

// Parse reads a whole CSV export: strips a byte-order mark, sniffs the
// delimiter from the first line, normalizes headers and trims every value.
// Rows with a different field count than the header are still accepted; the
// missing cells become empty strings.
func Parse(data []byte) (*ParseResult, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	delimiter := DetectDelimiter(string(data))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headerRecord, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	headers := make([]string, len(headerRecord))
	for i, h := range headerRecord {
		headers[i] = NormalizeHeader(h)
	}

	result := &ParseResult{Delimiter: delimiter, Headers: headers}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", len(result.Rows)+2, err)
		}
		if isEmptyRecord(record) {
			continue
		}
		result.Rows = append(result.Rows, ToNormalizedRecord(headerRecord, record))
	}
	return result, nil
}

func isEmptyRecord(record []string) bool {
	for _, v := range record {
		if v != "" {
			return false
		}
	}
	return true
}
