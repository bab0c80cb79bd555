package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ReadCSV parses an input file. The first record is the header; rows may be
// ragged, short rows are kept as-is and padded only on output.
func ReadCSV(r io.Reader) (*Document, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	doc := &Document{Header: header}
	for i := 0; ; i++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", i+1, err)
		}
		doc.Rows = append(doc.Rows, Row{Index: i, Fields: record})
	}

	return doc, nil
}

// Writer emits output rows with result columns appended
type Writer struct {
	csv     *csv.Writer
	columns int
}

// NewWriter creates an output writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the original header followed by the result columns
func (w *Writer) WriteHeader(original []string) error {
	w.columns = len(original)
	return w.csv.Write(append(append([]string{}, original...), ResultColumns...))
}

// WriteRow writes one original row padded to header width, followed by its
// result fields.
func (w *Writer) WriteRow(original []string, res ResultFields) error {
	record := append([]string{}, original...)
	for len(record) < w.columns {
		record = append(record, "")
	}

	record = append(record,
		res.ProductID,
		res.Availability,
		strconv.Itoa(res.StockQuantity),
		strconv.Itoa(res.ImagesDownloaded),
		res.DownloadFolder,
		res.Error,
	)
	return w.csv.Write(record)
}

// Flush writes buffered rows and reports any write error
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}
