// Package table reads and writes the header-plus-rows text format exchanged
// with external extraction engines and offered as dataset downloads.
package table

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/PauloFidalgo/cmov-5g/internal/domain"
)

// Decode reads a CSV header row followed by data rows. Blank input yields
// domain.ErrNoRecords; anything that is not rectangular CSV yields
// domain.ErrMalformedOutput.
func Decode(r io.Reader) (domain.Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return domain.Table{}, domain.ErrNoRecords
	}
	if err != nil {
		return domain.Table{}, errors.Wrap(domain.ErrMalformedOutput, err.Error())
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	table := domain.Table{Columns: columns}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Table{}, errors.Wrap(domain.ErrMalformedOutput, err.Error())
		}

		fields := make(domain.Fields, len(columns))
		for i, column := range columns {
			fields[column] = row[i]
		}
		table.Rows = append(table.Rows, fields)
	}

	if len(table.Rows) == 0 {
		return table, domain.ErrNoRecords
	}
	return table, nil
}

// Encode writes the table as CSV with a header row.
func Encode(w io.Writer, t domain.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return errors.Wrap(err, "write header")
	}

	row := make([]string, len(t.Columns))
	for _, fields := range t.Rows {
		for i, column := range t.Columns {
			row[i] = fields[column]
		}
		if err := writer.Write(row); err != nil {
			return errors.Wrap(err, "write row")
		}
	}

	writer.Flush()
	return errors.Wrap(writer.Error(), "flush")
}

// FromRecords builds a table with the given columns from records.
func FromRecords(columns []string, records []domain.Record) domain.Table {
	t := domain.Table{
		Columns: append([]string(nil), columns...),
		Rows:    make([]domain.Fields, len(records)),
	}
	for i, r := range records {
		t.Rows[i] = r.Fields()
	}
	return t
}

// WriteRecords writes records as CSV. The source_file column is included when
// any record carries a source.
func WriteRecords(w io.Writer, records []domain.Record) error {
	columns := append([]string(nil), domain.MeasurementColumns...)
	for _, r := range records {
		if r.SourceFile != "" {
			columns = append(columns, domain.ColumnSourceFile)
			break
		}
	}
	return Encode(w, FromRecords(columns, records))
}
