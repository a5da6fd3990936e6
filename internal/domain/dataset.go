package domain

import "github.com/cockroachdb/errors"

// Table is the tabular output of an extraction engine: an ordered header and
// one field mapping per extracted record.
type Table struct {
	Columns []string
	Rows    []Fields
}

// Len returns the number of extracted rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Dataset converts every row into a Record.
func (t Table) Dataset() (Dataset, error) {
	records := make([]Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		rec, err := RecordFromFields(row)
		if err != nil {
			return Dataset{}, errors.Wrapf(err, "row %d", i+1)
		}
		records = append(records, rec)
	}
	return Dataset{Columns: append([]string(nil), t.Columns...), Records: records}, nil
}

// Dataset is an ordered collection of records sharing a column set. When the
// id column is present, record ids are unique and non-decreasing in insertion
// order.
type Dataset struct {
	Columns []string
	Records []Record
}

// NewDataset builds a dataset carrying the standard measurement columns.
func NewDataset(records []Record) Dataset {
	return Dataset{
		Columns: append([]string(nil), MeasurementColumns...),
		Records: records,
	}
}

// Len returns the number of records.
func (d Dataset) Len() int {
	return len(d.Records)
}

// Empty reports whether the dataset holds no records.
func (d Dataset) Empty() bool {
	return len(d.Records) == 0
}

// HasColumn reports whether name is part of the dataset schema.
func (d Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// MaxID returns the largest record id, or 0 when the dataset is empty or has
// no id column.
func (d Dataset) MaxID() int64 {
	if !d.HasColumn(ColumnID) {
		return 0
	}
	var maxID int64
	for _, r := range d.Records {
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	return maxID
}

// IDs returns the record ids in dataset order.
func (d Dataset) IDs() []int64 {
	ids := make([]int64, len(d.Records))
	for i, r := range d.Records {
		ids[i] = r.ID
	}
	return ids
}

// Last returns a copy of the n most recent records. A non-positive n returns
// every record.
func (d Dataset) Last(n int) []Record {
	records := d.Records
	if n > 0 && n < len(records) {
		records = records[len(records)-n:]
	}
	return append([]Record(nil), records...)
}

// WithSource returns a copy of the dataset with every record tagged with name.
func (d Dataset) WithSource(name string) Dataset {
	out := d.Clone()
	for i := range out.Records {
		out.Records[i].SourceFile = name
	}
	if !out.HasColumn(ColumnSourceFile) {
		out.Columns = append(out.Columns, ColumnSourceFile)
	}
	return out
}

// Clone returns a deep copy of the dataset.
func (d Dataset) Clone() Dataset {
	return Dataset{
		Columns: append([]string(nil), d.Columns...),
		Records: append([]Record(nil), d.Records...),
	}
}

// Merge appends to existing the incoming records whose id is greater than the
// largest id already present, and reports how many were appended. An empty
// existing dataset yields incoming as is. When either side has no id column
// every incoming record is appended. Neither input is modified.
func Merge(existing, incoming Dataset) (Dataset, int) {
	if existing.Empty() {
		return incoming.Clone(), incoming.Len()
	}

	fresh := incoming.Records
	if existing.HasColumn(ColumnID) && incoming.HasColumn(ColumnID) {
		maxID := existing.MaxID()
		fresh = make([]Record, 0, len(incoming.Records))
		for _, r := range incoming.Records {
			if r.ID > maxID {
				fresh = append(fresh, r)
			}
		}
	}
	if len(fresh) == 0 {
		return existing, 0
	}

	records := make([]Record, 0, len(existing.Records)+len(fresh))
	records = append(records, existing.Records...)
	records = append(records, fresh...)

	return Dataset{
		Columns: unionColumns(existing.Columns, incoming.Columns),
		Records: records,
	}, len(fresh)
}

func unionColumns(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, c := range list {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
