package domain

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Column names of the measurement table in presentation order.
const (
	ColumnID              = "id"
	ColumnLatency         = "latency"
	ColumnPdcpSduVolumeDL = "PdcpSduVolumeDL"
	ColumnPdcpSduVolumeUL = "PdcpSduVolumeUL"
	ColumnRlcSduDelayDl   = "RlcSduDelayDl"
	ColumnUEThpDl         = "UEThpDl"
	ColumnUEThpUl         = "UEThpUl"
	ColumnPrbTotDl        = "PrbTotDl"
	ColumnPrbTotUl        = "PrbTotUl"
	ColumnSourceFile      = "source_file"
)

// MeasurementColumns lists the columns every extractor is expected to emit.
var MeasurementColumns = []string{
	ColumnID,
	ColumnLatency,
	ColumnPdcpSduVolumeDL,
	ColumnPdcpSduVolumeUL,
	ColumnRlcSduDelayDl,
	ColumnUEThpDl,
	ColumnUEThpUl,
	ColumnPrbTotDl,
	ColumnPrbTotUl,
}

// Record is one KPM indication extracted from a log.
type Record struct {
	ID              int64   `json:"id"`
	Latency         int64   `json:"latency"`
	PdcpSduVolumeDL float64 `json:"PdcpSduVolumeDL"`
	PdcpSduVolumeUL float64 `json:"PdcpSduVolumeUL"`
	RlcSduDelayDl   float64 `json:"RlcSduDelayDl"`
	UEThpDl         float64 `json:"UEThpDl"`
	UEThpUl         float64 `json:"UEThpUl"`
	PrbTotDl        int64   `json:"PrbTotDl"`
	PrbTotUl        int64   `json:"PrbTotUl"`
	SourceFile      string  `json:"source_file,omitempty"`
}

// Fields is a raw field-name to value mapping produced by an extraction engine.
type Fields map[string]string

// RecordFromFields converts raw fields into a Record. Missing or empty fields
// keep their zero value; a value that is not numeric is reported as
// ErrMalformedOutput.
func RecordFromFields(fields Fields) (Record, error) {
	var (
		rec Record
		err error
	)

	ints := []struct {
		column string
		dst    *int64
	}{
		{ColumnID, &rec.ID},
		{ColumnLatency, &rec.Latency},
		{ColumnPrbTotDl, &rec.PrbTotDl},
		{ColumnPrbTotUl, &rec.PrbTotUl},
	}
	for _, f := range ints {
		if *f.dst, err = parseInt(fields, f.column); err != nil {
			return Record{}, err
		}
	}

	floats := []struct {
		column string
		dst    *float64
	}{
		{ColumnPdcpSduVolumeDL, &rec.PdcpSduVolumeDL},
		{ColumnPdcpSduVolumeUL, &rec.PdcpSduVolumeUL},
		{ColumnRlcSduDelayDl, &rec.RlcSduDelayDl},
		{ColumnUEThpDl, &rec.UEThpDl},
		{ColumnUEThpUl, &rec.UEThpUl},
	}
	for _, f := range floats {
		if *f.dst, err = parseFloat(fields, f.column); err != nil {
			return Record{}, err
		}
	}

	rec.SourceFile = strings.TrimSpace(fields[ColumnSourceFile])
	return rec, nil
}

// Fields renders the record back into its raw textual form.
func (r Record) Fields() Fields {
	fields := Fields{
		ColumnID:              strconv.FormatInt(r.ID, 10),
		ColumnLatency:         strconv.FormatInt(r.Latency, 10),
		ColumnPdcpSduVolumeDL: formatFloat(r.PdcpSduVolumeDL),
		ColumnPdcpSduVolumeUL: formatFloat(r.PdcpSduVolumeUL),
		ColumnRlcSduDelayDl:   formatFloat(r.RlcSduDelayDl),
		ColumnUEThpDl:         formatFloat(r.UEThpDl),
		ColumnUEThpUl:         formatFloat(r.UEThpUl),
		ColumnPrbTotDl:        strconv.FormatInt(r.PrbTotDl, 10),
		ColumnPrbTotUl:        strconv.FormatInt(r.PrbTotUl, 10),
	}
	if r.SourceFile != "" {
		fields[ColumnSourceFile] = r.SourceFile
	}
	return fields
}

func parseInt(fields Fields, column string) (int64, error) {
	raw := strings.TrimSpace(fields[column])
	if raw == "" {
		return 0, nil
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, errors.Wrapf(ErrMalformedOutput, "column %s: %q is not an integer", column, raw)
	}
	return int64(f), nil
}

func parseFloat(fields Fields, column string) (float64, error) {
	raw := strings.TrimSpace(fields[column])
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedOutput, "column %s: %q is not a number", column, raw)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
