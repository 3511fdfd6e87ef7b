package catalog

import (
	"fmt"
	"strings"

	"github.com/koustreak/mdbread/internal/errs"
)

// Format selects one of the per-table dump representations.
type Format int

const (
	FormatCSV Format = iota
	FormatSQL
)

// Formats lists every supported format.
var Formats = []Format{FormatCSV, FormatSQL}

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatSQL:
		return "sql"
	default:
		return "unknown"
	}
}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	return f == FormatCSV || f == FormatSQL
}

// Ext returns the file extension used when a dump is written out.
func (f Format) Ext() string {
	return "." + f.String()
}

// ContentType returns the MIME type of the dump.
func (f Format) ContentType() string {
	if f == FormatSQL {
		return "application/sql; charset=utf-8"
	}
	return "text/csv; charset=utf-8"
}

// ParseFormat maps "csv" or "sql" (any case) to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "sql":
		return FormatSQL, nil
	}
	return 0, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unsupported format: %q", s))
}
