// Package artifact is the append-only archive of built documents.
//
// An artifact is addressed by a prefix (one per document family, for
// example "salary_slip_E042") and ordered inside that prefix by its Stamp:
// a typed creation time plus a sequence number that breaks ties between
// equal clock readings. Latest returns the maximum stamp. Artifacts are
// never mutated; Delete exists for the cleanup command only.
package artifact

import (
	"errors"
	"strconv"
	"time"

	"github.com/xraph/payroll/id"
)

// ErrConflict is returned by a Store when an insert does not sort strictly
// after every existing artifact of the same prefix.
var ErrConflict = errors.New("payroll: artifact stamp conflict")

// Media types of archived documents.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MediaTypeCSV  = "text/csv"
	MediaTypeText = "text/plain; charset=utf-8"
)

const (
	slipPrefix   = "salary_slip_"
	reportPrefix = "salary_report_"
)

// SlipPrefix returns the prefix of an employee's salary slips.
func SlipPrefix(employeeCode string) string { return slipPrefix + employeeCode }

// ReportPrefix returns the prefix of a manager's aggregate salary reports.
func ReportPrefix(managerID int64) string {
	return reportPrefix + strconv.FormatInt(managerID, 10)
}

// Extension maps a media type to a file extension, including the dot.
func Extension(mediaType string) string {
	switch mediaType {
	case MediaTypePDF:
		return ".pdf"
	case MediaTypeXLSX:
		return ".xlsx"
	case MediaTypeCSV:
		return ".csv"
	case MediaTypeText:
		return ".txt"
	default:
		return ".bin"
	}
}

// Stamp orders artifacts inside a prefix.
type Stamp struct {
	At  time.Time `json:"at"`
	Seq int64     `json:"seq"`
}

// Before reports whether s sorts strictly before o.
func (s Stamp) Before(o Stamp) bool {
	if !s.At.Equal(o.At) {
		return s.At.Before(o.At)
	}
	return s.Seq < o.Seq
}

// Next returns the smallest stamp strictly after s using the clock reading
// now. Readings that do not advance past s reuse s.At with the next Seq.
func (s Stamp) Next(now time.Time) Stamp {
	now = now.UTC().Truncate(time.Microsecond)
	if now.After(s.At) {
		return Stamp{At: now}
	}
	return Stamp{At: s.At, Seq: s.Seq + 1}
}

// Artifact is an archived document.
type Artifact struct {
	ID        id.ArtifactID `json:"id"`
	Prefix    string        `json:"prefix"`
	CreatedAt time.Time     `json:"created_at"`
	Seq       int64         `json:"seq"`
	MediaType string        `json:"media_type"`
	Payload   []byte        `json:"-"`
	Size      int64         `json:"size"`
}

// Stamp returns the artifact's ordering key.
func (a *Artifact) Stamp() Stamp {
	return Stamp{At: a.CreatedAt, Seq: a.Seq}
}

// FileName returns the attachment name for the artifact.
func (a *Artifact) FileName() string {
	return a.Prefix + Extension(a.MediaType)
}
