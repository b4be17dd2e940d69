// Package extract turns the portal's detail and history views into structured
// records. Extraction is best-effort by design: malformed table rows are
// dropped and logged, never fabricated, and a failed history drill-down does
// not abort the job.
package extract

import (
	"strings"
)

// Expected history-table column layout. Rows with fewer cells than
// ExpectedColumns are malformed and dropped.
const (
	colID = iota
	colDateTime
	colCustomerName
	colAccountNumber
	colCircuitID
	colContactPhone
	colContactEmail
	colRecordType
	colUpgradeFlag

	ExpectedColumns = 9
)

// HistoryRecord is one well-formed row of the change-history table (or of a
// partition search-result grid, which shares the layout).
type HistoryRecord struct {
	ID             string
	DateTime       string
	CustomerName   string
	AccountNumber  string
	TargetID       string
	ContactPhone   string
	ContactEmail   string
	RecordType     string
	UpgradeFlag    string
	IsCancellation bool
	IsCaptured     bool
	RowIndex       int
}

// RowFromCells builds a HistoryRecord from one row's cell texts. ok is false
// when the row has fewer than the expected column count.
func RowFromCells(cells []string, rowIndex int) (HistoryRecord, bool) {
	if len(cells) < ExpectedColumns {
		return HistoryRecord{}, false
	}
	trimmed := make([]string, ExpectedColumns)
	for i := range trimmed {
		trimmed[i] = strings.TrimSpace(cells[i])
	}
	return HistoryRecord{
		ID:             trimmed[colID],
		DateTime:       trimmed[colDateTime],
		CustomerName:   trimmed[colCustomerName],
		AccountNumber:  trimmed[colAccountNumber],
		TargetID:       trimmed[colCircuitID],
		ContactPhone:   trimmed[colContactPhone],
		ContactEmail:   trimmed[colContactEmail],
		RecordType:     trimmed[colRecordType],
		UpgradeFlag:    trimmed[colUpgradeFlag],
		IsCancellation: isCancellation(trimmed[colRecordType]),
		IsCaptured:     isCaptured(trimmed[colUpgradeFlag]),
		RowIndex:       rowIndex,
	}, true
}

// isCancellation and isCaptured are deliberately loose: the portal renders
// these columns with inconsistent casing and decoration, so only a
// case-insensitive substring check is stable across releases.
func isCancellation(recordType string) bool {
	return strings.Contains(strings.ToLower(recordType), "cancellation")
}

func isCaptured(upgradeFlag string) bool {
	return strings.Contains(strings.ToLower(upgradeFlag), "captured")
}

// defaultExpiryValues are the portal's renderings of "no expiry set".
var defaultExpiryValues = map[string]struct{}{
	"":           {},
	"-":          {},
	"31/12/9999": {},
	"9999-12-31": {},
}

// IsDefaultExpiry reports whether an expiry-date value is the portal default,
// i.e. carries no cease signal.
func IsDefaultExpiry(v string) bool {
	_, ok := defaultExpiryValues[strings.TrimSpace(v)]
	return ok
}
