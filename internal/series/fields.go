// Package series turns the raw multi-series observation frame fetched at
// startup into the two read-only tables the dashboard charts are drawn from.
package series

// Field names as they appear in tables, chart traces and the spread dropdown.
const (
	FieldPolicyRate = "ffrate"
	Field3M         = "3mT"
	Field2Y         = "2yT"
	Field5Y         = "5yT"
	Field10Y        = "10yT"
	Field30Y        = "30yT"

	FieldTEDSpread    = "tedspread"
	FieldBreakeven10Y = "breakeven10Y"
	FieldSpread3M10Y  = "3m10ySpread"
	FieldSpread2Y10Y  = "2y10ySpread"
	FieldSpreadBaa10Y = "baa10ySpread"
)

// LevelFields lists the levels table columns in display order.
var LevelFields = []string{FieldPolicyRate, Field3M, Field2Y, Field5Y, Field10Y, Field30Y}

// SpreadFields lists the spreads table columns in display order.
var SpreadFields = []string{FieldTEDSpread, FieldSpread3M10Y, FieldSpread2Y10Y, FieldSpreadBaa10Y}

// SourceField binds an upstream series identifier to its field name.
type SourceField struct {
	ID    string `json:"id"`
	Field string `json:"field"`
}

// SourceFields is the fixed set of FRED series the dashboard fetches, in
// request order. T10YIE (10-year breakeven inflation) is fetched alongside
// the others but feeds neither table.
var SourceFields = []SourceField{
	{ID: "DFF", Field: FieldPolicyRate},
	{ID: "DGS3MO", Field: Field3M},
	{ID: "DGS2", Field: Field2Y},
	{ID: "DGS5", Field: Field5Y},
	{ID: "DGS10", Field: Field10Y},
	{ID: "DGS30", Field: Field30Y},
	{ID: "TEDRATE", Field: FieldTEDSpread},
	{ID: "T10YIE", Field: FieldBreakeven10Y},
	{ID: "T10Y3M", Field: FieldSpread3M10Y},
	{ID: "T10Y2Y", Field: FieldSpread2Y10Y},
	{ID: "BAA10Y", Field: FieldSpreadBaa10Y},
}

// SourceIDs returns the upstream identifiers of SourceFields in order.
func SourceIDs() []string {
	ids := make([]string, len(SourceFields))
	for i, sf := range SourceFields {
		ids[i] = sf.ID
	}
	return ids
}

// SourceID returns the upstream identifier feeding field.
func SourceID(field string) (string, bool) {
	for _, sf := range SourceFields {
		if sf.Field == field {
			return sf.ID, true
		}
	}
	return "", false
}

// IsSpreadField reports whether field is one of SpreadFields.
func IsSpreadField(field string) bool {
	for _, f := range SpreadFields {
		if f == field {
			return true
		}
	}
	return false
}
