// services/rows.go
package services

// Output table names.
const (
	LogTable  = "log_answers"
	DataTable = "data_analysis"
	URLTable  = "url_analysis"
)

// Raw answers longer than this are truncated in the log row to keep cell
// sizes inside backend limits.
const maxLogResponseLen = 45000

// rowPrefix is shared by all three output tables.
var rowPrefix = []string{
	"Timestamp",
	"Date",
	"Query Category",
	"Query Type",
	"Query Product",
	"Persona",
	"Query",
	"Provider",
}

// LogHeader is the header of the raw-answer log table.
var LogHeader = append(append([]string{}, rowPrefix...),
	"Found Count",
	"Input Tokens",
	"Output Tokens",
	"Response",
)

// DataHeader is the header of the per-brand analysis table.
var DataHeader = append(append([]string{}, rowPrefix...),
	"Brand",
	"Brand Type",
	"Text Presence",
	"Citation Presence",
	"Mention Count",
	"Matched Keywords",
	"Sentiment",
	"Recommendation",
	"Rank",
)

// URLHeader is the header of the citation attribution table.
var URLHeader = append(append([]string{}, rowPrefix...),
	"URL",
	"Owner",
	"Owner Type",
)
