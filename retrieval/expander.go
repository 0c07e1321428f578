package retrieval

import "strings"

type expansion struct {
	trigger string
	terms   string
}

// expansions are applied in this order.
var expansions = []expansion{
	{"late", "late arrival grace period 9:15"},
	{"arrival", "arrival time late grace period"},
	{"office days", "core days office mandatory tuesday thursday"},
	{"wfh", "work from home remote hybrid"},
	{"sick leave", "sick leave sl medical certificate"},
	{"casual leave", "casual leave cl personal"},
	{"encash", "encashment cash leave balance"},
	{"allowance", "allowance budget reimbursement"},
}

// Expand appends domain synonyms for every trigger phrase found in the
// lower-cased question. Expansions are appended in a fixed order and are
// not deduplicated. The result always starts with the original question.
func Expand(question string) string {
	lower := strings.ToLower(question)
	var sb strings.Builder
	sb.WriteString(question)
	for _, e := range expansions {
		if strings.Contains(lower, e.trigger) {
			sb.WriteByte(' ')
			sb.WriteString(e.terms)
		}
	}
	return sb.String()
}
