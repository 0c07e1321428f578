package core

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Category is a topic tag shared by chunks and questions.
type Category string

const (
	CategoryAttendance  Category = "attendance"
	CategoryRemoteWork  Category = "remote_work"
	CategoryLeavePolicy Category = "leave_policy"
	CategoryBenefits    Category = "benefits"
	CategorySalary      Category = "salary"
	CategoryGeneral     Category = "general"
)

// Topic is one row of the category taxonomy.
type Topic struct {
	Category Category

	// Keywords tag section headers, detect question topics and
	// score keyword hits in chunk text.
	Keywords []string

	// Anchor is the canonical header of the section covering this topic.
	Anchor string

	// AnchorKeywords locate the section when the anchor header is absent.
	AnchorKeywords []string
}

// Taxonomy is the ordered category table. Earlier rows win when a text
// mentions keywords of several categories.
var Taxonomy = []Topic{
	{
		Category: CategoryAttendance,
		Keywords: []string{
			"attendance", "work hours", "working hours", "standard hours", "hours",
			"late", "grace", "arrival", "marked", "9:00", "9:15", "schedule", "deduction",
		},
		Anchor:         "2. Work Hours & Attendance",
		AnchorKeywords: []string{"work hours", "standard hours", "9:00 am", "attendance", "grace period"},
	},
	{
		Category: CategoryRemoteWork,
		Keywords: []string{
			"remote", "wfh", "work from home", "hybrid", "office days", "core days", "tuesday", "thursday",
		},
		Anchor:         "3. Remote Work Policy",
		AnchorKeywords: []string{"remote work", "wfh", "core days", "hybrid"},
	},
	{
		Category: CategoryLeavePolicy,
		Keywords: []string{
			"leave", "annual", "sick", "casual", "privilege", "maternity", "paternity",
			"vacation", "pl", "cl", "sl", "encash", "carry forward",
		},
		Anchor:         "4. Leave Policy",
		AnchorKeywords: []string{"leave policy", "casual leave", "sick leave", "privilege leave"},
	},
	{
		Category: CategoryBenefits,
		Keywords: []string{
			"benefit", "insurance", "health", "allowance", "learning", "certification",
			"budget", "dental", "vision", "retirement", "401",
		},
		Anchor:         "5. Employee Benefits",
		AnchorKeywords: []string{"employee benefits", "health insurance", "learning allowance"},
	},
	{
		Category: CategorySalary,
		Keywords: []string{
			"salary", "salaries", "pay", "paid", "payment", "payroll", "compensation", "wage",
		},
		Anchor:         "Salary",
		AnchorKeywords: []string{"salary", "compensation", "pay"},
	},
}

// LookupTopic returns the taxonomy row for a category.
func LookupTopic(c Category) (Topic, bool) {
	for _, t := range Taxonomy {
		if t.Category == c {
			return t, true
		}
	}
	return Topic{}, false
}

// DetectCategory returns the first taxonomy row with a keyword present in text.
func DetectCategory(text string) (Topic, bool) {
	lower := strings.ToLower(text)
	for _, t := range Taxonomy {
		for _, kw := range t.Keywords {
			if ContainsKeyword(lower, kw) {
				return t, true
			}
		}
	}
	return Topic{}, false
}

// DetectQuestionCategory is DetectCategory for question scoring. Salary
// only tags chunks and never scores a question.
func DetectQuestionCategory(text string) (Topic, bool) {
	lower := strings.ToLower(text)
	for _, t := range Taxonomy {
		if t.Category == CategorySalary {
			continue
		}
		for _, kw := range t.Keywords {
			if ContainsKeyword(lower, kw) {
				return t, true
			}
		}
	}
	return Topic{}, false
}

// CategorizeHeader tags a section header, defaulting to CategoryGeneral.
func CategorizeHeader(header string) Category {
	if t, ok := DetectCategory(header); ok {
		return t.Category
	}
	return CategoryGeneral
}

// ContainsKeyword reports whether the lower-cased text contains keyword
// starting at a word boundary. Keywords of three characters or fewer must
// also end at a word boundary, so "pl" does not fire inside "apply".
func ContainsKeyword(lower, keyword string) bool {
	if keyword == "" {
		return false
	}
	whole := utf8.RuneCountInString(keyword) <= 3
	for from := 0; from <= len(lower)-len(keyword); {
		i := strings.Index(lower[from:], keyword)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(keyword)
		if boundaryBefore(lower, start) && (!whole || boundaryAfter(lower, end)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(lower[start:])
		from = start + size
	}
	return false
}

// ContainsPhrase reports whether phrase occurs in the lower-cased text
// bounded by non-word characters on both sides.
func ContainsPhrase(lower, phrase string) bool {
	_, ok := IndexPhrase(lower, phrase, nil)
	return ok
}

// IndexPhrase finds the first word-bounded occurrence of phrase in lower
// whose span is not already marked in claimed. claimed may be nil.
func IndexPhrase(lower, phrase string, claimed []bool) (int, bool) {
	if phrase == "" {
		return 0, false
	}
	for from := 0; from <= len(lower)-len(phrase); {
		i := strings.Index(lower[from:], phrase)
		if i < 0 {
			return 0, false
		}
		start := from + i
		end := start + len(phrase)
		if boundaryBefore(lower, start) && boundaryAfter(lower, end) && !overlaps(claimed, start, end) {
			return start, true
		}
		_, size := utf8.DecodeRuneInString(lower[start:])
		from = start + size
	}
	return 0, false
}

func overlaps(claimed []bool, start, end int) bool {
	if claimed == nil {
		return false
	}
	for i := start; i < end && i < len(claimed); i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
