// Package codec extracts an inspection fact (plate + expiry date) from an
// inbound chat event. Two pure strategies are tried in a fixed order, free
// text first and then the attached document's file name; the first strategy
// that matches wins.
//
// Supported encodings:
//
//	"ABC123 annual 2026-03-10"  -> plate ABC123, date 2026-03-10 (text)
//	"1225H03058.pdf"            -> plate H03058, date 2025-12-31 (file name, MMYY<plate>)
//
// Every function here is total: malformed input yields "no match", never an
// error or a panic.
package codec

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/annual-inspection-bot/internal/domain"
)

var (
	// isoDateRE finds the first YYYY-MM-DD shaped substring.
	isoDateRE = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	// extRE matches a trailing ".ext" (no dots or slashes inside the suffix).
	extRE = regexp.MustCompile(`\.[^/.]+$`)
	// fileNameRE is MM YY <plate>.
	fileNameRE = regexp.MustCompile(`^(\d{2})(\d{2})(.+)$`)
)

// Source is the parseable content of one inbound message.
type Source struct {
	// Text is the message text or the media caption.
	Text string
	// FileName is the attached document's file name ("" when none).
	FileName string
}

// Result is the outcome of a parse attempt: either a fact (OK) or no match.
type Result struct {
	Fact domain.ParsedFact
	OK   bool
}

// Strategy is one named way of reading a fact out of a Source.
type Strategy struct {
	Name domain.Strategy
	Try  func(Source) (domain.ParsedFact, bool)
}

// Parser runs its strategies in order and returns the first match.
type Parser struct {
	strategies []Strategy
}

// DefaultStrategies returns the text strategy followed by the file-name one.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: domain.StrategyText, Try: func(s Source) (domain.ParsedFact, bool) { return ParseText(s.Text) }},
		{Name: domain.StrategyFileName, Try: func(s Source) (domain.ParsedFact, bool) { return ParseFileName(s.FileName) }},
	}
}

// New builds a Parser. With no strategies given it uses DefaultStrategies.
func New(strategies ...Strategy) *Parser {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Parser{strategies: strategies}
}

// Parse tries each strategy in order; the first success short-circuits.
func (p *Parser) Parse(src Source) Result {
	for _, s := range p.strategies {
		if fact, ok := s.Try(src); ok {
			fact.Strategy = s.Name
			return Result{Fact: fact, OK: true}
		}
	}
	return Result{}
}

// Parse runs the default strategies against src.
func Parse(src Source) Result { return defaultParser.Parse(src) }

var defaultParser = New()

// ParseText finds the first YYYY-MM-DD in text and takes the last
// whitespace-delimited token before it as the plate. It fails when there is
// no preceding token or when the digits are not a real calendar date.
func ParseText(text string) (domain.ParsedFact, bool) {
	if text == "" {
		return domain.ParsedFact{}, false
	}
	loc := isoDateRE.FindStringIndex(text)
	if loc == nil {
		return domain.ParsedFact{}, false
	}

	before := strings.Fields(text[:loc[0]])
	if len(before) == 0 {
		return domain.ParsedFact{}, false
	}

	date, err := domain.ParseCalendarDate(text[loc[0]:loc[1]])
	if err != nil {
		return domain.ParsedFact{}, false
	}
	return domain.ParsedFact{
		Plate:    NormalizePlate(before[len(before)-1]),
		Date:     date,
		Strategy: domain.StrategyText,
	}, true
}

// ParseFileName decodes MMYY<plate>[.ext]. The date is the last day of the
// encoded month in year 2000+YY. The plate is the literal remainder,
// uppercased.
func ParseFileName(name string) (domain.ParsedFact, bool) {
	if name == "" {
		return domain.ParsedFact{}, false
	}
	base := strings.TrimSpace(extRE.ReplaceAllString(name, ""))

	m := fileNameRE.FindStringSubmatch(base)
	if m == nil {
		return domain.ParsedFact{}, false
	}

	mm, _ := strconv.Atoi(m[1])
	yy, _ := strconv.Atoi(m[2])
	if mm < 1 || mm > 12 {
		return domain.ParsedFact{}, false
	}

	date, err := domain.LastDayOfMonth(2000+yy, time.Month(mm))
	if err != nil {
		return domain.ParsedFact{}, false
	}
	plate := NormalizePlate(m[3])
	if plate == "" {
		return domain.ParsedFact{}, false
	}
	return domain.ParsedFact{
		Plate:    plate,
		Date:     date,
		Strategy: domain.StrategyFileName,
	}, true
}

// NormalizePlate returns the canonical state key for a plate: full Unicode
// upper-casing. Casers are stateful, so one is built per call.
func NormalizePlate(s string) string {
	return cases.Upper(language.Und).String(s)
}
