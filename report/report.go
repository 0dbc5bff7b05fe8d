// Package report extracts correction records from QC report spreadsheets.
// Two report dialects are understood: the standard proofing sheet (ID /
// PAGE / CONTEXT / NOTES with a status column) and the post-QC editor
// sheet (CD-TRK / TIME / PAGE* / TEXT / PROBLEM DESCRIPTION / EDITOR
// COMMENTS). Header rows are discovered by scanning, not assumed.
package report

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/qcpack/qcpack/classify"
	"github.com/qcpack/qcpack/observability"
	"github.com/qcpack/qcpack/textnorm"
)

var (
	// ErrHeaderNotFound is returned when no row matches the dialect's
	// required column set. Fatal to the extraction call.
	ErrHeaderNotFound = errors.New("report: header row not found")
	// ErrUnsupportedDialect is returned by DetectDialect when neither
	// known header profile appears anywhere in the sheet.
	ErrUnsupportedDialect = errors.New("report: unsupported report dialect")
)

// Dialect selects the report interpretation. It is detected once by
// header sniffing and passed to Extract by the caller.
type Dialect int

const (
	DialectStandard Dialect = iota
	DialectPostQC
)

func (d Dialect) String() string {
	if d == DialectPostQC {
		return "post-qc"
	}
	return "standard"
}

var (
	standardColumns = []string{"ID", "PAGE", "CONTEXT", "NOTES"}
	postQCColumns   = []string{"CD-TRK", "TIME", "PAGE*", "TEXT", "PROBLEM DESCRIPTION", "EDITOR COMMENTS"}
)

// DetectDialect sniffs the sheet for a known header profile, preferring
// post-QC (its column set is the more specific one).
func DetectDialect(rows [][]string) (Dialect, error) {
	for _, row := range rows {
		if hasColumns(row, postQCColumns) {
			return DialectPostQC, nil
		}
	}
	for _, row := range rows {
		if hasColumns(row, standardColumns) {
			return DialectStandard, nil
		}
	}
	return 0, ErrUnsupportedDialect
}

// Correction is one required fix, classified and ready for location.
// Immutable once produced.
type Correction struct {
	ID            string
	Page          int // 1-based page as stated in the report, pre-offset
	ContextPhrase string
	Notes         string
	Track         string
	Timestamp     string
	Type          classify.CorrectionType
	// WordsForEmphasis are the words to circle within the context; empty
	// means the whole context is the emphasis.
	WordsForEmphasis []string
}

// DefaultGatingStatus is the standard-dialect status literal that marks a
// defect as needing a pickup. Comparison is case- and
// whitespace-insensitive but otherwise exact.
const DefaultGatingStatus = "FIX IS NOT POSSIBLE WITHOUT A PICKUP"

// DefaultAcceptedComments are the post-QC editor comments that admit a
// row, compared case-insensitively.
var DefaultAcceptedComments = []string{"fix", "pickup", "fix in pickup", "needs pickup"}

// Extractor turns report rows into Corrections. The zero value works with
// the default gating literals, no audible-mode prefixes and no logging.
type Extractor struct {
	AudibleMode      bool
	GatingStatus     string
	AcceptedComments []string
	Diagnostics      *observability.Collector
	Log              observability.Logger
}

func (e *Extractor) logger() observability.Logger {
	if e.Log == nil {
		return observability.NopLogger{}
	}
	return e.Log
}

// Extract scans rows under the given dialect. Row-level problems degrade
// to diagnostics; only a missing header is fatal.
func (e *Extractor) Extract(rows [][]string, dialect Dialect) ([]Correction, error) {
	switch dialect {
	case DialectPostQC:
		return e.extractPostQC(rows)
	default:
		return e.extractStandard(rows)
	}
}

// trackMarker reports whether the row names a .wav file and, if so, the
// leading digit run of that cell (the track id).
func trackMarker(row []string) (string, bool) {
	for _, c := range row {
		cc := strings.TrimSpace(c)
		if !strings.HasSuffix(strings.ToLower(cc), ".wav") {
			continue
		}
		i := 0
		for i < len(cc) && cc[i] >= '0' && cc[i] <= '9' {
			i++
		}
		return cc[:i], true
	}
	return "", false
}

func (e *Extractor) extractStandard(rows [][]string) ([]Correction, error) {
	header, cols, err := findHeader(rows, standardColumns)
	if err != nil {
		return nil, err
	}
	statusCol := cols["CONTEXT"] + 1
	timeCol, hasTime := cols["TIME CODE"]
	gate := canonStatus(e.GatingStatus)
	if gate == "" {
		gate = canonStatus(DefaultGatingStatus)
	}

	var out []Correction
	track := "" // persists across rows until the next .wav marker
	for i := header + 1; i < len(rows); i++ {
		row := rows[i]
		if id, ok := trackMarker(row); ok {
			if id != "" {
				track = id
			}
			continue
		}
		idCell := strings.TrimSpace(cell(row, cols["ID"]))
		if _, err := strconv.ParseFloat(idCell, 64); err != nil {
			continue // not a correction candidate
		}
		if canonStatus(cell(row, statusCol)) != gate {
			e.drop(fmt.Sprintf("row %d (id %s): status does not require a pickup", i+1, idCell))
			continue
		}
		page, err := parsePage(cell(row, cols["PAGE"]))
		if err != nil {
			e.drop(fmt.Sprintf("row %d (id %s): bad page %q", i+1, idCell, cell(row, cols["PAGE"])))
			continue
		}
		cls := classify.Classify(cell(row, cols["NOTES"]), cell(row, cols["CONTEXT"]), e.AudibleMode)
		if cls.SearchableContext == "" {
			e.drop(fmt.Sprintf("row %d (id %s): no usable context", i+1, idCell))
			continue
		}
		ts := ""
		if hasTime {
			ts = strings.TrimSpace(cell(row, timeCol))
		}
		out = append(out, Correction{
			ID:               idCell,
			Page:             page,
			ContextPhrase:    cls.SearchableContext,
			Notes:            cls.FormattedNote,
			Track:            track,
			Timestamp:        ts,
			Type:             cls.Type,
			WordsForEmphasis: cls.WordsForEmphasis,
		})
	}
	e.logger().Info("extracted corrections",
		observability.String("dialect", DialectStandard.String()),
		observability.Int("count", len(out)))
	return out, nil
}

var (
	bracketRE     = regexp.MustCompile(`\[([^\]]+)\]`)
	quotedRE      = regexp.MustCompile(`"([^"]+)"`)
	curlyQuotedRE = regexp.MustCompile(`“([^”]+)”`)
)

func (e *Extractor) extractPostQC(rows [][]string) ([]Correction, error) {
	header, cols, err := findHeader(rows, postQCColumns)
	if err != nil {
		return nil, err
	}
	accepted := e.AcceptedComments
	if len(accepted) == 0 {
		accepted = DefaultAcceptedComments
	}
	acceptSet := make(map[string]bool, len(accepted))
	for _, a := range accepted {
		acceptSet[strings.ToLower(strings.TrimSpace(a))] = true
	}

	var out []Correction
	nextID := 0 // the post-QC sheet has no ID column; ids are synthetic
	for i := header + 1; i < len(rows); i++ {
		row := rows[i]
		comment := strings.ToLower(strings.TrimSpace(cell(row, cols["EDITOR COMMENTS"])))
		if !acceptSet[comment] {
			continue
		}
		nextID++
		id := strconv.Itoa(nextID)
		page, err := parsePage(cell(row, cols["PAGE*"]))
		if err != nil {
			e.drop(fmt.Sprintf("row %d (id %s): bad page %q", i+1, id, cell(row, cols["PAGE*"])))
			continue
		}
		text := cell(row, cols["TEXT"])
		problem := cell(row, cols["PROBLEM DESCRIPTION"])
		plain := strings.TrimSpace(bracketRE.ReplaceAllString(text, "$1"))

		cls := classify.Classify(problem, plain, e.AudibleMode)
		if cls.SearchableContext == "" {
			e.drop(fmt.Sprintf("row %d (id %s): no usable context", i+1, id))
			continue
		}
		words := bracketWords(text)
		if len(words) == 0 {
			words = quotedWords(problem)
		}
		if len(words) == 0 {
			words = cls.WordsForEmphasis
		}
		out = append(out, Correction{
			ID:               id,
			Page:             page,
			ContextPhrase:    cls.SearchableContext,
			Notes:            cls.FormattedNote,
			Track:            strings.TrimSpace(cell(row, cols["CD-TRK"])),
			Timestamp:        strings.TrimSpace(cell(row, cols["TIME"])),
			Type:             cls.Type,
			WordsForEmphasis: words,
		})
	}
	e.logger().Info("extracted corrections",
		observability.String("dialect", DialectPostQC.String()),
		observability.Int("count", len(out)))
	return out, nil
}

// bracketWords pulls emphasis words out of [bracketed] regions of the
// TEXT cell.
func bracketWords(text string) []string {
	var words []string
	for _, m := range bracketRE.FindAllStringSubmatch(text, -1) {
		words = append(words, textnorm.Words(m[1])...)
	}
	return words
}

// quotedWords falls back to quoted fragments of the problem description.
func quotedWords(problem string) []string {
	if m := quotedRE.FindStringSubmatch(problem); m != nil {
		return textnorm.Words(m[1])
	}
	if m := curlyQuotedRE.FindStringSubmatch(problem); m != nil {
		return textnorm.Words(m[1])
	}
	return nil
}

// findHeader scans top-down for the first row whose trimmed, upper-cased
// cells are a superset of required, and maps column names to indices.
func findHeader(rows [][]string, required []string) (int, map[string]int, error) {
	for i, row := range rows {
		if !hasColumns(row, required) {
			continue
		}
		cols := make(map[string]int, len(row))
		for j, c := range row {
			name := strings.ToUpper(strings.TrimSpace(c))
			if name == "" {
				continue
			}
			if _, dup := cols[name]; !dup {
				cols[name] = j
			}
		}
		return i, cols, nil
	}
	return 0, nil, ErrHeaderNotFound
}

func hasColumns(row []string, required []string) bool {
	have := make(map[string]bool, len(row))
	for _, c := range row {
		have[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	for _, r := range required {
		if !have[r] {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// canonStatus folds case and whitespace for the exact-literal gating
// comparison.
func canonStatus(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

func parsePage(s string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	p := int(f)
	if p < 1 {
		return 0, fmt.Errorf("page %d out of range", p)
	}
	return p, nil
}

func (e *Extractor) drop(msg string) {
	e.Diagnostics.Report(observability.Diagnostic{
		Kind:    observability.KindCorrectionDropped,
		Message: msg,
	})
}
