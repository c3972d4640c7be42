// Package extract turns a free-text site narrative into a draft work log.
package extract

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"obra/internal"
	"obra/internal/util"
)

var ErrEmptyNarrative = errors.New("empty narrative")

// Extractor produces a best-effort Draft. knownTasks are the task labels already
// in use for the project; a match against them becomes Draft.Task.
type Extractor interface {
	Extract(ctx context.Context, narrative string, knownTasks []string) (internal.Draft, error)
}

var (
	reDMY       = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	reISO       = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	reYesterday = regexp.MustCompile(`(?i)\bayer\b`)
	reToday     = regexp.MustCompile(`(?i)\bhoy\b`)
	reHours     = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:h\b|hs\b|hrs?\b|horas?\b)`)
	reBoundary  = regexp.MustCompile(`[.!?;](?:\s|$)|\n`)
	reLeadJunk  = regexp.MustCompile(`^[\s,:\-]+|[\s,:\-]+$`)

	rePersonnel = regexp.MustCompile(`(?i)\b(?:personal|operarios)\s*:`)
	reEquipment = regexp.MustCompile(`(?i)\b(?:maquinaria|equipo)\s*:`)
)

type referenceKey struct{}

// WithReferenceDate sets the day that "hoy" and "ayer" are resolved against,
// typically the day a report was received.
func WithReferenceDate(ctx context.Context, day time.Time) context.Context {
	return context.WithValue(ctx, referenceKey{}, day)
}

// RuleExtractor is the deterministic default Extractor. Without a reference date
// in the context, relative dates resolve against Now.
type RuleExtractor struct {
	Now func() time.Time
}

func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{Now: time.Now}
}

func (e *RuleExtractor) Extract(ctx context.Context, narrative string, knownTasks []string) (internal.Draft, error) {
	if err := ctx.Err(); err != nil {
		return internal.Draft{}, err
	}
	if util.IsBlank(narrative) {
		return internal.Draft{}, ErrEmptyNarrative
	}

	text := strings.ReplaceAll(narrative, "\r\n", "\n")
	draft := internal.Draft{
		Date:           e.date(ctx, text),
		Task:           longestTask(text, knownTasks),
		TaskDetail:     firstSentence(text),
		HoursPersonnel: decimal.Zero,
		HoursEquipment: decimal.Zero,
	}

	if seg, ok := segmentAfter(text, rePersonnel); ok {
		draft.Personnel, draft.HoursPersonnel = splitHours(seg)
	}
	if seg, ok := segmentAfter(text, reEquipment); ok {
		draft.Equipment, draft.HoursEquipment = splitHours(seg)
	}
	if draft.HoursPersonnel.IsZero() && draft.Personnel != "" {
		if h, ok := util.ParseHours(text); ok && !h.IsNegative() {
			draft.HoursPersonnel = h
		}
	}
	return draft, nil
}

func (e *RuleExtractor) today(ctx context.Context) time.Time {
	now, ok := ctx.Value(referenceKey{}).(time.Time)
	if !ok || now.IsZero() {
		now = time.Now()
		if e.Now != nil {
			now = e.Now()
		}
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// date takes the first explicit date, then "ayer"/"hoy". An undated text
// yields the zero time so the caller can pick its own fallback.
func (e *RuleExtractor) date(ctx context.Context, text string) time.Time {
	if m := reDMY.FindString(text); m != "" {
		if t := util.ParseDate(m); !t.IsZero() {
			return t
		}
	}
	if m := reISO.FindString(text); m != "" {
		if t := util.ParseDate(m); !t.IsZero() {
			return t
		}
	}
	if reYesterday.MatchString(text) {
		return e.today(ctx).AddDate(0, 0, -1)
	}
	if reToday.MatchString(text) {
		return e.today(ctx)
	}
	return time.Time{}
}

func longestTask(text string, known []string) string {
	best := ""
	for _, task := range known {
		task = strings.TrimSpace(task)
		if task == "" || !util.ContainsFold(text, task) {
			continue
		}
		if utf8.RuneCountInString(task) > utf8.RuneCountInString(best) {
			best = task
		}
	}
	return best
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if loc := reBoundary.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	return util.NormalizeSpaces(text)
}

// segmentAfter returns the text following the first marker up to the next
// sentence boundary.
func segmentAfter(text string, marker *regexp.Regexp) (string, bool) {
	loc := marker.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	rest := text[loc[1]:]
	if loc := reBoundary.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}
	return rest, true
}

// splitHours separates the resource names in a segment from its hour count.
func splitHours(segment string) (string, decimal.Decimal) {
	hours := decimal.Zero
	matches := reHours.FindAllStringSubmatch(segment, -1)
	if len(matches) > 0 {
		if h, ok := util.ParseDecimal(matches[len(matches)-1][1]); ok && !h.IsNegative() {
			hours = h
		}
	}
	names := reHours.ReplaceAllString(segment, " ")
	names = reLeadJunk.ReplaceAllString(util.NormalizeSpaces(names), "")
	return names, hours
}
