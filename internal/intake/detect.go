package intake

import (
	"regexp"
	"strings"

	"obra/internal/util"
)

type DetectResult struct {
	IsReport bool
	Score    float64
	Reason   string
}

var (
	detectKeywords = []string{"parte", "diario", "obra", "tarea", "personal", "operarios", "maquinaria", "horas"}
	reHourMention  = regexp.MustCompile(`(?i)\d+(?:[.,]\d+)?\s*(?:h\b|horas?\b)`)
)

// DetectDailyReport scores a message on keywords, hour mentions and
// attachments. 0.45 and above counts as a daily report.
func DetectDailyReport(subject, text, html string, attachmentNames []string) DetectResult {
	subject = util.Fold(subject)
	text = util.Fold(text)
	html = util.Fold(html)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) || strings.Contains(html, kw) {
			score += 0.1
		}
	}

	hits := len(reHourMention.FindAllStringIndex(text, -1))
	if hits >= 2 {
		score += 0.4
	} else if hits == 1 {
		score += 0.2
	}

	for _, name := range attachmentNames {
		ln := strings.ToLower(name)
		if strings.HasSuffix(ln, ".xlsx") || strings.HasSuffix(ln, ".pdf") {
			score += 0.25
			break
		}
	}

	if strings.Contains(html, "<table") {
		score += 0.25
	}
	if score > 1 {
		score = 1
	}

	ok := score >= 0.45
	reason := "rules_negative"
	if ok {
		reason = "rules_positive"
	}
	return DetectResult{IsReport: ok, Score: score, Reason: reason}
}
