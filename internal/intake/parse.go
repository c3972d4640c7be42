package intake

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"obra/internal/util"
)

// Report is the decoded content of one daily-report email.
type Report struct {
	Subject         string
	Text            string
	HTML            string
	AttachmentNames []string
	AttachmentText  []string
	Rows            []TableRow
}

// Narrative is the body text, falling back to text pulled from PDF attachments.
func (r Report) Narrative() string {
	if !util.IsBlank(r.Text) {
		return r.Text
	}
	return strings.Join(r.AttachmentText, "\n")
}

// TableRow is one line of a tabular parte (HTML table or spreadsheet attachment).
type TableRow struct {
	Source         string
	Date           string
	Task           string
	Personnel      string
	Hours          string
	Equipment      string
	EquipmentHours string
	Raw            string
}

func ParseReport(raw []byte) (Report, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return Report{}, err
	}

	rep := Report{
		Subject: env.GetHeader("Subject"),
		Text:    env.Text,
		HTML:    env.HTML,
	}
	if env.HTML != "" {
		rep.Rows = append(rep.Rows, parseHTMLTables(env.HTML)...)
	}

	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		rep.AttachmentNames = append(rep.AttachmentNames, filename)

		lower := strings.ToLower(filename)
		switch {
		case strings.HasSuffix(lower, ".xlsx"):
			if rows, err := parseXLSX(att.Content); err == nil {
				rep.Rows = append(rep.Rows, rows...)
			}
		case strings.HasSuffix(lower, ".pdf"):
			if text, err := pdfText(att.Content); err == nil && !util.IsBlank(text) {
				rep.AttachmentText = append(rep.AttachmentText, text)
			}
		}
	}
	return rep, nil
}

// columns locates the parte roles in a header row; -1 means absent.
type columns struct {
	date, task, personnel, hours, equipment, equipmentHours int
}

func (c columns) usable() bool {
	return c.task >= 0 && (c.hours >= 0 || c.equipmentHours >= 0)
}

func inferColumns(headers []string) columns {
	norm := make([]string, len(headers))
	for i, h := range headers {
		norm[i] = util.Fold(util.NormalizeSpaces(h))
	}
	c := columns{date: -1, task: -1, personnel: -1, hours: -1, equipment: -1, equipmentHours: -1}
	for i, h := range norm {
		isHours := strings.Contains(h, "hora") || h == "h"
		isEquip := strings.Contains(h, "maq") || strings.Contains(h, "máq") || strings.Contains(h, "equipo")
		switch {
		case isHours && isEquip:
			c.equipmentHours = pick(c.equipmentHours, i)
		case isHours:
			c.hours = pick(c.hours, i)
		case isEquip:
			c.equipment = pick(c.equipment, i)
		case strings.Contains(h, "fecha") || h == "date":
			c.date = pick(c.date, i)
		case strings.Contains(h, "tarea") || strings.Contains(h, "partida") || strings.Contains(h, "task"):
			c.task = pick(c.task, i)
		case strings.Contains(h, "personal") || strings.Contains(h, "operario") || strings.Contains(h, "trabajador"):
			c.personnel = pick(c.personnel, i)
		}
	}
	return c
}

func pick(current, i int) int {
	if current >= 0 {
		return current
	}
	return i
}

func cell(cells []string, idx int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	return ""
}

func rowFromCells(source string, c columns, cells []string) (TableRow, bool) {
	row := TableRow{
		Source:         source,
		Date:           cell(cells, c.date),
		Task:           cell(cells, c.task),
		Personnel:      cell(cells, c.personnel),
		Hours:          cell(cells, c.hours),
		Equipment:      cell(cells, c.equipment),
		EquipmentHours: cell(cells, c.equipmentHours),
		Raw:            strings.Join(cells, " | "),
	}
	if row.Task == "" || (row.Personnel == "" && row.Equipment == "") {
		return TableRow{}, false
	}
	return row, true
}

func parseHTMLTables(html string) []TableRow {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []TableRow
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		var headers []string
		rows.First().Find("th,td").Each(func(_ int, c *goquery.Selection) {
			headers = append(headers, c.Text())
		})
		cols := inferColumns(headers)
		if !cols.usable() {
			return
		}

		rows.Slice(1, rows.Length()).Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th,td").Each(func(_ int, c *goquery.Selection) {
				cells = append(cells, util.NormalizeSpaces(c.Text()))
			})
			if row, ok := rowFromCells("html", cols, cells); ok {
				out = append(out, row)
			}
		})
	})
	return out
}

func parseXLSX(content []byte) ([]TableRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []TableRow
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		cols := columns{task: -1}
		for i, row := range rows {
			if !cols.usable() {
				if i < 3 {
					cols = inferColumns(row)
				}
				continue
			}
			cells := make([]string, len(row))
			for j, c := range row {
				cells[j] = util.NormalizeSpaces(c)
			}
			if r, ok := rowFromCells("xlsx:"+sheet, cols, cells); ok {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func pdfText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}
