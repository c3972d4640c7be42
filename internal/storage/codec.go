package storage

import (
	"strings"

	"github.com/shopspring/decimal"

	"obra/internal"
	"obra/internal/util"
)

// Decoding never fails: unparsable or negative numbers become 0 and unparsable
// dates become the zero time.

func str(r Row, key string) string {
	return strings.TrimSpace(r[key])
}

func money(d decimal.Decimal) string {
	return d.String()
}

func DecodeRate(r Row) internal.RateEntry {
	cat := internal.CategoryPersonnel
	switch util.Fold(str(r, "category")) {
	case util.Fold(string(internal.CategoryEquipment)), "equipment", "equipo", "maquina", "máquina":
		cat = internal.CategoryEquipment
	}
	return internal.RateEntry{
		ResourceName: str(r, "resource_name"),
		Category:     cat,
		HourlyCost:   util.DecimalOrZero(r["hourly_cost"]),
	}
}

func EncodeRate(e internal.RateEntry) Row {
	return Row{
		"resource_name": e.ResourceName,
		"category":      string(e.Category),
		"hourly_cost":   money(e.HourlyCost),
	}
}

func DecodeLogEntry(r Row) internal.LogEntry {
	return internal.LogEntry{
		ID:                 str(r, "id"),
		Date:               util.ParseDate(r["date"]),
		Project:            str(r, "project"),
		EntryType:          str(r, "entry_type"),
		Content:            r["content"],
		Task:               str(r, "task"),
		TaskDetail:         str(r, "task_detail"),
		Personnel:          str(r, "personnel"),
		HoursPersonnel:     util.DecimalOrZero(r["hours_personnel"]),
		Equipment:          str(r, "equipment"),
		HoursEquipment:     util.DecimalOrZero(r["hours_equipment"]),
		ProductionQuantity: util.DecimalOrZero(r["production_quantity"]),
		Unit:               str(r, "unit"),
	}
}

func EncodeLogEntry(e internal.LogEntry) Row {
	return Row{
		"id":                  e.ID,
		"date":                util.FormatDate(e.Date),
		"project":             e.Project,
		"entry_type":          e.EntryType,
		"content":             e.Content,
		"task":                e.Task,
		"task_detail":         e.TaskDetail,
		"personnel":           e.Personnel,
		"hours_personnel":     money(e.HoursPersonnel),
		"equipment":           e.Equipment,
		"hours_equipment":     money(e.HoursEquipment),
		"production_quantity": money(e.ProductionQuantity),
		"unit":                e.Unit,
	}
}

func DecodeImputedCost(r Row) internal.ImputedCost {
	return internal.ImputedCost{
		ID:        str(r, "id"),
		Date:      util.ParseDate(r["date"]),
		Project:   str(r, "project"),
		Task:      str(r, "task"),
		Concept:   str(r, "concept"),
		TotalCost: util.DecimalOrZero(r["total_cost"]),
	}
}

func EncodeImputedCost(c internal.ImputedCost) Row {
	return Row{
		"id":         c.ID,
		"date":       util.FormatDate(c.Date),
		"project":    c.Project,
		"task":       c.Task,
		"concept":    c.Concept,
		"total_cost": money(c.TotalCost),
	}
}

func DecodeBudgetLine(r Row) internal.BudgetLine {
	return internal.BudgetLine{
		ControlCode:        str(r, "control_code"),
		Chapter:            str(r, "chapter"),
		ItemCode:           str(r, "item_code"),
		ItemName:           str(r, "item_name"),
		ItemDescription:    r["item_description"],
		Unit:               str(r, "unit"),
		ProjectQuantity:    util.DecimalOrZero(r["project_quantity"]),
		BaseUnitPrice:      util.DecimalOrZero(r["base_unit_price"]),
		TenderUnitPrice:    util.DecimalOrZero(r["tender_unit_price"]),
		AwardedUnitPrice:   util.DecimalOrZero(r["awarded_unit_price"]),
		InternalCost:       util.DecimalOrZero(r["internal_cost"]),
		TotalAwardedAmount: util.DecimalOrZero(r["total_awarded_amount"]),
	}
}

func EncodeBudgetLine(l internal.BudgetLine) Row {
	return Row{
		"control_code":         l.ControlCode,
		"chapter":              l.Chapter,
		"item_code":            l.ItemCode,
		"item_name":            l.ItemName,
		"item_description":     l.ItemDescription,
		"unit":                 l.Unit,
		"project_quantity":     money(l.ProjectQuantity),
		"base_unit_price":      money(l.BaseUnitPrice),
		"tender_unit_price":    money(l.TenderUnitPrice),
		"awarded_unit_price":   money(l.AwardedUnitPrice),
		"internal_cost":        money(l.InternalCost),
		"total_awarded_amount": money(l.TotalAwardedAmount),
	}
}

func DecodeControlMapping(r Row) internal.ControlCodeMapping {
	group := str(r, "control_group")
	if group == "" {
		group = internal.UnassignedGroup
	}
	return internal.ControlCodeMapping{
		ControlCode:  str(r, "control_code"),
		ControlGroup: group,
		MarkupPct:    util.DecimalOrZero(r["markup_pct"]),
		RebatePct:    util.DecimalOrZero(r["rebate_pct"]),
	}
}

func EncodeControlMapping(m internal.ControlCodeMapping) Row {
	return Row{
		"control_code":  m.ControlCode,
		"control_group": m.ControlGroup,
		"markup_pct":    money(m.MarkupPct),
		"rebate_pct":    money(m.RebatePct),
	}
}

func DecodeCertification(r Row) internal.CertificationEntry {
	return internal.CertificationEntry{
		ControlCode:           str(r, "control_code"),
		CertifiedAmountPeriod: util.DecimalOrZero(r["certified_amount_period"]),
	}
}

func EncodeCertification(c internal.CertificationEntry) Row {
	return Row{
		"control_code":            c.ControlCode,
		"certified_amount_period": money(c.CertifiedAmountPeriod),
	}
}

func DecodeDeliveryNote(r Row) internal.DeliveryNote {
	return internal.DeliveryNote{
		ID:       str(r, "id"),
		Date:     util.ParseDate(r["date"]),
		Project:  str(r, "project"),
		Supplier: str(r, "supplier"),
		Number:   str(r, "number"),
		Material: str(r, "material"),
		Quantity: util.DecimalOrZero(r["quantity"]),
		Unit:     str(r, "unit"),
	}
}

func EncodeDeliveryNote(n internal.DeliveryNote) Row {
	return Row{
		"id":       n.ID,
		"date":     util.FormatDate(n.Date),
		"project":  n.Project,
		"supplier": n.Supplier,
		"number":   n.Number,
		"material": n.Material,
		"quantity": money(n.Quantity),
		"unit":     n.Unit,
	}
}

func DecodeSubcontractor(r Row) internal.Subcontractor {
	return internal.Subcontractor{
		Name:    str(r, "name"),
		Trade:   str(r, "trade"),
		Status:  str(r, "status"),
		Notes:   r["notes"],
		Updated: util.ParseDate(r["updated"]),
	}
}

func EncodeSubcontractor(s internal.Subcontractor) Row {
	return Row{
		"name":    s.Name,
		"trade":   s.Trade,
		"status":  s.Status,
		"notes":   s.Notes,
		"updated": util.FormatDate(s.Updated),
	}
}

func DecodeMaterialPrice(r Row) internal.MaterialPrice {
	return internal.MaterialPrice{
		Date:      util.ParseDate(r["date"]),
		Material:  str(r, "material"),
		Supplier:  str(r, "supplier"),
		Unit:      str(r, "unit"),
		UnitPrice: util.DecimalOrZero(r["unit_price"]),
	}
}

func EncodeMaterialPrice(p internal.MaterialPrice) Row {
	return Row{
		"date":       util.FormatDate(p.Date),
		"material":   p.Material,
		"supplier":   p.Supplier,
		"unit":       p.Unit,
		"unit_price": money(p.UnitPrice),
	}
}

func decodeAll[T any](rows []Row, decode func(Row) T) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, decode(r))
	}
	return out
}

func encodeAll[T any](items []T, encode func(T) Row) []Row {
	out := make([]Row, 0, len(items))
	for _, it := range items {
		out = append(out, encode(it))
	}
	return out
}
