package internal

import (
	"time"

	"github.com/shopspring/decimal"
)

type ResourceCategory string

const (
	CategoryPersonnel ResourceCategory = "Personal"
	CategoryEquipment ResourceCategory = "Maquinaria"
)

// UnassignedGroup labels budget lines whose control code has no group mapping.
const UnassignedGroup = "unassigned"

type RateEntry struct {
	ResourceName string
	Category     ResourceCategory
	HourlyCost   decimal.Decimal
}

// LogEntry is one daily work log ("parte"). Task is the cost rollup key.
type LogEntry struct {
	ID                 string
	Date               time.Time
	Project            string
	EntryType          string
	Content            string
	Task               string
	TaskDetail         string
	Personnel          string
	HoursPersonnel     decimal.Decimal
	Equipment          string
	HoursEquipment     decimal.Decimal
	ProductionQuantity decimal.Decimal
	Unit               string
}

type ImputedCost struct {
	ID        string
	Date      time.Time
	Project   string
	Task      string
	Concept   string
	TotalCost decimal.Decimal
}

type TaskCostSummary struct {
	Task         string          `json:"task"`
	LaborCost    decimal.Decimal `json:"laborCost"`
	MaterialCost decimal.Decimal `json:"materialCost"`
	TotalCost    decimal.Decimal `json:"totalCost"`
}

type BudgetLine struct {
	ControlCode        string          `json:"controlCode"`
	Chapter            string          `json:"chapter"`
	ItemCode           string          `json:"itemCode"`
	ItemName           string          `json:"itemName"`
	ItemDescription    string          `json:"itemDescription"`
	Unit               string          `json:"unit"`
	ProjectQuantity    decimal.Decimal `json:"projectQuantity"`
	BaseUnitPrice      decimal.Decimal `json:"baseUnitPrice"`
	TenderUnitPrice    decimal.Decimal `json:"tenderUnitPrice"`
	AwardedUnitPrice   decimal.Decimal `json:"awardedUnitPrice"`
	InternalCost       decimal.Decimal `json:"internalCost"`
	TotalAwardedAmount decimal.Decimal `json:"totalAwardedAmount"`
}

type ControlCodeMapping struct {
	ControlCode  string
	ControlGroup string
	MarkupPct    decimal.Decimal
	RebatePct    decimal.Decimal
}

type CertificationEntry struct {
	ControlCode           string
	CertifiedAmountPeriod decimal.Decimal
}

type ReportRow struct {
	ControlCode    string          `json:"controlCode"`
	ControlGroup   string          `json:"controlGroup"`
	AwardedTotal   decimal.Decimal `json:"awardedTotal"`
	CertifiedTotal decimal.Decimal `json:"certifiedTotal"`
	PctProgress    decimal.Decimal `json:"pctProgress"`
}

type ReportTotals struct {
	AwardedTotal   decimal.Decimal `json:"awardedTotal"`
	CertifiedTotal decimal.Decimal `json:"certifiedTotal"`
	PctProgress    decimal.Decimal `json:"pctProgress"`
}

type ProgressReport struct {
	Rows   []ReportRow  `json:"rows"`
	Totals ReportTotals `json:"totals"`
}

// Draft is the best-effort structured record produced by narrative extraction.
type Draft struct {
	Date           time.Time
	Task           string
	TaskDetail     string
	Personnel      string
	HoursPersonnel decimal.Decimal
	Equipment      string
	HoursEquipment decimal.Decimal
}

type DeliveryNote struct {
	ID       string
	Date     time.Time
	Project  string
	Supplier string
	Number   string
	Material string
	Quantity decimal.Decimal
	Unit     string
}

type Subcontractor struct {
	Name    string
	Trade   string
	Status  string
	Notes   string
	Updated time.Time
}

type MaterialPrice struct {
	Date      time.Time
	Material  string
	Supplier  string
	Unit      string
	UnitPrice decimal.Decimal
}

type MailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
