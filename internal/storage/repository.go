package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"obra/internal"
	"obra/internal/util"
)

// Repository is a project-scoped typed view over a TableStore.
type Repository struct {
	store   TableStore
	project string
	now     func() time.Time
}

func NewRepository(store TableStore, project string) *Repository {
	return &Repository{store: store, project: project, now: time.Now}
}

func (r *Repository) Project() string { return r.project }

func (r *Repository) load(ctx context.Context, table string) ([]Row, error) {
	rows, err := r.store.Load(ctx, r.project, table)
	if err != nil {
		return nil, fmt.Errorf("load %s/%s: %w", r.project, table, err)
	}
	return rows, nil
}

func (r *Repository) save(ctx context.Context, table string, rows []Row) error {
	if err := r.store.Save(ctx, r.project, table, Columns(table, rows), rows); err != nil {
		return fmt.Errorf("save %s/%s: %w", r.project, table, err)
	}
	return nil
}

func (r *Repository) appendRows(ctx context.Context, table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	existing, err := r.load(ctx, table)
	if err != nil {
		return err
	}
	return r.save(ctx, table, append(existing, rows...))
}

func (r *Repository) LoadRates(ctx context.Context) ([]internal.RateEntry, error) {
	rows, err := r.load(ctx, TableRates)
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, DecodeRate), nil
}

func (r *Repository) AppendRates(ctx context.Context, rates ...internal.RateEntry) error {
	for _, rate := range rates {
		if rate.HourlyCost.IsNegative() {
			return internal.NewInputError("hourly_cost", "negative rate for "+rate.ResourceName)
		}
	}
	return r.appendRows(ctx, TableRates, encodeAll(rates, EncodeRate))
}

func (r *Repository) LoadLogEntries(ctx context.Context) ([]internal.LogEntry, error) {
	rows, err := r.load(ctx, TableLogEntries)
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, DecodeLogEntry), nil
}

// AppendLogEntries fills in missing ids and the project before appending.
// Negative hours or quantities reject the whole batch.
func (r *Repository) AppendLogEntries(ctx context.Context, entries ...internal.LogEntry) ([]internal.LogEntry, error) {
	out := make([]internal.LogEntry, len(entries))
	for i, e := range entries {
		if err := checkLogEntry(e); err != nil {
			return nil, err
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Project == "" {
			e.Project = r.project
		}
		out[i] = e
	}
	return out, r.appendRows(ctx, TableLogEntries, encodeAll(out, EncodeLogEntry))
}

func checkLogEntry(e internal.LogEntry) error {
	switch {
	case e.HoursPersonnel.IsNegative():
		return internal.NewInputError("hours_personnel", "negative hours "+e.HoursPersonnel.String())
	case e.HoursEquipment.IsNegative():
		return internal.NewInputError("hours_equipment", "negative hours "+e.HoursEquipment.String())
	case e.ProductionQuantity.IsNegative():
		return internal.NewInputError("production_quantity", "negative quantity "+e.ProductionQuantity.String())
	}
	return nil
}

func (r *Repository) LoadImputedCosts(ctx context.Context) ([]internal.ImputedCost, error) {
	rows, err := r.load(ctx, TableImputedCosts)
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, DecodeImputedCost), nil
}

func (r *Repository) AppendImputedCosts(ctx context.Context, costs ...internal.ImputedCost) ([]internal.ImputedCost, error) {
	out := make([]internal.ImputedCost, len(costs))
	for i, c := range costs {
		if c.TotalCost.IsNegative() {
			return nil, internal.NewInputError("total_cost", "negative amount "+c.TotalCost.String())
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.Project == "" {
			c.Project = r.project
		}
		out[i] = c
	}
	return out, r.appendRows(ctx, TableImputedCosts, encodeAll(out, EncodeImputedCost))
}

func (r *Repository) LoadBudgetLines(ctx context.Context) ([]internal.BudgetLine, error) {
	rows, err := r.load(ctx, TableBudgetLines)
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, DecodeBudgetLine), nil
}

func (r *Repository) LoadControlMappings(ctx context.Context) ([]internal.ControlCodeMapping, error) {
	rows, err := r.load(ctx, TableControlMapping)
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, DecodeControlMapping), nil
}

// ReplaceBudget overwrites the budget lines and control mappings of the project.
// A re-import is a full replacement, never a merge. Stores implementing BatchSaver
// write both tables atomically; otherwise lines are saved first, so a failed
// mapping save leaves the new lines next to the old mappings until the next import.
func (r *Repository) ReplaceBudget(ctx context.Context, lines []internal.BudgetLine, mappings []internal.ControlCodeMapping) error {
	lineRows := encodeAll(lines, EncodeBudgetLine)
	mappingRows := encodeAll(mappings, EncodeControlMapping)
	if batch, ok := r.store.(BatchSaver); ok {
		err := batch.SaveTables(ctx, r.project,
			TableWrite{Table: TableBudgetLines, Columns: Columns(TableBudgetLines, lineRows), Rows: lineRows},
			TableWrite{Table: TableControlMapping, Columns: Columns(TableControlMapping, mappingRows), Rows: mappingRows},
		)
		if err != nil {
			return fmt.Errorf("save budget %s: %w", r.project, err)
		}
		return nil
	}
	if err := r.save(ctx, TableBudgetLines, lineRows); err != nil {
		return err
	}
	return r.save(ctx, TableControlMapping, mappingRows)
}

func (r *Repository) LoadCertifications(ctx context.Context) ([]internal.CertificationEntry, error) {
	rows, err := r.load(ctx, TableCertifications)
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, DecodeCertification), nil
}

func (r *Repository) AppendCertifications(ctx context.Context, certs ...internal.CertificationEntry) error {
	return r.appendRows(ctx, TableCertifications, encodeAll(certs, EncodeCertification))
}

func (r *Repository) LoadDeliveryNotes(ctx context.Context) ([]internal.DeliveryNote, error) {
	rows, err := r.load(ctx, TableDeliveryNotes)
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, DecodeDeliveryNote), nil
}

func (r *Repository) AppendDeliveryNotes(ctx context.Context, notes ...internal.DeliveryNote) ([]internal.DeliveryNote, error) {
	out := make([]internal.DeliveryNote, len(notes))
	for i, n := range notes {
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.Project == "" {
			n.Project = r.project
		}
		out[i] = n
	}
	return out, r.appendRows(ctx, TableDeliveryNotes, encodeAll(out, EncodeDeliveryNote))
}

func (r *Repository) LoadSubcontractors(ctx context.Context) ([]internal.Subcontractor, error) {
	rows, err := r.load(ctx, TableSubcontractors)
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, DecodeSubcontractor), nil
}

// UpsertSubcontractor replaces the row whose case-folded name matches, or appends.
func (r *Repository) UpsertSubcontractor(ctx context.Context, s internal.Subcontractor) (internal.Subcontractor, error) {
	if util.IsBlank(s.Name) {
		return s, internal.NewInputError("name", "must not be blank")
	}
	if s.Updated.IsZero() {
		s.Updated = r.now()
	}
	current, err := r.LoadSubcontractors(ctx)
	if err != nil {
		return s, err
	}
	key := util.Fold(util.NormalizeSpaces(s.Name))
	replaced := false
	for i, c := range current {
		if util.Fold(util.NormalizeSpaces(c.Name)) == key {
			current[i] = s
			replaced = true
			break
		}
	}
	if !replaced {
		current = append(current, s)
	}
	return s, r.save(ctx, TableSubcontractors, encodeAll(current, EncodeSubcontractor))
}

func (r *Repository) LoadMaterialPrices(ctx context.Context) ([]internal.MaterialPrice, error) {
	rows, err := r.load(ctx, TableMaterialPrices)
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, DecodeMaterialPrice), nil
}

func (r *Repository) AppendMaterialPrices(ctx context.Context, prices ...internal.MaterialPrice) error {
	return r.appendRows(ctx, TableMaterialPrices, encodeAll(prices, EncodeMaterialPrice))
}

// LatestPrices keeps the most recent price per (material, supplier). On equal
// dates the later row wins. Output is sorted by material, then supplier.
func LatestPrices(prices []internal.MaterialPrice) []internal.MaterialPrice {
	type key struct{ material, supplier string }
	latest := map[key]internal.MaterialPrice{}
	for _, p := range prices {
		k := key{util.Fold(util.NormalizeSpaces(p.Material)), util.Fold(util.NormalizeSpaces(p.Supplier))}
		if cur, ok := latest[k]; ok && p.Date.Before(cur.Date) {
			continue
		}
		latest[k] = p
	}
	out := make([]internal.MaterialPrice, 0, len(latest))
	for _, p := range latest {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		mi, mj := util.Fold(out[i].Material), util.Fold(out[j].Material)
		if mi != mj {
			return mi < mj
		}
		return util.Fold(out[i].Supplier) < util.Fold(out[j].Supplier)
	})
	return out
}
