package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"obra/internal"
	"obra/internal/api"
	"obra/internal/budget"
	"obra/internal/config"
	"obra/internal/connectors"
	gmailconnector "obra/internal/connectors/gmail"
	imapconnector "obra/internal/connectors/imap"
	"obra/internal/costing"
	"obra/internal/export"
	"obra/internal/extract"
	"obra/internal/importer"
	"obra/internal/intake"
	"obra/internal/listener"
	"obra/internal/progress"
	"obra/internal/reports"
	"obra/internal/sheets"
	"obra/internal/storage"
	"obra/internal/util"
)

func main() {
	cfg, err := config.Load()
	must(err)
	logger := config.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		must(err)
	}
	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	store, err := openStore(ctx, cfg, db, logger)
	must(err)
	ledger := costing.NewLedger(cfg.LaborMarkers, cfg.MoneyDecimals)

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	project := fs.String("project", cfg.Project, "project name")
	repo := func() *storage.Repository { return storage.NewRepository(store, strings.TrimSpace(*project)) }

	switch cmd {
	case "rates:add":
		name := fs.String("name", "", "resource name")
		category := fs.String("category", string(internal.CategoryPersonnel), "Personal|Maquinaria")
		cost := fs.String("cost", "", "hourly cost")
		_ = fs.Parse(os.Args[2:])
		if util.IsBlank(*name) {
			must(fmt.Errorf("--name is required"))
		}
		cat, err := parseCategory(*category)
		must(err)
		rate := internal.RateEntry{ResourceName: strings.TrimSpace(*name), Category: cat, HourlyCost: mustDecimal("cost", *cost)}
		must(repo().AppendRates(ctx, rate))
		fmt.Printf("rate added name=%s category=%s cost=%s\n", rate.ResourceName, rate.Category, rate.HourlyCost)
	case "log:add":
		date := fs.String("date", "", "dd/mm/yyyy or yyyy-mm-dd (default today)")
		task := fs.String("task", "", "task label")
		detail := fs.String("detail", "", "task detail")
		personnel := fs.String("personnel", "", "personnel text")
		hours := fs.String("hours", "0", "personnel hours")
		equipment := fs.String("equipment", "", "equipment text")
		equipmentHours := fs.String("equipment-hours", "0", "equipment hours")
		quantity := fs.String("quantity", "0", "production quantity")
		unit := fs.String("unit", "", "production unit")
		_ = fs.Parse(os.Args[2:])
		if util.IsBlank(*task) {
			must(fmt.Errorf("--task is required"))
		}
		entry := internal.LogEntry{
			Date:               dateOrToday(*date),
			EntryType:          "manual",
			Task:               strings.TrimSpace(*task),
			TaskDetail:         *detail,
			Personnel:          *personnel,
			HoursPersonnel:     mustDecimal("hours", *hours),
			Equipment:          *equipment,
			HoursEquipment:     mustDecimal("equipment-hours", *equipmentHours),
			ProductionQuantity: mustDecimal("quantity", *quantity),
			Unit:               *unit,
		}
		saved, err := repo().AppendLogEntries(ctx, entry)
		must(err)
		fmt.Printf("log entry added id=%s task=%s\n", saved[0].ID, saved[0].Task)
	case "log:extract":
		text := fs.String("text", "", "narrative text")
		file := fs.String("file", "", "file holding the narrative")
		save := fs.Bool("save", false, "append the draft to the log")
		_ = fs.Parse(os.Args[2:])
		narrative := *text
		if *file != "" {
			blob, err := os.ReadFile(*file)
			must(err)
			narrative = string(blob)
		}
		r := repo()
		known, err := intake.KnownTasks(ctx, r)
		must(err)
		draft, err := extract.NewRuleExtractor().Extract(ctx, narrative, known)
		must(err)
		fmt.Printf("date=%s task=%q personnel=%q hours=%s equipment=%q equipment_hours=%s\n",
			util.FormatDate(draft.Date), draft.Task, draft.Personnel, draft.HoursPersonnel, draft.Equipment, draft.HoursEquipment)
		fmt.Printf("detail=%q\n", draft.TaskDetail)
		if *save {
			entry := intake.EntryFromDraft(draft, narrative, dateOrToday(""))
			entry.EntryType = "narrative"
			saved, err := r.AppendLogEntries(ctx, entry)
			must(err)
			fmt.Printf("log entry added id=%s\n", saved[0].ID)
		}
	case "cost:add":
		date := fs.String("date", "", "dd/mm/yyyy or yyyy-mm-dd (default today)")
		task := fs.String("task", "", "task label")
		concept := fs.String("concept", "", "cost concept")
		cost := fs.String("cost", "", "total cost")
		_ = fs.Parse(os.Args[2:])
		if util.IsBlank(*task) {
			must(fmt.Errorf("--task is required"))
		}
		c := internal.ImputedCost{Date: dateOrToday(*date), Task: strings.TrimSpace(*task), Concept: *concept, TotalCost: mustDecimal("cost", *cost)}
		if c.TotalCost.IsNegative() {
			must(internal.NewInputError("cost", "must not be negative"))
		}
		saved, err := repo().AppendImputedCosts(ctx, c)
		must(err)
		fmt.Printf("imputed cost added id=%s task=%s concept=%s cost=%s\n", saved[0].ID, c.Task, c.Concept, c.TotalCost)
	case "costs:summary":
		out := fs.String("out", "", "optional xlsx output path")
		_ = fs.Parse(os.Args[2:])
		rows, err := reports.NewService(repo(), ledger).CostSummary(ctx)
		must(err)
		printCosts(rows)
		if *out != "" {
			must(export.CostSummaryXLSX(rows, *out))
			fmt.Printf("exported %d tasks to %s\n", len(rows), *out)
		}
	case "budget:import":
		file := fs.String("file", "", "estimate workbook (.xlsx)")
		profilePath := fs.String("profile", "", "import profile (.toml)")
		out := fs.String("out", "", "optional xlsx copy of the normalized budget")
		_ = fs.Parse(os.Args[2:])
		if *file == "" || *profilePath == "" {
			must(fmt.Errorf("--file and --profile are required"))
		}
		res, err := importBudget(*file, *profilePath)
		must(err)
		must(repo().ReplaceBudget(ctx, res.Lines, res.Mappings))
		fmt.Printf("budget imported lines=%d mappings=%d chapters=%d skipped=%d\n",
			len(res.Lines), len(res.Mappings), res.Stats.Chapters, res.Stats.Skipped)
		if *out != "" {
			must(export.BudgetXLSX(res.Lines, *out))
		}
	case "cert:import":
		file := fs.String("file", "", "certification csv")
		encoding := fs.String("encoding", "windows-1252", "windows-1252|utf-8")
		delimiter := fs.String("delimiter", ";", "field delimiter")
		_ = fs.Parse(os.Args[2:])
		certs, stats, err := readCertifications(*file, *encoding, *delimiter)
		must(err)
		must(repo().AppendCertifications(ctx, certs...))
		fmt.Printf("certifications imported=%d read=%d skipped=%d coerced=%d\n", len(certs), stats.Read, stats.Skipped, stats.Coerced)
	case "progress:report":
		out := fs.String("out", "", "optional xlsx output path")
		_ = fs.Parse(os.Args[2:])
		rep, err := reports.NewService(repo(), ledger).Progress(ctx)
		must(err)
		printProgress(rep)
		if *out != "" {
			must(export.ProgressXLSX(rep, *out))
			fmt.Printf("exported %d rows to %s\n", len(rep.Rows), *out)
		}
	case "delivery:add":
		date := fs.String("date", "", "dd/mm/yyyy or yyyy-mm-dd (default today)")
		supplier := fs.String("supplier", "", "supplier")
		number := fs.String("number", "", "delivery note number")
		material := fs.String("material", "", "material")
		quantity := fs.String("quantity", "0", "quantity")
		unit := fs.String("unit", "", "unit")
		_ = fs.Parse(os.Args[2:])
		note := internal.DeliveryNote{
			Date:     dateOrToday(*date),
			Supplier: *supplier,
			Number:   *number,
			Material: *material,
			Quantity: mustDecimal("quantity", *quantity),
			Unit:     *unit,
		}
		saved, err := repo().AppendDeliveryNotes(ctx, note)
		must(err)
		fmt.Printf("delivery note added id=%s supplier=%s number=%s\n", saved[0].ID, note.Supplier, note.Number)
	case "subcontractor:set":
		name := fs.String("name", "", "subcontractor name")
		trade := fs.String("trade", "", "trade")
		status := fs.String("status", "", "status")
		notes := fs.String("notes", "", "notes")
		_ = fs.Parse(os.Args[2:])
		s, err := repo().UpsertSubcontractor(ctx, internal.Subcontractor{Name: *name, Trade: *trade, Status: *status, Notes: *notes})
		must(err)
		fmt.Printf("subcontractor saved name=%s status=%s\n", s.Name, s.Status)
	case "price:add":
		date := fs.String("date", "", "dd/mm/yyyy or yyyy-mm-dd (default today)")
		material := fs.String("material", "", "material")
		supplier := fs.String("supplier", "", "supplier")
		unit := fs.String("unit", "", "unit")
		price := fs.String("price", "", "unit price")
		_ = fs.Parse(os.Args[2:])
		if util.IsBlank(*material) {
			must(fmt.Errorf("--material is required"))
		}
		p := internal.MaterialPrice{Date: dateOrToday(*date), Material: *material, Supplier: *supplier, Unit: *unit, UnitPrice: mustDecimal("price", *price)}
		must(repo().AppendMaterialPrices(ctx, p))
		fmt.Printf("price added material=%s supplier=%s price=%s\n", p.Material, p.Supplier, p.UnitPrice)
	case "price:latest":
		_ = fs.Parse(os.Args[2:])
		prices, err := reports.NewService(repo(), ledger).Prices(ctx)
		must(err)
		for _, p := range prices {
			fmt.Printf("%-30s %-20s %10s %-6s %s\n", p.Material, p.Supplier, p.UnitPrice.StringFixed(2), p.Unit, util.FormatDate(p.Date))
		}
	case "projects:list":
		_ = fs.Parse(os.Args[2:])
		projects, err := db.Projects(ctx)
		must(err)
		for _, p := range projects {
			fmt.Println(p)
		}
	case "mail:fetch":
		provider := fs.String("provider", cfg.MailListenerProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(ctx, cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn, logger)
		result, err := fetch.FetchAndStore(ctx, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "mail:process":
		provider := fs.String("provider", "", "gmail|imap (default all)")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", cfg.MailListenerProcessBatch, "batch size")
		_ = fs.Parse(os.Args[2:])
		processor := intake.NewService(db, repo(), extract.NewRuleExtractor(), logger)
		if strings.TrimSpace(*messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(ctx, strings.ToLower(*provider), *messageID)
			must(err)
			fmt.Printf("processed mail id=%d status=%s entries=%d\n", res.MailID, res.Status, res.Entries)
			return
		}
		mails, entries, err := processor.ProcessPending(ctx, *batch, strings.ToLower(*provider))
		must(err)
		fmt.Printf("processed pending mails=%d entries=%d\n", mails, entries)
	case "mail:listen":
		_ = fs.Parse(os.Args[2:])
		s := listener.NewService(db, repo(), cfg, extract.NewRuleExtractor(), logger)
		must(s.Run(ctx))
	case "serve":
		addr := fs.String("addr", cfg.APIAddr, "listen address")
		_ = fs.Parse(os.Args[2:])
		repos := func(p string) *storage.Repository { return storage.NewRepository(store, p) }
		srv := api.NewServer(*addr, api.NewRouter(repos, ledger, logger))
		go func() {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("server started", "addr", *addr, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			must(err)
		}
	case "run":
		budgetFile := fs.String("budget", "", "estimate workbook (.xlsx)")
		profilePath := fs.String("profile", "", "import profile (.toml)")
		certFile := fs.String("certs", "", "certification csv")
		encoding := fs.String("encoding", "windows-1252", "windows-1252|utf-8")
		delimiter := fs.String("delimiter", ";", "field delimiter")
		output := fs.String("output", "", "progress xlsx output path")
		_ = fs.Parse(os.Args[2:])
		if *budgetFile == "" || *profilePath == "" || *output == "" {
			must(fmt.Errorf("--budget --profile --output are required"))
		}
		res, err := importBudget(*budgetFile, *profilePath)
		must(err)
		var certs []internal.CertificationEntry
		if *certFile != "" {
			certs, _, err = readCertifications(*certFile, *encoding, *delimiter)
			must(err)
		}
		rep := progress.Report(res.Lines, certs, progress.GroupLabels(res.Mappings))
		printProgress(rep)
		must(export.ProgressXLSX(rep, *output))
		fmt.Printf("run done lines=%d rows=%d output=%s\n", len(res.Lines), len(rep.Rows), *output)
	default:
		usage()
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg config.Config, db *storage.DB, logger *slog.Logger) (storage.TableStore, error) {
	switch cfg.StoreBackend {
	case "", "sqlite":
		return db, nil
	case "sheets":
		sc := sheets.FromAppConfig(cfg)
		return sheets.NewStore(ctx, sc, logger)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.StoreBackend)
	}
}

func makeConnector(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func importBudget(file, profilePath string) (budget.ImportResult, error) {
	profile, err := budget.LoadProfile(profilePath)
	if err != nil {
		return budget.ImportResult{}, err
	}
	f, err := os.Open(file)
	if err != nil {
		return budget.ImportResult{}, err
	}
	defer f.Close()
	return budget.ImportWorkbook(f, profile)
}

func readCertifications(file, encoding, delimiter string) ([]internal.CertificationEntry, importer.Stats, error) {
	if file == "" {
		return nil, importer.Stats{}, fmt.Errorf("--file is required")
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, importer.Stats{}, err
	}
	defer f.Close()
	opts := importer.Options{Encoding: encoding}
	if r := []rune(delimiter); len(r) > 0 {
		opts.Delimiter = r[0]
	}
	return importer.ReadCertifications(f, opts)
}

func printCosts(rows []internal.TaskCostSummary) {
	fmt.Printf("%-40s %14s %14s %14s\n", "task", "labor", "material", "total")
	for _, r := range append(rows, costing.Totals(rows)) {
		fmt.Printf("%-40s %14s %14s %14s\n", r.Task, r.LaborCost.StringFixed(2), r.MaterialCost.StringFixed(2), r.TotalCost.StringFixed(2))
	}
}

func printProgress(rep internal.ProgressReport) {
	fmt.Printf("%-12s %-30s %14s %14s %8s\n", "code", "group", "awarded", "certified", "pct")
	for _, r := range rep.Rows {
		fmt.Printf("%-12s %-30s %14s %14s %8s\n", r.ControlCode, r.ControlGroup, r.AwardedTotal.StringFixed(2), r.CertifiedTotal.StringFixed(2), r.PctProgress.StringFixed(2))
	}
	t := rep.Totals
	fmt.Printf("%-12s %-30s %14s %14s %8s\n", "TOTAL", "", t.AwardedTotal.StringFixed(2), t.CertifiedTotal.StringFixed(2), t.PctProgress.StringFixed(2))
}

func parseCategory(v string) (internal.ResourceCategory, error) {
	switch util.Fold(strings.TrimSpace(v)) {
	case util.Fold(string(internal.CategoryPersonnel)), "personnel":
		return internal.CategoryPersonnel, nil
	case util.Fold(string(internal.CategoryEquipment)), "equipment":
		return internal.CategoryEquipment, nil
	default:
		return "", internal.NewInputError("category", "must be Personal or Maquinaria")
	}
}

func mustDecimal(name, v string) decimal.Decimal {
	d, ok := util.ParseDecimal(v)
	if !ok {
		must(internal.NewInputError(name, fmt.Sprintf("not a number: %q", v)))
	}
	return d
}

func dateOrToday(v string) time.Time {
	if t := util.ParseDate(v); !t.IsZero() {
		return t
	}
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func usage() {
	fmt.Println("usage: obra <command> [--project=name] [flags]")
	fmt.Println("commands:")
	fmt.Println("  rates:add --name=... --category=Personal|Maquinaria --cost=25.50")
	fmt.Println("  log:add --task=... [--date] [--personnel --hours] [--equipment --equipment-hours]")
	fmt.Println("  log:extract --text=...|--file=... [--save]")
	fmt.Println("  cost:add --task=... --concept=... --cost=...")
	fmt.Println("  costs:summary [--out=./out/costs.xlsx]")
	fmt.Println("  budget:import --file=estimate.xlsx --profile=profile.toml [--out=...]")
	fmt.Println("  cert:import --file=certs.csv [--encoding=windows-1252] [--delimiter=;]")
	fmt.Println("  progress:report [--out=./out/progress.xlsx]")
	fmt.Println("  delivery:add --supplier=... --number=... --material=... --quantity=... --unit=...")
	fmt.Println("  subcontractor:set --name=... [--trade --status --notes]")
	fmt.Println("  price:add --material=... --supplier=... --price=... [--unit]")
	fmt.Println("  price:latest")
	fmt.Println("  projects:list")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  mail:process [--provider=gmail|imap] [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
	fmt.Println("  serve [--addr=:8080]")
	fmt.Println("  run --budget=estimate.xlsx --profile=profile.toml [--certs=certs.csv] --output=...xlsx")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
