package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"verkoop/internal/analytics"
	"verkoop/internal/cli/formatter"
	"verkoop/internal/core"
	"verkoop/internal/services"
)

// Dashboard is the read side used by the report and export commands.
type Dashboard interface {
	Filters(ctx context.Context) (services.Filters, error)
	Sales(ctx context.Context, sel core.FilterSelection) (services.SalesView, error)
	Samples(ctx context.Context, q services.SamplesQuery) (services.SamplesView, error)
	Geo(ctx context.Context, sel core.FilterSelection) (services.GeoView, error)
	BestSelling(ctx context.Context, sel core.FilterSelection) ([]core.Revenue, error)
	Monthly(ctx context.Context, sel core.FilterSelection) (services.MonthlyView, error)
}

// App holds what the verkoopctl commands run against.
type App struct {
	Dashboard Dashboard
	// Import runs one import into the snapshot store; nil when the
	// configuration has no snapshot store.
	Import func(ctx context.Context) (core.ImportRun, error)
	// ImportWorkbook replaces the snapshot with an uploaded .xlsx workbook.
	ImportWorkbook func(ctx context.Context, r io.Reader) (core.ImportRun, error)
	Printer        formatter.Printer
}

// NewRootCmd creates the top-level "verkoopctl" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "verkoopctl",
		Short:         "Sales reports, exports and imports from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newReportCmd(app),
		newExportCmd(app),
		newImportCmd(app),
		newFiltersCmd(app),
	)
	return root
}

// selectionFlags binds --period and --product.
type selectionFlags struct {
	period  string
	product string
}

func (f *selectionFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.period, "period", core.AllPeriods, `period label, e.g. "januari 2024"; "all" for every month`)
	cmd.Flags().StringVar(&f.product, "product", "", "product name; empty for every product")
}

func (f *selectionFlags) selection() core.FilterSelection {
	return core.NewFilterSelection(f.period, f.product)
}

// tableFlags binds the conversion table state.
type tableFlags struct {
	selectionFlags
	search string
	sort   string
	dir    string
	rows   int
}

func (f *tableFlags) bind(cmd *cobra.Command, withRows bool) {
	f.selectionFlags.bind(cmd)
	cmd.Flags().StringVarP(&f.search, "search", "q", "", "keep rows whose name contains this text")
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort column: name, samples, sales or conversionRate")
	cmd.Flags().StringVar(&f.dir, "dir", string(analytics.Ascending), "sort direction: asc or desc")
	if withRows {
		cmd.Flags().IntVar(&f.rows, "rows", analytics.PageStep, "number of rows to show")
	}
}

func (f *tableFlags) query() (services.SamplesQuery, error) {
	q := services.SamplesQuery{
		Selection: f.selection(),
		Search:    f.search,
		Limit:     f.rows,
	}
	if f.sort != "" {
		col, ok := analytics.ParseSortColumn(f.sort)
		if !ok {
			return q, fmt.Errorf("unknown sort column %q", f.sort)
		}
		q.Sort = analytics.SortState{Column: col, Direction: analytics.ParseDirection(f.dir)}
	}
	return q, nil
}

func newFiltersCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the periods and products in the data",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := app.Dashboard.Filters(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, app.Printer.Title("Periodes"))
			for _, p := range f.Periods {
				fmt.Fprintln(out, p)
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, app.Printer.Title("Producten"))
			for _, p := range f.Products {
				fmt.Fprintln(out, p)
			}
			return nil
		},
	}
}

func newImportCmd(app *App) *cobra.Command {
	var workbook string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import all records from the remote source into the snapshot",
		Long: `Import all records from the configured import backend into the sqlite
snapshot. With --file the records come from a local .xlsx workbook with one
sheet per month instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				run core.ImportRun
				err error
			)
			switch {
			case workbook != "":
				if app.ImportWorkbook == nil {
					return fmt.Errorf("workbook import is not configured")
				}
				f, ferr := os.Open(workbook)
				if ferr != nil {
					return fmt.Errorf("open %s: %w", workbook, ferr)
				}
				defer f.Close()
				run, err = app.ImportWorkbook(cmd.Context(), f)
			case app.Import != nil:
				run, err = app.Import(cmd.Context())
			default:
				return fmt.Errorf("no snapshot store configured (set SQLITE_DB_PATH)")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records from %s in %s (run %s)\n",
				run.Records, run.Source, run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond), run.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&workbook, "file", "", "import this .xlsx workbook instead of the remote source")
	return cmd
}

func newExportCmd(app *App) *cobra.Command {
	var flags tableFlags
	var format, outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the sample conversion table as CSV or Excel",
		RunE: func(cmd *cobra.Command, args []string) error {
			write := analytics.WriteConversionCSV
			name := analytics.ConversionCSVName
			switch format {
			case "csv":
			case "xlsx":
				write = analytics.WriteConversionXLSX
				name = analytics.ConversionXLSXName
			default:
				return fmt.Errorf("unknown format %q (use csv or xlsx)", format)
			}

			q, err := flags.query()
			if err != nil {
				return err
			}
			view, err := app.Dashboard.Samples(cmd.Context(), q)
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = name
			}
			var w io.Writer = cmd.OutOrStdout()
			if outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outPath, err)
				}
				defer f.Close()
				w = f
			}
			if err := write(w, view.All); err != nil {
				return err
			}
			if outPath != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s\n", len(view.All), outPath)
			}
			return nil
		},
	}
	flags.bind(cmd, false)
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", `output file; "-" for stdout (default: the download name)`)
	return cmd
}

func newReportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a dashboard as text",
	}
	cmd.AddCommand(
		newSalesReportCmd(app),
		newSamplesReportCmd(app),
		newGeoReportCmd(app),
		newBestSellingReportCmd(app),
		newMonthlyReportCmd(app),
	)
	return cmd
}

func newSalesReportCmd(app *App) *cobra.Command {
	var flags selectionFlags
	cmd := &cobra.Command{
		Use:   "sales",
		Short: "Counts per kind, color, size, city and product",
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := app.Dashboard.Sales(cmd.Context(), flags.selection())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Totaal verkopen: %d\n\n", view.Total)
			for _, sec := range []struct {
				title  string
				counts []core.Count
			}{
				{"Soort product", view.ByKind},
				{"Kleuren", view.ByColor},
				{"Maten", view.BySize},
				{"Steden", view.ByCity},
				{"Producten", view.ByName},
				{"Product en kleur", view.ByNameColor},
			} {
				fmt.Fprint(out, app.Printer.Title(sec.title))
				fmt.Fprintln(out, countTable(app.Printer, sec.counts))
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newSamplesReportCmd(app *App) *cobra.Command {
	var flags tableFlags
	cmd := &cobra.Command{
		Use:   "samples",
		Short: "Sample to sale conversion per product and color",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}
			view, err := app.Dashboard.Samples(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			best := view.Summary.BestSample
			if !view.Summary.HasBest {
				best = "Geen data"
			}
			fmt.Fprintf(out, "Staaltjes: %d  Verkopen: %d  Gemiddelde conversie: %.2f%%  Beste staal: %s\n\n",
				view.Summary.TotalSamples, view.Summary.TotalSales, view.Summary.AverageRate, best)

			rows := make([][]string, 0, len(view.Rows))
			for _, it := range view.Rows {
				rows = append(rows, analytics.ConversionRow(it))
			}
			fmt.Fprint(out, app.Printer.Table(analytics.ConversionHeader, rows))
			fmt.Fprintln(out, app.Printer.Dim(fmt.Sprintf("%d van %d getoond", len(view.Rows), view.Matched)))
			return nil
		},
	}
	flags.bind(cmd, true)
	return cmd
}

func newGeoReportCmd(app *App) *cobra.Command {
	var flags selectionFlags
	cmd := &cobra.Command{
		Use:   "geo",
		Short: "Sales per city",
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := app.Dashboard.Geo(cmd.Context(), flags.selection())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, app.Printer.Title("Top steden"))
			fmt.Fprintln(out, countTable(app.Printer, view.Top))

			rows := make([][]string, 0, len(view.Markers))
			for _, m := range view.Markers {
				rows = append(rows, []string{
					m.Name,
					strconv.Itoa(m.Value),
					strconv.FormatFloat(m.Lat, 'f', 4, 64),
					strconv.FormatFloat(m.Lng, 'f', 4, 64),
				})
			}
			fmt.Fprint(out, app.Printer.Title("Kaart"))
			fmt.Fprint(out, app.Printer.Table([]string{"Stad", "Verkopen", "Lat", "Lng"}, rows))
			fmt.Fprintf(out, "Middelpunt: %.4f, %.4f\n", view.Center.Lat, view.Center.Lng)
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newBestSellingReportCmd(app *App) *cobra.Command {
	var flags selectionFlags
	cmd := &cobra.Command{
		Use:   "best-selling",
		Short: "Turnover ranking of wallpaper products",
		RunE: func(cmd *cobra.Command, args []string) error {
			revenue, err := app.Dashboard.BestSelling(cmd.Context(), flags.selection())
			if err != nil {
				return err
			}
			var top float64
			for _, r := range revenue {
				top = max(top, r.Omzet)
			}
			rows := make([][]string, 0, len(revenue))
			for _, r := range revenue {
				rows = append(rows, []string{r.Name, strconv.Itoa(r.Aantal), strconv.FormatFloat(r.Omzet, 'f', 2, 64), app.Printer.Bar(r.Omzet, top, 20)})
			}
			fmt.Fprint(cmd.OutOrStdout(), app.Printer.Table([]string{"Product", "Aantal", "Omzet", ""}, rows))
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newMonthlyReportCmd(app *App) *cobra.Command {
	var flags selectionFlags
	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Turnover per calendar month",
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := app.Dashboard.Monthly(cmd.Context(), flags.selection())
			if err != nil {
				return err
			}
			var top float64
			for _, m := range view.Months {
				top = max(top, m.Omzet)
			}
			rows := make([][]string, 0, len(view.Months))
			for _, m := range view.Months {
				rows = append(rows, []string{m.Month, strconv.FormatFloat(m.Omzet, 'f', 2, 64), app.Printer.Bar(m.Omzet, top, 30)})
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, app.Printer.Table([]string{"Maand", "Omzet", ""}, rows))
			fmt.Fprintf(out, "Totaal: %.2f\n", view.Total)
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func countTable(p formatter.Printer, counts []core.Count) string {
	if len(counts) == 0 {
		return p.Dim("Geen data") + "\n"
	}
	top := 0
	for _, c := range counts {
		top = max(top, c.Value)
	}
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.Name, strconv.Itoa(c.Value), p.Bar(float64(c.Value), float64(top), 20)})
	}
	return p.Table([]string{"Naam", "Aantal", ""}, rows)
}
