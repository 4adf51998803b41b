package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/tokyotemps/internal/api"
	"github.com/lox/tokyotemps/internal/climate"
	"github.com/lox/tokyotemps/internal/dataset"
	"github.com/lox/tokyotemps/internal/ingest"
	"github.com/lox/tokyotemps/internal/models"
	"github.com/lox/tokyotemps/internal/store"
)

type Globals struct {
	DB           string        `help:"SQLite path or postgres:// URL." env:"TOKYOTEMPS_DB" default:"data/tokyotemps.db"`
	Dataset      string        `help:"Historical dataset path or ftp:// URL (.json or .csv)." env:"TOKYOTEMPS_DATASET" default:"data/tokyo_weather.json"`
	Timezone     string        `help:"Time zone used for saved dates and the schedule." env:"TOKYOTEMPS_TIMEZONE" default:"Asia/Tokyo"`
	ForecastURL  string        `help:"Forecast API base URL." name:"forecast-url" env:"TOKYOTEMPS_FORECAST_URL" default:"${forecast_url}"`
	City         string        `help:"Forecast city code." env:"TOKYOTEMPS_CITY" default:"${city}"`
	FetchTimeout time.Duration `help:"Timeout for each forecast request." env:"TOKYOTEMPS_FETCH_TIMEOUT" default:"10s"`
}

type CLI struct {
	Globals

	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to .env file'"`

	Serve     ServeCmd     `cmd:"" default:"withargs" help:"Serve the HTTP API and run the daily fetch schedule."`
	Fetch     FetchCmd     `cmd:"" help:"Fetch and save the forecast once."`
	Forecasts ForecastsCmd `cmd:"" help:"Print saved forecasts."`
	Dates     DatesCmd     `cmd:"" help:"Print the dates that have saved forecasts."`
	Summary   SummaryCmd   `cmd:"" help:"Print climate series from the historical dataset."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("tokyotemps"),
		kong.Description("Tokyo temperature history and forecast archive."),
		kong.UsageOnError(),
		kong.Vars{
			"forecast_url": ingest.DefaultBaseURL,
			"city":         ingest.DefaultCity,
		},
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}

func (g *Globals) location() *time.Location {
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		log.Printf("Warning: could not load %s timezone, using UTC: %v", g.Timezone, err)
		return time.UTC
	}
	return loc
}

// forecastStore is what both storage backends provide.
type forecastStore interface {
	ingest.ForecastStore
	api.ForecastReader
}

type backend struct {
	forecasts forecastStore
	sqlite    *store.Store // nil for PostgreSQL
	close     func()
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func (g *Globals) openStore(ctx context.Context) (*backend, error) {
	if isPostgres(g.DB) {
		pg, err := store.NewPostgres(ctx, g.DB)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Println("postgres schema ready")
		return &backend{forecasts: pg, close: pg.Close}, nil
	}

	db, err := sql.Open("sqlite", g.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Println("database migrated")
	return &backend{forecasts: st, sqlite: st, close: func() { db.Close() }}, nil
}

func (g *Globals) newSaver(b *backend, loc *time.Location) *ingest.Saver {
	client := ingest.NewClient(g.ForecastURL, g.City, g.FetchTimeout)
	saver := ingest.NewSaver(client, b.forecasts, loc)
	if b.sqlite != nil {
		saver.SetRunRecorder(b.sqlite)
	}
	return saver
}

type ServeCmd struct {
	Port             string        `help:"HTTP server port." env:"PORT" default:"8080"`
	Schedule         string        `help:"Cron spec for the daily fetch." env:"TOKYOTEMPS_SCHEDULE" default:"0 1 * * *"`
	NoSchedule       bool          `help:"Disable the scheduled fetch (server only)." name:"no-schedule"`
	LiveCacheTTL     time.Duration `help:"How long a live forecast is served from cache." name:"live-cache-ttl" env:"TOKYOTEMPS_LIVE_CACHE_TTL" default:"30m"`
	AnomalyThreshold float64       `help:"Flat °C margin that marks a forecast as abnormal." env:"TOKYOTEMPS_ANOMALY_THRESHOLD" default:"2.0"`
	PayloadRetention int           `help:"Days to keep archived raw payloads (0 keeps them forever)." name:"payload-retention" env:"TOKYOTEMPS_PAYLOAD_RETENTION" default:"90"`
}

func (c *ServeCmd) Run(g *Globals) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loc := g.location()

	records, err := dataset.Load(ctx, g.Dataset)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	b, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer b.close()

	saver := g.newSaver(b, loc)
	saver.SetCache(ingest.NewForecastCache(c.LiveCacheTTL, nil))

	server := api.NewServer(b.forecasts, saver, records, c.Port, loc)
	server.SetAnomalyThreshold(c.AnomalyThreshold)
	if b.sqlite != nil {
		server.SetRunLister(b.sqlite)
	}

	if !c.NoSchedule {
		scheduler := ingest.NewScheduler(saver, c.Schedule, loc)
		if b.sqlite != nil {
			scheduler.SetPayloadRetention(b.sqlite, c.PayloadRetention)
		}
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()
	} else {
		log.Println("schedule disabled (--no-schedule)")
	}

	return server.Run(ctx)
}

type FetchCmd struct{}

func (c *FetchCmd) Run(g *Globals) error {
	ctx := context.Background()
	loc := g.location()

	b, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer b.close()

	result := g.newSaver(b, loc).FetchAndSave(ctx)
	if err := printJSON(result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("fetch failed: %s", result.Error)
	}
	return nil
}

type ForecastsCmd struct {
	Date string `help:"Saved date (YYYY-MM-DD); defaults to the latest run."`
}

func (c *ForecastsCmd) Run(g *Globals) error {
	ctx := context.Background()
	b, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer b.close()

	records, err := b.forecasts.GetSavedForecasts(ctx, c.Date)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		log.Println("no saved forecasts")
	}
	for _, f := range records {
		fmt.Printf("%s  %-8s  max %-5s min %-5s  %s%s\n",
			f.ForecastDate, f.DateLabel.String, fmtTemp(f.MaxTemp), fmtTemp(f.MinTemp),
			f.Telop.String, tropicalMark(f))
	}
	return nil
}

type DatesCmd struct{}

func (c *DatesCmd) Run(g *Globals) error {
	ctx := context.Background()
	b, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer b.close()

	dates, err := b.forecasts.GetSavedDates(ctx)
	if err != nil {
		return err
	}
	for _, d := range dates {
		fmt.Println(d)
	}
	return nil
}

type SummaryCmd struct {
	Month    int    `help:"Also print the per-year series for this month (1-12)."`
	Baseline string `help:"Baseline for year comparison: 30years, all, or YYYY-YYYY." default:"30years"`
	Year     int    `help:"Compare this year against the baseline."`
}

func (c *SummaryCmd) Run(g *Globals) error {
	records, err := dataset.Load(context.Background(), g.Dataset)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	annual := climate.AggregateAnnual(records)
	if trend, err := climate.LinearTrend(annual); err != nil {
		fmt.Printf("trend: %v\n", err)
	} else {
		fmt.Printf("Annual max trend %d-%d: %+.2f°C per century\n",
			annual[0].Year, annual[len(annual)-1].Year, trend.PerCentury())
	}

	fmt.Println("\nMonth       Max    Min   Diff")
	for _, m := range climate.AggregateMonthly(records) {
		fmt.Printf("%-10s %5.1f  %5.1f  %5.1f\n", m.MonthName, m.AvgMaxTemp, m.AvgMinTemp, m.TempDiff)
	}

	if c.Month != 0 {
		if c.Month < 1 || c.Month > 12 {
			return fmt.Errorf("month must be between 1 and 12")
		}
		fmt.Printf("\n%s by year\n", climate.MonthName(c.Month))
		for _, p := range climate.AggregateMonthlyYearly(records, c.Month) {
			fmt.Printf("%d  %5.1f  %5.1f  %5.1f\n", p.Year, p.AvgMaxTemp, p.AvgMinTemp, p.TempDiff)
		}
	}

	if c.Year != 0 {
		baseline, err := climate.ParseBaseline(c.Baseline)
		if err != nil {
			return err
		}
		yc := climate.CompareYear(records, c.Year, 0, baseline, climate.ComputeNormalStatistics(records, baseline))
		fmt.Printf("\n%d vs %s: %d above, %d below, %d equal, %d ≥2σ above, %d ≤-2σ below; %d days ≥35°C\n",
			yc.Year, yc.Baseline, yc.Above, yc.Below, yc.Equal, yc.AboveHigh, yc.BelowLow, yc.ExtremelyHot)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fmtTemp(v sql.NullFloat64) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf("%.0f", v.Float64)
}

func tropicalMark(f models.ForecastRecord) string {
	if f.IsTropicalNight {
		return "  (tropical night)"
	}
	return ""
}
