// Package report renders the detection history into a static HTML dashboard.
package report

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"logowatch/internal/config"
	"logowatch/internal/logging"
	"logowatch/internal/services"
	"logowatch/internal/store"
)

//go:embed dashboard.html.tmpl
var dashboardTemplate string

// Generator renders index.html into the report directory. It only reads the
// store; pruning and appends belong to the monitor.
type Generator struct {
	store  *store.Store
	cfg    *config.Config
	logger *slog.Logger
	tmpl   *template.Template
	now    func() time.Time
}

// New prepares a dashboard generator.
func New(st *store.Store, cfg *config.Config, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	tmpl, err := template.New("dashboard").Parse(dashboardTemplate)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "report", "new", "parse dashboard template", err)
	}
	return &Generator{
		store:  st,
		cfg:    cfg,
		logger: logging.WithComponent(logger, "report"),
		tmpl:   tmpl,
		now:    time.Now,
	}, nil
}

type overallView struct {
	TotalChecks int
	Detected    int
	NotDetected int
	Rate        string
}

type streamerView struct {
	Name        string
	Total       int
	Detected    int
	NotDetected int
	Rate        string
}

type detectionView struct {
	Time       string
	Streamer   string
	Title      string
	Game       string
	Viewers    int
	Detected   bool
	Confidence string
	Screenshot string
}

type dashboardView struct {
	Overall     overallView
	Streamers   []streamerView
	Detections  []detectionView
	GeneratedAt string
}

// Generate writes index.html and returns its path.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	records, err := g.store.All(ctx)
	if err != nil {
		return "", err
	}

	view := g.buildView(records)

	if err := os.MkdirAll(g.cfg.Paths.ReportDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrPersistence, "report", "generate", "create report directory", err)
	}
	outPath := filepath.Join(g.cfg.Paths.ReportDir, "index.html")

	out, err := os.Create(outPath)
	if err != nil {
		return "", services.Wrap(services.ErrPersistence, "report", "generate", "create index.html", err)
	}
	defer out.Close()

	if err := g.tmpl.Execute(out, view); err != nil {
		return "", services.Wrap(services.ErrPersistence, "report", "generate", "render dashboard", err)
	}

	g.logger.Info("dashboard written", logging.String("path", outPath), logging.Int("records", len(records)))
	return outPath, nil
}

func (g *Generator) buildView(records []store.Record) dashboardView {
	view := dashboardView{
		GeneratedAt: g.now().UTC().Format("2006-01-02 15:04:05 UTC"),
	}

	detected := 0
	perStreamer := map[string]*streamerView{}
	var order []string
	for _, record := range records {
		if record.Detected {
			detected++
		}
		name := record.DisplayName
		if name == "" {
			name = record.Streamer
		}
		entry, ok := perStreamer[record.Streamer]
		if !ok {
			entry = &streamerView{Name: name}
			perStreamer[record.Streamer] = entry
			order = append(order, record.Streamer)
		}
		entry.Total++
		if record.Detected {
			entry.Detected++
		} else {
			entry.NotDetected++
		}
	}

	view.Overall = overallView{
		TotalChecks: len(records),
		Detected:    detected,
		NotDetected: len(records) - detected,
		Rate:        ratePct(detected, len(records)),
	}

	for _, login := range order {
		entry := perStreamer[login]
		entry.Rate = ratePct(entry.Detected, entry.Total)
		view.Streamers = append(view.Streamers, *entry)
	}

	// Newest first in the history table.
	for i := len(records) - 1; i >= 0; i-- {
		record := records[i]
		name := record.DisplayName
		if name == "" {
			name = record.Streamer
		}
		row := detectionView{
			Time:       record.CheckedAt.UTC().Format("2006-01-02 15:04:05"),
			Streamer:   name,
			Title:      record.Title,
			Game:       record.Game,
			Viewers:    record.Viewers,
			Detected:   record.Detected,
			Confidence: fmt.Sprintf("%.1f%%", record.Confidence*100),
		}
		if record.Screenshot != "" {
			row.Screenshot = "screenshots/" + filepath.Base(record.Screenshot)
		}
		view.Detections = append(view.Detections, row)
	}
	return view
}

func ratePct(part, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(total)*100)
}
