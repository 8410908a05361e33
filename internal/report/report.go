// Package report renders the post-run artifacts: a human-readable Markdown
// report and a machine-readable metrics dump. It only reads the sprint; all
// mutation happens in the scheduling engine.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"gopkg.in/yaml.v3"

	"github.com/ewerton255/sprint-task-scheduler/internal/sprint"
	"github.com/ewerton255/sprint-task-scheduler/pkg/panicerr"
	"github.com/ewerton255/sprint-task-scheduler/pkg/storage"
)

const dateFormat = "02/01/2006"

type Generator struct {
	sprint  *sprint.Sprint
	dayOffs map[sprint.ExecutorID][]sprint.DayOff
	store   storage.Storage
	runID   string
	logger  *slog.Logger
	now     func() time.Time
}

func NewGenerator(sp *sprint.Sprint, dayOffs map[sprint.ExecutorID][]sprint.DayOff, store storage.Storage, runID string, logger *slog.Logger) *Generator {
	return &Generator{
		sprint:  sp,
		dayOffs: dayOffs,
		store:   store,
		runID:   runID,
		logger:  logger,
		now:     time.Now,
	}
}

// ReportPath is where the Markdown report lands for this run.
func (g *Generator) ReportPath() string {
	return fmt.Sprintf("sprint-report-%s.md", g.runID)
}

// MetricsPath is where the metrics artifact lands for this run.
func (g *Generator) MetricsPath() string {
	return fmt.Sprintf("sprint-metrics-%s.yaml", g.runID)
}

// Generate writes both artifacts. The writes are independent, so they go out
// concurrently; the first error wins.
func (g *Generator) Generate(ctx context.Context) error {
	report := []byte(g.renderMarkdown())
	metrics, err := g.renderMetrics()
	if err != nil {
		return err
	}

	p := pool.New().WithContext(ctx)
	p.Go(panicerr.SafeContext(func(ctx context.Context) error {
		return g.store.Write(ctx, g.ReportPath(), report)
	}))
	p.Go(panicerr.SafeContext(func(ctx context.Context) error {
		return g.store.Write(ctx, g.MetricsPath(), metrics)
	}))
	if err := p.Wait(); err != nil {
		return fmt.Errorf("failed to write report artifacts: %w", err)
	}

	g.logger.Info("report artifacts written",
		"report", g.ReportPath(), "metrics", g.MetricsPath())
	return nil
}

type metricsArtifact struct {
	RunID       string          `yaml:"run_id"`
	Sprint      string          `yaml:"sprint"`
	Team        string          `yaml:"team"`
	GeneratedAt string          `yaml:"generated_at"`
	Metrics     *sprint.Metrics `yaml:"metrics"`
}

func (g *Generator) renderMetrics() ([]byte, error) {
	artifact := metricsArtifact{
		RunID:       g.runID,
		Sprint:      g.sprint.Name,
		Team:        g.sprint.Team,
		GeneratedAt: g.now().UTC().Format(time.RFC3339),
		Metrics:     g.sprint.Metrics,
	}
	data, err := yaml.Marshal(&artifact)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metrics: %w", err)
	}
	return data, nil
}

func (g *Generator) renderMarkdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Sprint Report: %s\n\n", g.sprint.Name)

	fmt.Fprintf(&b, "## 1. Sprint Summary\n\n")
	fmt.Fprintf(&b, "- Sprint: **%s**\n", g.sprint.Name)
	fmt.Fprintf(&b, "- Team: %s\n", g.sprint.Team)
	fmt.Fprintf(&b, "- Period: %s to %s\n", g.sprint.StartDate.Format(dateFormat), g.sprint.EndDate.Format(dateFormat))
	fmt.Fprintf(&b, "- Planned user stories: %d\n\n", len(g.sprint.UserStories))

	g.writeUserStories(&b)
	g.writeDayOffs(&b)
	g.writeDependencies(&b)
	g.writeUnscheduled(&b)
	g.writeCapacity(&b)

	b.WriteString("---\n\n")
	b.WriteString("## Notes\n\n")
	b.WriteString("- All dates and times are in GMT-3.\n")
	b.WriteString("- Test plan tasks with no estimate carry no dates.\n")
	b.WriteString("- All reported absences were respected during scheduling.\n")

	return b.String()
}

func (g *Generator) writeUserStories(b *strings.Builder) {
	b.WriteString("## 2. Planned User Stories\n\n")
	b.WriteString("| ID | Title | Assignee | End Date | Story Points |\n")
	b.WriteString("|----|-------|----------|----------|--------------|\n")
	for _, us := range g.sprint.UserStories {
		endDate := "-"
		if us.EndDate != nil {
			endDate = us.EndDate.Format(dateFormat)
		}
		assignee := "-"
		if us.Assignee != "" {
			assignee = us.Assignee.String()
		}
		points := "-"
		if us.StoryPoints > 0 {
			points = formatPoints(us.StoryPoints)
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n", us.ID, us.Title, assignee, endDate, points)
	}
	b.WriteString("\n")
}

func (g *Generator) writeDayOffs(b *strings.Builder) {
	b.WriteString("## 3. Day Offs\n\n")
	b.WriteString("| Executor | Absences |\n")
	b.WriteString("|----------|----------|\n")
	for _, id := range sortedExecutors(g.dayOffs) {
		var absences []string
		for _, d := range g.dayOffs[id] {
			absences = append(absences, fmt.Sprintf("%s (%s)", d.Date.Format(dateFormat), periodLabel(d.Period)))
		}
		fmt.Fprintf(b, "| %s | %s |\n", id, strings.Join(absences, ", "))
	}
	b.WriteString("\n")
}

func (g *Generator) writeDependencies(b *strings.Builder) {
	b.WriteString("## 4. Task Dependencies\n\n")
	for _, us := range g.sprint.UserStories {
		fmt.Fprintf(b, "### User Story %s: %s\n\n", us.ID, us.Title)
		b.WriteString("**Tasks:**\n\n")
		for _, t := range us.Tasks {
			fmt.Fprintf(b, "- Task %s: %s (%s)\n", t.ID, t.Title, t.WorkFront)
		}
		b.WriteString("\n**Dependencies:**\n\n")
		hasDeps := false
		for _, t := range us.Tasks {
			if len(t.Dependencies) == 0 {
				continue
			}
			hasDeps = true
			fmt.Fprintf(b, "- Task %s (%s) depends on:\n", t.ID, t.Title)
			for _, depID := range t.Dependencies {
				if dep, ok := g.sprint.TaskByID(depID); ok {
					fmt.Fprintf(b, "  - Task %s: %s (%s)\n", dep.ID, dep.Title, dep.WorkFront)
				} else {
					fmt.Fprintf(b, "  - Task %s: not found\n", depID)
				}
			}
		}
		if !hasDeps {
			b.WriteString("*No dependencies*\n")
		}
		b.WriteString("\n")
	}
}

func (g *Generator) writeUnscheduled(b *strings.Builder) {
	b.WriteString("## 5. Unscheduled Items\n\n")

	b.WriteString("### Blocked on dependencies\n\n")
	blocked := false
	for _, t := range g.sprint.AllTasks() {
		if t.Status != sprint.StatusBlocked {
			continue
		}
		blocked = true
		fmt.Fprintf(b, "- Task %s: %s | waiting on: %s\n", t.ID, t.Title, strings.Join(t.Dependencies, ", "))
	}
	if !blocked {
		b.WriteString("*No tasks blocked on dependencies*\n")
	}
	b.WriteString("\n")

	b.WriteString("### Failed placements\n\n")
	if len(g.sprint.Metrics.Unscheduled) == 0 {
		b.WriteString("*No failed placement attempts*\n")
	} else {
		b.WriteString("| Task | Title | Reason | User Story |\n")
		b.WriteString("|------|-------|--------|------------|\n")
		for _, u := range g.sprint.Metrics.Unscheduled {
			fmt.Fprintf(b, "| %s | %s | %s | %s |\n", u.TaskID, u.Title, u.Reason, u.UserStoryID)
		}
	}
	b.WriteString("\n")
}

func (g *Generator) writeCapacity(b *strings.Builder) {
	b.WriteString("## 6. Executor Capacity\n\n")
	b.WriteString("| Executor | Total (h) | Used (h) | Available (h) |\n")
	b.WriteString("|----------|-----------|----------|---------------|\n")
	for _, id := range sortedExecutors(g.sprint.Metrics.TotalCapacity) {
		fmt.Fprintf(b, "| %s | %.1f | %.1f | %.1f |\n",
			id,
			g.sprint.Metrics.TotalCapacity[id],
			g.sprint.Metrics.UsedCapacity[id],
			g.sprint.Metrics.AvailableCapacity[id])
	}
	b.WriteString("\n")
}

func periodLabel(p sprint.DayOffPeriod) string {
	switch p {
	case sprint.DayOffFull:
		return "full day"
	case sprint.DayOffMorning:
		return "morning"
	case sprint.DayOffAfternoon:
		return "afternoon"
	}
	return string(p)
}

// formatPoints prints 0.5 as-is and whole values without the decimal part.
func formatPoints(p float64) string {
	if p == float64(int(p)) {
		return fmt.Sprintf("%d", int(p))
	}
	return fmt.Sprintf("%.1f", p)
}

func sortedExecutors[V any](m map[sprint.ExecutorID]V) []sprint.ExecutorID {
	ids := make([]sprint.ExecutorID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
