package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ewerton255/sprint-task-scheduler/internal/schedule"
	"github.com/ewerton255/sprint-task-scheduler/internal/sprint"
)

// Config is the fully loaded and validated run configuration: the setup file
// plus the executors, day offs and dependency files it points to.
type Config struct {
	Sprint       SprintConfig
	Team         string
	SnapshotFile string
	Output       OutputConfig
	Executors    ExecutorsConfig
	DayOffs      map[sprint.ExecutorID][]sprint.DayOff
	Dependencies map[string][]string
}

type SprintConfig struct {
	Name      string
	Year      string
	Quarter   string
	StartDate time.Time
	EndDate   time.Time
}

// OutputConfig selects where report artifacts land.
type OutputConfig struct {
	Type     string `yaml:"type"`
	Dir      string `yaml:"dir"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Prefix string `yaml:"s3_prefix"`
	S3Region string `yaml:"s3_region"`
}

// ExecutorsConfig holds the per-front executor pools.
type ExecutorsConfig struct {
	Backend  []sprint.Executor
	Frontend []sprint.Executor
	QA       []sprint.Executor
	DevOps   []sprint.Executor
}

// Pools converts the config shape into the map the scheduler consumes.
func (c ExecutorsConfig) Pools() map[sprint.WorkFront][]sprint.Executor {
	return map[sprint.WorkFront][]sprint.Executor{
		sprint.WorkFrontBackend:  c.Backend,
		sprint.WorkFrontFrontend: c.Frontend,
		sprint.WorkFrontQA:       c.QA,
		sprint.WorkFrontDevOps:   c.DevOps,
	}
}

type setupFile struct {
	Sprint struct {
		Name      string `yaml:"name"`
		Year      string `yaml:"year"`
		Quarter   string `yaml:"quarter"`
		StartDate string `yaml:"start_date"`
		EndDate   string `yaml:"end_date"`
	} `yaml:"sprint"`
	Team             string       `yaml:"team"`
	SnapshotFile     string       `yaml:"snapshot_file"`
	ExecutorsFile    string       `yaml:"executors_file"`
	DayOffsFile      string       `yaml:"dayoffs_file"`
	DependenciesFile string       `yaml:"dependencies_file"`
	Output           OutputConfig `yaml:"output"`
}

type executorEntry struct {
	Email    string  `yaml:"email"`
	Capacity float64 `yaml:"capacity"`
}

type executorsFile struct {
	Backend  []executorEntry `yaml:"backend"`
	Frontend []executorEntry `yaml:"frontend"`
	QA       []executorEntry `yaml:"qa"`
	DevOps   []executorEntry `yaml:"devops"`
}

type dayOffEntry struct {
	Date   string `yaml:"date"`
	Period string `yaml:"period"`
}

type dependenciesFile struct {
	Dependencies map[string][]string `yaml:"dependencies"`
}

// Load reads setup.yaml from dir and every file it references. Relative
// paths in the setup file resolve against dir.
func Load(dir string) (*Config, error) {
	var setup setupFile
	if err := readYAML(filepath.Join(dir, "setup.yaml"), &setup); err != nil {
		return nil, err
	}
	if err := validateSetup(&setup); err != nil {
		return nil, fmt.Errorf("invalid setup.yaml: %w", err)
	}

	start, err := parseDate(setup.Sprint.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid sprint start date: %w", err)
	}
	end, err := parseDate(setup.Sprint.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid sprint end date: %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("sprint end date %s before start date %s", setup.Sprint.EndDate, setup.Sprint.StartDate)
	}

	executors, err := loadExecutors(resolve(dir, setup.ExecutorsFile, "executors.yaml"))
	if err != nil {
		return nil, err
	}
	dayOffs, err := loadDayOffs(resolve(dir, setup.DayOffsFile, "dayoffs.yaml"))
	if err != nil {
		return nil, err
	}
	dependencies, err := loadDependencies(resolve(dir, setup.DependenciesFile, "dependencies.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Sprint: SprintConfig{
			Name:      setup.Sprint.Name,
			Year:      setup.Sprint.Year,
			Quarter:   setup.Sprint.Quarter,
			StartDate: start,
			EndDate:   end,
		},
		Team:         setup.Team,
		SnapshotFile: resolve(dir, setup.SnapshotFile, "board.yaml"),
		Output:       setup.Output,
		Executors:    executors,
		DayOffs:      dayOffs,
		Dependencies: dependencies,
	}
	return cfg, nil
}

func validateSetup(setup *setupFile) error {
	if setup.Sprint.Name == "" {
		return fmt.Errorf("sprint.name is required")
	}
	if setup.Team == "" {
		return fmt.Errorf("team is required")
	}
	switch setup.Output.Type {
	case "", "local":
		if setup.Output.Dir == "" {
			setup.Output.Dir = "output"
		}
		setup.Output.Type = "local"
	case "s3":
		if setup.Output.S3Bucket == "" {
			return fmt.Errorf("output.s3_bucket is required when output.type is s3")
		}
	default:
		return fmt.Errorf("unknown output.type: %q", setup.Output.Type)
	}
	return nil
}

func loadExecutors(path string) (ExecutorsConfig, error) {
	var file executorsFile
	if err := readYAML(path, &file); err != nil {
		return ExecutorsConfig{}, err
	}
	cfg := ExecutorsConfig{}
	for _, front := range []struct {
		name    string
		entries []executorEntry
		dst     *[]sprint.Executor
	}{
		{"backend", file.Backend, &cfg.Backend},
		{"frontend", file.Frontend, &cfg.Frontend},
		{"qa", file.QA, &cfg.QA},
		{"devops", file.DevOps, &cfg.DevOps},
	} {
		for _, e := range front.entries {
			if e.Email == "" {
				return ExecutorsConfig{}, fmt.Errorf("%s: executor with empty email in %s", front.name, path)
			}
			if e.Capacity <= 0 {
				return ExecutorsConfig{}, fmt.Errorf("%s: executor %s has non-positive capacity", front.name, e.Email)
			}
			*front.dst = append(*front.dst, sprint.Executor{Email: e.Email, DailyCapacity: e.Capacity})
		}
	}
	return cfg, nil
}

func loadDayOffs(path string) (map[sprint.ExecutorID][]sprint.DayOff, error) {
	var file map[string][]dayOffEntry
	if err := readYAML(path, &file); err != nil {
		return nil, err
	}
	dayOffs := make(map[sprint.ExecutorID][]sprint.DayOff, len(file))
	for email, entries := range file {
		id := sprint.NewExecutorID(email)
		for _, e := range entries {
			date, err := parseDate(e.Date)
			if err != nil {
				return nil, fmt.Errorf("day off for %s: %w", email, err)
			}
			period, err := sprint.ParseDayOffPeriod(e.Period)
			if err != nil {
				return nil, fmt.Errorf("day off for %s: %w", email, err)
			}
			dayOffs[id] = append(dayOffs[id], sprint.DayOff{Date: date, Period: period})
		}
	}
	return dayOffs, nil
}

func loadDependencies(path string) (map[string][]string, error) {
	var file dependenciesFile
	if err := readYAML(path, &file); err != nil {
		return nil, err
	}
	if file.Dependencies == nil {
		file.Dependencies = make(map[string][]string)
	}
	return file.Dependencies, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// parseDate parses YYYY-MM-DD as midnight in the scheduling offset.
func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, schedule.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// resolve joins a possibly relative path against dir, falling back to a
// default file name inside dir when empty.
func resolve(dir, path, fallback string) string {
	if path == "" {
		path = fallback
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
