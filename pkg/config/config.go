// Package config loads the worker's YAML configuration file and the
// environment-variable feature flags spec.md §6.4 names. Loader re-reads the
// YAML file on every write via fsnotify and publishes each new parse on
// Loader.Changes; cmd/beamline-worker reads the file once at startup and
// does not consume Changes, so a running worker keeps its startup values.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FeatureFlags mirrors the four boolean env vars spec.md §6.4 documents.
// A flag is true when its value is "true", "1" or "yes" in any letter case,
// and false (the CP1 baseline) when unset or set to anything else.
type FeatureFlags struct {
	AdvancedRetryEnabled        bool
	CompleteTimeoutEnabled      bool
	QueueManagementEnabled      bool
	ObservabilityMetricsEnabled bool
}

// LoadFeatureFlags reads the four feature-flag env vars.
func LoadFeatureFlags() FeatureFlags {
	return FeatureFlags{
		AdvancedRetryEnabled:        envBool("ADVANCED_RETRY_ENABLED"),
		CompleteTimeoutEnabled:      envBool("COMPLETE_TIMEOUT_ENABLED"),
		QueueManagementEnabled:      envBool("QUEUE_MANAGEMENT_ENABLED"),
		ObservabilityMetricsEnabled: envBool("OBSERVABILITY_METRICS_ENABLED"),
	}
}

func envBool(name string) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return false
	}

	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// PoolConfig is the per-resource-class pool tuning the YAML file carries.
type PoolConfig struct {
	QueueCapacity  int `yaml:"queue_capacity"`
	MaxConcurrency int `yaml:"max_concurrency"`
}

// QuotaConfig is the default per-tenant ceiling the YAML file carries.
type QuotaConfig struct {
	MaxMemoryMB   int64  `yaml:"max_memory_per_tenant_mb"`
	MaxCPUTimeMs  int64  `yaml:"max_cpu_time_per_tenant_ms"`
	ResetCronSpec string `yaml:"reset_cron_spec"`
}

// RetryConfig is the default retry/backoff tuning the YAML file carries.
type RetryConfig struct {
	BaseDelayMs    int64 `yaml:"base_delay_ms"`
	MaxDelayMs     int64 `yaml:"max_delay_ms"`
	TotalTimeoutMs int64 `yaml:"total_timeout_ms"`
	MaxRetries     int   `yaml:"max_retries"`
}

// File is the root YAML config shape.
type File struct {
	Pools           map[string]PoolConfig `yaml:"pools"`
	Quota           QuotaConfig           `yaml:"quota"`
	Retry           RetryConfig           `yaml:"retry"`
	RBACPolicyPath  string                `yaml:"rbac_policy_path"`
	EventBusType    string                `yaml:"event_bus_type"`
	SQLDSN          string                `yaml:"sql_dsn"`
	FSPathAllowList []string              `yaml:"fs_path_allow_list"`
	OTLPEndpoint    string                `yaml:"otlp_endpoint"`
}

// Loader reads a YAML config file and watches it for changes, publishing
// the newly parsed File on Changes whenever the file is rewritten.
type Loader struct {
	path string

	mu      sync.RWMutex
	current File

	watcher *fsnotify.Watcher
	Changes chan File
}

// NewLoader reads path once and starts watching it for subsequent writes.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path, Changes: make(chan File, 1)}

	if err := l.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}

	l.watcher = watcher

	go l.watch()

	return l, nil
}

// Current returns the most recently loaded config.
func (l *Loader) Current() File {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.current
}

// Close stops the filesystem watcher.
func (l *Loader) Close() error {
	if l.watcher == nil {
		return nil
	}

	return l.watcher.Close()
}

func (l *Loader) reload() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", l.path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("config: parse %s: %w", l.path, err)
	}

	l.mu.Lock()
	l.current = f
	l.mu.Unlock()

	return nil
}

func (l *Loader) watch() {
	for event := range l.watcher.Events {
		if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			continue
		}

		if err := l.reload(); err != nil {
			continue
		}

		select {
		case l.Changes <- l.Current():
		default:
		}
	}
}
