// Package policy loads and serves the conflict resolution policy, with
// optional hot reload when the policy file changes on disk.
package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/jbctechsolutions/medsync/internal/domain/conflict"
	"github.com/jbctechsolutions/medsync/internal/infrastructure/logging"
)

// filePolicy is the YAML shape of a policy file.
type filePolicy struct {
	Strategy         string `yaml:"strategy"`           // latest_wins, merge, user_review
	AutoResolveMinor *bool  `yaml:"auto_resolve_minor"` // nil keeps the default
}

// Load reads a policy file. A missing path returns the default policy.
func Load(path string) (conflict.Policy, error) {
	pol := conflict.DefaultPolicy()
	if path == "" {
		return pol, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return pol, nil
	}
	if err != nil {
		return pol, fmt.Errorf("failed to read policy file: %w", err)
	}

	var fp filePolicy
	if err := yaml.Unmarshal(data, &fp); err != nil {
		return pol, fmt.Errorf("failed to parse policy file: %w", err)
	}

	if fp.Strategy != "" {
		strategy := conflict.Strategy(fp.Strategy)
		switch strategy {
		case conflict.StrategyLatestWins, conflict.StrategyMerge, conflict.StrategyUserReview:
			pol.Strategy = strategy
		default:
			return pol, fmt.Errorf("unknown resolution strategy %q", fp.Strategy)
		}
	}
	if fp.AutoResolveMinor != nil {
		pol.AutoResolveMinor = *fp.AutoResolveMinor
	}

	return pol, nil
}

// Manager serves the current resolution policy and reloads it when the
// backing file changes.
type Manager struct {
	path   string
	logger *logging.Logger

	mu      sync.RWMutex
	current conflict.Policy

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	closed  bool
	closeMu sync.Mutex
}

// debounceDelay coalesces the event bursts editors produce on save.
const debounceDelay = 200 * time.Millisecond

// NewManager creates a policy manager seeded from the given file. An empty
// path serves the default policy without watching.
func NewManager(path string, logger *logging.Logger) (*Manager, error) {
	pol, err := Load(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &Manager{
		path:    path,
		logger:  logger,
		current: pol,
		done:    make(chan struct{}),
	}, nil
}

// Current returns the policy in effect.
func (m *Manager) Current() conflict.Policy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Set replaces the policy in effect.
func (m *Manager) Set(pol conflict.Policy) {
	m.mu.Lock()
	m.current = pol
	m.mu.Unlock()
}

// Watch starts reloading the policy file on change. It watches the parent
// directory so editors that replace the file on save are still seen.
func (m *Manager) Watch() error {
	if m.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create policy watcher: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch policy directory: %w", err)
	}

	m.watcher = watcher
	m.wg.Add(1)
	go m.watchLoop()

	return nil
}

func (m *Manager) watchLoop() {
	defer m.wg.Done()

	var debounce *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-m.done:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(m.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			m.reload()

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("policy watcher error", "error", err.Error())
		}
	}
}

func (m *Manager) reload() {
	pol, err := Load(m.path)
	if err != nil {
		// The previous policy stays in effect.
		m.logger.Warn("policy reload failed, keeping previous policy",
			"path", m.path,
			"error", err.Error(),
		)
		return
	}

	m.Set(pol)
	m.logger.Info("resolution policy reloaded",
		"path", m.path,
		"strategy", string(pol.Strategy),
		"auto_resolve_minor", pol.AutoResolveMinor,
	)
}

// Close stops the watcher.
func (m *Manager) Close() error {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	close(m.done)
	var err error
	if m.watcher != nil {
		err = m.watcher.Close()
	}
	m.wg.Wait()
	return err
}
