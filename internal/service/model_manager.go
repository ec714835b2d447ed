package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/helios-rules/helios/internal/domain/compile"
	"github.com/helios-rules/helios/internal/domain/engine"
)

// ModelManager compiles the rules file and publishes the result to the
// evaluator. Publication is atomic: in-flight evaluations keep the snapshot
// they loaded at entry, later calls observe the new model. Reload may be
// called concurrently with evaluation; concurrent Reload calls serialize.
type ModelManager struct {
	evaluator *engine.Evaluator
	path      string
	maxRules  int
	logger    *slog.Logger

	mu sync.Mutex // serializes Reload
}

// NewModelManager creates a ModelManager for the rules file at path.
// maxRules > 0 sets the advisory context-size ceiling; models above it
// still load but are logged, since every pooled context grows to match.
func NewModelManager(evaluator *engine.Evaluator, path string, maxRules int, logger *slog.Logger) *ModelManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelManager{evaluator: evaluator, path: path, maxRules: maxRules, logger: logger}
}

// Load reads the rules file under a shared lock, compiles it, and installs
// the model. The lock keeps a concurrent writer from tearing the read; the
// compile itself runs on the locked file handle.
func (m *ModelManager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(m.path)
	if err != nil {
		return fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()

	if err := flockShared(f.Fd()); err != nil {
		return fmt.Errorf("lock rules file: %w", err)
	}
	defer func() { _ = flockUnlock(f.Fd()) }()

	model, err := compile.Compile(f)
	if err != nil {
		return fmt.Errorf("compile rules: %w", err)
	}

	if m.maxRules > 0 && model.NumRules() > m.maxRules {
		m.logger.Warn("rulebase exceeds configured ceiling; contexts will grow to match",
			"num_rules", model.NumRules(),
			"max_rules", m.maxRules,
		)
	}

	m.evaluator.Install(model)
	m.logger.Info("model installed",
		"path", m.path,
		"model_fingerprint", fmt.Sprintf("%016x", model.Fingerprint()),
		"num_rules", model.NumRules(),
		"num_predicates", model.NumPredicates(),
		"num_fields", model.NumFields(),
	)
	return nil
}

// Reload recompiles and swaps the model. Alias of Load; named for intent at
// call sites that refresh an already-running evaluator.
func (m *ModelManager) Reload(ctx context.Context) error {
	return m.Load(ctx)
}
