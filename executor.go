package adjust

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Executor names for the built-in executors.
const (
	// ExecutorSoftware is the pure-Go CPU executor. Always available.
	ExecutorSoftware = "software"
	// ExecutorWGPU is the GPU executor built on WebGPU compute. Available
	// after importing the gpu package.
	ExecutorWGPU = "wgpu"
)

// Executor applies adjustment parameters to images. Implementations must
// be safe for concurrent Process calls from multiple goroutines.
type Executor interface {
	// Name returns the executor identifier (e.g., "software", "wgpu").
	Name() string

	// Process applies p to every pixel of img and returns the result as a
	// new image. The input image is never modified. Process either returns
	// a fully processed image or an error; there are no partial results.
	Process(ctx context.Context, img *Image, p Params) (*Image, error)

	// Close releases all executor resources. The executor must not be
	// used after Close is called.
	Close() error
}

// ExecutorFactory creates a new executor instance. Factories may fail,
// for example when no GPU adapter is present on the machine.
type ExecutorFactory func() (Executor, error)

// registry holds registered executor factories.
var (
	registryMu sync.RWMutex
	executors  = make(map[string]ExecutorFactory)
	// Priority order for executor selection (first that constructs wins).
	// GPU > software: the software executor is the universal fallback.
	executorPriority = []string{ExecutorWGPU, ExecutorSoftware}
)

// RegisterExecutor registers an executor factory with the given name.
// This is typically called from init() functions in executor packages.
// If an executor with the same name is already registered, it is replaced.
func RegisterExecutor(name string, factory ExecutorFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	executors[name] = factory
}

// UnregisterExecutor removes an executor from the registry.
// This is useful for testing.
func UnregisterExecutor(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(executors, name)
}

// ExecutorNames returns the sorted names of all registered executors.
func ExecutorNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(executors))
	for name := range executors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewExecutor creates an executor instance by name. It returns an error
// wrapping ErrNoExecutor if no executor with that name is registered, or
// the factory's error if construction fails.
func NewExecutor(name string) (Executor, error) {
	registryMu.RLock()
	factory, ok := executors[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q not registered", ErrNoExecutor, name)
	}
	return factory()
}

// DefaultExecutor creates the best available executor based on priority.
// Priority order: wgpu > software. A factory that fails to construct is
// skipped with a warning, so a machine without a GPU silently falls back
// to the software executor.
func DefaultExecutor() (Executor, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range executorPriority {
		factory, ok := executors[name]
		if !ok {
			continue
		}
		exec, err := factory()
		if err != nil {
			Logger().Warn("adjust: executor unavailable", "executor", name, "error", err)
			continue
		}
		if exec != nil {
			return exec, nil
		}
	}

	// Fallback: first registered executor outside the priority list.
	for name, factory := range executors {
		if name == ExecutorWGPU || name == ExecutorSoftware {
			continue
		}
		exec, err := factory()
		if err != nil || exec == nil {
			continue
		}
		return exec, nil
	}

	return nil, ErrNoExecutor
}
