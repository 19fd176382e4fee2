package indicator

import (
	"sync"

	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/quantor-lab/quantor-trading/pkg/errors"
)

// Registry manages the indicator instances one engine owns. Instances are
// keyed by role name so that two indicators of the same family (e.g. a short
// and a long moving average) can coexist.
type Registry interface {
	Register(ind Indicator) error
	Get(name string) (Indicator, error)
	List() []string
	Remove(name string) error
	// UpdateAll feeds the bar to every registered indicator.
	UpdateAll(bar types.MarketData)
	// ResetAll clears the state of every registered indicator.
	ResetAll()
}

// RegistryV1 manages all indicators for a single engine instance.
type RegistryV1 struct {
	indicators map[string]Indicator
	order      []string
	mu         sync.RWMutex
}

// NewRegistry creates a new indicator registry.
func NewRegistry() Registry {
	return &RegistryV1{
		indicators: make(map[string]Indicator),
		order:      nil,
		mu:         sync.RWMutex{},
	}
}

// Register adds an indicator to the registry.
func (r *RegistryV1) Register(ind Indicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := ind.Name()
	if _, exists := r.indicators[name]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator with name %s already registered", name)
	}

	r.indicators[name] = ind
	r.order = append(r.order, name)

	return nil
}

// Get retrieves an indicator by role name.
func (r *RegistryV1) Get(name string) (Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ind, exists := r.indicators[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator with name %s not found", name)
	}

	return ind, nil
}

// List returns all registered role names in registration order.
func (r *RegistryV1) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)

	return names
}

// Remove removes an indicator from the registry.
func (r *RegistryV1) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.indicators[name]; !exists {
		return errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator with name %s not found", name)
	}

	delete(r.indicators, name)

	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)

			break
		}
	}

	return nil
}

// UpdateAll implements Registry. Indicators are updated in registration
// order so that replays are deterministic.
func (r *RegistryV1) UpdateAll(bar types.MarketData) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		r.indicators[name].Update(bar)
	}
}

// ResetAll implements Registry.
func (r *RegistryV1) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ind := range r.indicators {
		ind.Reset()
	}
}
