package config

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownLayer is returned when a layer name cannot be resolved.
var ErrUnknownLayer = errors.New("unknown layer")

// LayerDisabler is implemented by collision matrices.
type LayerDisabler interface {
	Disable(a, b int)
}

// Layer resolves a layer by name, or by its decimal index.
func (l LayersConfig) Layer(name string) (int, error) {
	if idx, ok := l.Names[name]; ok {
		return idx, nil
	}
	idx, err := strconv.Atoi(name)
	if err != nil || idx < 0 || idx >= NumLayers {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLayer, name)
	}
	return idx, nil
}

// Apply disables every configured layer pair on m.
func (l LayersConfig) Apply(m LayerDisabler) error {
	for _, pair := range l.Disabled {
		a, err := l.Layer(pair[0])
		if err != nil {
			return err
		}
		b, err := l.Layer(pair[1])
		if err != nil {
			return err
		}
		m.Disable(a, b)
	}
	return nil
}
