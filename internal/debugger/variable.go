package debugger

import (
	"github.com/dshills/luadap/internal/dap"
	"github.com/dshills/luadap/internal/interp"
)

// TranslateBindings converts an interpreter binding snapshot into
// protocol variables. Values arrive already rendered in the
// interpreter's display form; nothing here is expandable, so every
// variables reference is zero.
func TranslateBindings(bindings []interp.Binding) []dap.Variable {
	out := make([]dap.Variable, len(bindings))
	for i, binding := range bindings {
		out[i] = dap.Variable{
			Name:  binding.Name,
			Value: binding.Value,
			Type:  binding.Type,
		}
	}
	return out
}
