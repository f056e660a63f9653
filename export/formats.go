// Package export renders the vault's component model into diagram and
// model-exchange files: Draw.io XML under exports/drawio/ and ArchiMate
// Model Exchange XML under exports/archimate/.
package export

import "fmt"

// View selects which Draw.io diagram to generate.
type View string

const (
	// ViewComponent shows components and their relations.
	ViewComponent View = "component"

	// ViewIntegration shows components plus the decisions and
	// requirements attached to their integrations.
	ViewIntegration View = "integration"

	// ViewDeployment groups components by their deploy:<zone> tag.
	ViewDeployment View = "deployment"
)

// AllViews lists the generated views in page order.
var AllViews = []View{ViewComponent, ViewIntegration, ViewDeployment}

// IsValid returns true for a known view.
func (v View) IsValid() bool {
	switch v {
	case ViewComponent, ViewIntegration, ViewDeployment:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (v View) String() string {
	return string(v)
}

// ParseView converts a string to a View.
func ParseView(s string) (View, error) {
	v := View(s)
	if !v.IsValid() {
		return "", fmt.Errorf("unknown view %q (want component, integration, or deployment)", s)
	}
	return v, nil
}

// Layer selects an ArchiMate layer.
type Layer string

const (
	// LayerBusiness holds stakeholders as business actors.
	LayerBusiness Layer = "business"

	// LayerApplication holds components as application components.
	LayerApplication Layer = "application"

	// LayerTechnology holds deployment zones as nodes.
	LayerTechnology Layer = "technology"
)

// AllLayers lists the ArchiMate layers in export order.
var AllLayers = []Layer{LayerBusiness, LayerApplication, LayerTechnology}

// IsValid returns true for a known layer.
func (l Layer) IsValid() bool {
	switch l {
	case LayerBusiness, LayerApplication, LayerTechnology:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (l Layer) String() string {
	return string(l)
}

// ParseLayer converts a string to a Layer.
func ParseLayer(s string) (Layer, error) {
	l := Layer(s)
	if !l.IsValid() {
		return "", fmt.Errorf("unknown layer %q (want business, application, or technology)", s)
	}
	return l, nil
}
