// Package label resolves prediction codes to weather category names.
package label

import "strconv"

// Source names the tier a mapping was resolved from.
type Source string

const (
	SourceRemote  Source = "remote"
	SourceLocal   Source = "local"
	SourceDefault Source = "default"
)

// Mapping is an index-addressable set of class names; index equals prediction code.
type Mapping interface {
	Size() int
	LabelAt(index int) (string, bool)
	Source() Source
}

// defaultClasses are the categories the models were trained on, in encoder order.
var defaultClasses = []string{"Clear", "Clouds", "Fog", "Rain", "Snow"}

type classMapping struct {
	classes []string
	source  Source
}

// NewMapping builds a Mapping over a copy of classes.
func NewMapping(classes []string, source Source) Mapping {
	copied := make([]string, len(classes))
	copy(copied, classes)
	return &classMapping{classes: copied, source: source}
}

// Default returns the hardcoded mapping used when no artifact is available.
func Default() Mapping {
	return NewMapping(defaultClasses, SourceDefault)
}

func (m *classMapping) Size() int {
	return len(m.classes)
}

func (m *classMapping) LabelAt(index int) (string, bool) {
	if index < 0 || index >= len(m.classes) {
		return "", false
	}
	return m.classes[index], true
}

func (m *classMapping) Source() Source {
	return m.source
}

// Decode returns the label for code, or Unknown_<code> when the code is outside
// the mapping. It never fails: codes outside the trained class set are expected
// when the model drifts.
func Decode(mapping Mapping, code int) string {
	if mapping != nil {
		if name, ok := mapping.LabelAt(code); ok {
			return name
		}
	}
	return "Unknown_" + strconv.Itoa(code)
}
