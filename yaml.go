package tuning

import (
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// document is the human-editable form of a tuning. Periodic tunings store
// only what is needed to regenerate their table, like the binary format.
type document struct {
	Name       string
	Kind       string
	StepMin    int16
	TableSize  int              `yaml:",omitempty"`
	GroupSize  uint16           `yaml:",omitempty"`
	GroupRatio float32          `yaml:",omitempty"`
	Ratios     []float32        `yaml:",flow,omitempty"`
	FineSteps  uint32           `yaml:",omitempty"`
	NoteNames  map[int16]string `yaml:",omitempty"`
}

// MarshalYAML implements yaml.Marshaler.
func (t *Tuning) MarshalYAML() (interface{}, error) {
	d := document{
		Name:      t.name,
		Kind:      t.kind.String(),
		StepMin:   t.stepMin,
		FineSteps: t.fineSteps,
		NoteNames: t.NoteNames(),
	}
	switch t.kind {
	case General:
		d.Ratios = t.RatioTable()
	case GroupGeometric:
		d.Ratios = append([]float32(nil), t.ratios[:t.groupSize]...)
		d.GroupSize, d.GroupRatio, d.TableSize = t.groupSize, t.groupRatio, len(t.ratios)
	case Geometric:
		d.GroupSize, d.GroupRatio, d.TableSize = t.groupSize, t.groupRatio, len(t.ratios)
	}
	return d, nil
}

// UnmarshalYAML implements yaml.Unmarshaler. The document is validated like a
// binary one and t is only changed if it is accepted.
func (t *Tuning) UnmarshalYAML(value *yaml.Node) error {
	var d document
	if err := value.Decode(&d); err != nil {
		return err
	}
	n := New()
	if d.Name != "" {
		n.name = d.Name
	}
	if d.Kind != "" {
		k, err := ParseKind(d.Kind)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptStream, err)
		}
		n.kind = k
	}
	n.stepMin = d.StepMin
	if d.Ratios != nil {
		n.ratios = d.Ratios
	}
	n.groupSize = d.GroupSize
	n.groupRatio = d.GroupRatio
	if d.NoteNames != nil {
		n.noteNames = d.NoteNames
	}
	if n.kind == General {
		n.groupSize, n.groupRatio = 0, 0
	}
	if err := n.reconstruct(d.TableSize); err != nil {
		return errors.Wrap(err, "yaml tuning")
	}
	if err := n.finishLoad(d.FineSteps); err != nil {
		return errors.Wrap(err, "yaml tuning")
	}
	t.assign(n)
	return nil
}
