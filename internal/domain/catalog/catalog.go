package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the immutable, ordered set of interview stages.
type Catalog struct {
	stages []StageDefinition
	byID   map[string]int
}

// New validates the stage definitions and builds a catalog. Stages must be
// declared in order, starting at order 0.
func New(stages []StageDefinition) (*Catalog, error) {
	if len(stages) == 0 {
		return nil, invalidCatalog("no stages")
	}
	c := &Catalog{
		stages: make([]StageDefinition, len(stages)),
		byID:   make(map[string]int, len(stages)),
	}
	for i, st := range stages {
		if err := validateStage(i, st); err != nil {
			return nil, err
		}
		if _, dup := c.byID[st.ID]; dup {
			return nil, invalidCatalog("duplicate stage id %q", st.ID)
		}
		c.byID[st.ID] = i
		c.stages[i] = cloneStage(st)
	}
	return c, nil
}

// LoadFile reads a catalog from a YAML document.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Stages []StageDefinition `yaml:"stages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(doc.Stages)
}

// StageAt returns the stage with the given order.
func (c *Catalog) StageAt(order int) (StageDefinition, error) {
	if order < 0 || order >= len(c.stages) {
		return StageDefinition{}, ErrStageNotFound
	}
	return cloneStage(c.stages[order]), nil
}

// NextStage returns the stage following the given order.
func (c *Catalog) NextStage(order int) (StageDefinition, error) {
	if order < 0 || order >= len(c.stages) {
		return StageDefinition{}, ErrStageNotFound
	}
	if order+1 == len(c.stages) {
		return StageDefinition{}, ErrEndOfCatalog
	}
	return cloneStage(c.stages[order+1]), nil
}

// TotalStages returns the number of stages.
func (c *Catalog) TotalStages() int {
	return len(c.stages)
}

// Stage returns a stage by id.
func (c *Catalog) Stage(id string) (StageDefinition, error) {
	i, ok := c.byID[id]
	if !ok {
		return StageDefinition{}, ErrStageNotFound
	}
	return cloneStage(c.stages[i]), nil
}

// Stages returns a copy of every stage in order.
func (c *Catalog) Stages() []StageDefinition {
	out := make([]StageDefinition, len(c.stages))
	for i, st := range c.stages {
		out[i] = cloneStage(st)
	}
	return out
}

func validateStage(index int, st StageDefinition) error {
	if strings.TrimSpace(st.ID) == "" {
		return invalidCatalog("stage %d has no id", index)
	}
	if st.Order != index {
		return invalidCatalog("stage %q has order %d, want %d", st.ID, st.Order, index)
	}
	if len(st.Fields) == 0 {
		return invalidCatalog("stage %q has no fields", st.ID)
	}

	seen := make(map[string]Field, len(st.Fields))
	hasRequired := false
	pendingOptional := ""
	for _, f := range st.Fields {
		if strings.TrimSpace(f.Key) == "" {
			return invalidCatalog("stage %q has a field without key", st.ID)
		}
		if _, dup := seen[f.Key]; dup {
			return invalidCatalog("stage %q declares field %q twice", st.ID, f.Key)
		}
		if err := validateField(st.ID, f, seen); err != nil {
			return err
		}
		seen[f.Key] = f

		switch {
		case f.RequiredIf != nil:
			// Conditional fields close the stage on their own when the
			// condition is false, so they never strand earlier optionals.
		case f.Required:
			hasRequired = true
			pendingOptional = ""
		default:
			pendingOptional = f.Key
		}
	}
	if !hasRequired {
		return invalidCatalog("stage %q has no required field", st.ID)
	}
	if pendingOptional != "" {
		return invalidCatalog("stage %q: optional field %q is never reachable", st.ID, pendingOptional)
	}
	return nil
}

func validateField(stageID string, f Field, earlier map[string]Field) error {
	switch f.Kind {
	case KindText:
	case KindChoice, KindMultiChoice:
		if len(f.Options) == 0 {
			return invalidCatalog("field %s.%s has no options", stageID, f.Key)
		}
		values := make(map[string]bool, len(f.Options))
		for _, opt := range f.Options {
			if opt.Value == "" || values[opt.Value] {
				return invalidCatalog("field %s.%s has an empty or duplicate option", stageID, f.Key)
			}
			values[opt.Value] = true
		}
	case KindScale:
		if f.Min >= f.Max {
			return invalidCatalog("field %s.%s has scale min %d >= max %d", stageID, f.Key, f.Min, f.Max)
		}
	default:
		return invalidCatalog("field %s.%s has unknown kind %q", stageID, f.Key, f.Kind)
	}

	if f.RequiredIf != nil {
		ref, ok := earlier[f.RequiredIf.Field]
		if !ok || ref.Kind != KindChoice {
			return invalidCatalog("field %s.%s depends on %q, which is not an earlier choice field", stageID, f.Key, f.RequiredIf.Field)
		}
		if _, ok := ref.Option(f.RequiredIf.Equals); !ok {
			return invalidCatalog("field %s.%s depends on unknown option %q", stageID, f.Key, f.RequiredIf.Equals)
		}
	}
	return nil
}

func cloneStage(st StageDefinition) StageDefinition {
	out := st
	out.Fields = make([]Field, len(st.Fields))
	copy(out.Fields, st.Fields)
	return out
}
