package catalog

// Kind is the value constraint of a field.
type Kind string

const (
	KindText        Kind = "text"
	KindChoice      Kind = "choice"
	KindMultiChoice Kind = "multi_choice"
	KindScale       Kind = "scale"
)

// Option is one allowed value of a choice or multi_choice field.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Condition makes a field required only when an earlier choice field of the
// same stage holds the given value.
type Condition struct {
	Field  string `yaml:"field" json:"field"`
	Equals string `yaml:"equals" json:"equals"`
}

// NoConcern lists the answers that count as explicitly negative for a
// symptom-bearing field.
type NoConcern struct {
	Values   []string `yaml:"values,omitempty" json:"values,omitempty"`
	Phrases  []string `yaml:"phrases,omitempty" json:"phrases,omitempty"`
	MaxScale *int     `yaml:"max_scale,omitempty" json:"max_scale,omitempty"`
}

// Field is a single question collected within a stage.
type Field struct {
	Key        string     `yaml:"key" json:"key"`
	Label      string     `yaml:"label" json:"label"`
	Prompt     string     `yaml:"prompt" json:"prompt"`
	Required   bool       `yaml:"required" json:"required"`
	Kind       Kind       `yaml:"kind" json:"kind"`
	Options    []Option   `yaml:"options,omitempty" json:"options,omitempty"`
	Min        int        `yaml:"min,omitempty" json:"min,omitempty"`
	Max        int        `yaml:"max,omitempty" json:"max,omitempty"`
	RequiredIf *Condition `yaml:"required_if,omitempty" json:"required_if,omitempty"`
	Symptom    bool       `yaml:"symptom,omitempty" json:"symptom,omitempty"`
	NoConcern  *NoConcern `yaml:"no_concern,omitempty" json:"no_concern,omitempty"`
}

// StageDefinition is one step of the interview.
type StageDefinition struct {
	ID     string  `yaml:"id" json:"id"`
	Order  int     `yaml:"order" json:"order"`
	Title  string  `yaml:"title" json:"title"`
	Fields []Field `yaml:"fields" json:"fields"`
}

// Value is a normalized answer. Exactly one member is set, depending on the
// field kind.
type Value struct {
	Text    string   `json:"text,omitempty"`
	Choices []string `json:"choices,omitempty"`
	Scale   *int     `json:"scale,omitempty"`
}

// Option looks up an option by value.
func (f Field) Option(value string) (Option, bool) {
	for _, opt := range f.Options {
		if opt.Value == value {
			return opt, true
		}
	}
	return Option{}, false
}

// Field looks up a field of the stage by key.
func (s StageDefinition) Field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Applicable reports whether a field may be answered given the answers
// already collected for the stage.
func (s StageDefinition) Applicable(f Field, answered map[string]Value) bool {
	if f.RequiredIf == nil {
		return true
	}
	v, ok := answered[f.RequiredIf.Field]
	if !ok || len(v.Choices) == 0 {
		return false
	}
	return v.Choices[0] == f.RequiredIf.Equals
}

// Missing returns the fields that must still be answered before the stage
// is complete.
func (s StageDefinition) Missing(answered map[string]Value) []Field {
	var missing []Field
	for _, f := range s.Fields {
		if _, ok := answered[f.Key]; ok {
			continue
		}
		if f.RequiredIf != nil {
			if s.Applicable(f, answered) {
				missing = append(missing, f)
			}
			continue
		}
		if f.Required {
			missing = append(missing, f)
		}
	}
	return missing
}

// Open returns the applicable fields not yet answered, in prompt order.
func (s StageDefinition) Open(answered map[string]Value) []Field {
	var open []Field
	for _, f := range s.Fields {
		if _, ok := answered[f.Key]; ok {
			continue
		}
		if !s.Applicable(f, answered) {
			continue
		}
		open = append(open, f)
	}
	return open
}
