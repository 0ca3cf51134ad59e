package report

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/noaesperanza/imre/internal/domain/catalog"
	"github.com/noaesperanza/imre/internal/domain/interview"
)

// NotReported is the narrative of a stage with no collected answers.
const NotReported = "Não informado."

// Synthesizer turns completed sessions into report content. Output depends
// only on the session answers and the catalog.
type Synthesizer struct {
	catalog *catalog.Catalog
}

// NewSynthesizer creates a synthesizer over the catalog.
func NewSynthesizer(c *catalog.Catalog) *Synthesizer {
	return &Synthesizer{catalog: c}
}

// Synthesize builds the report for a completed session. ID and GeneratedAt
// are left for the caller to assign.
func (s *Synthesizer) Synthesize(sess *interview.Session) (*Report, error) {
	if sess.Status != interview.StatusCompleted {
		return nil, ErrSessionNotCompleted
	}

	stages := s.catalog.Stages()
	rep := &Report{
		TenantID:       sess.TenantID,
		SessionID:      sess.ID,
		PatientRef:     sess.PatientRef,
		Sections:       make([]Section, 0, len(stages)),
		Recommendation: s.recommend(sess, stages),
		ConsentToShare: consented(sess),
	}
	for _, st := range stages {
		rep.Sections = append(rep.Sections, section(st, sess.StageAnswers(st.ID)))
	}
	return rep, nil
}

func section(st catalog.StageDefinition, answered map[string]catalog.Value) Section {
	sec := Section{StageID: st.ID, Title: st.Title}
	var sentences []string
	for _, f := range st.Fields {
		v, ok := answered[f.Key]
		if !ok {
			continue
		}
		sentences = append(sentences, sentence(f, v))
	}
	if len(sentences) == 0 {
		sec.NarrativeText = NotReported
		return sec
	}
	sec.NarrativeText = strings.Join(sentences, " ")
	sec.Reported = true
	return sec
}

func sentence(f catalog.Field, v catalog.Value) string {
	var body string
	switch f.Kind {
	case catalog.KindText:
		body = v.Text
	case catalog.KindChoice, catalog.KindMultiChoice:
		labels := make([]string, len(v.Choices))
		for i, c := range v.Choices {
			labels[i] = optionLabel(f, c)
		}
		body = joinPortuguese(labels)
	case catalog.KindScale:
		if v.Scale != nil {
			body = strconv.Itoa(*v.Scale) + " de " + strconv.Itoa(f.Max)
		}
	}
	if !strings.HasSuffix(body, ".") && !strings.HasSuffix(body, "!") && !strings.HasSuffix(body, "?") {
		body += "."
	}
	return fmt.Sprintf("%s: %s", f.Label, body)
}

func optionLabel(f catalog.Field, value string) string {
	if opt, ok := f.Option(value); ok && opt.Label != "" {
		return opt.Label
	}
	return value
}

func joinPortuguese(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " e " + items[len(items)-1]
}

// recommend returns no_action only when every symptom-bearing field was
// answered and every answer is explicitly negative.
func (s *Synthesizer) recommend(sess *interview.Session, stages []catalog.StageDefinition) Recommendation {
	symptomFields := 0
	for _, st := range stages {
		answered := sess.StageAnswers(st.ID)
		for _, f := range st.Fields {
			if !f.Symptom {
				continue
			}
			symptomFields++
			v, ok := answered[f.Key]
			if !ok || !NoConcern(f, v) {
				return RecommendScheduleConsultation
			}
		}
	}
	if symptomFields == 0 {
		return RecommendScheduleConsultation
	}
	return RecommendNoAction
}

// NoConcern reports whether an answer falls within the field's configured
// negative set.
func NoConcern(f catalog.Field, v catalog.Value) bool {
	nc := f.NoConcern
	if nc == nil {
		return false
	}
	switch f.Kind {
	case catalog.KindText:
		text := normalizePhrase(v.Text)
		if text == "" {
			return false
		}
		for _, p := range nc.Phrases {
			if normalizePhrase(p) == text {
				return true
			}
		}
		return false
	case catalog.KindChoice, catalog.KindMultiChoice:
		if len(v.Choices) == 0 {
			return false
		}
		for _, c := range v.Choices {
			if !slices.Contains(nc.Values, c) {
				return false
			}
		}
		return true
	case catalog.KindScale:
		return nc.MaxScale != nil && v.Scale != nil && *v.Scale <= *nc.MaxScale
	}
	return false
}

func normalizePhrase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return strings.Join(strings.Fields(s), " ")
}

func consented(sess *interview.Session) bool {
	v, ok := sess.StageAnswers(catalog.StageRelatorioFinal)[catalog.FieldShareConsent]
	return ok && len(v.Choices) == 1 && v.Choices[0] == "sim"
}
