// Package interviewtest provides answer scripts for the built-in catalog.
package interviewtest

import (
	"testing"

	"github.com/noaesperanza/imre/internal/domain/catalog"
	"github.com/noaesperanza/imre/internal/domain/interview"
	"github.com/stretchr/testify/require"
)

// Step is one answer submission.
type Step struct {
	StageID  string
	FieldKey string
	Value    any
}

// DefaultSteps answers every stage of the default catalog for a patient
// with an active complaint.
func DefaultSteps() []Step {
	return []Step{
		{catalog.StageOpening, "apresentacao", "Maria"},
		{catalog.StageCannabisMedicinal, "uso_cannabis", "nao"},
		{catalog.StageListaIndiciaria, "queixas", "dor de cabeça e insônia"},
		{catalog.StageQueixaPrincipal, "queixa_principal", "dor de cabeça"},
		{catalog.StageDesenvolvimentoIndiciario, "localizacao", "testa"},
		{catalog.StageDesenvolvimentoIndiciario, "inicio", "há duas semanas"},
		{catalog.StageDesenvolvimentoIndiciario, "qualidade", "latejante"},
		{catalog.StageDesenvolvimentoIndiciario, "intensidade", float64(7)},
		{catalog.StageDesenvolvimentoIndiciario, "sintomas_associados", "náusea"},
		{catalog.StageDesenvolvimentoIndiciario, "fatores_melhora", "repouso"},
		{catalog.StageDesenvolvimentoIndiciario, "fatores_piora", "luz forte"},
		{catalog.StageHistoriaPatologica, "doencas_previas", "catapora na infância"},
		{catalog.StageHistoriaFamiliar, "lado_materno", "hipertensão"},
		{catalog.StageHistoriaFamiliar, "lado_paterno", "diabetes"},
		{catalog.StageHabitosDeVida, "atividade_fisica", "ocasional"},
		{catalog.StageHabitosDeVida, "qualidade_sono", float64(6)},
		{catalog.StageHabitosDeVida, "outros_habitos", []any{"meditacao", "trabalho_noturno"}},
		{catalog.StageHabitosDeVida, "tabagismo", "nunca"},
		{catalog.StageHabitosDeVida, "alcool", "social"},
		{catalog.StageAlergias, "possui_alergias", "nao"},
		{catalog.StageMedicacoes, "usa_medicacao", "sim"},
		{catalog.StageMedicacoes, "medicacoes_em_uso", "losartana 50mg uma vez ao dia"},
		{catalog.StageFechamentoConsensual, "concordancia", "concordo"},
		{catalog.StageRelatorioFinal, catalog.FieldShareConsent, "sim"},
	}
}

// NegativeSteps is DefaultSteps with every symptom field answered
// negatively and sharing consent withheld.
func NegativeSteps() []Step {
	steps := DefaultSteps()
	for i, s := range steps {
		switch s.FieldKey {
		case "queixas":
			steps[i].Value = "Nenhuma queixa."
		case "queixa_principal":
			steps[i].Value = "nada"
		case "sintomas_associados":
			steps[i].Value = "nenhum sintoma"
		case catalog.FieldShareConsent:
			steps[i].Value = "nao"
		}
	}
	return steps
}

// Run applies steps through the engine, failing the test on any error.
func Run(t testing.TB, e *interview.Engine, sess *interview.Session, steps []Step) *interview.Session {
	t.Helper()
	for _, s := range steps {
		next, _, err := e.SubmitAnswer(sess, s.StageID, s.FieldKey, s.Value)
		require.NoError(t, err, "%s.%s", s.StageID, s.FieldKey)
		sess = next
	}
	return sess
}

// Completed returns a confirmed session answered with steps.
func Completed(t testing.TB, e *interview.Engine, patientRef string, steps []Step) *interview.Session {
	t.Helper()
	sess := Run(t, e, e.Begin("tenant1", patientRef), steps)
	require.Equal(t, interview.StatusAwaitingConfirmation, sess.Status)
	sess, err := e.ConfirmClosure(sess)
	require.NoError(t, err)
	return sess
}
