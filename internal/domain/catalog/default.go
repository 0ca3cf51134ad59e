package catalog

// Stage ids of the built-in IMRE catalog.
const (
	StageOpening                   = "opening"
	StageCannabisMedicinal         = "cannabis_medicinal"
	StageListaIndiciaria           = "lista_indiciaria"
	StageQueixaPrincipal           = "queixa_principal"
	StageDesenvolvimentoIndiciario = "desenvolvimento_indiciario"
	StageHistoriaPatologica        = "historia_patologica"
	StageHistoriaFamiliar          = "historia_familiar"
	StageHabitosDeVida             = "habitos_de_vida"
	StageAlergias                  = "alergias"
	StageMedicacoes                = "medicacoes"
	StageFechamentoConsensual      = "fechamento_consensual"
	StageRelatorioFinal            = "relatorio_final"
)

// FieldShareConsent is the relatorio_final field holding the patient's
// consent to share the report with other professionals.
const FieldShareConsent = "consentimento_compartilhamento"

var negativePhrases = []string{
	"nenhum", "nenhuma", "nada", "não", "nao", "nenhuma queixa",
	"sem queixas", "sem queixa", "não tenho", "nao tenho", "nenhum sintoma",
}

var simNao = []Option{
	{Value: "sim", Label: "sim"},
	{Value: "nao", Label: "não"},
}

// Default returns the built-in IMRE interview catalog.
func Default() *Catalog {
	c, err := New(defaultStages())
	if err != nil {
		panic("catalog: built-in catalog is invalid: " + err.Error())
	}
	return c
}

func defaultStages() []StageDefinition {
	noComplaint := &NoConcern{Phrases: negativePhrases}
	return []StageDefinition{
		{
			ID: StageOpening, Order: 0, Title: "Abertura Exponencial",
			Fields: []Field{
				{Key: "apresentacao", Label: "Apresentação", Kind: KindText, Required: true,
					Prompt: "Olá! Eu sou a assistente da Avaliação Clínica Inicial. Por favor, apresente-se: como você gostaria de ser chamado(a)?"},
			},
		},
		{
			ID: StageCannabisMedicinal, Order: 1, Title: "Cannabis Medicinal",
			Fields: []Field{
				{Key: "uso_cannabis", Label: "Uso de cannabis medicinal", Kind: KindChoice, Required: true, Options: simNao,
					Prompt: "Você já fez ou faz uso de cannabis medicinal?"},
				{Key: "detalhes_uso", Label: "Detalhes do uso", Kind: KindText,
					RequiredIf: &Condition{Field: "uso_cannabis", Equals: "sim"},
					Prompt:     "Conte como foi esse uso: produto, dose e por quanto tempo."},
			},
		},
		{
			ID: StageListaIndiciaria, Order: 2, Title: "Lista Indiciária",
			Fields: []Field{
				{Key: "queixas", Label: "Queixas relatadas", Kind: KindText, Required: true,
					Symptom: true, NoConcern: noComplaint,
					Prompt: "O que trouxe você à nossa avaliação hoje? E o que mais?"},
			},
		},
		{
			ID: StageQueixaPrincipal, Order: 3, Title: "Queixa Principal",
			Fields: []Field{
				{Key: "queixa_principal", Label: "Queixa principal", Kind: KindText, Required: true,
					Symptom: true, NoConcern: noComplaint,
					Prompt: "De todas essas questões, qual mais o(a) incomoda?"},
			},
		},
		{
			ID: StageDesenvolvimentoIndiciario, Order: 4, Title: "Desenvolvimento Indiciário",
			Fields: []Field{
				{Key: "localizacao", Label: "Localização", Kind: KindText, Required: true,
					Prompt: "Onde você sente isso?"},
				{Key: "inicio", Label: "Início", Kind: KindText, Required: true,
					Prompt: "Quando isso começou?"},
				{Key: "qualidade", Label: "Como é", Kind: KindText, Required: true,
					Prompt: "Como é essa sensação?"},
				{Key: "intensidade", Label: "Intensidade", Kind: KindScale, Min: 0, Max: 10,
					Prompt: "De 0 a 10, qual a intensidade?"},
				{Key: "sintomas_associados", Label: "Sintomas associados", Kind: KindText, Required: true,
					Symptom: true, NoConcern: noComplaint,
					Prompt: "O que mais você sente junto com isso?"},
				{Key: "fatores_melhora", Label: "O que melhora", Kind: KindText,
					Prompt: "O que parece melhorar?"},
				{Key: "fatores_piora", Label: "O que piora", Kind: KindText, Required: true,
					Prompt: "O que parece piorar?"},
			},
		},
		{
			ID: StageHistoriaPatologica, Order: 5, Title: "História Patológica Pregressa",
			Fields: []Field{
				{Key: "doencas_previas", Label: "Questões de saúde anteriores", Kind: KindText, Required: true,
					Prompt: "Desde o nascimento, quais as questões de saúde que você já viveu?"},
			},
		},
		{
			ID: StageHistoriaFamiliar, Order: 6, Title: "História Familiar",
			Fields: []Field{
				{Key: "lado_materno", Label: "Parte da mãe", Kind: KindText, Required: true,
					Prompt: "E na sua família, começando pela parte da mãe: quais as questões de saúde dela e desse lado da família?"},
				{Key: "lado_paterno", Label: "Parte do pai", Kind: KindText, Required: true,
					Prompt: "E por parte do pai?"},
			},
		},
		{
			ID: StageHabitosDeVida, Order: 7, Title: "Hábitos de Vida",
			Fields: []Field{
				{Key: "atividade_fisica", Label: "Atividade física", Kind: KindChoice, Required: true,
					Options: []Option{
						{Value: "sedentario", Label: "sedentário"},
						{Value: "ocasional", Label: "ocasional"},
						{Value: "regular", Label: "regular"},
					},
					Prompt: "Com que frequência você pratica atividade física?"},
				{Key: "qualidade_sono", Label: "Qualidade do sono", Kind: KindScale, Min: 0, Max: 10,
					Prompt: "De 0 a 10, como você avalia o seu sono?"},
				{Key: "outros_habitos", Label: "Outros hábitos", Kind: KindMultiChoice,
					Options: []Option{
						{Value: "meditacao", Label: "meditação"},
						{Value: "dieta_restritiva", Label: "dieta restritiva"},
						{Value: "trabalho_noturno", Label: "trabalho noturno"},
						{Value: "nenhum", Label: "nenhum"},
					},
					Prompt: "Algum destes hábitos faz parte da sua rotina?"},
				{Key: "tabagismo", Label: "Tabagismo", Kind: KindChoice, Required: true,
					Options: []Option{
						{Value: "nunca", Label: "nunca fumou"},
						{Value: "ex_fumante", Label: "ex-fumante"},
						{Value: "fumante", Label: "fumante"},
					},
					Prompt: "Você fuma ou já fumou?"},
				{Key: "alcool", Label: "Consumo de álcool", Kind: KindChoice, Required: true,
					Options: []Option{
						{Value: "nao", Label: "não consome"},
						{Value: "social", Label: "social"},
						{Value: "frequente", Label: "frequente"},
					},
					Prompt: "E bebidas alcoólicas?"},
			},
		},
		{
			ID: StageAlergias, Order: 8, Title: "Alergias",
			Fields: []Field{
				{Key: "possui_alergias", Label: "Possui alergias", Kind: KindChoice, Required: true, Options: simNao,
					Prompt: "Você tem alguma alergia?"},
				{Key: "quais_alergias", Label: "Alergias", Kind: KindText,
					RequiredIf: &Condition{Field: "possui_alergias", Equals: "sim"},
					Prompt:     "A quê? Como costuma reagir?"},
			},
		},
		{
			ID: StageMedicacoes, Order: 9, Title: "Medicações",
			Fields: []Field{
				{Key: "usa_medicacao", Label: "Usa medicações", Kind: KindChoice, Required: true, Options: simNao,
					Prompt: "Você usa alguma medicação regularmente?"},
				{Key: "medicacoes_em_uso", Label: "Medicações em uso", Kind: KindText,
					RequiredIf: &Condition{Field: "usa_medicacao", Equals: "sim"},
					Prompt:     "Quais medicações, em que dose e com que frequência?"},
			},
		},
		{
			ID: StageFechamentoConsensual, Order: 10, Title: "Fechamento Consensual",
			Fields: []Field{
				{Key: "concordancia", Label: "Concordância com o resumo", Kind: KindChoice, Required: true,
					Options: []Option{
						{Value: "concordo", Label: "concorda"},
						{Value: "com_ressalvas", Label: "concorda com ressalvas"},
					},
					Prompt: "Vou resumir o que entendi. Você concorda com esse entendimento?"},
				{Key: "ressalvas", Label: "Ressalvas", Kind: KindText,
					RequiredIf: &Condition{Field: "concordancia", Equals: "com_ressalvas"},
					Prompt:     "O que você gostaria de ajustar nesse resumo?"},
			},
		},
		{
			ID: StageRelatorioFinal, Order: 11, Title: "Relatório Final",
			Fields: []Field{
				{Key: FieldShareConsent, Label: "Autoriza compartilhamento", Kind: KindChoice, Required: true, Options: simNao,
					Prompt: "Você autoriza que este relatório seja compartilhado com outros profissionais que cuidam de você?"},
			},
		},
	}
}
