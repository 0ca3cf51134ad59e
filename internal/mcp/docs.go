package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `imre conducts the Avaliação Clínica Inicial: a fixed, multi-stage clinical interview following the IMRE methodology.

Core concepts:
- Catalog: twelve stages in a fixed order. Each stage declares its fields, prompts and allowed values.
- Session: one patient's interview. It only moves forward: in_progress -> awaiting_confirmation -> completed, or abandoned.
- Snapshot: the current stage and its pending_fields. Render the prompts of pending_fields, nothing else.
- Report: a narrative synthesized once the patient confirms the summary. It never contains a diagnosis.
- Grant: access to a report given by the patient (or re-shared by a grantee when the patient consented).

Rules of engagement:
1) Resume before starting: get_session with patient_ref returns the open interview, if any.
2) start_interview, then for each pending field ask its prompt and call submit_answer with the patient's words.
3) Never skip, reorder or invent questions. A STAGE_MISMATCH error names the stage to answer instead.
4) On VALIDATION_ERROR, ask the patient again; do not guess a value.
5) When status is awaiting_confirmation, read the summary back and call confirm_closure once the patient agrees.
6) get_report returns the report; share_report / revoke_share / list_grants manage access.

Transport notes:
- HTTP: authenticate with a bearer token. Pass the acting user via X-Actor-Ref when the token does not carry one.
- Stdio: pass the acting user via _meta.actor_ref when supported; otherwise use the *_ref tool arguments.

Docs:
- imre://docs/index
- imre://docs/methodology
- imre://docs/workflows/interview
- imre://docs/workflows/sharing
- imre://docs/errors
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "imre://docs/index",
		Name:        "docs_index",
		Title:       "imre docs index",
		Description: "Entry point for assistant-facing docs and what to read when.",
		Content: `# imre: Assistant Docs Index

Read only what the current step needs.

- ` + "`imre://docs/methodology`" + `: the twelve stages and what each collects.
- ` + "`imre://docs/workflows/interview`" + `: conducting an interview end to end, including resuming.
- ` + "`imre://docs/workflows/sharing`" + `: consent, grants and revocation.
- ` + "`imre://docs/errors`" + `: error codes and how to recover from each.

## Limits

- Answers cannot be amended once accepted. If the patient corrects themself, note it in a later free-text field.
- Only one open interview per patient. Finish or abandon it before starting another.
- The report states what the patient said. It never includes a diagnosis.
`,
	},
	{
		URI:         "imre://docs/methodology",
		Name:        "methodology",
		Title:       "Arte da Entrevista Clínica: stages",
		Description: "The fixed stage order of the initial clinical evaluation.",
		Content: `# Stages

| # | id | title | collects |
|---|----|-------|----------|
| 0 | opening | Abertura Exponencial | how the patient wants to be addressed |
| 1 | cannabis_medicinal | Cannabis Medicinal | prior or current medicinal cannabis use |
| 2 | lista_indiciaria | Lista Indiciária | every complaint ("o que mais?") |
| 3 | queixa_principal | Queixa Principal | the complaint that bothers most |
| 4 | desenvolvimento_indiciario | Desenvolvimento Indiciário | where, when, how, intensity, associated symptoms, what improves, what worsens |
| 5 | historia_patologica | História Patológica | past health issues since birth |
| 6 | historia_familiar | História Familiar | mother's side, then father's side |
| 7 | habitos_de_vida | Hábitos de Vida | activity, sleep, routine, tobacco, alcohol |
| 8 | alergias | Alergias | allergies and reactions |
| 9 | medicacoes | Medicações | medications in use |
| 10 | fechamento_consensual | Fechamento Consensual | agreement with the summary |
| 11 | relatorio_final | Relatório Final | consent to share the report |

Call get_catalog for the exact fields, prompts and allowed values.

Some fields are conditional: they are asked only when an earlier answer in the same stage
makes them relevant (for example ` + "`quais_alergias`" + ` after ` + "`possui_alergias = sim`" + `).
pending_fields already accounts for this.
`,
	},
	{
		URI:         "imre://docs/workflows/interview",
		Name:        "workflow_interview",
		Title:       "Workflow: conducting an interview",
		Description: "Start or resume, answer stage by stage, confirm.",
		Content: `# Conducting an interview

1. get_session(patient_ref). If an interview is open, continue from its pending_fields.
2. Otherwise start_interview(patient_ref).
3. Loop while status is in_progress:
   - Ask the prompt of the first pending field, in the patient's language.
   - submit_answer(session_id, stage_id, field_key, value).
   - The returned snapshot shows the next pending fields. The stage advances on its own.
4. When status becomes awaiting_confirmation, summarize what was collected and ask for agreement.
5. confirm_closure(session_id). The response carries the report.

Values by kind:
- text: the patient's words.
- choice: one option value from the field.
- multi_choice: a list of distinct option values.
- scale: an integer within the field's range.

If the patient wants to stop, call abandon_interview with the reason. No report is produced.
`,
	},
	{
		URI:         "imre://docs/workflows/sharing",
		Name:        "workflow_sharing",
		Title:       "Workflow: sharing a report",
		Description: "Who may share, re-share, view and revoke.",
		Content: `# Sharing

- The patient may share their report with any professional: share_report(report_id, target_ref).
- A professional holding an active grant may re-share only if the patient consented in the final stage.
- Sharing twice with the same professional fails with ALREADY_GRANTED.
- view_report, get_report and list_grants succeed for the patient and for active grantees only.
- get_session returns raw answers, so only the patient may call it. Grantees read the report instead.
- Without a bound actor (local stdio use) these reads are not restricted.
- revoke_share is allowed for the patient and for whoever made the grant. Revoked grants stay listed by list_grants.
`,
	},
	{
		URI:         "imre://docs/errors",
		Name:        "errors",
		Title:       "Error codes",
		Description: "Tool error codes and recovery.",
		Content: `# Errors

Tool errors carry ` + "`{code, message, details, recovery_hint}`" + `.

| code | meaning | recover by |
|------|---------|------------|
| STAGE_MISMATCH | answer targets a stage other than the current one | answer ` + "`details.expected_stage_id`" + ` |
| UNKNOWN_FIELD | field not declared on the current stage | use pending_fields |
| VALIDATION_ERROR | value breaks ` + "`details.constraint`" + ` | ask again |
| INVALID_STATE | operation not allowed in the current status | get_session |
| DUPLICATE_ACTIVE_SESSION | patient already has an open interview | resume it |
| STALE_WRITE | concurrent modification | re-read and retry |
| REPORT_PENDING | interview not confirmed yet | finish and confirm |
| SESSION_NOT_COMPLETED | interview was abandoned | none |
| UNAUTHORIZED | caller may not access the report | none |
| ALREADY_GRANTED | grant already active | none |
| NOT_FOUND | unknown id | check the id |
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
