// Package extraction drives documents through the extraction pipeline:
// render prompt, call a model, repair and parse the JSON reply, validate it
// against the sentence schema, and record exactly one result per task. The
// batch runner fans the pipeline out across the document and model
// cross-product with bounded concurrency.
package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/structured-trts/sentenca/internal/domain"
)

// DefaultPromptTemplate is used when the configuration does not point at a
// template file. It composes the document metadata block and the sentence
// text the same way every custom template is expected to.
const DefaultPromptTemplate = `Você é um assistente especializado em extração de dados estruturados de sentenças da Justiça do Trabalho.

Leia a sentença abaixo e produza um único objeto JSON com os campos decision_type, gratuidade, custas, valor_total_decisao e claims. Use somente os tipos de pedido listados nos metadados. Responda apenas com o JSON, sem comentários.

<metadados>
{{.Metadados}}
</metadados>

<sentenca>
{{.Texto}}
</sentenca>`

// promptData is the payload handed to the template for one task.
type promptData struct {
	// Metadados is the document's metadata block, JSON-encoded.
	Metadados string

	// Texto is the full sentence text.
	Texto string
}

// PromptRenderer renders the extraction prompt for a task. The template is
// parsed once at construction and probed against an empty payload, so a
// template referencing unknown fields fails before any task starts.
// A PromptRenderer is safe for concurrent use.
type PromptRenderer struct {
	source string
	tmpl   *template.Template
}

// NewPromptRenderer parses the template text. Templates may reference
// {{.Metadados}} and {{.Texto}}.
func NewPromptRenderer(templateText string) (*PromptRenderer, error) {
	if templateText == "" {
		return nil, fmt.Errorf("prompt template cannot be empty")
	}

	tmpl, err := template.New("extraction_prompt").Parse(templateText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}

	// Probe render so field errors surface at startup, not mid-batch.
	if err := tmpl.Execute(&bytes.Buffer{}, promptData{}); err != nil {
		return nil, fmt.Errorf("prompt template failed probe render: %w", err)
	}

	return &PromptRenderer{source: templateText, tmpl: tmpl}, nil
}

// Source returns the raw template text, recorded on each task.
func (r *PromptRenderer) Source() string { return r.source }

// Render produces the prompt for a task, embedding the metadata block as
// indented JSON. Documents without metadata render an empty object.
func (r *PromptRenderer) Render(task domain.ExtractionTask) (string, error) {
	meta := "{}"
	if len(task.Metadata) > 0 {
		encoded, err := json.MarshalIndent(task.Metadata, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode metadata for document %s: %w", task.DocumentID, err)
		}
		meta = string(encoded)
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, promptData{Metadados: meta, Texto: task.DocumentText}); err != nil {
		return "", fmt.Errorf("failed to render prompt for document %s: %w", task.DocumentID, err)
	}
	return buf.String(), nil
}
