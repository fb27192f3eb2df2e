// Package domain contains the core data model for the labor-sentence
// extraction benchmark: the schema-validated payload produced by a model,
// the per-task result records, and the per-model summary statistics.
// The package has no infrastructure dependencies and performs no I/O,
// which keeps schema validation and aggregation trivially unit-testable.
package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DecisionType classifies the overall disposition of a labor-court sentence.
type DecisionType string

const (
	// DecisionMerito indicates the court ruled on the merits of the claims.
	DecisionMerito DecisionType = "merito"
	// DecisionHomologacaoAcordo indicates the court ratified a settlement.
	DecisionHomologacaoAcordo DecisionType = "homologacao_acordo"
	// DecisionExtincaoSemMerito indicates the case was dismissed without
	// a ruling on the merits.
	DecisionExtincaoSemMerito DecisionType = "extincao_sem_julgamento_merito"
)

// Gratuidade records whether free-of-charge litigation was granted.
type Gratuidade string

const (
	GratuidadeConcedida    Gratuidade = "concedida"
	GratuidadeNaoConcedida Gratuidade = "nao_concedida"
)

// Outcome is the per-claim disposition assigned by the court.
type Outcome string

const (
	OutcomeProcedente             Outcome = "procedente"
	OutcomeImprocedente           Outcome = "improcedente"
	OutcomeParcialmenteProcedente Outcome = "parcialmente_procedente"
	OutcomePrejudicado            Outcome = "prejudicado"
	OutcomeAcordo                 Outcome = "acordo"
)

// Reflexos flags whether a claim outcome carries secondary financial effects.
type Reflexos string

const (
	ReflexosSim Reflexos = "sim"
	ReflexosNao Reflexos = "nao"
)

// Money represents a monetary value extracted from a sentence.
// Amount is nil when the source text genuinely does not state a value;
// it is never defaulted to zero.
type Money struct {
	// Amount is the decimal value in the sentence, or nil when unspecified.
	Amount *float64 `json:"amount" validate:"omitempty,gte=0"`

	// Currency is fixed to BRL for this corpus.
	Currency string `json:"currency" validate:"required,eq=BRL"`

	// IsLiquidacao distinguishes a finally computed award from an estimate.
	IsLiquidacao bool `json:"is_liquidacao"`
}

// ClaimRecord is the per-claim decision at the core of the extraction.
type ClaimRecord struct {
	// ClaimType identifies the claim using the court taxonomy in the form
	// "(code) description", e.g. "(13769) Horas Extras". It must belong to
	// the configured claim vocabulary.
	ClaimType string `json:"claim_type" validate:"required,claim_vocab"`

	// RequestedValue is the amount the plaintiff asked for, when stated.
	RequestedValue *Money `json:"requested_value"`

	// Outcome is the court's disposition for this claim.
	Outcome Outcome `json:"outcome" validate:"required,oneof=procedente improcedente parcialmente_procedente prejudicado acordo"`

	// AwardedValue is the amount granted, when stated.
	AwardedValue *Money `json:"awarded_value"`

	// Reflexos indicates secondary financial effects on other entitlements.
	Reflexos Reflexos `json:"reflexos" validate:"required,oneof=sim nao"`
}

// LaborSentenceExtraction is the structured record a model must emit for
// a single sentence. It is the schema the validator enforces.
type LaborSentenceExtraction struct {
	DecisionType DecisionType `json:"decision_type" validate:"required,oneof=merito homologacao_acordo extincao_sem_julgamento_merito"`

	// Gratuidade is nil when the sentence does not address it.
	Gratuidade *Gratuidade `json:"gratuidade" validate:"omitempty,oneof=concedida nao_concedida"`

	// Custas are the court costs assigned by the sentence, if any.
	Custas *Money `json:"custas"`

	// ValorTotalDecisao is the total value of the decision, if stated.
	ValorTotalDecisao *Money `json:"valor_total_decisao"`

	// Claims preserves the order in which claims appear in the sentence.
	Claims []ClaimRecord `json:"claims" validate:"dive"`
}

// ClaimCode extracts the integer taxonomy code from a claim-type value
// of the form "(code) description".
func ClaimCode(claimType string) (int, error) {
	open := strings.Index(claimType, "(")
	close := strings.Index(claimType, ")")
	if open != 0 || close < 2 {
		return 0, fmt.Errorf("claim type %q is not in \"(code) description\" form", claimType)
	}
	code, err := strconv.Atoi(claimType[1:close])
	if err != nil {
		return 0, fmt.Errorf("claim type %q has a non-numeric code: %w", claimType, err)
	}
	return code, nil
}

// ClaimDescription extracts the human-readable description from a claim-type
// value, without the leading "(code) " prefix.
func ClaimDescription(claimType string) string {
	close := strings.Index(claimType, ")")
	if close == -1 || close+2 > len(claimType) {
		return claimType
	}
	return claimType[close+2:]
}

// Vocabulary is the fixed set of claim types a successful extraction may use.
// Membership is checked verbatim, including the "(code) " prefix.
type Vocabulary struct {
	entries map[string]struct{}
	ordered []string
}

// NewVocabulary builds a vocabulary from the configured claim-type values.
// Duplicate entries are collapsed; order of first appearance is preserved.
func NewVocabulary(claimTypes []string) (*Vocabulary, error) {
	if len(claimTypes) == 0 {
		return nil, fmt.Errorf("claim vocabulary cannot be empty")
	}

	v := &Vocabulary{entries: make(map[string]struct{}, len(claimTypes))}
	for _, ct := range claimTypes {
		if _, err := ClaimCode(ct); err != nil {
			return nil, fmt.Errorf("invalid vocabulary entry: %w", err)
		}
		if _, ok := v.entries[ct]; ok {
			continue
		}
		v.entries[ct] = struct{}{}
		v.ordered = append(v.ordered, ct)
	}
	return v, nil
}

// Contains reports whether the claim type belongs to the vocabulary.
func (v *Vocabulary) Contains(claimType string) bool {
	_, ok := v.entries[claimType]
	return ok
}

// FromCode returns the vocabulary entry with the given taxonomy code.
func (v *Vocabulary) FromCode(code int) (string, bool) {
	for _, ct := range v.ordered {
		c, err := ClaimCode(ct)
		if err == nil && c == code {
			return ct, true
		}
	}
	return "", false
}

// Entries returns the vocabulary in first-appearance order.
func (v *Vocabulary) Entries() []string {
	out := make([]string, len(v.ordered))
	copy(out, v.ordered)
	return out
}

// Len returns the number of distinct claim types in the vocabulary.
func (v *Vocabulary) Len() int { return len(v.ordered) }
