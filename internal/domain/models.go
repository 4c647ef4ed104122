package domain

import "encoding/json"

// Product es la categoría de producto soportada por la demo de investigación.
type Product string

const (
	ProductPickles Product = "pickles"
	ProductOats    Product = "oats"
)

// IsValid indica si el producto pertenece a la enumeración soportada.
func (p Product) IsValid() bool {
	switch p {
	case ProductPickles, ProductOats:
		return true
	}
	return false
}

// Tipos de insight que puede cubrir una sub-pregunta.
const (
	InsightPreferences = "preferences"
	InsightConcerns    = "concerns"
	InsightPricing     = "pricing"
	InsightUsage       = "usage"
	InsightBarriers    = "barriers"
)

// Profile es un registro de perfil del store externo. El bag de atributos es
// propiedad del store; este servicio solo lo lee.
type Profile struct {
	ProfileID   string                     `json:"profile_id"`
	PersonName  string                     `json:"person_name"`
	ProfileData map[string]json.RawMessage `json:"profile_data"`
}

// SubQuestion es una de las 3 preguntas derivadas de la pregunta de investigación.
type SubQuestion struct {
	Question    string `json:"question"`
	InsightType string `json:"insight_type"`
}

// PersonaResponse es la respuesta simulada de un twin a una sub-pregunta.
// Error=true marca un placeholder sintético cuando la generación falló.
type PersonaResponse struct {
	ProfileID  string `json:"profile_id"`
	PersonName string `json:"person_name"`
	Response   string `json:"response"`
	Error      bool   `json:"error"`
}

// DataPoint es una categoría con peso porcentual dentro de un SurveyResult.
type DataPoint struct {
	Category    string `json:"category"`
	Percentage  int    `json:"percentage"`
	Description string `json:"description"`
}

// SurveyResult es el análisis agregado de una sub-pregunta. La lista de
// resultados mantiene siempre el mismo orden e índice que las sub-preguntas.
type SurveyResult struct {
	Question    string      `json:"question"`
	InsightType string      `json:"insight_type"`
	TopInsight  string      `json:"top_insight"`
	DataPoints  []DataPoint `json:"data_points"`
	Confidence  int         `json:"confidence"`
}

// PrivacyNote acompaña cada respuesta agregada.
const PrivacyNote = "Individual responses kept confidential for privacy protection"

// AggregateResponse es el resultado completo de una consulta de investigación.
// Vive solo durante el request; no se persiste.
type AggregateResponse struct {
	Query             string         `json:"query"`
	Product           Product        `json:"product"`
	TotalTwinsQueried int            `json:"total_twins_queried"`
	ProfilesAnalyzed  int            `json:"profiles_analyzed"`
	Confidence        int            `json:"confidence"`
	KeyInsights       []string       `json:"key_insights"`
	SurveyResults     []SurveyResult `json:"survey_results"`
	PrivacyNote       string         `json:"privacy_note"`
}

// FallbackResponse es la forma reducida cuando no hay panel disponible.
type FallbackResponse struct {
	Response          string  `json:"response"`
	ProfilesAnalyzed  int     `json:"profiles_analyzed"`
	Product           Product `json:"product"`
	TotalTwinsQueried int     `json:"total_twins_queried"`
	Confidence        int     `json:"confidence"`
}
