package esg

import "time"

// Closed vocabularies offered to the model. Values outside them are tolerated
// downstream and never rejected.
var (
	TopicIDs = []string{
		"climate_energy",
		"privacy_security",
		"ai_regulation",
		"supply_chain",
		"legal_antitrust",
		"disclosure_quality",
	}
	SignalTypes = []string{
		SignalRisk,
		SignalOpportunity,
		SignalMetric,
		SignalCommitment,
		SignalControversy,
	}
	FinancialChannels = []string{
		"revenue",
		"cost",
		"capex",
		"regulatory",
		"reputation",
		"supply",
		"cost_of_capital",
	}
	TimeHorizons = []string{"<1y", "1-3y", "3-5y", ">5y"}
)

const (
	SignalRisk        = "risk"
	SignalOpportunity = "opportunity"
	SignalMetric      = "metric"
	SignalCommitment  = "commitment"
	SignalControversy = "controversy"
)

// Defaults substituted for absent signal fields.
const (
	DefaultTopicID     = "unknown"
	DefaultSignalType  = SignalRisk
	DefaultSeverity    = 3.0
	DefaultTimeHorizon = "1-3y"
)

// ChunkRecord is a bounded span of document text with its provenance.
type ChunkRecord struct {
	Company    string `json:"company" db:"company"`
	SourceFile string `json:"source_file" db:"source_file"`
	Page       int    `json:"page" db:"page"`
	ChunkID    int    `json:"chunk_id" db:"chunk_id"`
	ChunkText  string `json:"chunk_text" db:"chunk_text"`
}

// PageRecord is the text of a single document page.
type PageRecord struct {
	Company    string `json:"company" db:"company"`
	SourceFile string `json:"source_file" db:"source_file"`
	Page       int    `json:"page" db:"page"`
	Text       string `json:"text" db:"text"`
}

type Topic struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// Evidence is a quoted excerpt backing a signal. Page is nil when the model
// did not supply a usable page number.
type Evidence struct {
	Quote      string `json:"quote"`
	SourceFile string `json:"source_file"`
	Page       *int   `json:"page"`
}

// NormalizedSignal is a signal with every field present and well typed.
// Enum membership and severity range are not enforced.
type NormalizedSignal struct {
	TopicID          string     `json:"topic_id"`
	SignalType       string     `json:"signal_type"`
	Summary          string     `json:"summary"`
	FinancialChannel []string   `json:"financial_channel"`
	Severity         float64    `json:"severity"`
	TimeHorizon      string     `json:"time_horizon"`
	Evidence         []Evidence `json:"evidence"`
}

// CompanyExtraction is the per-company record persisted after a model call.
// Signals stay as decoded mappings because the model output is untrusted.
type CompanyExtraction struct {
	Company string           `json:"company"`
	Signals []map[string]any `json:"signals"`
}

type ScorecardRow struct {
	Company     string    `json:"company" db:"company"`
	TopicID     string    `json:"topic_id" db:"topic_id"`
	TopicName   string    `json:"topic_name" db:"topic_name"`
	Score       float64   `json:"score" db:"score"`
	Rationale   string    `json:"rationale" db:"rationale"`
	KeyEvidence string    `json:"key_evidence" db:"key_evidence"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

// ScorecardColumns is the column order of every tabular scorecard artifact.
var ScorecardColumns = []string{"company", "topic_id", "topic_name", "score", "rationale", "key_evidence", "last_updated"}

// TopicPacket is a ranked chunk retained as evidence for one topic.
type TopicPacket struct {
	TopicID string `json:"topic_id" db:"topic_id"`
	ChunkRecord
	KeywordScore int `json:"kw_score" db:"kw_score"`
}
