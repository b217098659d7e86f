package types

import (
	"time"
)

// MessageType identifies the kind of a cross-process message.
type MessageType string

const (
	MessageInit            MessageType = "INIT"
	MessageEvolutionUpdate MessageType = "EVOLUTION_UPDATE"
	MessageThresholdStart  MessageType = "THRESHOLD_START"
	MessageSuggestion      MessageType = "SUGGESTION"
	MessageCommand         MessageType = "COMMAND"
)

// Suggestion is a single advisor-proposed expression.
type Suggestion struct {
	Expression string `json:"expression"`
	Reason     string `json:"reason"`
	Priority   int    `json:"priority,omitempty"`
}

// HofEntry is one hall-of-fame entry as exposed to the advisor.
type HofEntry struct {
	Expression string  `json:"expression"`
	Fitness    float64 `json:"fitness"`
}

// SuggestionOutcome records what happened to a single suggestion.
type SuggestionOutcome struct {
	Expression string  `json:"expression"`
	Reason     string  `json:"reason"`
	Status     string  `json:"status"` // "success" or "failed"
	Fitness    float64 `json:"fitness,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// OutcomeBatch is the timestamped record of one consultation's outcomes.
// It is fed back to the advisor on the next consultation.
type OutcomeBatch struct {
	ID        string              `json:"id"`
	Timestamp time.Time           `json:"timestamp"`
	Outcomes  []SuggestionOutcome `json:"outcomes"`
}

// InitPayload is the payload of an INIT message.
type InitPayload struct {
	Labels    []string `json:"labels"`
	Operators []string `json:"operators"`
}

// EvolutionUpdatePayload is the payload of an EVOLUTION_UPDATE message.
type EvolutionUpdatePayload struct {
	Generation       int           `json:"generation"`
	TopIndividuals   []HofEntry    `json:"top_individuals"`
	PreviousOutcomes *OutcomeBatch `json:"previous_suggestion_outcomes,omitempty"`
	Labels           []string      `json:"labels"`
	Operators        []string      `json:"operators"`
}

// ThresholdStartPayload is the payload of a THRESHOLD_START message.
type ThresholdStartPayload struct {
	Threshold float64 `json:"threshold"`
	TrainSize int     `json:"train_size"`
	TestSize  int     `json:"test_size"`
}

// SuggestionPayload is the payload of a SUGGESTION message.
type SuggestionPayload struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// CommandPayload is the payload of a COMMAND message.
// The only recognized command is "exit".
type CommandPayload struct {
	Command string `json:"command"`
}

// BestRecord is one per-block history entry exposed to reporting.
type BestRecord struct {
	Generation int     `json:"generation"`
	Expression string  `json:"expression"`
	Fitness    float64 `json:"fitness"`
}

// Config is the main configuration.
type Config struct {
	GP      GPConfig      `yaml:"gp" json:"gp"`
	Advisor AdvisorConfig `yaml:"advisor" json:"advisor"`
	LLM     LLMConfig     `yaml:"llm" json:"llm"`
	Data    DataConfig    `yaml:"data" json:"data"`
}

// GPConfig holds the evolutionary search parameters.
type GPConfig struct {
	PopulationSize int     `yaml:"population_size" json:"population_size"`
	MaxTreeHeight  int     `yaml:"max_tree_height" json:"max_tree_height"`
	SelectTourSize int     `yaml:"select_tour_size" json:"select_tour_size"`
	CrossoverProb  float64 `yaml:"crossover_prob" json:"crossover_prob"`
	MutationProb   float64 `yaml:"mutation_prob" json:"mutation_prob"`
	GenerationStep int     `yaml:"generation_step" json:"generation_step"`
	NumGenerations int     `yaml:"num_generations" json:"num_generations"`
	EphemeralMin   float64 `yaml:"ephemeral_min" json:"ephemeral_min"`
	EphemeralMax   float64 `yaml:"ephemeral_max" json:"ephemeral_max"`
	Seed           int64   `yaml:"seed" json:"seed"`
	CheckpointDir  string  `yaml:"checkpoint_dir" json:"checkpoint_dir"`
}

// AdvisorConfig holds the consultation protocol parameters.
type AdvisorConfig struct {
	Enabled             bool `yaml:"enabled" json:"enabled"`
	InteractionInterval int  `yaml:"interaction_interval" json:"interaction_interval"`
	MaxRetries          int  `yaml:"max_retries" json:"max_retries"`
	RetryDelay          int  `yaml:"retry_delay" json:"retry_delay"` // seconds
	TopKIndividuals     int  `yaml:"top_k_individuals" json:"top_k_individuals"`
	QueueCapacity       int  `yaml:"queue_capacity" json:"queue_capacity"`
}

// LLMConfig holds advisor-side model settings.
type LLMConfig struct {
	APIBase       string           `yaml:"api_base" json:"api_base"`
	APIKey        string           `yaml:"api_key" json:"api_key"`
	Models        []LLMModelConfig `yaml:"models" json:"models"`
	SystemMessage string           `yaml:"system_message" json:"system_message"`
}

// LLMModelConfig configures a single advisor model.
type LLMModelConfig struct {
	Name          string  `yaml:"name" json:"name"`
	Weight        float64 `yaml:"weight" json:"weight"`
	APIBase       string  `yaml:"api_base" json:"api_base"`
	APIKey        string  `yaml:"api_key" json:"api_key"`
	SystemMessage string  `yaml:"system_message" json:"system_message"`
	Temperature   float64 `yaml:"temperature" json:"temperature"`
	TopP          float64 `yaml:"top_p" json:"top_p"`
	MaxTokens     int     `yaml:"max_tokens" json:"max_tokens"`
	Timeout       int     `yaml:"timeout" json:"timeout"`
	Retries       int     `yaml:"retries" json:"retries"`
	RetryDelay    int     `yaml:"retry_delay" json:"retry_delay"`
	RandomSeed    int     `yaml:"random_seed" json:"random_seed"`
}

// DataConfig holds dataset ingestion parameters.
type DataConfig struct {
	Labels         []string  `yaml:"labels" json:"labels"`
	AnnotationDir  string    `yaml:"annotation_dir" json:"annotation_dir"`
	Thresholds     []float64 `yaml:"thresholds" json:"thresholds"`
	TrainTestRatio float64   `yaml:"train_test_ratio" json:"train_test_ratio"`
	SearchScale    int       `yaml:"search_scale" json:"search_scale"`
	IoUFilter      bool      `yaml:"iou_filter" json:"iou_filter"`
	IoUThreshold   float64   `yaml:"iou_threshold" json:"iou_threshold"`
}

// LLMRequest represents a request to an advisor model.
type LLMRequest struct {
	Model       string        `json:"model"`
	Messages    []LLMMessage  `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"`
}

// LLMMessage represents a message in an advisor conversation.
type LLMMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMResponse represents a response from an advisor model.
type LLMResponse struct {
	Content  string        `json:"content"`
	Model    string        `json:"model"`
	Usage    TokenUsage    `json:"usage"`
	Duration time.Duration `json:"duration"`
}

// TokenUsage represents token usage statistics.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
