package constants

// Application constants
const (
	Name        = "SymRule-Go"
	Version     = "1.0.0"
	Description = "Advisor-guided evolutionary search for symbolic detection rules"

	// Evolution defaults
	DefaultPopulationSize = 300
	DefaultMaxTreeHeight  = 5
	DefaultSelectTourSize = 7
	DefaultCrossoverProb  = 0.5
	DefaultMutationProb   = 0.3
	DefaultGenerationStep = 40
	DefaultNumGenerations = 400
	DefaultEphemeralMin   = 0.0
	DefaultEphemeralMax   = 40.0

	// Hall of fame capacity = label count + HofExtraCapacity
	HofExtraCapacity = 10

	// Advisor protocol defaults
	DefaultInteractionInterval = 80
	DefaultMaxRetries          = 3
	DefaultRetryDelay          = 1 // seconds
	DefaultTopKIndividuals     = 5
	DefaultQueueCapacity       = 100

	// LLM defaults
	DefaultTimeout     = 60 // seconds
	DefaultLLMRetries  = 3
	DefaultLLMDelay    = 5 // seconds
	DefaultTemperature = 0.7
	DefaultTopP        = 0.95
	DefaultMaxTokens   = 4096
	DefaultOpenAIBase  = "https://api.openai.com/v1"

	// Loss evaluation
	DefaultComplexityAlpha = 0.01
	ProbEpsilon            = 1e-10

	// Dataset defaults
	DefaultTrainTestRatio = 0.1
	DefaultIoUThreshold   = 0.5

	// Directory names
	OutputDir     = "symrule_output"
	CheckpointDir = "checkpoints"

	// Advisor commands
	CommandExit = "exit"

	// Outcome statuses
	StatusSuccess = "success"
	StatusFailed  = "failed"

	// Prompt defaults
	DefaultSystemMessage = "You are an expert in boolean logic over object detection counts, helping an evolutionary search discover better classification rules."

	// Exit codes
	ExitSuccess   = 0
	ExitError     = 1
	ExitInterrupt = 2
)

// Operator names registered with every primitive set.
const (
	OpAnd = "and_"
	OpOr  = "or_"
	OpNot = "not_"
	OpGt  = "gt"
	OpLt  = "lt"
	OpEq  = "eq"
)

// Model names
const (
	GPT4       = "gpt-4"
	GPT4o      = "gpt-4o"
	GPT4oMini  = "gpt-4o-mini"
	GPT35Turbo = "gpt-3.5-turbo"
)
