package orchestrator

import (
	"github.com/ShayCichocki/relay/internal/flow"
)

// DefaultAnswerKey is the context key read as a run's answer unless
// WithAnswerKey says otherwise.
const DefaultAnswerKey = "final_summary"

// RequiredConfig contains the minimal required configuration for an Orchestrator.
// All fields are required and have no defaults.
type RequiredConfig struct {
	// Root is the unit driven end-to-end by every run, usually a *flow.Group.
	Root flow.Unit
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

// orchestratorOptions holds all optional configuration.
type orchestratorOptions struct {
	logger    *DebugLogger
	recorder  Recorder
	events    *EventEmitter
	answerKey string
	observers []flow.Observer
}

func defaultOptions() *orchestratorOptions {
	return &orchestratorOptions{
		answerKey: DefaultAnswerKey,
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *orchestratorOptions) { o.logger = l }
}

// WithRecorder persists run history through r.
func WithRecorder(r Recorder) Option {
	return func(o *orchestratorOptions) { o.recorder = r }
}

// WithEvents publishes run progress to e.
func WithEvents(e *EventEmitter) Option {
	return func(o *orchestratorOptions) { o.events = e }
}

// WithAnswerKey sets the context key whose value is returned as Result.Answer.
func WithAnswerKey(key string) Option {
	return func(o *orchestratorOptions) {
		if key != "" {
			o.answerKey = key
		}
	}
}

// WithObserver adds an observer notified for every run, alongside the
// built-in event and history bridge.
func WithObserver(obs flow.Observer) Option {
	return func(o *orchestratorOptions) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}
