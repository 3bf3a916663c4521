package protocol

import (
	"encoding/json"
	"fmt"
)

// Action names a worker operation on the wire.
type Action string

const (
	// ActionGenerateSubtopics asks for a topic outline.
	ActionGenerateSubtopics Action = "generate_subtopics"
	// ActionAskQuestion asks a question within a subtopic.
	ActionAskQuestion Action = "ask_question"
	// ActionGenerateMCQ asks for a multiple-choice exercise.
	ActionGenerateMCQ Action = "generate_mcq"
)

// Command is a structured request to the worker.
// The set of commands is closed; use one of the concrete types below.
type Command interface {
	// Action returns the wire action.
	Action() Action
	// ResultField names the response field carrying the command's result.
	ResultField() string
	// fields returns the command-specific wire fields.
	fields() map[string]string
}

// Compile-time verification that all command types implement Command.
var (
	_ Command = GenerateSubtopics{}
	_ Command = AskQuestion{}
	_ Command = GenerateExercise{}
)

// GenerateSubtopics requests a subtopic outline for a topic.
type GenerateSubtopics struct {
	Topic string
}

// Action implements Command.
func (GenerateSubtopics) Action() Action { return ActionGenerateSubtopics }

// ResultField implements Command.
func (GenerateSubtopics) ResultField() string { return "subtopics" }

func (c GenerateSubtopics) fields() map[string]string {
	return map[string]string{"topic": c.Topic}
}

// AskQuestion requests an answer to a question within a subtopic.
type AskQuestion struct {
	Question string
	Subtopic string
}

// Action implements Command.
func (AskQuestion) Action() Action { return ActionAskQuestion }

// ResultField implements Command.
func (AskQuestion) ResultField() string { return "answer" }

func (c AskQuestion) fields() map[string]string {
	return map[string]string{"question": c.Question, "subtopic": c.Subtopic}
}

// GenerateExercise requests a multiple-choice question for a subtopic.
type GenerateExercise struct {
	Subtopic string
}

// Action implements Command.
func (GenerateExercise) Action() Action { return ActionGenerateMCQ }

// ResultField implements Command.
func (GenerateExercise) ResultField() string { return "mcq" }

func (c GenerateExercise) fields() map[string]string {
	return map[string]string{"subtopic": c.Subtopic}
}

// EncodeCommand serializes cmd to a single JSON line without the trailing
// newline. An empty requestID is omitted.
//
// Wire format:
//
//	{"action":"ask_question","request_id":"01J...","question":"...","subtopic":"..."}
func EncodeCommand(cmd Command, requestID string) ([]byte, error) {
	if cmd == nil {
		return nil, fmt.Errorf("encode command: nil command")
	}

	wire := cmd.fields()
	wire["action"] = string(cmd.Action())

	if requestID != "" {
		wire["request_id"] = requestID
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.Action(), err)
	}

	return data, nil
}
