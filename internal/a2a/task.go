package a2a

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TaskState is the lifecycle state of a remote task.
type TaskState string

const (
	TaskStateSubmitted TaskState = "submitted"
	TaskStateWorking   TaskState = "working"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCanceled  TaskState = "canceled"
	TaskStateRejected  TaskState = "rejected"
)

// IsTerminal reports whether the task will not change state again.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateRejected:
		return true
	}
	return false
}

// Task is the agent's handle on one rewrite request.
type Task struct {
	ID        string     `json:"id"`
	Status    TaskStatus `json:"status"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// TaskStatus is the current state, with an optional agent message.
type TaskStatus struct {
	State   TaskState `json:"state"`
	Message *Message  `json:"message,omitempty"`
}

// Message carries the prompt to the agent, or a status note back.
type Message struct {
	MessageID string `json:"messageId"`
	Role      string `json:"role"`
	Parts     []Part `json:"parts"`
}

// RoleUser marks messages sent by this client.
const RoleUser = "user"

// Part is a text fragment of a message or artifact. Non-text parts decode
// with an empty Text and are ignored.
type Part struct {
	Text      string `json:"text,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
}

// TextPart returns a plain-text part.
func TextPart(text string) Part {
	return Part{Text: text, MediaType: "text/plain"}
}

// Artifact is an output the agent attached to a task.
type Artifact struct {
	Name  string `json:"name,omitempty"`
	Parts []Part `json:"parts"`
}

// AgentCard is the manifest an agent serves at its well-known URI. Only
// the identifying fields are decoded.
type AgentCard struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
}

// SendMessageRequest is the message/send parameter object.
type SendMessageRequest struct {
	Message       Message            `json:"message"`
	Configuration *SendMessageConfig `json:"configuration,omitempty"`
}

// SendMessageConfig asks for text output and, with Blocking, a reply only
// once the task is terminal.
type SendMessageConfig struct {
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitempty"`
	Blocking            bool     `json:"blocking"`
}

// GetTaskRequest is the tasks/get parameter object.
type GetTaskRequest struct {
	ID string `json:"id"`
}

// Await polls tasks/get every interval until task is terminal. A task that
// is already terminal is returned as is.
func Await(ctx context.Context, c Client, endpoint string, task *Task, interval time.Duration) (*Task, error) {
	if task == nil {
		return nil, fmt.Errorf("a2a: nil task")
	}
	if task.Status.State.IsTerminal() {
		return task, nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("a2a: waiting for task %s: %w", task.ID, ctx.Err())
		case <-ticker.C:
		}
		next, err := c.GetTask(ctx, endpoint, GetTaskRequest{ID: task.ID})
		if err != nil {
			return nil, err
		}
		if next.Status.State.IsTerminal() {
			return next, nil
		}
	}
}

// TaskText joins the text parts of a completed task's artifacts. When the
// task has no text artifacts it falls back to the status message. Tasks in
// any other state are reported as a *TaskError.
func TaskText(t *Task) (string, error) {
	if t == nil {
		return "", fmt.Errorf("a2a: nil task")
	}
	if t.Status.State != TaskStateCompleted {
		return "", &TaskError{TaskID: t.ID, State: t.Status.State, Message: messageText(t.Status.Message)}
	}

	var parts []string
	for _, a := range t.Artifacts {
		for _, p := range a.Parts {
			if p.Text != "" {
				parts = append(parts, p.Text)
			}
		}
	}
	if len(parts) == 0 {
		return messageText(t.Status.Message), nil
	}
	return strings.Join(parts, "\n"), nil
}

func messageText(m *Message) string {
	if m == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range m.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// TaskError reports a task that ended in a state other than completed.
type TaskError struct {
	TaskID  string
	State   TaskState
	Message string
}

func (e *TaskError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("a2a: task %s %s: %s", e.TaskID, e.State, e.Message)
	}
	return fmt.Sprintf("a2a: task %s %s", e.TaskID, e.State)
}
