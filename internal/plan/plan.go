// Package plan defines the agent plan model and its identity fingerprint.
// A fingerprint is a SHA-256 digest over the structurally significant fields
// of a plan (goal, approach, ordered step descriptions), used to recognize
// near-duplicates of previously rejected plans before they are retried.
package plan

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Step is a single sub-task in a plan.
type Step struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status,omitempty"` // pending, in_progress, completed, failed
	Result      string `json:"result,omitempty"`
}

// Plan describes an intended course of action: a goal, the approach taken
// to it, and an ordered sequence of steps. Only Goal, Approach, and the
// step descriptions participate in identity; everything else (ID, Metadata,
// timestamps, step status/results, unknown JSON keys) is carried for the
// caller's benefit and ignored by fingerprinting.
type Plan struct {
	ID        string            `json:"id,omitempty"`
	Goal      string            `json:"goal"`
	Approach  string            `json:"approach"`
	Steps     []Step            `json:"steps"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at,omitempty"`
}

// NewPlan creates an initialized plan. An empty id is replaced with a
// fresh UUID.
func NewPlan(id, goal, approach string) *Plan {
	if id == "" {
		id = uuid.New().String()
	}
	return &Plan{
		ID:        id,
		Goal:      goal,
		Approach:  approach,
		Steps:     make([]Step, 0),
		CreatedAt: time.Now(),
	}
}

// AddStep appends a step with the next sequential ID.
func (p *Plan) AddStep(description string) {
	p.Steps = append(p.Steps, Step{
		ID:          len(p.Steps) + 1,
		Description: description,
		Status:      "pending",
	})
}

// StepDescriptions returns the step descriptions in plan order.
func (p *Plan) StepDescriptions() []string {
	descs := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		descs = append(descs, s.Description)
	}
	return descs
}

// Decode parses a JSON plan document. Unknown keys are ignored; a JSON
// null or non-object document fails with ErrInvalidPlanInput.
func Decode(data []byte) (*Plan, error) {
	var p *Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlanInput, err)
	}
	if p == nil {
		return nil, ErrInvalidPlanInput
	}
	return p, nil
}
