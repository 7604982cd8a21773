// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	wrerrors "github.com/rtai-hli/gtc-hackathon/pkg/errors"
)

// Theory is a proposed root-cause hypothesis. Challenges accumulate; a theory is
// never removed once proposed.
type Theory struct {
	ID         string
	Text       string
	Confidence float64
	Source     string
	Evidence   []string
	Challenges []Challenge
	CreatedAt  time.Time
}

// Challenge is a counter-argument attached to a theory.
type Challenge struct {
	Agent string
	Text  string
	At    time.Time
}

// ValidateConfidence rejects values outside [0, 1] and NaN.
func ValidateConfidence(confidence float64) error {
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return wrerrors.New(wrerrors.CodeInvalidConfidence,
			fmt.Sprintf("confidence %v is outside [0, 1]", confidence), nil)
	}
	return nil
}

// NewTheory validates confidence and assigns an id.
func NewTheory(text string, confidence float64, source string, evidence ...string) (*Theory, error) {
	if err := ValidateConfidence(confidence); err != nil {
		return nil, err
	}
	var ev []string
	if len(evidence) > 0 {
		ev = append(ev, evidence...)
	}
	return &Theory{
		ID:         uuid.NewString(),
		Text:       text,
		Confidence: confidence,
		Source:     source,
		Evidence:   ev,
		CreatedAt:  time.Now(),
	}, nil
}

// AddChallenge records a counter-argument.
func (t *Theory) AddChallenge(agent, text string) {
	t.Challenges = append(t.Challenges, Challenge{Agent: agent, Text: text, At: time.Now()})
}
