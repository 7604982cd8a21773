// Copyright 2026 © The War Room Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"

	"github.com/rtai-hli/gtc-hackathon/pkg/core"
)

// Attribute keys used on war room spans and metrics.
const (
	AttrAgent = "warroom.agent"
	AttrRunID = "warroom.run_id"
	AttrPhase = "warroom.commander.phase"

	AttrIncidentID       = "warroom.incident.id"
	AttrIncidentService  = "warroom.incident.service"
	AttrIncidentSeverity = "warroom.incident.severity"
	AttrSymptomBucket    = "warroom.incident.bucket"

	AttrEventType = "warroom.event.type"

	AttrResolutionPath = "warroom.resolution.path" // "llm" or "fallback"
	AttrConfidence     = "warroom.resolution.confidence"

	// LLM attributes follow the gen_ai conventions.
	AttrLLMModel          = "gen_ai.request.model"
	AttrLLMMessages       = "gen_ai.request.messages"
	AttrLLMTokensInput    = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput   = "gen_ai.usage.output_tokens"
	AttrLLMTokensTotal    = "gen_ai.usage.total_tokens"
	AttrLLMReasoningChars = "warroom.llm.reasoning_chars"
)

// IncidentAttributes describes the incident under investigation.
func IncidentAttributes(id, service, severity string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrIncidentService, service),
		attribute.String(AttrIncidentSeverity, severity),
	}
	if id != "" {
		attrs = append(attrs, attribute.String(AttrIncidentID, id))
	}
	return attrs
}

// EventAttributes labels an emitted event.
func EventAttributes(ev core.Event) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("type", string(ev.Type)),
		attribute.String("agent", ev.Agent),
	}
}

// LLMAttributes returns attributes for a reasoning call span.
func LLMAttributes(model string, msgCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrLLMModel, model),
		attribute.Int(AttrLLMMessages, msgCount),
	}
}

// LLMUsageAttributes returns token usage attributes; zero values are omitted.
func LLMUsageAttributes(inputTokens, outputTokens, reasoningChars int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{}
	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensInput, inputTokens))
	}
	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensOutput, outputTokens))
	}
	if inputTokens > 0 || outputTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMTokensTotal, inputTokens+outputTokens))
	}
	if reasoningChars > 0 {
		attrs = append(attrs, attribute.Int(AttrLLMReasoningChars, reasoningChars))
	}
	return attrs
}

// ResolutionAttributes records how a run reached its conclusion.
func ResolutionAttributes(path string, confidence float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrResolutionPath, path),
		attribute.Float64(AttrConfidence, confidence),
	}
}
