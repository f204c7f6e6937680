// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The answer pipeline flows strictly downward:
//
//	Retriever -> EvidenceGatherer -> AnswerSynthesizer -> citation.Tag
//
// QueryService composes the stages and returns the boundary response.
package services
