// services/evaluation.go
package services

import (
	"fmt"
	"regexp"

	"skillchain/models"
)

// EvalResult is a pass/fail decision with its numeric score.
type EvalResult struct {
	Pass  bool `json:"pass"`
	Score int  `json:"score"`
}

// Evaluator decides whether a submitted proof passes. Implementations are
// placeholder MVP rules; swap them here without touching the proof service.
type Evaluator interface {
	Evaluate(proof *models.Proof) (EvalResult, error)
}

// PassingScore is the inclusive manual-evaluation threshold.
const PassingScore = 60

const (
	gitHubPassScore = 75
	pdfPassScore    = 70
)

var gitHubRepoPattern = regexp.MustCompile(`^https?://(www\.)?github\.com/[\w-]+/[\w.-]+/?$`)

// GitHubEvaluator approves proofs whose stored URL is a bare GitHub
// repository link. No cloning or content analysis.
type GitHubEvaluator struct{}

func (GitHubEvaluator) Evaluate(proof *models.Proof) (EvalResult, error) {
	if gitHubRepoPattern.MatchString(proof.ProofData) {
		return EvalResult{Pass: true, Score: gitHubPassScore}, nil
	}
	return EvalResult{Pass: false, Score: 0}, nil
}

// PDFEvaluator approves any document that made it to the content store.
type PDFEvaluator struct{}

func (PDFEvaluator) Evaluate(proof *models.Proof) (EvalResult, error) {
	return EvalResult{Pass: true, Score: pdfPassScore}, nil
}

// DefaultEvaluators maps each proof type to its automatic strategy.
func DefaultEvaluators() map[models.ProofType]Evaluator {
	return map[models.ProofType]Evaluator{
		models.ProofTypeGitHub: GitHubEvaluator{},
		models.ProofTypePDF:    PDFEvaluator{},
	}
}

// ManualEvaluation scores a proof from a human-supplied value.
func ManualEvaluation(score int) (EvalResult, error) {
	if score < 0 || score > 100 {
		return EvalResult{}, fmt.Errorf("%w: score must be between 0 and 100", ErrInvalidInput)
	}
	return EvalResult{Pass: score >= PassingScore, Score: score}, nil
}
