package ports

import (
	"context"

	"github.com/zxsted/dialogmanager/pkg/domain"
)

// ClassifyRequest is one utterance submitted for classification.
type ClassifyRequest struct {
	Text string
	// Language is an optional ISO code hint.
	Language string
	// Token overrides the classifier credentials for this request.
	Token string
}

// Classifier turns free text into intents and entities.
// Implementations own deadlines and retries.
type Classifier interface {
	Analyze(ctx context.Context, req ClassifyRequest) (*domain.Analysis, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, req ClassifyRequest) (*domain.Analysis, error)

// Analyze calls f.
func (f ClassifierFunc) Analyze(ctx context.Context, req ClassifyRequest) (*domain.Analysis, error) {
	return f(ctx, req)
}
