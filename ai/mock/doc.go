// Package mock provides test double implementations of AI service interfaces.
//
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	gen := mock.NewMockGenerator()
//	gen.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
//	    return "", errors.New("model offline")
//	}
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockGenerator: Returns DefaultCompletion and records every prompt
//   - MockProvider: Aggregates both
package mock
