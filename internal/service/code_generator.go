package service

import (
	"context"
	"fmt"

	"screentime/internal/credentials"
)

// MaxCodeAttempts bounds how many taken codes GenerateUniqueCode tolerates
const MaxCodeAttempts = 1000

// CodeGenerator produces join codes that no stored family uses yet
type CodeGenerator struct {
	generate func() (string, error)
	exists   func(ctx context.Context, code string) (bool, error)
}

// NewCodeGenerator creates a code generator that checks existence with exists
func NewCodeGenerator(exists func(ctx context.Context, code string) (bool, error)) *CodeGenerator {
	return &CodeGenerator{
		generate: credentials.GenerateFamilyCode,
		exists:   exists,
	}
}

// GenerateUniqueCode draws codes until one is unused
func (g *CodeGenerator) GenerateUniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < MaxCodeAttempts; attempt++ {
		code, err := g.generate()
		if err != nil {
			return "", fmt.Errorf("failed to generate family code: %w", err)
		}

		taken, err := g.exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrCodeSpaceExhausted, MaxCodeAttempts)
}
