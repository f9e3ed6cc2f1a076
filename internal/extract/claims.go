// Package extract decomposes statements into atomic claims.
package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ppiankov/firecheck/internal/oracle"
)

// ClaimExtractor asks the oracle for the claims in a statement and cleans the reply
type ClaimExtractor struct {
	oracle oracle.Oracle
	logger *slog.Logger
}

// NewClaimExtractor creates a new claim extractor. A nil logger discards.
func NewClaimExtractor(o oracle.Oracle, logger *slog.Logger) *ClaimExtractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ClaimExtractor{oracle: o, logger: logger}
}

// Extract returns the statement's claims in order. Extraction failures are
// logged and yield an empty list.
func (e *ClaimExtractor) Extract(ctx context.Context, statement string) []string {
	claims, err := e.TryExtract(ctx, statement)
	if err != nil {
		e.logger.Warn("claim extraction failed", "error", err)
		return []string{}
	}
	return claims
}

// TryExtract is Extract but reports the oracle failure alongside the empty list
func (e *ClaimExtractor) TryExtract(ctx context.Context, statement string) ([]string, error) {
	if strings.TrimSpace(statement) == "" {
		return []string{}, nil
	}

	resp, err := e.oracle.ExtractClaims(ctx, oracle.ExtractRequest{Statement: statement})
	if err != nil {
		return []string{}, err
	}

	claims := dedupeClaims(resp.Claims)
	e.logger.Debug("claims extracted", "count", len(claims), "raw", len(resp.Claims))
	return claims, nil
}

// dedupeClaims trims claims, drops empty ones and removes case-insensitive duplicates
func dedupeClaims(claims []string) []string {
	seen := make(map[string]bool)
	unique := []string{}

	for _, claim := range claims {
		text := strings.TrimSpace(claim)
		if text == "" {
			continue
		}
		key := strings.ToLower(text)
		if !seen[key] {
			seen[key] = true
			unique = append(unique, text)
		}
	}

	return unique
}
