// services/processor_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aeotrack/aeo-workflows/internal/analysis"
	"github.com/aeotrack/aeo-workflows/internal/models"
	"github.com/aeotrack/aeo-workflows/internal/providers/judge"
)

type processorService struct {
	gateways map[string]AnswerGateway
	brands   []models.Brand
	judge    judge.Judge
}

// NewProcessorService builds the per-query processor. It holds no mutable
// state, so one instance serves all workers.
func NewProcessorService(gateways map[string]AnswerGateway, brands []models.Brand, j judge.Judge) ProcessorService {
	return &processorService{
		gateways: gateways,
		brands:   brands,
		judge:    j,
	}
}

// ProcessQuery asks every named provider independently and turns each answer
// into one log row, one data row per catalog brand and one url row per
// citation. A provider that exhausts its retries contributes a FailedAttempt
// and a failure log row instead; other providers are unaffected.
func (s *processorService) ProcessQuery(ctx context.Context, query models.Query, providerNames []string, rc models.RunContext, retryCount int) QueryResult {
	result := QueryResult{Attempts: len(providerNames)}

	for _, providerName := range providerNames {
		gateway, ok := s.gateways[providerName]
		if !ok {
			fmt.Printf("[Processor] ⚠️ No gateway for provider %s, skipping\n", providerName)
			result.Failed = append(result.Failed, s.failedAttempt(query, providerName, "unknown provider", retryCount))
			result.FailedUnits++
			result.LogRows = append(result.LogRows, s.failureLogRow(query, providerName, rc))
			continue
		}

		answer := gateway.Ask(ctx, query.Text)
		if answer == nil {
			fmt.Printf("[Processor] ❌ %s failed for query: %s\n", providerName, query.Text)
			result.Failed = append(result.Failed, s.failedAttempt(query, providerName, "API timeout/error", retryCount))
			result.FailedUnits++
			result.LogRows = append(result.LogRows, s.failureLogRow(query, providerName, rc))
			continue
		}

		ranking := analysis.RankMentions(answer.Text, s.brands)
		verdicts := s.judge.Judge(ctx, answer.Text, rankedNames(ranking))

		foundCount := 0
		var dataRows [][]string
		for _, brand := range s.brands {
			mention, mentioned := ranking[brand.Name]
			cited := analysis.BrandCitedIn(brand, answer.Citations)
			if mentioned || cited {
				foundCount++
			}

			verdict := verdicts[brand.Name]
			row := s.prefix(query, providerName, rc)
			row = append(row,
				brand.Name,
				brand.Type,
				presenceFlag(mentioned),
				presenceFlag(cited),
				strconv.Itoa(mention.MentionCount),
				strings.Join(mention.MatchedKeywords, ", "),
				verdict.Sentiment,
				verdict.Recommendation,
				rankValue(mention, mentioned),
			)
			dataRows = append(dataRows, row)
		}
		result.DataRows = append(result.DataRows, dataRows...)

		for _, citation := range answer.Citations {
			owner, ownerType := analysis.AttributeCitation(citation, s.brands)
			row := s.prefix(query, providerName, rc)
			row = append(row, citation, owner, ownerType)
			result.URLRows = append(result.URLRows, row)
		}

		logRow := s.prefix(query, providerName, rc)
		logRow = append(logRow,
			strconv.Itoa(foundCount),
			strconv.Itoa(answer.InputTokens),
			strconv.Itoa(answer.OutputTokens),
			truncate(answer.Text, maxLogResponseLen),
		)
		result.LogRows = append(result.LogRows, logRow)
	}

	return result
}

func (s *processorService) prefix(query models.Query, providerName string, rc models.RunContext) []string {
	return []string{
		rc.Timestamp,
		rc.Date,
		query.Category,
		query.Type,
		query.Product,
		query.Persona,
		query.Text,
		providerName,
	}
}

// failureLogRow keeps the log table dense: every attempted query+provider
// pair gets a row, failures carry zeros and an error marker.
func (s *processorService) failureLogRow(query models.Query, providerName string, rc models.RunContext) []string {
	row := s.prefix(query, providerName, rc)
	return append(row, "0", "0", "0", "ERROR / TIMEOUT")
}

func (s *processorService) failedAttempt(query models.Query, providerName, reason string, retryCount int) models.FailedAttempt {
	return models.FailedAttempt{
		Query:      query,
		Provider:   providerName,
		Error:      reason,
		Timestamp:  time.Now().UTC(),
		RetryCount: retryCount,
	}
}

// rankedNames lists the mentioned brands in rank order for the judge prompt.
func rankedNames(ranking models.MentionRanking) []string {
	names := make([]string, 0, len(ranking))
	for name := range ranking {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return ranking[names[i]].Rank < ranking[names[j]].Rank
	})
	return names
}

func presenceFlag(present bool) string {
	if present {
		return "1"
	}
	return "0"
}

func rankValue(mention models.BrandMention, mentioned bool) string {
	if !mentioned {
		return ""
	}
	return strconv.Itoa(mention.Rank)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	// Back up to a rune boundary so the cut never splits a character.
	cut := limit
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
