package service

import (
	"context"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"go.uber.org/zap"

	"github.com/pacific-edu/pacemis-api/internal/models"
	appErrors "github.com/pacific-edu/pacemis-api/pkg/errors"
)

type matchCandidateRepository interface {
	Candidates(ctx context.Context, query models.MatchQuery) ([]models.Student, error)
}

// Scoring constants for the duplicate matcher. Last names carry more weight
// than first names; candidates below the threshold are discarded.
const (
	matchThreshold  = 0.80
	matchLimit      = 10
	lastNameWeight  = 0.6
	firstNameWeight = 0.4
)

// MatcherService finds likely duplicate students before creation. It is
// advisory only: the caller shows the candidates, it never blocks a create.
type MatcherService struct {
	repo   matchCandidateRepository
	logger *zap.Logger
}

// NewMatcherService constructs a MatcherService.
func NewMatcherService(repo matchCandidateRepository, logger *zap.Logger) *MatcherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatcherService{repo: repo, logger: logger}
}

// FindCandidates scores the bounded candidate population against the query
// names. A supplied birth date has already hard-filtered the population in
// the repository. Output order is deterministic: score descending, then
// last and first name case-insensitively.
func (s *MatcherService) FindCandidates(ctx context.Context, query models.MatchQuery) ([]models.MatchCandidate, error) {
	if query.FirstName == "" && query.LastName == "" {
		return []models.MatchCandidate{}, nil
	}

	population, err := s.repo.Candidates(ctx, query)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load match candidates")
	}

	matches := make([]models.MatchCandidate, 0, len(population))
	for _, student := range population {
		score := matchScore(query, student)
		if score < matchThreshold {
			continue
		}
		matches = append(matches, models.MatchCandidate{
			ID:          student.ID,
			FirstName:   student.FirstName,
			LastName:    student.LastName,
			DateOfBirth: student.DateOfBirth,
			Similarity:  score,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		li, lj := strings.ToLower(matches[i].LastName), strings.ToLower(matches[j].LastName)
		if li != lj {
			return li < lj
		}
		return strings.ToLower(matches[i].FirstName) < strings.ToLower(matches[j].FirstName)
	})

	if len(matches) > matchLimit {
		matches = matches[:matchLimit]
	}
	return matches, nil
}

// matchScore combines substring-tolerant name similarities, weighted toward
// the last name when both names are supplied.
func matchScore(query models.MatchQuery, student models.Student) float64 {
	var lastSim, firstSim float64
	hasLast := query.LastName != ""
	hasFirst := query.FirstName != ""

	if hasLast {
		lastSim = partialSimilarity(query.LastName, student.LastName)
	}
	if hasFirst {
		firstSim = partialSimilarity(query.FirstName, student.FirstName)
	}

	switch {
	case hasLast && hasFirst:
		return lastNameWeight*lastSim + firstNameWeight*firstSim
	case hasLast:
		return lastSim
	default:
		return firstSim
	}
}

// partialSimilarity normalises the partial ratio to [0, 1], comparing
// case-insensitively.
func partialSimilarity(a, b string) float64 {
	return float64(fuzzy.PartialRatio(strings.ToLower(a), strings.ToLower(b))) / 100
}
