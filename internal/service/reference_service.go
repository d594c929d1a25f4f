package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pacific-edu/pacemis-api/internal/authz"
	"github.com/pacific-edu/pacemis-api/internal/models"
	appErrors "github.com/pacific-edu/pacemis-api/pkg/errors"
)

type referenceRepository interface {
	ListSchools(ctx context.Context, activeOnly bool) ([]models.School, error)
	ListSchoolYears(ctx context.Context) ([]models.SchoolYear, error)
	ListClassLevels(ctx context.Context) ([]models.ClassLevel, error)
	ListJobTitles(ctx context.Context) ([]models.JobTitle, error)
}

type referenceCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Cache keys for the reference picklists.
const (
	cacheKeySchools     = "reference:schools:active"
	cacheKeySchoolYears = "reference:school_years"
	cacheKeyClassLevels = "reference:class_levels"
	cacheKeyJobTitles   = "reference:job_titles"
)

// ReferenceService serves the picklist data behind forms: schools, school
// years, class levels, job titles. Picklists are cached; role and
// affiliation facts never pass through here.
type ReferenceService struct {
	repo   referenceRepository
	cache  referenceCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewReferenceService constructs a ReferenceService. A nil cache disables
// caching.
func NewReferenceService(repo referenceRepository, cache referenceCache, ttl time.Duration, logger *zap.Logger) *ReferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ReferenceService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// ActiveSchools returns the active-school picklist.
func (s *ReferenceService) ActiveSchools(ctx context.Context) ([]models.School, error) {
	var schools []models.School
	if s.cached(ctx, cacheKeySchools, &schools) {
		return schools, nil
	}
	schools, err := s.repo.ListSchools(ctx, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	s.store(ctx, cacheKeySchools, schools)
	return schools, nil
}

// SchoolYears returns the school-year picklist, newest first.
func (s *ReferenceService) SchoolYears(ctx context.Context) ([]models.SchoolYear, error) {
	var years []models.SchoolYear
	if s.cached(ctx, cacheKeySchoolYears, &years) {
		return years, nil
	}
	years, err := s.repo.ListSchoolYears(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list school years")
	}
	s.store(ctx, cacheKeySchoolYears, years)
	return years, nil
}

// ClassLevels returns the class-level picklist.
func (s *ReferenceService) ClassLevels(ctx context.Context) ([]models.ClassLevel, error) {
	var levels []models.ClassLevel
	if s.cached(ctx, cacheKeyClassLevels, &levels) {
		return levels, nil
	}
	levels, err := s.repo.ListClassLevels(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class levels")
	}
	s.store(ctx, cacheKeyClassLevels, levels)
	return levels, nil
}

// JobTitles returns the job-title picklist.
func (s *ReferenceService) JobTitles(ctx context.Context) ([]models.JobTitle, error) {
	var titles []models.JobTitle
	if s.cached(ctx, cacheKeyJobTitles, &titles) {
		return titles, nil
	}
	titles, err := s.repo.ListJobTitles(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list job titles")
	}
	s.store(ctx, cacheKeyJobTitles, titles)
	return titles, nil
}

// AllowedEnrolmentSchools returns the schools the actor may enrol students
// into: every active school for admins, the actor's affiliated schools for
// school admins and teachers, nothing for everyone else. This is the
// write-scope picklist; it narrows the registration form, it does not
// replace the enrolment-time check.
func (s *ReferenceService) AllowedEnrolmentSchools(ctx context.Context, actor *authz.Subject, affiliated authz.SchoolSet) ([]models.School, error) {
	if authz.IsAdmin(actor) {
		return s.ActiveSchools(ctx)
	}
	if !authz.IsSchoolAdmin(actor) && !authz.IsTeacher(actor) {
		return []models.School{}, nil
	}
	// The affiliation alone decides the school-scoped list. A deactivated
	// school with staff still assigned keeps taking their enrolments, so
	// this intersects against all schools, not the active picklist.
	schools, err := s.repo.ListSchools(ctx, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	allowed := make([]models.School, 0, len(affiliated))
	for _, school := range schools {
		if affiliated.Has(school.ID) {
			allowed = append(allowed, school)
		}
	}
	return allowed, nil
}

func (s *ReferenceService) cached(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("reference cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *ReferenceService) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("reference cache write failed", zap.String("key", key), zap.Error(err))
	}
}
