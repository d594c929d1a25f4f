package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pacific-edu/pacemis-api/internal/models"
	"github.com/pacific-edu/pacemis-api/internal/notify"
	"github.com/pacific-edu/pacemis-api/pkg/config"
	"github.com/pacific-edu/pacemis-api/pkg/jobs"
)

const jobTypeStudentCreated = "student.created"

// NotificationService fans domain events out to email through the job
// queue. Enqueue happens only after the triggering transaction commits, and
// a failed delivery is logged and dropped, never retried and never surfaced
// to the request that caused it.
type NotificationService struct {
	queue      *jobs.Queue
	mailer     notify.Mailer
	logger     *zap.Logger
	recipients []string
	baseURL    string
	enabled    bool
}

// NewNotificationService constructs a NotificationService and its queue.
func NewNotificationService(mailer notify.Mailer, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		mailer:     mailer,
		logger:     logger,
		recipients: cfg.Recipients,
		baseURL:    cfg.BaseURL,
		enabled:    cfg.Enabled,
	}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.QueueDepth,
		MaxRetries: 0,
		Logger:     logger,
	})
	return s
}

// Start begins queue consumption.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// StudentCreated announces a newly created student and their first
// enrolment. Callers invoke it strictly after commit; any enqueue failure
// is swallowed here so the create request cannot be failed retroactively.
func (s *NotificationService) StudentCreated(student *models.Student, enrolment *models.SchoolEnrolment, schoolName, actorName string) {
	if !s.enabled || len(s.recipients) == 0 {
		return
	}

	link := ""
	if s.baseURL != "" {
		link = fmt.Sprintf("\n\nView the record: %s/students/%s", s.baseURL, student.ID)
	}
	msg := notify.Message{
		Subject: fmt.Sprintf("New student registered: %s %s", student.FirstName, student.LastName),
		PlainText: fmt.Sprintf(
			"%s registered %s %s at %s for school year %s.%s",
			actorName, student.FirstName, student.LastName, schoolName, enrolment.SchoolYearCode, link,
		),
	}
	for _, email := range s.recipients {
		msg.To = append(msg.To, notify.Recipient{Email: email})
	}

	if err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeStudentCreated,
		Payload: msg,
	}); err != nil {
		s.logger.Error("failed to enqueue notification",
			zap.String("type", jobTypeStudentCreated),
			zap.String("student_id", student.ID),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(notify.Message)
	if !ok {
		return fmt.Errorf("unexpected payload type for job %s", job.ID)
	}
	return s.mailer.Send(ctx, msg)
}
