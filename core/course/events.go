package course

import (
	"context"
	"time"
)

type EventKind string

const (
	EventLectureCompleted  EventKind = "lecture.completed"
	EventQuizSubmitted     EventKind = "quiz.submitted"
	EventQuizValidated     EventKind = "quiz.validated"
	EventProjectSubmitted  EventKind = "project.submitted"
	EventProjectValidated  EventKind = "project.validated"
	EventCertificateIssued EventKind = "certificate.issued"
)

// Event is published whenever a learner's records change.
type Event struct {
	Kind       EventKind `json:"kind"`
	LearnerID  string    `json:"learner_id"`
	CourseID   string    `json:"course_id"`
	RecordID   string    `json:"record_id,omitempty"`
	State      State     `json:"state,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher must not block on I/O: events are best effort.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// CertificateRenderer renders a certificate document (e.g. PDF).
type CertificateRenderer interface {
	Render(cert Certificate) ([]byte, error)
}
