package course

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

var NowFunc = time.Now // mockable

type (
	// Directory looks up users.
	Directory interface {
		GetByID(ctx context.Context, id string) (user.User, error)
		GetManyByID(ctx context.Context, ids ...string) (map[string]user.User, error)
	}

	Deps struct {
		Conf      *core.Config
		Logger    core.Logger
		Repo      Repository
		Users     Directory
		MailSvc   core.EmailService
		Publisher Publisher
		Renderer  CertificateRenderer // optional
	}

	Service struct {
		conf      *core.Config
		logger    core.Logger
		repo      Repository
		users     Directory
		mailSvc   core.EmailService
		publisher Publisher
		renderer  CertificateRenderer
	}
)

func NewService(deps Deps) *Service {
	return &Service{
		conf:      deps.Conf,
		logger:    deps.Logger,
		repo:      deps.Repo,
		users:     deps.Users,
		mailSvc:   deps.MailSvc,
		publisher: deps.Publisher,
		renderer:  deps.Renderer,
	}
}

func now() time.Time { return NowFunc().UTC() }

// Catalog

func (svc *Service) QueryCourses(ctx context.Context, filter CourseFilter, orderings []core.DBOrdering) ([]CourseSummary, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.PublishedOnly = true
	courses, err := svc.repo.QueryCourses(ctx, filter, orderings)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return svc.summarize(ctx, courses, true)
}

// GetCourse returns the public view of a published course: only preview lectures keep their URL.
func (svc *Service) GetCourse(ctx context.Context, id string) (CourseSummary, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return CourseSummary{}, errors.Wrap(err, "getting course")
	}
	if !c.IsPublished {
		return CourseSummary{}, NotFound("course")
	}
	summaries, err := svc.summarize(ctx, []Course{c}, true)
	if err != nil {
		return CourseSummary{}, err
	}
	return summaries[0], nil
}

func (svc *Service) summarize(ctx context.Context, courses []Course, public bool) ([]CourseSummary, error) {
	summaries := make([]CourseSummary, 0, len(courses))
	if len(courses) == 0 {
		return summaries, nil
	}

	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	ratings, err := svc.repo.QueryRatings(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "querying ratings")
	}
	sums := make(map[string]int, len(courses))
	counts := make(map[string]int, len(courses))
	for _, r := range ratings {
		sums[r.CourseID] += r.Rating
		counts[r.CourseID]++
	}

	for _, c := range courses {
		if public {
			c = c.publicView()
		}
		sum := CourseSummary{Course: c, RatingCount: counts[c.ID], Amount: c.EnrollmentAmount()}
		if sum.RatingCount > 0 {
			sum.AverageRating = float64(sums[c.ID]) / float64(sum.RatingCount)
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

func (c Course) publicView() Course {
	lectures := make([]Lecture, 0, len(c.Lectures))
	for _, lec := range c.Lectures {
		if !lec.IsPreview {
			lec.URL = ""
		}
		lectures = append(lectures, lec)
	}
	c.Lectures = lectures
	return c
}

// Enrollment

func (svc *Service) Enroll(ctx context.Context, learnerID, courseID string) (Enrollment, error) {
	c, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "getting course")
	}
	if !c.IsPublished {
		return Enrollment{}, NotFound("course")
	}
	if _, err = svc.repo.GetEnrollment(ctx, learnerID, courseID); err == nil {
		return Enrollment{}, Conflict("already enrolled in this course")
	} else if !errors.Is(err, ErrNotFound) {
		return Enrollment{}, errors.Wrap(err, "getting enrollment")
	}

	enr, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		ID:         uuid.New().String(),
		LearnerID:  learnerID,
		CourseID:   courseID,
		Amount:     c.EnrollmentAmount(),
		EnrolledAt: now(),
	})
	return enr, errors.Wrap(err, "creating enrollment")
}

// EnrolledCourses lists the learner's courses with their progress & eligibility state.
func (svc *Service) EnrolledCourses(ctx context.Context, learnerID string) ([]EnrolledCourse, error) {
	enrollments, err := svc.repo.QueryEnrollments(ctx, EnrollmentFilter{LearnerID: learnerID})
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	enrolled := make([]EnrolledCourse, 0, len(enrollments))
	for _, enr := range enrollments {
		c, err := svc.repo.GetCourse(ctx, enr.CourseID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, errors.Wrap(err, "getting course")
		}
		in, prog, err := svc.inputs(ctx, learnerID, c)
		if err != nil {
			return nil, err
		}
		enrolled = append(enrolled, EnrolledCourse{Course: c, Enrollment: enr, Progress: prog, State: Evaluate(in)})
	}
	return enrolled, nil
}

// enrolledCourse returns the course if learnerID is enrolled in it.
func (svc *Service) enrolledCourse(ctx context.Context, learnerID, courseID string) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Course{}, errors.Wrap(err, "getting course")
	}
	if _, err = svc.repo.GetEnrollment(ctx, learnerID, courseID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Course{}, newError(KindForbidden, "not enrolled in this course")
		}
		return Course{}, errors.Wrap(err, "getting enrollment")
	}
	return c, nil
}

// inputs loads the records the learner's eligibility is evaluated from.
func (svc *Service) inputs(ctx context.Context, learnerID string, c Course) (Inputs, Progress, error) {
	prog, err := svc.progress(ctx, learnerID, c)
	if err != nil {
		return Inputs{}, Progress{}, err
	}
	in := Inputs{
		CompletedLectures:     prog.CompletedLectures,
		TotalLectures:         prog.TotalLectures,
		RequireQuizValidation: c.RequireQuizValidation,
	}

	if res, err := svc.repo.GetQuizResult(ctx, learnerID, c.ID); err == nil {
		in.QuizResult = &res
	} else if !errors.Is(err, ErrNotFound) {
		return Inputs{}, Progress{}, errors.Wrap(err, "getting quiz result")
	}

	if proj, err := svc.repo.GetProject(ctx, learnerID, c.ID); err == nil {
		in.Project = &proj
	} else if !errors.Is(err, ErrNotFound) {
		return Inputs{}, Progress{}, errors.Wrap(err, "getting project")
	}
	return in, prog, nil
}

func (svc *Service) progress(ctx context.Context, learnerID string, c Course) (Progress, error) {
	prog, err := svc.repo.GetProgress(ctx, learnerID, c.ID)
	if err != nil {
		return Progress{}, errors.Wrap(err, "getting progress")
	}
	if prog.LectureCompleted == nil {
		prog.LectureCompleted = []string{}
	}
	prog.LearnerID = learnerID
	prog.CourseID = c.ID
	prog.CompletedLectures = prog.Completed(c)
	prog.TotalLectures = c.TotalLectures()
	return prog, nil
}

// Lecture progress

// RecordLectureCompletion marks a lecture as completed. Completing it again is a no-op.
func (svc *Service) RecordLectureCompletion(ctx context.Context, learnerID, courseID, lectureID string) (Progress, error) {
	c, err := svc.enrolledCourse(ctx, learnerID, courseID)
	if err != nil {
		return Progress{}, err
	}
	if !c.HasLecture(lectureID) {
		return Progress{}, NotFound("lecture")
	}

	added, err := svc.repo.AddCompletedLecture(ctx, learnerID, courseID, lectureID, now())
	if err != nil {
		return Progress{}, errors.Wrap(err, "adding completed lecture")
	}
	prog, err := svc.progress(ctx, learnerID, c)
	if err != nil {
		return Progress{}, err
	}
	if added {
		svc.publish(ctx, EventLectureCompleted, learnerID, c, lectureID)
	}
	return prog, nil
}

func (svc *Service) GetProgress(ctx context.Context, learnerID, courseID string) (Progress, error) {
	c, err := svc.enrolledCourse(ctx, learnerID, courseID)
	if err != nil {
		return Progress{}, err
	}
	return svc.progress(ctx, learnerID, c)
}

// Eligibility

func (svc *Service) GetEligibilityState(ctx context.Context, learnerID, courseID string) (Eligibility, error) {
	c, err := svc.enrolledCourse(ctx, learnerID, courseID)
	if err != nil {
		return Eligibility{}, err
	}
	in, _, err := svc.inputs(ctx, learnerID, c)
	if err != nil {
		return Eligibility{}, err
	}
	return newEligibility(learnerID, c.ID, in), nil
}

// Quiz

// GetQuiz returns the course quiz (without answers) once all lectures are completed.
func (svc *Service) GetQuiz(ctx context.Context, learnerID, courseID string) (QuizView, error) {
	c, err := svc.enrolledCourse(ctx, learnerID, courseID)
	if err != nil {
		return QuizView{}, err
	}
	if err = svc.checkLecturesDone(ctx, learnerID, c); err != nil {
		return QuizView{}, err
	}

	quiz, err := svc.repo.GetQuiz(ctx, courseID)
	if err != nil {
		return QuizView{}, errors.Wrap(err, "getting quiz")
	}
	return quiz.View(), nil
}

func (svc *Service) checkLecturesDone(ctx context.Context, learnerID string, c Course) error {
	prog, err := svc.progress(ctx, learnerID, c)
	if err != nil {
		return err
	}
	state := Evaluate(Inputs{CompletedLectures: prog.CompletedLectures, TotalLectures: prog.TotalLectures})
	if !state.CanTakeQuiz() {
		return newError(
			KindForbidden, "complete all lectures to unlock the quiz (%d/%d)", prog.CompletedLectures, prog.TotalLectures,
		)
	}
	return nil
}

// SubmitQuiz scores answers and overwrites the learner's previous result, which resets its validation.
func (svc *Service) SubmitQuiz(ctx context.Context, learnerID, courseID string, answers []Answer) (QuizOutcome, error) {
	c, err := svc.enrolledCourse(ctx, learnerID, courseID)
	if err != nil {
		return QuizOutcome{}, err
	}
	if err = svc.checkLecturesDone(ctx, learnerID, c); err != nil {
		return QuizOutcome{}, err
	}

	quiz, err := svc.repo.GetQuiz(ctx, courseID)
	if err != nil {
		return QuizOutcome{}, errors.Wrap(err, "getting quiz")
	}
	score, correct, err := ScoreQuiz(quiz, answers)
	if err != nil {
		return QuizOutcome{}, err
	}

	submittedAt := now()
	res := QuizResult{
		ID:          uuid.New().String(),
		LearnerID:   learnerID,
		CourseID:    courseID,
		Answers:     answers,
		Score:       score,
		SubmittedAt: submittedAt,
	}
	if res.Passed() {
		res.CompletedAt = null.TimeFrom(submittedAt)
	}
	if res, err = svc.repo.UpsertQuizResult(ctx, res); err != nil {
		return QuizOutcome{}, errors.Wrap(err, "saving quiz result")
	}

	svc.publish(ctx, EventQuizSubmitted, learnerID, c, res.ID)
	return QuizOutcome{
		Score:   res.Score,
		Passed:  res.Passed(),
		Correct: correct,
		Total:   len(quiz.Questions),
		Result:  res,
	}, nil
}

func (svc *Service) GetQuizResult(ctx context.Context, learnerID, courseID string) (QuizResult, error) {
	if _, err := svc.enrolledCourse(ctx, learnerID, courseID); err != nil {
		return QuizResult{}, err
	}
	res, err := svc.repo.GetQuizResult(ctx, learnerID, courseID)
	return res, errors.Wrap(err, "getting quiz result")
}

// Project

// SubmitProject stores the learner's project: a link or a file reference, not both.
func (svc *Service) SubmitProject(ctx context.Context, learnerID, courseID string, np NewProject) (Project, error) {
	if (np.Link == "") == (np.File == "") {
		return Project{}, newError(KindInvalidSubmission, "provide either a link or a file")
	}

	c, err := svc.enrolledCourse(ctx, learnerID, courseID)
	if err != nil {
		return Project{}, err
	}
	in, _, err := svc.inputs(ctx, learnerID, c)
	if err != nil {
		return Project{}, err
	}
	if in.Project != nil {
		return Project{}, Conflict("a project was already submitted for this course")
	}
	if state := Evaluate(in); !state.CanSubmitProject(c.RequireQuizValidation) {
		return Project{}, newError(KindForbidden, "project submission not allowed yet (%s)", state)
	}

	proj, err := svc.repo.CreateProject(ctx, Project{
		ID:             uuid.New().String(),
		LearnerID:      learnerID,
		CourseID:       courseID,
		SubmissionType: np.submissionType(),
		Link:           np.Link,
		File:           np.File,
		SubmittedAt:    now(),
	})
	if err != nil {
		return Project{}, errors.Wrap(err, "creating project")
	}

	svc.publish(ctx, EventProjectSubmitted, learnerID, c, proj.ID)
	return proj, nil
}

func (svc *Service) LearnerProjects(ctx context.Context, learnerID string) ([]Project, error) {
	projects, err := svc.repo.QueryProjects(ctx, ProjectFilter{LearnerID: learnerID})
	return projects, errors.Wrap(err, "querying projects")
}

// Certificate

// IssueCertificate returns the learner's certificate, creating it on first call.
// An issued certificate is returned whatever the current state, e.g. after a quiz re-submission.
// The certificate ID is derived from (learner, course) so concurrent calls cannot create duplicates.
func (svc *Service) IssueCertificate(ctx context.Context, learnerID, courseID string) (Certificate, error) {
	c, err := svc.enrolledCourse(ctx, learnerID, courseID)
	if err != nil {
		return Certificate{}, err
	}
	if cert, err := svc.repo.GetCertificate(ctx, CertificateID(learnerID, courseID)); err == nil {
		return cert, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Certificate{}, errors.Wrap(err, "getting certificate")
	}

	in, _, err := svc.inputs(ctx, learnerID, c)
	if err != nil {
		return Certificate{}, err
	}
	if state := Evaluate(in); !state.CanIssueCertificate() {
		return Certificate{}, newError(KindForbidden, "course not completed yet (%s)", state)
	}

	learner, err := svc.users.GetByID(ctx, learnerID)
	if err != nil {
		return Certificate{}, errors.Wrap(err, "getting learner")
	}

	cert, created, err := svc.repo.CreateCertificateIfAbsent(ctx, Certificate{
		ID:          CertificateID(learnerID, courseID),
		Number:      CertificateNumber(learnerID, courseID),
		LearnerID:   learnerID,
		CourseID:    courseID,
		LearnerName: learner.DisplayName(),
		CourseTitle: c.Title,
		CompletedAt: in.Project.ValidatedAt.Time,
		IssuedAt:    now(),
	})
	if err != nil {
		return Certificate{}, errors.Wrap(err, "creating certificate")
	}

	if created {
		svc.publish(ctx, EventCertificateIssued, learnerID, c, cert.ID)
		svc.sendCertificateMail(learner, cert)
	}
	return cert, nil
}

func (svc *Service) GetCertificate(ctx context.Context, id string) (Certificate, error) {
	cert, err := svc.repo.GetCertificate(ctx, id)
	return cert, errors.Wrap(err, "getting certificate")
}

// CertificatePDF renders the certificate as a PDF document.
func (svc *Service) CertificatePDF(ctx context.Context, id string) (Certificate, []byte, error) {
	cert, err := svc.GetCertificate(ctx, id)
	if err != nil {
		return Certificate{}, nil, err
	}
	if svc.renderer == nil {
		return Certificate{}, nil, errors.New("no certificate renderer configured")
	}
	doc, err := svc.renderer.Render(cert)
	if err != nil {
		return Certificate{}, nil, errors.Wrap(err, "rendering certificate")
	}
	return cert, doc, nil
}

// Rating

func (svc *Service) RateCourse(ctx context.Context, learnerID, courseID string, nr NewRating) (Rating, error) {
	if _, err := svc.enrolledCourse(ctx, learnerID, courseID); err != nil {
		return Rating{}, err
	}
	rating, err := svc.repo.UpsertRating(ctx, Rating{
		LearnerID: learnerID,
		CourseID:  courseID,
		Rating:    nr.Rating,
		RatedAt:   now(),
	})
	return rating, errors.Wrap(err, "saving rating")
}

// Notifications

func (svc *Service) publish(ctx context.Context, kind EventKind, learnerID string, c Course, recordID string) {
	if svc.publisher == nil {
		return
	}
	evt := Event{Kind: kind, LearnerID: learnerID, CourseID: c.ID, RecordID: recordID, OccurredAt: now()}
	if in, _, err := svc.inputs(ctx, learnerID, c); err == nil {
		evt.State = Evaluate(in)
	}
	if err := svc.publisher.Publish(ctx, evt); err != nil {
		svc.logger.Warn(fmt.Sprintf("publishing %s event: %v", kind, err), err)
	}
}

func (svc *Service) newLearnerMail(learner user.User, subject, template string, data map[string]interface{}) *core.EmailMessage {
	data["LearnerName"] = learner.DisplayName()
	return &core.EmailMessage{
		To:           []mail.Address{{Name: learner.DisplayName(), Address: learner.Email}},
		Subject:      subject,
		TemplateName: template,
		TemplateData: data,
	}
}

func (svc *Service) sendCertificateMail(learner user.User, cert Certificate) {
	if svc.mailSvc == nil || learner.Email == "" {
		return
	}
	msg := svc.newLearnerMail(learner, "Your certificate for "+cert.CourseTitle, "certificate_issued", map[string]interface{}{
		"CourseTitle":       cert.CourseTitle,
		"CourseID":          cert.CourseID,
		"CertificateID":     cert.ID,
		"CertificateNumber": cert.Number,
	})
	if svc.renderer != nil {
		doc, err := svc.renderer.Render(cert)
		if err == nil {
			err = msg.Attach(bytes.NewReader(doc), "certificate-"+cert.Number+".pdf", "application/pdf")
		}
		if err != nil {
			svc.logger.Error(fmt.Sprintf("attaching certificate %s: %v", cert.ID, err), err)
		}
	}
	svc.mailSvc.SendMessages(msg)
}
