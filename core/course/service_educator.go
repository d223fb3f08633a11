package course

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

// EnrolledLearner is an enrollment as listed to the course educator.
type EnrolledLearner struct {
	Enrollment
	LearnerName  string `json:"learner_name"`
	LearnerEmail string `json:"learner_email"`
	CourseTitle  string `json:"course_title"`
}

// CreateCourse creates a course owned by edu.
func (svc *Service) CreateCourse(ctx context.Context, edu Educator, nc NewCourse) (Course, error) {
	ts := now()
	c := Course{
		ID:                    uuid.New().String(),
		Title:                 nc.Title,
		Description:           nc.Description,
		Thumbnail:             nc.Thumbnail,
		EducatorID:            edu.ID(),
		Price:                 nc.Price,
		Discount:              nc.Discount,
		IsPublished:           true,
		RequireQuizValidation: svc.conf.Course.RequireQuizValidation,
		Lectures:              make([]Lecture, 0, len(nc.Lectures)),
		CreatedAt:             ts,
		UpdatedAt:             ts,
	}
	if nc.IsPublished != nil {
		c.IsPublished = *nc.IsPublished
	}
	if nc.RequireQuizValidation != nil {
		c.RequireQuizValidation = *nc.RequireQuizValidation
	}
	for _, lec := range nc.Lectures {
		if lec.ID == "" {
			lec.ID = uuid.New().String()
		}
		c.Lectures = append(c.Lectures, lec)
	}

	c, err := svc.repo.CreateCourse(ctx, c)
	return c, errors.Wrap(err, "creating course")
}

// EducatorCourses lists all courses of edu, published or not.
func (svc *Service) EducatorCourses(ctx context.Context, edu Educator, orderings []core.DBOrdering) ([]CourseSummary, error) {
	courses, err := svc.repo.QueryCourses(ctx, CourseFilter{EducatorID: edu.ID()}, orderings)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return svc.summarize(ctx, courses, false)
}

// ownedCourse returns the course if edu owns it.
func (svc *Service) ownedCourse(ctx context.Context, edu Educator, courseID string) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, courseID)
	if err != nil {
		return Course{}, errors.Wrap(err, "getting course")
	}
	if !edu.Owns(c) {
		return Course{}, newError(KindForbidden, "not the educator of this course")
	}
	return c, nil
}

func (svc *Service) ownedCourseIDs(ctx context.Context, edu Educator) ([]string, map[string]Course, error) {
	courses, err := svc.repo.QueryCourses(ctx, CourseFilter{EducatorID: edu.ID()}, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying courses")
	}
	ids := make([]string, 0, len(courses))
	byID := make(map[string]Course, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}
	return ids, byID, nil
}

// SaveQuiz replaces the quiz of the course.
func (svc *Service) SaveQuiz(ctx context.Context, edu Educator, courseID string, nq NewQuiz) (Quiz, error) {
	if _, err := svc.ownedCourse(ctx, edu, courseID); err != nil {
		return Quiz{}, err
	}
	ts := now()
	quiz, err := svc.repo.SaveQuiz(ctx, Quiz{
		ID:        uuid.New().String(),
		CourseID:  courseID,
		Questions: nq.Questions,
		CreatedAt: ts,
		UpdatedAt: ts,
	})
	return quiz, errors.Wrap(err, "saving quiz")
}

// GetEducatorQuiz returns the full quiz, answers included.
func (svc *Service) GetEducatorQuiz(ctx context.Context, edu Educator, courseID string) (Quiz, error) {
	if _, err := svc.ownedCourse(ctx, edu, courseID); err != nil {
		return Quiz{}, err
	}
	quiz, err := svc.repo.GetQuiz(ctx, courseID)
	return quiz, errors.Wrap(err, "getting quiz")
}

// PendingQuizValidations lists the passed, unvalidated quiz results of the educator's courses.
func (svc *Service) PendingQuizValidations(ctx context.Context, edu Educator) ([]QuizResult, error) {
	ids, _, err := svc.ownedCourseIDs(ctx, edu)
	if err != nil || len(ids) == 0 {
		return []QuizResult{}, err
	}
	validated := false
	results, err := svc.repo.QueryQuizResults(ctx, QuizResultFilter{CourseIDs: ids, PassedOnly: true, Validated: &validated})
	return results, errors.Wrap(err, "querying quiz results")
}

// ValidateQuiz validates a passed quiz result. Validating it again returns it unchanged.
func (svc *Service) ValidateQuiz(ctx context.Context, edu Educator, resultID string) (QuizResult, error) {
	res, err := svc.repo.GetQuizResultByID(ctx, resultID)
	if err != nil {
		return QuizResult{}, errors.Wrap(err, "getting quiz result")
	}
	c, err := svc.ownedCourse(ctx, edu, res.CourseID)
	if err != nil {
		return QuizResult{}, err
	}
	if !res.Passed() {
		return QuizResult{}, newError(KindInvalidState, "only a quiz result with a score of %d can be validated", PassingScore)
	}
	if res.Validated {
		return res, nil
	}

	if res, err = svc.repo.ValidateQuizResult(ctx, resultID, now()); err != nil {
		if errors.Is(err, ErrNotFound) { // re-submitted in the meantime
			return QuizResult{}, newError(KindInvalidState, "quiz result changed; only a passed result can be validated")
		}
		return QuizResult{}, errors.Wrap(err, "validating quiz result")
	}

	svc.publish(ctx, EventQuizValidated, res.LearnerID, c, res.ID)
	svc.sendLearnerMail(ctx, res.LearnerID, "Quiz validated: "+c.Title, "quiz_validated", c)
	return res, nil
}

// PendingProjects lists the unvalidated projects of the educator's courses.
func (svc *Service) PendingProjects(ctx context.Context, edu Educator) ([]PendingProject, error) {
	ids, _, err := svc.ownedCourseIDs(ctx, edu)
	if err != nil || len(ids) == 0 {
		return []PendingProject{}, err
	}
	validated := false
	projects, err := svc.repo.QueryProjects(ctx, ProjectFilter{CourseIDs: ids, Validated: &validated})
	if err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}

	pending := make([]PendingProject, 0, len(projects))
	for _, proj := range projects {
		pp := PendingProject{Project: proj}
		if res, err := svc.repo.GetQuizResult(ctx, proj.LearnerID, proj.CourseID); err == nil {
			pp.QuizValidated = res.Validated
		} else if !errors.Is(err, ErrNotFound) {
			return nil, errors.Wrap(err, "getting quiz result")
		}
		pending = append(pending, pp)
	}
	return pending, nil
}

// ValidateProject validates a project. Validating it again returns it unchanged.
func (svc *Service) ValidateProject(ctx context.Context, edu Educator, projectID string) (Project, error) {
	proj, err := svc.repo.GetProjectByID(ctx, projectID)
	if err != nil {
		return Project{}, errors.Wrap(err, "getting project")
	}
	c, err := svc.ownedCourse(ctx, edu, proj.CourseID)
	if err != nil {
		return Project{}, err
	}
	if proj.Validated {
		return proj, nil
	}

	if proj, err = svc.repo.ValidateProject(ctx, projectID, now()); err != nil {
		return Project{}, errors.Wrap(err, "validating project")
	}

	svc.publish(ctx, EventProjectValidated, proj.LearnerID, c, proj.ID)
	svc.sendLearnerMail(ctx, proj.LearnerID, "Project validated: "+c.Title, "project_validated", c)
	return proj, nil
}

// DeleteProject removes a project so that the learner can submit a new one.
func (svc *Service) DeleteProject(ctx context.Context, edu Educator, projectID string) error {
	proj, err := svc.repo.GetProjectByID(ctx, projectID)
	if err != nil {
		return errors.Wrap(err, "getting project")
	}
	if _, err = svc.ownedCourse(ctx, edu, proj.CourseID); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteProject(ctx, projectID), "deleting project")
}

// EnrolledLearners lists the enrollments of all the educator's courses.
func (svc *Service) EnrolledLearners(ctx context.Context, edu Educator) ([]EnrolledLearner, error) {
	ids, courses, err := svc.ownedCourseIDs(ctx, edu)
	if err != nil || len(ids) == 0 {
		return []EnrolledLearner{}, err
	}
	enrollments, err := svc.repo.QueryEnrollments(ctx, EnrollmentFilter{CourseIDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	learnerIDs := make([]string, 0, len(enrollments))
	for _, enr := range enrollments {
		learnerIDs = append(learnerIDs, enr.LearnerID)
	}
	learners, err := svc.users.GetManyByID(ctx, learnerIDs...)
	if err != nil {
		return nil, errors.Wrap(err, "getting learners")
	}

	enrolled := make([]EnrolledLearner, 0, len(enrollments))
	for _, enr := range enrollments {
		learner := learners[enr.LearnerID]
		enrolled = append(enrolled, EnrolledLearner{
			Enrollment:   enr,
			LearnerName:  learner.DisplayName(),
			LearnerEmail: learner.Email,
			CourseTitle:  courses[enr.CourseID].Title,
		})
	}
	return enrolled, nil
}

func (svc *Service) sendLearnerMail(ctx context.Context, learnerID, subject, template string, c Course) {
	if svc.mailSvc == nil {
		return
	}
	learner, err := svc.users.GetByID(ctx, learnerID)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			svc.logger.Error("getting learner to notify", err)
		}
		return
	}
	if learner.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(svc.newLearnerMail(learner, subject, template, map[string]interface{}{
		"CourseTitle": c.Title,
		"CourseID":    c.ID,
	}))
}
