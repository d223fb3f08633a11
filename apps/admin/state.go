package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/elimu/core/course"
)

var stateColors = map[course.State]*color.Color{
	course.StateInProgress:               color.New(color.FgCyan),
	course.StateLecturesDone:             color.New(color.FgBlue),
	course.StateQuizPendingValidation:    color.New(color.FgYellow),
	course.StateProjectRequired:          color.New(color.FgMagenta),
	course.StateProjectPendingValidation: color.New(color.FgYellow),
	course.StateCertified:                color.New(color.FgGreen, color.Bold),
}

func (cli *commandLine) stateCommand() *cobra.Command {
	var learner, courseID string

	cmd := &cobra.Command{
		Use:   "state --learner USERNAME [--course ID]",
		Short: "Show where a learner stands in their courses",
		RunE: func(cmd *cobra.Command, args []string) error {
			if learner == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.state(learner, courseID)
		},
	}
	cmd.Flags().StringVar(&learner, "learner", "", "Username or email of the learner")
	cmd.Flags().StringVar(&courseID, "course", "", "Only show this course")
	return cmd
}

func (cli *commandLine) state(learner, courseID string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, learner)
	if err != nil {
		return errors.Wrap(err, "getting learner")
	}

	enrolled, err := cli.courseSvc.EnrolledCourses(ctx, usr.ID)
	if err != nil {
		return err
	}
	var shown int
	for _, ec := range enrolled {
		if courseID != "" && ec.Course.ID != courseID {
			continue
		}
		shown++
		fmt.Fprintf(cli.out, "%s (%s)\n", ec.Course.Title, ec.Course.ID)
		fmt.Fprintf(cli.out, "  lectures: %d/%d\n", ec.Progress.CompletedLectures, ec.Progress.TotalLectures)
		fmt.Fprint(cli.out, "  state:    ")
		stateColor(ec.State).Fprintln(cli.out, ec.State)
		fmt.Fprintf(cli.out, "  next:     %s\n", ec.State.NextAction())
	}
	if shown == 0 {
		if courseID != "" {
			return course.NotFound("enrollment")
		}
		fmt.Fprintf(cli.out, "%s is not enrolled in any course\n", usr.DisplayName())
	}
	return nil
}

func stateColor(s course.State) *color.Color {
	if c, ok := stateColors[s]; ok {
		return c
	}
	return color.New(color.Reset)
}
