package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/elimu/core/course"
)

// courseFixture is the YAML layout of an imported course:
//
//	title: Go 101
//	price: 20
//	lectures:
//	  - title: Intro
//	    url: https://videos.example.com/intro
//	    is_preview: true
//	quiz:
//	  questions:
//	    - text: Keyword to start a goroutine?
//	      options: [go, async, spawn, thread]
//	      correct_answer: 0
type courseFixture struct {
	course.NewCourse `yaml:",inline"`
	Quiz             *course.NewQuiz `yaml:"quiz"`
}

func (cli *commandLine) importCourseCommand() *cobra.Command {
	var educator string

	cmd := &cobra.Command{
		Use:   "importcourse --educator USERNAME FILE...",
		Short: "Create courses (and their quiz) from YAML files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if educator == "" {
				_ = cmd.Usage()
				return errHelp
			}
			for _, path := range args {
				c, err := cli.importCourse(educator, path)
				if err != nil {
					return errors.Wrapf(err, "importing %s", path)
				}
				fmt.Fprintf(cli.out, "course %s imported: %s (%d lectures)\n", c.ID, c.Title, c.TotalLectures())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&educator, "educator", "", "Username or email of the educator owning the courses")
	return cmd
}

func (cli *commandLine) importCourse(educator, path string) (course.Course, error) {
	ctx := context.Background()

	data, err := os.ReadFile(path)
	if err != nil {
		return course.Course{}, err
	}
	var fixture courseFixture
	if err = yaml.Unmarshal(data, &fixture); err != nil {
		return course.Course{}, errors.Wrap(err, "decoding yaml")
	}
	if err = fixture.NewCourse.Validate(cli.validate); err != nil {
		return course.Course{}, err
	}
	if fixture.Quiz != nil {
		if err = fixture.Quiz.Validate(cli.validate); err != nil {
			return course.Course{}, err
		}
	}

	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, educator)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "getting educator")
	}
	edu, err := course.NewEducator(usr)
	if err != nil {
		return course.Course{}, err
	}

	c, err := cli.courseSvc.CreateCourse(ctx, edu, fixture.NewCourse)
	if err != nil {
		return course.Course{}, err
	}
	if fixture.Quiz != nil {
		if _, err = cli.courseSvc.SaveQuiz(ctx, edu, c.ID, *fixture.Quiz); err != nil {
			return course.Course{}, err
		}
	}
	return c, nil
}
