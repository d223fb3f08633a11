package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/services/certpdf"
	"github.com/trezcool/elimu/services/email"
	"github.com/trezcool/elimu/services/events"
	"github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database"
	"github.com/trezcool/elimu/storage/database/inmem"
	"github.com/trezcool/elimu/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zapLogger, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatalf("setting up zap logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zapLogger.Named("ADMIN"), conf)

	cli := commandLine{
		conf:     conf,
		logger:   logger,
		validate: validator.New(),
		out:      os.Stdout,
	}

	// set up repositories
	var (
		usrRepo    user.Repository
		courseRepo course.Repository
	)
	if conf.Database.InMem {
		db := inmemdb.Open()
		usrRepo = inmemdb.NewUserRepository(db)
		courseRepo = inmemdb.NewCourseRepository(db)
	} else {
		if err = database.CreateIfNotExist(conf); err != nil {
			errAndDie(logger, "creating database", err)
		}
		db, err := database.Open(conf)
		if err != nil {
			errAndDie(logger, "opening database", err)
		}
		defer db.Close()
		cli.db = db.DB
		usrRepo = sqlxrepos.NewUserRepository(db)
		courseRepo = sqlxrepos.NewCourseRepository(db)
	}

	cli.usrSvc = user.NewService(usrRepo)
	cli.courseSvc = course.NewService(course.Deps{
		Conf:      conf,
		Logger:    logger,
		Repo:      courseRepo,
		Users:     cli.usrSvc,
		MailSvc:   emailsvc.NewConsoleService(conf, logger),
		Publisher: eventsvc.Nop{},
		Renderer:  certpdf.NewRenderer(conf),
	})

	translator := core.NewTranslator()
	core.InitValidators(cli.validate, translator)
	user.InitValidators(cli.validate, translator)

	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func errAndDie(logger core.Logger, msg string, err error) {
	logger.Fatal(fmt.Sprintf("%s: %v", msg, err), err)
}
