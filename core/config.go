package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env             string // DEV (local; default), TEST, QA, PROD
	Build           string
	AppName         string
	Debug           bool
	TestMode        bool
	SecretKey       string
	FrontendBaseURL string
	WorkDir         string
	RollbarToken    string
	SendgridApiKey  string

	DefaultFromEmail mail.Address

	Server struct {
		Host                      string
		Address                   string
		DebugHost                 string
		DisableReqLogs            bool
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	Database struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		InMem         bool
	}

	Redis struct {
		Address string
		Channel string
	}

	Course struct {
		// RequireQuizValidation is the default for new courses.
		RequireQuizValidation bool
	}

	Certificate struct {
		PDFDir string
	}
}

// DBAddress returns the "host:port" of the database server.
func (c Config) DBAddress() string {
	return net.JoinHostPort(c.Database.Host, c.Database.Port)
}

func defaults(conf *viper.Viper, wd string) {
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "develop")
	conf.SetDefault("appName", "Elimu")
	conf.SetDefault("secretKey", "n3b&k1x!v9q$u2z)7m@d0wf(pc=8s_yh4e^t5r+lag6jo*i")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("workDir", wd)
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("defaultFromEmail", "Elimu <noreply@localhost>")

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.disableReqLogs", false)
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 4*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "elimu")
	conf.SetDefault("database.user", "elimu")
	conf.SetDefault("database.password", "elimu")
	conf.SetDefault("database.adminUser", "postgres")
	conf.SetDefault("database.adminPassword", "postgres")
	conf.SetDefault("database.disableTLS", true)
	conf.SetDefault("database.inMem", false)

	conf.SetDefault("redis.address", "")
	conf.SetDefault("redis.channel", "elimu.progress")

	conf.SetDefault("course.requireQuizValidation", true)

	conf.SetDefault("certificate.pdfDir", filepath.Join(os.TempDir(), "elimu-certificates"))
}

// NewConfig loads the app configuration from defaults, the `config/.env.<env>` file (if any) and the environment.
// Environment variables are prefixed by ENV, e.g. `DEV_DATABASE_NAME`.
func NewConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}

	v := viper.New()
	defaults(v, wd)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return load(v, env)
}

func load(v *viper.Viper, env string) *Config {
	conf := &Config{
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		WorkDir:         v.GetString("workDir"),
		RollbarToken:    v.GetString("rollbarToken"),
		SendgridApiKey:  v.GetString("sendgridApiKey"),
	}

	if addr, err := mail.ParseAddress(v.GetString("defaultFromEmail")); err == nil {
		conf.DefaultFromEmail = *addr
	} else {
		conf.DefaultFromEmail = mail.Address{Name: conf.AppName, Address: "noreply@localhost"}
	}

	conf.Server.Host = v.GetString("server.host")
	conf.Server.Address = v.GetString("server.address")
	conf.Server.DebugHost = v.GetString("server.debugHost")
	conf.Server.DisableReqLogs = v.GetBool("server.disableReqLogs")
	conf.Server.ShutdownTimeout = v.GetDuration("server.shutdownTimeout")
	conf.Server.JWTExpirationDelta = v.GetDuration("server.jwtExpirationDelta")
	conf.Server.JWTRefreshExpirationDelta = v.GetDuration("server.jwtRefreshExpirationDelta")

	conf.Database.Engine = v.GetString("database.engine")
	conf.Database.Host = v.GetString("database.host")
	conf.Database.Port = v.GetString("database.port")
	conf.Database.Name = v.GetString("database.name")
	conf.Database.User = v.GetString("database.user")
	conf.Database.Password = v.GetString("database.password")
	conf.Database.AdminUser = v.GetString("database.adminUser")
	conf.Database.AdminPassword = v.GetString("database.adminPassword")
	conf.Database.DisableTLS = v.GetBool("database.disableTLS")
	conf.Database.InMem = v.GetBool("database.inMem")

	conf.Redis.Address = v.GetString("redis.address")
	conf.Redis.Channel = v.GetString("redis.channel")

	conf.Course.RequireQuizValidation = v.GetBool("course.requireQuizValidation")

	conf.Certificate.PDFDir = v.GetString("certificate.pdfDir")
	return conf
}

// NewTestConfig returns the configuration used by tests: in-memory storage, no request logs.
func NewTestConfig() *Config {
	v := viper.New()
	wd, _ := os.Getwd()
	defaults(v, wd)
	v.Set("testMode", true)
	v.Set("database.inMem", true)
	v.Set("server.disableReqLogs", true)
	return load(v, "TEST")
}
