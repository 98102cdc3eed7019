package assets

import "os"

const (
	// ModeEnvVar selects production or development behaviour.
	ModeEnvVar = "NODE_ENV"
	// ReportEnvVar requests the bundle size report when set to any value.
	ReportEnvVar = "npm_config_report"
)

type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

// Env is the part of the build configuration taken from the environment.
type Env struct {
	// Mode is the build mode, anything other than production or development
	// gets neither set of behaviours
	Mode Mode
	// Report requests the bundle analyzer, any non empty value is truthy
	Report string
	// Watch is set when rebuilding on change
	Watch bool
}

// EnvFromOS reads the build environment variables.
func EnvFromOS() Env {
	return Env{
		Mode:   Mode(os.Getenv(ModeEnvVar)),
		Report: os.Getenv(ReportEnvVar),
	}
}

func (e Env) Production() bool {
	return e.Mode == ModeProduction
}

func (e Env) Development() bool {
	return e.Mode == ModeDevelopment
}

func (e Env) ReportRequested() bool {
	return e.Report != ""
}
