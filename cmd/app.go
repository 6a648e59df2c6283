package cmd

import (
	"context"

	"github.com/ma-dusty/wssApiToSyslogRelay/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// appContextKey is the context key for the App instance.
type appContextKey struct{}

// Config holds all configuration values that were previously global.
type Config struct {
	Profile string
	Region  string
	Verbose bool
	NoColor bool
	Quiet   bool
}

// App holds the application dependencies that can be injected for testing.
type App struct {
	Config Config
	Render *ui.Renderer
}

// NewApp creates a new App with default configuration from viper.
func NewApp() *App {
	cfg := Config{
		Profile: getProfile(),
		Region:  getRegion(),
		Verbose: IsVerbose(),
		NoColor: noColor,
		Quiet:   quiet,
	}

	return &App{
		Config: cfg,
		Render: render,
	}
}

// NewAppWithConfig creates a new App with the given configuration.
// This is primarily used for testing.
func NewAppWithConfig(cfg Config, renderer *ui.Renderer) *App {
	return &App{
		Config: cfg,
		Render: renderer,
	}
}

// GetApp retrieves the App from the command context.
// If no App is set, it creates a new default one.
func GetApp(cmd *cobra.Command) *App {
	if app, ok := cmd.Context().Value(appContextKey{}).(*App); ok {
		return app
	}
	// Fallback: create default app (maintains backward compatibility)
	return NewApp()
}

// SetApp stores the App in the context for a command.
func SetApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appContextKey{}, app)
}

// Debugf prints a debug message if verbose mode is enabled.
// This is a method on App to allow per-instance verbose control.
func (a *App) Debugf(format string, args ...interface{}) {
	if a.Config.Verbose || viper.GetBool("verbose") {
		a.Render.Debug(format, args...)
	}
}

// GetProfile returns the AWS profile from Config or viper.
func (a *App) GetProfile() string {
	if a.Config.Profile != "" {
		return a.Config.Profile
	}
	return viper.GetString("profile")
}

// GetRegion returns the AWS region from Config or viper.
func (a *App) GetRegion() string {
	if a.Config.Region != "" {
		return a.Config.Region
	}
	return viper.GetString("region")
}
