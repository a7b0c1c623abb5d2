// Package authctl implements the authctl command line client on top of
// pkg/authclient.
package authctl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/authclient/internal/config"
	"github.com/okian/authclient/internal/tokenstore"
	"github.com/okian/authclient/pkg/authclient"
	"github.com/okian/authclient/pkg/logger"
	"github.com/okian/authclient/pkg/request"
)

// App runs one command against the auth service.
type App struct {
	client   *authclient.Client
	store    tokenstore.Store
	out      io.Writer
	errOut   io.Writer
	log      logger.Logger
	validate *validator.Validate
	now      func() time.Time
}

// New wires an App from configuration. The session file backs both token
// injection and persistence, and any 401 answer clears it.
func New(cfg *config.Config, log logger.Logger, out, errOut io.Writer) *App {
	if log == nil {
		log = logger.Nop()
	}
	store := tokenstore.NewFile(cfg.TokenFile)

	exec := request.NewExecutor(
		request.WithBaseURL(cfg.BaseURL),
		request.WithTimeout(cfg.Timeout()),
		request.WithRepeatSubmitInterval(cfg.RepeatSubmitInterval()),
		request.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		request.WithTokenProvider(store),
		request.WithLogger(log),
		request.WithUnauthorizedHandler(func(ctx context.Context) {
			if err := store.Clear(ctx); err != nil {
				log.Warn(ctx, "failed to clear session", logger.Error(err))
				return
			}
			log.Debug(ctx, "session cleared after 401")
		}),
	)

	return &App{
		client:   authclient.New(exec),
		store:    store,
		out:      out,
		errOut:   errOut,
		log:      log,
		validate: newValidator(),
		now:      time.Now,
	}
}

// newValidator reports field errors by their flag names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("flag"); name != "" {
			return "-" + name
		}
		return f.Name
	})
	return v
}

// Run parses global options from args, applies them to cfg and executes the
// named command.
func Run(ctx context.Context, cfg *config.Config, log logger.Logger, args []string, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("authctl", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() { ShowHelp(errOut) }
	baseURL := fs.String("url", "", "Base URL of the auth service")
	tokenFile := fs.String("token-file", "", "Session file")
	verbose := fs.Bool("v", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *tokenFile != "" {
		cfg.TokenFile = *tokenFile
	}
	if *verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		ShowHelp(errOut)
		return fmt.Errorf("%w: missing command", ErrUsage)
	}
	return New(cfg, log, out, errOut).Exec(ctx, rest[0], rest[1:])
}

// Exec runs a single command.
func (a *App) Exec(ctx context.Context, name string, args []string) error {
	cmd, ok := a.commands()[name]
	if !ok {
		if name == "help" || name == "-h" || name == "--help" {
			ShowHelp(a.out)
			return nil
		}
		ShowHelp(a.errOut)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, name)
	}
	a.log.Debug(ctx, "running command", logger.String("command", name))
	return cmd(ctx, args)
}

// check validates a parsed flag struct.
func (a *App) check(in any) error {
	err := a.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "required_with":
			msgs = append(msgs, fe.Field()+" is required together with -"+strings.ToLower(fe.Param()))
		default:
			msgs = append(msgs, fe.Field()+" failed "+fe.Tag())
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidFlag, strings.Join(msgs, "; "))
}

// Message renders err for the terminal. Server answers show their code and
// message.
func Message(err error) string {
	var se *request.StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("%d: %s", se.Code, se.Msg)
	}
	return err.Error()
}
