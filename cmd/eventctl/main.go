// Command eventctl drives the create-from-template and save-as-template
// dialogs against a running server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"event-template-platform/internal/client"
	"event-template-platform/internal/config"
	"event-template-platform/internal/eventtemplate"
	"event-template-platform/internal/logging"
	"event-template-platform/internal/middleware"
	"event-template-platform/internal/models"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type options struct {
	url       string
	userID    int
	role      string
	template  string
	event     string
	name      string
	overrides []string
	exclude   []string
	dryRun    bool
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  eventctl create-from-template --template NAME [--override field=value] [--exclude option]")
	fmt.Fprintln(os.Stderr, "  eventctl save-as-template --event NAME [--name TEMPLATE] [--exclude option]")
	fmt.Fprintln(os.Stderr)
	pflag.PrintDefaults()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}

	var opts options
	pflag.StringVar(&opts.url, "url", cfg.Gateway.URL, "Base URL of the server")
	pflag.IntVar(&opts.userID, "user-id", 1, "User to act as")
	pflag.StringVar(&opts.role, "role", string(models.RoleOrganizer), "Role of the user")
	pflag.StringVar(&opts.template, "template", "", "Template to create the event from")
	pflag.StringVar(&opts.event, "event", "", "Event to save as a template")
	pflag.StringVar(&opts.name, "name", "", "Name of the new template (defaults to \"<title> Template\")")
	pflag.StringArrayVar(&opts.overrides, "override", nil, "Value for a missing mandatory field, as field=value")
	pflag.StringSliceVar(&opts.exclude, "exclude", nil, "Options to leave out")
	pflag.BoolVar(&opts.dryRun, "dry-run", false, "Print the dialog without submitting it")
	pflag.Usage = usage
	pflag.Parse()

	if pflag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	logger, err := logging.New(cfg.Server.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	gw, err := newGateway(cfg, opts, logger)
	if err != nil {
		logger.Fatal("failed to create gateway", zap.Error(err))
	}

	var view eventtemplate.View
	switch cmd := pflag.Arg(0); cmd {
	case "create-from-template":
		view, err = createFromTemplate(ctx, gw, opts)
	case "save-as-template":
		view, err = saveAsTemplate(ctx, gw, opts)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}

	printView(view)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newGateway(cfg *config.Config, opts options, logger *zap.Logger) (*client.Gateway, error) {
	role := models.UserRole(opts.role)
	if err := models.ValidateRole(role); err != nil {
		return nil, err
	}
	store := middleware.NewCookieStore(cfg.Session.Secret, false)
	cookie, err := middleware.SessionCookie(store, &models.User{ID: opts.userID, Role: role})
	if err != nil {
		return nil, err
	}
	return client.New(opts.url, logger,
		client.WithCookie(cookie),
		client.WithTimeout(cfg.Gateway.Timeout),
	), nil
}

func createFromTemplate(ctx context.Context, gw eventtemplate.Gateway, opts options) (eventtemplate.View, error) {
	if opts.template == "" {
		return eventtemplate.View{}, fmt.Errorf("--template is required")
	}
	d := eventtemplate.NewCreateDialog(gw)
	if err := d.ChooseTemplate(ctx, opts.template); err != nil {
		return d.View(), err
	}
	for _, name := range opts.exclude {
		if err := d.Toggle(name, false); err != nil {
			return d.View(), fmt.Errorf("failed to exclude %s: %w", name, err)
		}
	}
	for _, kv := range opts.overrides {
		field, value, ok := strings.Cut(kv, "=")
		if !ok {
			return d.View(), fmt.Errorf("invalid override %q, expected field=value", kv)
		}
		if err := d.SetOverride(strings.TrimSpace(field), value); err != nil {
			return d.View(), err
		}
	}
	if opts.dryRun {
		return d.View(), nil
	}
	_, err := d.Submit(ctx)
	return d.View(), err
}

func saveAsTemplate(ctx context.Context, gw eventtemplate.Gateway, opts options) (eventtemplate.View, error) {
	if opts.event == "" {
		return eventtemplate.View{}, fmt.Errorf("--event is required")
	}
	d, err := eventtemplate.OpenSaveDialog(ctx, gw, opts.event)
	if err != nil {
		return eventtemplate.View{}, err
	}
	// a failed lookup leaves that option disabled
	if err := d.LoadCounts(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}

	for _, name := range opts.exclude {
		if err := d.Toggle(name, false); err != nil {
			return d.View(), fmt.Errorf("failed to exclude %s: %w", name, err)
		}
	}
	if opts.name != "" {
		if err := d.SetTemplateName(opts.name); err != nil {
			return d.View(), err
		}
	}
	if opts.dryRun {
		return d.View(), nil
	}
	_, err = d.Submit(ctx)
	return d.View(), err
}

func printView(v eventtemplate.View) {
	if v.Kind == "" {
		return
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(out))
	if v.SuccessMessage != "" {
		fmt.Printf("\n%s: %s\n", v.SuccessMessage, v.Route)
	}
}
