package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/adwatch"
	"github.com/fwojciec/adwatch/discovery"
)

// Searcher runs one paginated search.
type Searcher interface {
	Search(ctx context.Context, url string, opts discovery.SearchOptions) ([]*adwatch.Ad, error)
}

// Runner runs discovery for subscribers.
type Runner interface {
	RunSubscriber(ctx context.Context, subscriberID int64) (*adwatch.Run, error)
	RunAll(ctx context.Context) (*adwatch.Run, error)
}

// Probe fetches a page with one strategy, reporting failure as ok=false.
type Probe struct {
	Name  string
	Fetch func(ctx context.Context, url string) (markup string, ok bool)
}

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	Config adwatch.Config

	Subscribers adwatch.SubscriberService
	Targets     adwatch.TargetService
	Runs        adwatch.RunService

	// Set only for the commands that search.
	Searcher  Searcher
	Runner    Runner
	Extractor adwatch.StateExtractor
	Probes    []Probe
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config   string `short:"c" default:"adwatch.ini" env:"ADWATCH_CONFIG" help:"Path to the INI config file"`
	LogLevel string `default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`

	Search     SearchCmd     `cmd:"" help:"Search a listing URL and print fresh ads"`
	Probe      ProbeCmd      `cmd:"" help:"Fetch a listing URL with every strategy and report what came back"`
	Run        RunCmd        `cmd:"" help:"Search all targets of one subscriber now and send new ads"`
	Serve      ServeCmd      `cmd:"" help:"Search all active targets on a schedule"`
	Subscriber SubscriberCmd `cmd:"" help:"Manage subscribers"`
	Target     TargetCmd     `cmd:"" help:"Manage search targets"`
	Runs       RunsCmd       `cmd:"" help:"List recent discovery runs"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	URL      string `arg:"" help:"Listing search URL"`
	Pages    int    `short:"p" help:"Pages to read (default from config)"`
	MaxPrice *int   `help:"Drop ads priced above this"`
	MaxAge   *int   `help:"Freshness window in minutes (default from config, 0 disables)"`
}

// ProbeCmd is the "probe" subcommand.
type ProbeCmd struct {
	URL string `arg:"" help:"Listing search URL"`
}

// RunCmd is the "run" subcommand.
type RunCmd struct {
	SubscriberID int64 `arg:"" help:"Subscriber ID"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Now  bool `help:"Run once immediately before the first scheduled run"`
	Once bool `help:"Run once and exit"`
}

// SubscriberCmd groups subscriber management.
type SubscriberCmd struct {
	Add  SubscriberAddCmd  `cmd:"" help:"Register a chat as a subscriber"`
	List SubscriberListCmd `cmd:"" help:"List subscribers"`
	Set  SubscriberSetCmd  `cmd:"" help:"Change a subscriber's price ceiling or status"`
}

// SubscriberAddCmd is the "subscriber add" subcommand.
type SubscriberAddCmd struct {
	ChatID   int64  `arg:"" help:"Telegram chat ID"`
	Username string `short:"u" help:"Display name"`
	MaxPrice *int   `help:"Price ceiling in rubles"`
}

// SubscriberListCmd is the "subscriber list" subcommand.
type SubscriberListCmd struct {
	Active bool `help:"Only active subscribers"`
}

// SubscriberSetCmd is the "subscriber set" subcommand.
type SubscriberSetCmd struct {
	ID            int64  `arg:"" help:"Subscriber ID"`
	MaxPrice      *int   `help:"Price ceiling in rubles"`
	ClearMaxPrice bool   `help:"Remove the price ceiling"`
	Pause         bool   `help:"Stop scheduled delivery"`
	Resume        bool   `help:"Restart scheduled delivery"`
	Username      string `short:"u" help:"Display name"`
}

// TargetCmd groups search target management.
type TargetCmd struct {
	Add    TargetAddCmd    `cmd:"" help:"Add a search target for a subscriber"`
	List   TargetListCmd   `cmd:"" help:"List search targets"`
	Delete TargetDeleteCmd `cmd:"" help:"Delete a search target"`
}

// TargetAddCmd is the "target add" subcommand.
type TargetAddCmd struct {
	SubscriberID int64  `arg:"" help:"Subscriber ID"`
	URL          string `arg:"" help:"Listing search URL"`
	Category     string `required:"" help:"Brand or category name shown in messages"`
	City         string `help:"City name"`
	Model        string `help:"Model name"`
	MaxPrice     *int   `help:"Price ceiling overriding the subscriber's"`
}

// TargetListCmd is the "target list" subcommand.
type TargetListCmd struct {
	Subscriber *int64 `short:"s" help:"Only targets of this subscriber"`
}

// TargetDeleteCmd is the "target delete" subcommand.
type TargetDeleteCmd struct {
	ID int64 `arg:"" help:"Target ID"`
}

// RunsCmd is the "runs" subcommand.
type RunsCmd struct {
	Limit int    `short:"n" default:"20" help:"Number of runs to show"`
	Mode  string `short:"m" enum:"all,interactive,scheduled" default:"all" help:"Only runs of this mode (all, interactive, scheduled)"`
}
