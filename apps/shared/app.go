package shared

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kyleyee20/aevum/core"
	"github.com/kyleyee20/aevum/core/assignment"
	"github.com/kyleyee20/aevum/core/calendar"
	"github.com/kyleyee20/aevum/core/course"
	"github.com/kyleyee20/aevum/core/poller"
	calendarsvc "github.com/kyleyee20/aevum/services/calendar"
	emailsvc "github.com/kyleyee20/aevum/services/email"
	logsvc "github.com/kyleyee20/aevum/services/logger"
	notifysvc "github.com/kyleyee20/aevum/services/notify"
	oraclesvc "github.com/kyleyee20/aevum/services/oracle"
	vocabsvc "github.com/kyleyee20/aevum/services/vocab"
	"github.com/kyleyee20/aevum/storage/database"
)

// App is everything a binary needs to drive the engine.
type App struct {
	Conf    *core.Config
	Logger  core.Logger
	Store   core.RecordStore
	Bus     core.ChangeBus
	Engine  *assignment.Service
	Courses *course.Service

	closers []func() error
}

// NewLogger returns the zap logger, reporting to Rollbar outside DEV and TEST.
func NewLogger(conf *core.Config) (core.Logger, func() error, error) {
	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		return nil, nil, errors.Wrap(err, "building logger")
	}
	rl := logsvc.NewRollbarLogger(zl, conf)
	rl.Enable(conf.RollbarToken != "" && !conf.Debug && !conf.TestMode)
	return rl, zl.Sync, nil
}

// Build wires every collaborator configured in conf. overrides, when set, replace the defaults
// (tests swap the oracle, calendar and vocabulary source this way).
func Build(conf *core.Config, logger core.Logger, overrides ...func(*assignment.Deps)) (*App, error) {
	app := &App{Conf: conf, Logger: logger}

	store, err := database.Open(conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening record store")
	}
	app.Store = store
	app.closers = append(app.closers, store.Close)

	app.Bus, err = newBus(conf, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.closers = append(app.closers, app.Bus.Close)

	deps := assignment.Deps{
		Store:           store,
		Namespace:       conf.Database.Namespace,
		OracleTimeout:   conf.Oracle.Timeout,
		Matcher:         newMatcher(conf),
		Vocabulary:      newVocabularySource(conf),
		Mailer:          newMailer(conf, logger),
		DigestTo:        conf.DigestTo,
		Bus:             app.Bus,
		Log:             logger,
		MaxCompletedAge: conf.MaxCompletedAge,
		AutoPrune:       conf.Poller.AutoPrune,
	}
	if conf.Oracle.URL != "" {
		deps.Oracle = oraclesvc.NewHTTPOracle(conf.Oracle.URL, conf.Oracle.Timeout)
	}
	google := calendarsvc.NewGoogle(conf.Calendar.ID, logger)
	deps.Provider, deps.Sink = google, google

	for _, override := range overrides {
		override(&deps)
	}

	app.Engine = assignment.NewService(deps)
	app.Courses = course.NewService(store, conf.Database.Namespace, app.Bus, logger)
	return app, nil
}

// StartBackground starts the consistency poller and, for a local vocabulary directory, the
// vocabulary watcher. Both stop when ctx is done or the App is closed.
func (app *App) StartBackground(ctx context.Context) error {
	p := poller.New(app.Engine, app.Bus, app.Conf.Poller.Interval, app.Logger)
	p.OnTransition = func(tr assignment.Transition) {
		app.Logger.Info("session changed", "transition", string(tr))
	}
	if err := p.Start(ctx); err != nil {
		return errors.Wrap(err, "starting poller")
	}
	app.closers = append(app.closers, func() error { p.Stop(); return nil })

	vocab := app.Conf.Vocab
	if !vocab.Watch || vocab.Source == "http" {
		return nil
	}
	w, err := vocabsvc.NewWatcher(vocab.Location, app.Engine, app.Logger)
	if err != nil {
		return err
	}
	if err = w.Start(ctx); err != nil {
		w.Stop()
		return err
	}
	app.closers = append(app.closers, func() error { w.Stop(); return nil })
	return nil
}

// Close releases everything in reverse order of acquisition and returns the first error.
func (app *App) Close() error {
	var first error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	app.closers = nil
	return first
}

// newMatcher picks how owned entries find their external duplicates. The similarity matcher still
// accepts whatever the fuzzy one accepts.
func newMatcher(conf *core.Config) calendar.Matcher {
	if conf.Calendar.Matcher == "similarity" {
		return calendar.AnyMatcher{calendar.FuzzyMatcher{}, calendar.SimilarityMatcher{Threshold: 0.8}}
	}
	return calendar.FuzzyMatcher{}
}

func newBus(conf *core.Config, logger core.Logger) (core.ChangeBus, error) {
	if conf.Redis.Addr == "" {
		return notifysvc.NewLocalBus(), nil
	}
	bus, err := notifysvc.NewRedisBus(conf.Redis.Addr, conf.Redis.Channel, logger)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to redis")
	}
	return bus, nil
}

func newVocabularySource(conf *core.Config) course.VocabularySource {
	if conf.Vocab.Source == "http" {
		return vocabsvc.NewHTTPSource(conf.Vocab.Location, conf.Oracle.Timeout)
	}
	return vocabsvc.NewDirSource(conf.Vocab.Location)
}

func newMailer(conf *core.Config, logger core.Logger) core.EmailService {
	switch {
	case conf.Debug || conf.TestMode:
		return emailsvc.NewConsoleService(conf.AppName, conf.DefaultFromEmail, logger)
	case conf.SendgridAPIKey != "":
		return emailsvc.NewSendgridService(conf.SendgridAPIKey, conf.AppName, conf.DefaultFromEmail, logger)
	default:
		return nil
	}
}
