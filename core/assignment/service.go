package assignment

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/kyleyee20/aevum/core"
	"github.com/kyleyee20/aevum/core/calendar"
	"github.com/kyleyee20/aevum/core/course"
	"github.com/kyleyee20/aevum/core/oracle"
)

// ErrNotConfigured is returned by operations whose collaborator was not provided.
var ErrNotConfigured = errors.New("not configured")

type Transition string

const (
	Unchanged Transition = "unchanged"
	SignedIn  Transition = "signed-in"
	SignedOut Transition = "signed-out"
)

type (
	// Deps wires the engine. Only Store is required.
	Deps struct {
		Store           core.RecordStore
		Namespace       string
		Oracle          oracle.Oracle
		OracleTimeout   time.Duration
		Matcher         calendar.Matcher
		Provider        calendar.Provider
		Sink            calendar.Sink
		Vocabulary      course.VocabularySource
		Mailer          core.EmailService
		DigestTo        string
		Bus             core.ChangeBus
		Log             core.Logger
		MaxCompletedAge int
		AutoPrune       bool
	}

	// Service is the prioritization engine. Every mutation and every poller reload runs under
	// one lock as a single read-modify-write of the record store.
	Service struct {
		mu sync.Mutex

		store      core.RecordStore
		namespace  string
		adapter    *oracle.Adapter
		reconciler *calendar.Reconciler
		provider   calendar.Provider
		sink       calendar.Sink
		vocabSrc   course.VocabularySource
		mailer     core.EmailService
		digestTo   string
		bus        core.ChangeBus
		log        core.Logger
		maxAge     int
		autoPrune  bool

		view view
	}

	// view is what the student currently sees. It is empty while signed out.
	view struct {
		authenticated bool
		state         State
	}

	ScoringReport struct {
		Scored    int           `json:"scored"`
		Discarded int           `json:"discarded"`
		Ops       []calendar.Op `json:"ops"`
	}

	ImportReport struct {
		Entries  int `json:"entries"`
		Skipped  int `json:"skipped"`
		Imported int `json:"imported"`
		Pruned   int `json:"pruned"`
	}

	PruneReport struct {
		Overdue   int `json:"overdue"`
		Completed int `json:"completed"`
	}

	mutation struct {
		source   string
		keys     []string
		needCred bool
		before   func(tx core.RecordTx) error // runs first, inside the same transaction
		actions  []Action
	}
)

func NewService(deps Deps) *Service {
	svc := &Service{
		store:      deps.Store,
		namespace:  deps.Namespace,
		reconciler: calendar.NewReconciler(deps.Matcher),
		provider:   deps.Provider,
		sink:       deps.Sink,
		vocabSrc:   deps.Vocabulary,
		mailer:     deps.Mailer,
		digestTo:   deps.DigestTo,
		bus:        deps.Bus,
		log:        deps.Log,
		maxAge:     deps.MaxCompletedAge,
		autoPrune:  deps.AutoPrune,
	}
	if deps.Oracle != nil {
		svc.adapter = oracle.NewAdapter(deps.Oracle, deps.OracleTimeout)
	}
	if svc.maxAge <= 0 {
		svc.maxAge = DefaultMaxCompletedAge
	}
	if svc.log == nil {
		svc.log = core.Discard
	}
	return svc
}

// ListActive returns the visible active assignments in the selected sort order.
func (svc *Service) ListActive() []View {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	today := core.Today()
	views := make([]View, 0, len(svc.view.state.Active))
	for _, a := range svc.view.state.Active {
		views = append(views, a.View(today))
	}
	Sort(views, svc.view.state.Sort)
	return views
}

func (svc *Service) ListCompleted() []Completed {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]Completed{}, svc.view.state.Completed...)
}

// ListCalendar returns owned entries plus every external entry not retired as a duplicate.
func (svc *Service) ListCalendar() []calendar.Entry {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return calendar.Merge(svc.view.state.Calendar)
}

func (svc *Service) SortOrder() SortOrder {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if !svc.view.state.Sort.Valid() {
		return ByRecommended
	}
	return svc.view.state.Sort
}

func (svc *Service) Authenticated() bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.view.authenticated
}

// AddAssignment appends a new editable assignment. An empty due date defaults to today.
func (svc *Service) AddAssignment(ctx context.Context, na NewAssignment) (Assignment, error) {
	out, err := svc.mutate(ctx, mutation{source: "add", needCred: true, actions: []Action{Add{New: na}}})
	if err != nil {
		return Assignment{}, err
	}
	return *out.Assignment, nil
}

// EditAssignment changes an assignment. Changing its title or due date retires its owned entry.
func (svc *Service) EditAssignment(ctx context.Context, id string, e Edit) (Assignment, error) {
	out, err := svc.mutate(ctx, mutation{source: "edit", needCred: true, actions: []Action{EditAction{ID: id, Edit: e}}})
	if err != nil {
		return Assignment{}, err
	}
	return *out.Assignment, nil
}

// DeleteAssignment removes an assignment and its owned entry. No snapshot is taken.
func (svc *Service) DeleteAssignment(ctx context.Context, id string) error {
	_, err := svc.mutate(ctx, mutation{source: "delete", needCred: true, actions: []Action{Delete{ID: id}}})
	return err
}

// CompleteAssignment moves an assignment into the completed history with its current
// recommendation and removes its owned entry.
func (svc *Service) CompleteAssignment(ctx context.Context, id string) (Completed, error) {
	out, err := svc.mutate(ctx, mutation{source: "complete", needCred: true, actions: []Action{Complete{ID: id}}})
	if err != nil {
		return Completed{}, err
	}
	return *out.Completed, nil
}

// UndoCompletion re-creates an active assignment, under a new id and with a neutral weight, from
// a completed one. Its calendar entry is not restored.
func (svc *Service) UndoCompletion(ctx context.Context, completedID string) (Assignment, error) {
	out, err := svc.mutate(ctx, mutation{source: "undo", needCred: true, actions: []Action{Undo{CompletedID: completedID}}})
	if err != nil {
		return Assignment{}, err
	}
	return *out.Assignment, nil
}

// PruneOverdue deletes assignments due strictly before today, with their owned entries.
func (svc *Service) PruneOverdue(ctx context.Context) (int, error) {
	out, err := svc.mutate(ctx, mutation{source: "prune", actions: []Action{PruneOverdue{}}})
	return out.Pruned, err
}

// PruneOldCompleted deletes completed assignments older than maxAgeDays (the configured maximum
// when maxAgeDays <= 0).
func (svc *Service) PruneOldCompleted(ctx context.Context, maxAgeDays int) (int, error) {
	if maxAgeDays <= 0 {
		maxAgeDays = svc.maxAge
	}
	out, err := svc.mutate(ctx, mutation{source: "prune", actions: []Action{PruneCompleted{MaxAgeDays: maxAgeDays}}})
	return out.Pruned, err
}

// Prune runs PruneOverdue and PruneOldCompleted (with the configured maximum age) together.
func (svc *Service) Prune(ctx context.Context) (PruneReport, error) {
	var report PruneReport
	svc.mu.Lock()
	defer svc.mu.Unlock()
	out, err := svc.mutateLocked(ctx, mutation{source: "prune", actions: []Action{PruneOverdue{}}})
	if err != nil {
		return report, err
	}
	report.Overdue = out.Pruned
	out, err = svc.mutateLocked(ctx, mutation{source: "prune", actions: []Action{PruneCompleted{MaxAgeDays: svc.maxAge}}})
	report.Completed = out.Pruned
	return report, err
}

// ResetAll drops every active assignment and owned entry. History, profiles and vocabulary stay.
func (svc *Service) ResetAll(ctx context.Context) error {
	_, err := svc.mutate(ctx, mutation{source: "reset", needCred: true, actions: []Action{ResetAll{}}})
	return err
}

func (svc *Service) SetSortOrder(ctx context.Context, order SortOrder) error {
	_, err := svc.mutate(ctx, mutation{source: "sort", keys: []string{core.KeySortOrder}, actions: []Action{SetSort{Order: order}}})
	return err
}

// RunScoring encodes every active assignment, calls the oracle, and reconciles the calendar with
// the scores. The oracle call runs outside the engine lock; only one may be in flight.
func (svc *Service) RunScoring(ctx context.Context) (ScoringReport, error) {
	if svc.adapter == nil {
		return ScoringReport{}, errors.Wrap(core.ErrOracleUnavailable, "no scoring oracle configured")
	}

	var batch oracle.Batch
	svc.mu.Lock()
	err := svc.store.View(svc.namespace, func(tx core.RecordTx) error {
		if err := core.RequireCredential(tx); err != nil {
			return err
		}
		s, err := loadState(tx, svc.log)
		if err != nil {
			return err
		}
		vocab, err := course.LoadVocabulary(tx, svc.log)
		if err != nil {
			return err
		}
		inputs := make([]oracle.Input, 0, len(s.Active))
		for _, a := range s.Active {
			inputs = append(inputs, oracle.Input{
				ID:       a.ID,
				Key:      a.Key(),
				Title:    a.Title,
				DueDate:  a.DueDate,
				Strength: a.Strength,
			})
		}
		batch = oracle.Encode(inputs, vocab, core.Today())
		return nil
	})
	svc.mu.Unlock()
	if err != nil {
		return ScoringReport{}, err
	}

	res, err := svc.adapter.Score(ctx, batch)
	if err != nil {
		if errors.Is(err, core.ErrOracleUnavailable) {
			svc.log.Warn("scoring failed", "assignments", batch.Len(), "error", err)
		}
		return ScoringReport{}, err
	}

	out, err := svc.mutate(ctx, mutation{source: "scoring", needCred: true, actions: []Action{Score{Result: res}}})
	if err != nil {
		return ScoringReport{}, err
	}
	if out.Discarded > 0 {
		svc.log.Info("discarded stale scores", "count", out.Discarded)
	}
	svc.sendDigest()
	return ScoringReport{Scored: batch.Len() - out.Discarded, Discarded: out.Discarded, Ops: out.Ops}, nil
}

// ImportCalendar fetches the external calendar, replaces its snapshot, and adds an assignment for
// every entry naming a known course.
func (svc *Service) ImportCalendar(ctx context.Context) (ImportReport, error) {
	if svc.provider == nil {
		return ImportReport{}, errors.Wrap(ErrNotConfigured, "calendar provider")
	}
	cred, _, err := svc.session()
	if err != nil {
		return ImportReport{}, err
	}
	raws, err := svc.provider.Events(ctx, cred)
	if err != nil {
		return ImportReport{}, errors.Wrap(err, "fetching calendar")
	}
	return svc.applyImport(ctx, raws, nil, "")
}

// SelectInstitution fetches and caches the course vocabulary of institution, then refreshes
// every weight that was not manually overridden.
func (svc *Service) SelectInstitution(ctx context.Context, institution string) error {
	institution = core.CleanString(institution, true /* lower */)
	if institution == "" {
		return core.NewValidationError(
			errors.New("invalid input"),
			core.FieldError{Field: "institution", Error: "this field cannot be blank"},
		)
	}
	if svc.vocabSrc == nil {
		return errors.Wrap(ErrNotConfigured, "vocabulary source")
	}
	if _, _, err := svc.session(); err != nil {
		return err
	}
	rows, err := svc.vocabSrc.FetchTable(ctx, institution)
	if err != nil {
		return errors.Wrapf(err, "fetching %s vocabulary", institution)
	}
	return svc.storeVocabulary(ctx, institution, course.FoldTable(rows))
}

// RefreshVocabulary re-fetches the vocabulary of the selected institution, if any.
func (svc *Service) RefreshVocabulary(ctx context.Context) error {
	if svc.vocabSrc == nil {
		return errors.Wrap(ErrNotConfigured, "vocabulary source")
	}
	_, institution, err := svc.session()
	if err != nil || institution == "" {
		return err
	}
	rows, err := svc.vocabSrc.FetchTable(ctx, institution)
	if err != nil {
		return errors.Wrapf(err, "fetching %s vocabulary", institution)
	}
	return svc.storeVocabulary(ctx, institution, course.FoldTable(rows))
}

// Sync fetches the external calendar and the selected institution's vocabulary concurrently, then
// applies both in one transaction.
func (svc *Service) Sync(ctx context.Context) (ImportReport, error) {
	cred, institution, err := svc.session()
	if err != nil {
		return ImportReport{}, err
	}

	var (
		raws []calendar.RawEvent
		rows []course.TableRow
	)
	g, gctx := errgroup.WithContext(ctx)
	if svc.provider != nil {
		g.Go(func() (err error) {
			raws, err = svc.provider.Events(gctx, cred)
			return errors.Wrap(err, "fetching calendar")
		})
	}
	if svc.vocabSrc != nil && institution != "" {
		g.Go(func() (err error) {
			rows, err = svc.vocabSrc.FetchTable(gctx, institution)
			return errors.Wrapf(err, "fetching %s vocabulary", institution)
		})
	}
	if err := g.Wait(); err != nil {
		return ImportReport{}, err
	}

	var vocab course.Vocabulary
	if rows != nil {
		vocab = course.FoldTable(rows)
	}
	if svc.provider == nil {
		if rows == nil {
			return ImportReport{}, nil
		}
		return ImportReport{}, svc.storeVocabulary(ctx, institution, vocab)
	}
	return svc.applyImport(ctx, raws, vocab, institution)
}

// SignIn stores the access credential. Acquiring it is up to the caller.
func (svc *Service) SignIn(ctx context.Context, token string) error {
	token = core.CleanString(token)
	if token == "" {
		return core.NewValidationError(
			core.ErrMissingCredential,
			core.FieldError{Field: "token", Error: "this field cannot be blank"},
		)
	}
	return svc.setCredential(ctx, token)
}

// SignOut forgets the access credential. Stored data is kept for the next sign-in.
func (svc *Service) SignOut(ctx context.Context) error {
	return svc.setCredential(ctx, "")
}

// Refresh re-reads the credential and the store, the way the consistency poller does on every
// tick. Signing in reloads everything (pruning stale data when AutoPrune is set); signing out only
// clears the view. Refresh never reports a missing credential.
func (svc *Service) Refresh(ctx context.Context) (Transition, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	var (
		cred     string
		s        State
		resolver *course.Resolver
	)
	err := svc.store.View(svc.namespace, func(tx core.RecordTx) (err error) {
		if cred, err = core.LoadCredential(tx); err != nil || cred == "" {
			return err
		}
		if s, err = loadState(tx, svc.log); err != nil {
			return err
		}
		resolver, err = course.LoadResolver(tx, svc.log)
		return err
	})
	if err != nil {
		return Unchanged, err
	}

	was := svc.view.authenticated
	if cred == "" {
		if !was {
			return Unchanged, nil
		}
		svc.setView(State{}, false)
		svc.log.Info("signed out, view cleared")
		return SignedOut, nil
	}

	var actions []Action
	if !was && svc.autoPrune {
		actions = append(actions, PruneOverdue{}, PruneCompleted{MaxAgeDays: svc.maxAge})
	}
	if stale(s, resolver) {
		actions = append(actions, Reresolve{})
	}
	if len(actions) > 0 {
		if _, err := svc.mutateLocked(ctx, mutation{source: "poller", actions: actions}); err != nil {
			return Unchanged, err
		}
	} else {
		svc.setView(s, true)
	}

	if was {
		return Unchanged, nil
	}
	svc.log.Info("signed in, view reloaded", "active", len(svc.view.state.Active))
	return SignedIn, nil
}

func (svc *Service) mutate(ctx context.Context, m mutation) (Outcome, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.mutateLocked(ctx, m)
}

// mutateLocked runs m as one store transaction, then refreshes the view, mirrors calendar ops and
// announces the change. The caller holds svc.mu.
func (svc *Service) mutateLocked(ctx context.Context, m mutation) (Outcome, error) {
	var (
		total Outcome
		next  State
		cred  string
	)
	err := svc.store.Update(svc.namespace, func(tx core.RecordTx) error {
		var err error
		if cred, err = core.LoadCredential(tx); err != nil {
			return err
		}
		if m.needCred && cred == "" {
			return core.ErrMissingCredential
		}
		if m.before != nil {
			if err = m.before(tx); err != nil {
				return err
			}
		}
		if next, err = loadState(tx, svc.log); err != nil {
			return err
		}
		env, err := svc.env(tx)
		if err != nil {
			return err
		}
		for _, a := range m.actions {
			var out Outcome
			if next, out, err = Reduce(next, a, env); err != nil {
				return err
			}
			total.merge(out)
		}
		return saveState(tx, next)
	})
	if err != nil {
		return Outcome{}, err
	}

	svc.setView(next, cred != "")
	svc.mirror(ctx, cred, total.Ops)
	keys := m.keys
	if len(keys) == 0 {
		keys = []string{core.KeyAssignments, core.KeyCompleted, core.KeyOwnedEntries, core.KeyRetiredEntries, core.KeyDismissed}
	}
	core.Announce(ctx, svc.bus, svc.log, svc.namespace, m.source, keys...)
	return total, nil
}

func (svc *Service) env(tx core.RecordTx) (Env, error) {
	profiles, err := course.LoadProfiles(tx, svc.log)
	if err != nil {
		return Env{}, err
	}
	vocab, err := course.LoadVocabulary(tx, svc.log)
	if err != nil {
		return Env{}, err
	}
	return Env{
		Today:      core.Today(),
		Resolver:   course.NewResolver(profiles, vocab),
		Vocabulary: vocab,
		Reconciler: svc.reconciler,
	}, nil
}

// setView publishes s to the student, hiding active assignments that were already completed.
func (svc *Service) setView(s State, authenticated bool) {
	if !authenticated {
		svc.view = view{}
		return
	}
	done := make(map[string]bool, len(s.Completed))
	for _, c := range s.Completed {
		done[c.Key()] = true
	}
	visible := make([]Assignment, 0, len(s.Active))
	for _, a := range s.Active {
		if !done[a.Key()] {
			visible = append(visible, a)
		}
	}
	s.Active = visible
	svc.view = view{authenticated: true, state: s}
}

// mirror replays ops on the sink. A failure is logged: the store stays the source of truth.
func (svc *Service) mirror(ctx context.Context, cred string, ops []calendar.Op) {
	if svc.sink == nil || cred == "" || len(ops) == 0 {
		return
	}
	if err := svc.sink.Apply(ctx, cred, ops); err != nil {
		svc.log.Error("mirroring calendar ops failed", "ops", len(ops), "error", err)
	}
}

// session returns the stored credential and institution, refusing when signed out.
func (svc *Service) session() (cred, institution string, err error) {
	err = svc.store.View(svc.namespace, func(tx core.RecordTx) error {
		if cred, err = core.LoadCredential(tx); err != nil {
			return err
		}
		if cred == "" {
			return core.ErrMissingCredential
		}
		institution, err = core.LoadString(tx, core.KeyInstitution)
		return err
	})
	return cred, institution, err
}

func (svc *Service) setCredential(ctx context.Context, token string) error {
	err := svc.store.Update(svc.namespace, func(tx core.RecordTx) error {
		return core.SaveString(tx, core.KeyCredential, token)
	})
	if err != nil {
		return err
	}
	core.Announce(ctx, svc.bus, svc.log, svc.namespace, "session", core.KeyCredential)
	_, err = svc.Refresh(ctx)
	return err
}

func (svc *Service) storeVocabulary(ctx context.Context, institution string, vocab course.Vocabulary) error {
	_, err := svc.mutate(ctx, mutation{
		source:   "vocabulary",
		keys:     []string{core.KeyInstitution, core.KeyVocabulary, core.KeyAssignments},
		needCred: true,
		before:   saveVocabulary(institution, vocab),
		actions:  []Action{Reresolve{}},
	})
	return err
}

func (svc *Service) applyImport(ctx context.Context, raws []calendar.RawEvent, vocab course.Vocabulary, institution string) (ImportReport, error) {
	report := ImportReport{}
	entries := make([]calendar.Entry, 0, len(raws))
	for _, raw := range raws {
		e, err := calendar.Normalize(raw)
		if err != nil {
			report.Skipped++
			svc.log.Debug("skipping calendar event", "error", err)
			continue
		}
		entries = append(entries, e)
	}
	report.Entries = len(entries)

	m := mutation{
		source:   "import",
		keys:     []string{core.KeyExternalEntries, core.KeyRetiredEntries, core.KeyDismissed, core.KeyAssignments},
		needCred: true,
		actions:  []Action{Import{Entries: entries}, Reresolve{}},
	}
	if svc.autoPrune {
		m.actions = append([]Action{PruneOverdue{}}, m.actions...)
	}
	if vocab != nil {
		m.before = saveVocabulary(institution, vocab)
	}
	out, err := svc.mutate(ctx, m)
	if err != nil {
		return ImportReport{}, err
	}
	report.Imported = out.Imported
	report.Pruned = out.Pruned
	if report.Imported > 0 {
		svc.log.Info("imported assignments from calendar", "count", report.Imported)
	}
	return report, nil
}

func saveVocabulary(institution string, vocab course.Vocabulary) func(tx core.RecordTx) error {
	return func(tx core.RecordTx) error {
		if err := core.SaveString(tx, core.KeyInstitution, institution); err != nil {
			return err
		}
		if vocab == nil {
			vocab = course.Vocabulary{}
		}
		return core.SaveRecord(tx, core.KeyVocabulary, vocab)
	}
}

// stale reports whether some weight that was not overridden no longer matches its resolution.
func stale(s State, r *course.Resolver) bool {
	for _, a := range s.Active {
		if !a.ManualOverride && r.Resolve(a.Title) != a.Strength {
			return true
		}
	}
	return false
}

func (o *Outcome) merge(other Outcome) {
	o.Ops = append(o.Ops, other.Ops...)
	if other.Assignment != nil {
		o.Assignment = other.Assignment
	}
	if other.Completed != nil {
		o.Completed = other.Completed
	}
	o.Discarded += other.Discarded
	o.Imported += other.Imported
	o.Pruned += other.Pruned
}
