package contacts

import (
	"context"
	"sync"

	"obrolan/server/internal/models"
	"obrolan/server/internal/realtime"

	"github.com/sirupsen/logrus"
)

// TouchesUser matches contacts events where userID is an end of the old or
// the new row.
func TouchesUser(userID string) realtime.Predicate {
	return func(ev realtime.Event) bool {
		var c models.Contact
		if len(ev.New) > 0 && ev.DecodeNew(&c) == nil && c.Involves(userID) {
			return true
		}
		c = models.Contact{}
		if len(ev.Old) > 0 && ev.DecodeOld(&c) == nil && c.Involves(userID) {
			return true
		}
		return false
	}
}

// ReconcilerCallbacks are invoked from the reconciler's goroutines. Both are
// optional.
type ReconcilerCallbacks struct {
	// OnIncomingRequest fires when someone sends the viewer a request.
	OnIncomingRequest func(models.ContactWithProfile)
	// OnViewChanged receives a copy of the projection after every change.
	OnViewChanged func(models.RelationshipView)
}

// Reconciler keeps a best-effort projection of one viewer's relationship
// view in step with the change feed. Events patch the projection
// optimistically; every event also schedules an authoritative refetch that
// replaces the projection wholesale. A refetch older than the newest one
// already installed is dropped.
type Reconciler struct {
	m        *Manager
	feed     realtime.Feed
	viewerID string
	cb       ReconcilerCallbacks
	log      logrus.FieldLogger

	// spawn runs background refetches; tests swap it for a synchronous call.
	spawn func(func())

	mu        sync.Mutex
	view      models.RelationshipView
	requested uint64
	installed uint64
}

// NewReconciler creates a Reconciler for viewerID
func (m *Manager) NewReconciler(feed realtime.Feed, viewerID string, cb ReconcilerCallbacks) *Reconciler {
	return &Reconciler{
		m:        m,
		feed:     feed,
		viewerID: viewerID,
		cb:       cb,
		log:      m.log.WithField("viewer", viewerID),
		spawn:    func(f func()) { go f() },
		view:     models.EmptyRelationshipView(),
	}
}

// Run subscribes to the feed, loads the initial view and applies events until
// ctx is done or the feed closes.
func (r *Reconciler) Run(ctx context.Context) error {
	events, cancel, err := r.feed.Subscribe(ctx, realtime.TableContacts, TouchesUser(r.viewerID))
	if err != nil {
		return err
	}
	defer cancel()

	if err := r.Refresh(ctx); err != nil {
		r.log.WithError(err).Warn("initial relationship fetch failed")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.Apply(ctx, ev)
		}
	}
}

// View returns a copy of the current projection
func (r *Reconciler) View() models.RelationshipView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneView(r.view)
}

// Refresh fetches the authoritative view and installs it unless a newer
// fetch has already been installed. On error the projection is kept.
func (r *Reconciler) Refresh(ctx context.Context) error {
	r.mu.Lock()
	r.requested++
	gen := r.requested
	r.mu.Unlock()

	view, err := r.m.relationshipView(ctx, r.viewerID)
	if err != nil {
		return err
	}
	r.install(gen, view)
	return nil
}

// install replaces the projection with view fetched as generation gen
func (r *Reconciler) install(gen uint64, view models.RelationshipView) bool {
	r.mu.Lock()
	if gen < r.installed {
		r.mu.Unlock()
		return false
	}
	r.installed = gen
	r.view = view
	snapshot := cloneView(r.view)
	r.mu.Unlock()

	r.emit(snapshot)
	return true
}

func (r *Reconciler) refreshInBackground(ctx context.Context) {
	r.spawn(func() {
		if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
			r.log.WithError(err).Warn("relationship refetch failed")
		}
	})
}

// Apply reconciles one contacts event into the projection
func (r *Reconciler) Apply(ctx context.Context, ev realtime.Event) {
	switch ev.Type {
	case realtime.EventInsert:
		var edge models.Contact
		if err := ev.DecodeNew(&edge); err != nil {
			r.log.WithError(err).Warn("undecodable contacts insert")
			break
		}
		if edge.Status == models.ContactPending && edge.TargetID == r.viewerID && r.cb.OnIncomingRequest != nil {
			if entry, ok := r.m.entryFor(ctx, &edge, r.viewerID); ok {
				r.cb.OnIncomingRequest(entry)
			}
		}

	case realtime.EventUpdate:
		var before, after models.Contact
		if err := ev.DecodeNew(&after); err != nil {
			r.log.WithError(err).Warn("undecodable contacts update")
			break
		}
		if err := ev.DecodeOld(&before); err != nil {
			// Without the old row an accept cannot be told apart; the refetch covers it.
			r.log.WithField("edge", after.ID).WithError(err).Debug("contacts update without old row, not splicing")
		} else if before.Status == models.ContactPending && after.Status == models.ContactAccepted {
			if entry, ok := r.m.entryFor(ctx, &after, r.viewerID); ok {
				r.patch(func(v *models.RelationshipView) {
					v.IncomingRequests = withoutEdge(v.IncomingRequests, after.ID)
					if !hasEdge(v.Friends, after.ID) {
						v.Friends = append([]models.ContactWithProfile{entry}, v.Friends...)
					}
				})
			}
		}

	case realtime.EventDelete:
		var before models.Contact
		if err := ev.DecodeOld(&before); err != nil {
			r.log.WithError(err).Warn("undecodable contacts delete")
			break
		}
		r.patch(func(v *models.RelationshipView) {
			v.Friends = withoutEdge(v.Friends, before.ID)
			v.IncomingRequests = withoutEdge(v.IncomingRequests, before.ID)
		})
	}

	r.refreshInBackground(ctx)
}

// patch applies an optimistic change to the projection
func (r *Reconciler) patch(fn func(*models.RelationshipView)) {
	r.mu.Lock()
	fn(&r.view)
	snapshot := cloneView(r.view)
	r.mu.Unlock()

	r.emit(snapshot)
}

func (r *Reconciler) emit(view models.RelationshipView) {
	if r.cb.OnViewChanged != nil {
		r.cb.OnViewChanged(view)
	}
}

func cloneView(v models.RelationshipView) models.RelationshipView {
	out := models.RelationshipView{
		Friends:          make([]models.ContactWithProfile, len(v.Friends)),
		IncomingRequests: make([]models.ContactWithProfile, len(v.IncomingRequests)),
	}
	copy(out.Friends, v.Friends)
	copy(out.IncomingRequests, v.IncomingRequests)
	return out
}

func hasEdge(list []models.ContactWithProfile, edgeID string) bool {
	for _, e := range list {
		if e.RelationshipID == edgeID {
			return true
		}
	}
	return false
}

func withoutEdge(list []models.ContactWithProfile, edgeID string) []models.ContactWithProfile {
	out := make([]models.ContactWithProfile, 0, len(list))
	for _, e := range list {
		if e.RelationshipID != edgeID {
			out = append(out, e)
		}
	}
	return out
}
