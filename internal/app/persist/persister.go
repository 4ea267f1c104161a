package persist

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/moodbox/internal/app/store"
)

const saveTimeout = 5 * time.Second

// Persister restores the playback cursor on startup and writes it back after
// every store change.
type Persister struct {
	backend Backend
	pending chan Snapshot
	done    chan struct{}
}

// NewPersister creates a persister on top of backend.
func NewPersister(backend Backend) *Persister {
	return &Persister{
		backend: backend,
		pending: make(chan Snapshot, 1),
		done:    make(chan struct{}),
	}
}

// FromState extracts the persisted fields of a store state.
func FromState(st store.State) Snapshot {
	return Snapshot{
		CurrentPlaylist: st.CurrentPlaylist,
		CurrentMusic:    st.CurrentMusic,
	}
}

// Restore applies the saved snapshot to s. It reports whether a snapshot was
// found. Call it before the store is exposed to clients.
func (p *Persister) Restore(ctx context.Context, s *store.Store) (bool, error) {
	snap, ok, err := p.backend.Load(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to load snapshot")
	}
	if !ok {
		return false, nil
	}

	s.SetCurrentPlaylist(snap.CurrentPlaylist)
	s.SetCurrentMusic(snap.CurrentMusic)

	zlog.Info().Msgf("restored playback position: playlist=%q index=%d", snap.CurrentPlaylist, snap.CurrentMusic)
	return true, nil
}

// Attach subscribes to s and queues a snapshot on every change. It returns the
// unsubscribe function.
func (p *Persister) Attach(s *store.Store) func() {
	return s.Subscribe(func(st store.State) {
		p.enqueue(FromState(st))
	})
}

// enqueue never blocks: an unsaved snapshot is replaced by the newer one.
func (p *Persister) enqueue(snap Snapshot) {
	for {
		select {
		case p.pending <- snap:
			return
		default:
		}
		select {
		case <-p.pending:
		default:
		}
	}
}

// Run writes queued snapshots until ctx is done, then flushes the last one.
func (p *Persister) Run(ctx context.Context) {
	defer close(p.done)

	for {
		select {
		case snap := <-p.pending:
			p.save(snap)
		case <-ctx.Done():
			select {
			case snap := <-p.pending:
				p.save(snap)
			default:
			}
			return
		}
	}
}

// Done is closed when Run has returned.
func (p *Persister) Done() <-chan struct{} {
	return p.done
}

func (p *Persister) save(snap Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := p.backend.Save(ctx, snap); err != nil {
		zlog.Error().Err(err).Msg("failed to save playback snapshot")
		return
	}
	zlog.Debug().Msgf("saved playback snapshot: playlist=%q index=%d", snap.CurrentPlaylist, snap.CurrentMusic)
}
