// Package cached puts a read-through cache in front of a usuarios repository.
package cached

import (
	"context"
	"sync"

	"github.com/geocoder89/usuarios/internal/domain/usuario"
	"github.com/geocoder89/usuarios/internal/observability"
)

type Backend interface {
	List(ctx context.Context) ([]usuario.Usuario, error)
	GetByID(ctx context.Context, id int64) (usuario.Usuario, error)
	Create(ctx context.Context, req usuario.CreateUsuarioRequest) (usuario.Usuario, error)
	Update(ctx context.Context, id int64, req usuario.UpdateUsuarioRequest) (usuario.Usuario, error)
	Delete(ctx context.Context, id int64) error
}

type Store interface {
	Get(ctx context.Context, id int64) (usuario.Usuario, bool)
	Set(ctx context.Context, u usuario.Usuario)
	Delete(ctx context.Context, id int64)
}

// UsuariosRepo tracks get-one misses that are still reading the backend.
// Update and Delete bump the generation of the id they touch, and a miss
// only fills the store when the generation it started with is unchanged.
type UsuariosRepo struct {
	next  Backend
	store Store
	prom  *observability.Prom

	mu      sync.Mutex
	flights map[int64]*flight
}

type flight struct {
	readers int
	gen     uint64
}

// NewUsuariosRepo wraps next. prom may be nil.
func NewUsuariosRepo(next Backend, store Store, prom *observability.Prom) *UsuariosRepo {
	return &UsuariosRepo{
		next:    next,
		store:   store,
		prom:    prom,
		flights: make(map[int64]*flight),
	}
}

// List always goes to the backend; only single rows are cached.
func (r *UsuariosRepo) List(ctx context.Context) ([]usuario.Usuario, error) {
	return r.next.List(ctx)
}

func (r *UsuariosRepo) GetByID(ctx context.Context, id int64) (usuario.Usuario, error) {
	if u, ok := r.store.Get(ctx, id); ok {
		r.observe(true)
		return u, nil
	}
	r.observe(false)

	gen := r.begin(id)

	u, err := r.next.GetByID(ctx, id)

	r.finish(ctx, id, gen, u, err == nil)

	if err != nil {
		return usuario.Usuario{}, err
	}
	return u, nil
}

func (r *UsuariosRepo) Create(ctx context.Context, req usuario.CreateUsuarioRequest) (usuario.Usuario, error) {
	u, err := r.next.Create(ctx, req)
	if err != nil {
		return usuario.Usuario{}, err
	}

	r.store.Set(ctx, u)
	return u, nil
}

func (r *UsuariosRepo) Update(ctx context.Context, id int64, req usuario.UpdateUsuarioRequest) (usuario.Usuario, error) {
	r.invalidate(ctx, id)

	u, err := r.next.Update(ctx, id, req)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.bumpLocked(id)
	if err != nil {
		r.store.Delete(ctx, id)
		return usuario.Usuario{}, err
	}

	r.store.Set(ctx, u)
	return u, nil
}

func (r *UsuariosRepo) Delete(ctx context.Context, id int64) error {
	r.invalidate(ctx, id)

	err := r.next.Delete(ctx, id)

	r.invalidate(ctx, id)

	return err
}

// begin registers a miss on id and returns the generation it saw.
func (r *UsuariosRepo) begin(id int64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.flights[id]
	if !ok {
		f = &flight{}
		r.flights[id] = f
	}
	f.readers++

	return f.gen
}

// finish stores u only if no write touched id since begin.
func (r *UsuariosRepo) finish(ctx context.Context, id int64, gen uint64, u usuario.Usuario, found bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.flights[id]
	f.readers--
	current := f.gen == gen

	if f.readers == 0 {
		delete(r.flights, id)
	}

	if found && current {
		r.store.Set(ctx, u)
	}
}

func (r *UsuariosRepo) invalidate(ctx context.Context, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bumpLocked(id)
	r.store.Delete(ctx, id)
}

func (r *UsuariosRepo) bumpLocked(id int64) {
	if f, ok := r.flights[id]; ok {
		f.gen++
	}
}

func (r *UsuariosRepo) observe(hit bool) {
	if r.prom != nil {
		r.prom.ObserveCache(hit)
	}
}
