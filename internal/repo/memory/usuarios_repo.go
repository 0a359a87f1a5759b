package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geocoder89/usuarios/internal/domain/usuario"
)

// UsuariosRepo keeps rows in a map. Ids come from a counter and are never
// reused, like an identity column.
type UsuariosRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]usuario.Usuario
}

func NewUsuariosRepo() *UsuariosRepo {
	return &UsuariosRepo{
		items: make(map[int64]usuario.Usuario),
	}
}

func (r *UsuariosRepo) List(_ context.Context) ([]usuario.Usuario, error) {
	r.mu.RLock()
	out := make([]usuario.Usuario, 0, len(r.items))
	for _, u := range r.items {
		out = append(out, u)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *UsuariosRepo) GetByID(_ context.Context, id int64) (usuario.Usuario, error) {
	r.mu.RLock()
	u, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return usuario.Usuario{}, usuario.ErrNotFound
	}

	return u, nil
}

func (r *UsuariosRepo) Create(_ context.Context, req usuario.CreateUsuarioRequest) (usuario.Usuario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	u := usuario.Usuario{
		ID:     r.nextID,
		Nombre: *req.Nombre,
		Email:  *req.Email,
	}
	r.items[u.ID] = u

	return u, nil
}

func (r *UsuariosRepo) Update(_ context.Context, id int64, req usuario.UpdateUsuarioRequest) (usuario.Usuario, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return usuario.Usuario{}, usuario.ErrNotFound
	}

	if req.Nombre != nil {
		u.Nombre = *req.Nombre
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	r.items[id] = u

	return u, nil
}

func (r *UsuariosRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return usuario.ErrNotFound
	}
	delete(r.items, id)

	return nil
}

func (r *UsuariosRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
