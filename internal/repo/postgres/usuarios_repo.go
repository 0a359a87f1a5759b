package postgres

import (
	"context"

	"github.com/geocoder89/usuarios/internal/db"
	"github.com/geocoder89/usuarios/internal/domain/usuario"
)

const (
	sqlListUsuarios = `SELECT id, nombre, email FROM usuarios ORDER BY id`

	sqlGetUsuario = `SELECT id, nombre, email FROM usuarios WHERE id = @id`

	sqlInsertUsuario = `
		INSERT INTO usuarios (nombre, email)
		VALUES (@nombre, @email)
		RETURNING id`

	sqlDeleteUsuario = `DELETE FROM usuarios WHERE id = @id`
)

type UsuariosRepo struct {
	exec *db.Executor
}

func NewUsuariosRepo(exec *db.Executor) *UsuariosRepo {
	return &UsuariosRepo{exec: exec}
}

func (r *UsuariosRepo) List(ctx context.Context) ([]usuario.Usuario, error) {
	res, err := db.Execute[usuario.Usuario](ctx, r.exec, sqlListUsuarios, nil, false)
	if err != nil {
		return nil, err
	}

	return res.Rows, nil
}

func (r *UsuariosRepo) GetByID(ctx context.Context, id int64) (usuario.Usuario, error) {
	res, err := db.Execute[usuario.Usuario](ctx, r.exec, sqlGetUsuario, db.Params{"id": id}, true)
	if err != nil {
		return usuario.Usuario{}, err
	}

	if res.Row == nil {
		return usuario.Usuario{}, usuario.ErrNotFound
	}

	return *res.Row, nil
}

// Create returns the stored record assembled from the request and the id
// generated by the database.
func (r *UsuariosRepo) Create(ctx context.Context, req usuario.CreateUsuarioRequest) (usuario.Usuario, error) {
	nombre, email := *req.Nombre, *req.Email

	id, err := r.exec.InsertReturningID(ctx, sqlInsertUsuario, db.Params{
		"nombre": nombre,
		"email":  email,
	})
	if err != nil {
		return usuario.Usuario{}, err
	}

	return usuario.Usuario{ID: id, Nombre: nombre, Email: email}, nil
}

// Update changes only the fields set in req and returns the row as stored
// afterwards.
func (r *UsuariosRepo) Update(ctx context.Context, id int64, req usuario.UpdateUsuarioRequest) (usuario.Usuario, error) {
	b := db.NewSetBuilder("usuarios", "nombre", "email")

	if req.Nombre != nil {
		if err := b.Set("nombre", *req.Nombre); err != nil {
			return usuario.Usuario{}, err
		}
	}

	if req.Email != nil {
		if err := b.Set("email", *req.Email); err != nil {
			return usuario.Usuario{}, err
		}
	}

	query, params, err := b.Build("id", id)
	if err != nil {
		return usuario.Usuario{}, err
	}

	res, err := db.Execute[usuario.Usuario](ctx, r.exec, query, params, false)
	if err != nil {
		return usuario.Usuario{}, err
	}

	if res.RowsAffected == 0 {
		return usuario.Usuario{}, usuario.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *UsuariosRepo) Delete(ctx context.Context, id int64) error {
	res, err := db.Execute[usuario.Usuario](ctx, r.exec, sqlDeleteUsuario, db.Params{"id": id}, false)
	if err != nil {
		return err
	}

	// if no rows were deleted the row vanished between lookup and delete
	if res.RowsAffected == 0 {
		return usuario.ErrNotFound
	}

	return nil
}
