package usuario

import "errors"

type Usuario struct {
	ID     int64  `json:"id" db:"id"`
	Nombre string `json:"nombre" db:"nombre"`
	Email  string `json:"email" db:"email"`
}

var ErrNotFound = errors.New("usuario not found")

// pointers so "required" means the key was sent; an empty string still counts
type CreateUsuarioRequest struct {
	Nombre *string `json:"nombre" binding:"required"`
	Email  *string `json:"email" binding:"required"`
}

// a partial update: nil fields are left untouched in storage
type UpdateUsuarioRequest struct {
	Nombre *string
	Email  *string
}

func (r UpdateUsuarioRequest) Empty() bool {
	return r.Nombre == nil && r.Email == nil
}
