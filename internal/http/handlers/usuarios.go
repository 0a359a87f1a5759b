package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/geocoder89/usuarios/internal/domain/usuario"
	"github.com/gin-gonic/gin"
)

type UsuariosStore interface {
	List(ctx context.Context) ([]usuario.Usuario, error)
	GetByID(ctx context.Context, id int64) (usuario.Usuario, error)
	Create(ctx context.Context, req usuario.CreateUsuarioRequest) (usuario.Usuario, error)
	Update(ctx context.Context, id int64, req usuario.UpdateUsuarioRequest) (usuario.Usuario, error)
	Delete(ctx context.Context, id int64) error
}

type UsuariosHandler struct {
	repo UsuariosStore
}

func NewUsuariosHandler(repo UsuariosStore) *UsuariosHandler {
	return &UsuariosHandler{repo: repo}
}

func (h *UsuariosHandler) ListUsuarios(ctx *gin.Context) {
	usuarios, err := h.repo.List(ctx.Request.Context())

	if err != nil {
		RespondError(ctx, err)
		return
	}

	if usuarios == nil {
		usuarios = []usuario.Usuario{}
	}

	ctx.JSON(http.StatusOK, gin.H{"usuarios": usuarios})
}

func (h *UsuariosHandler) GetUsuario(ctx *gin.Context) {
	id, ok := ParseID(ctx.Param("id"))
	if !ok {
		RespondRouteNotFound(ctx)
		return
	}

	u, ok := h.lookup(ctx, id)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"usuario": u})
}

func (h *UsuariosHandler) CreateUsuario(ctx *gin.Context) {
	var req usuario.CreateUsuarioRequest

	if !BindJSON(ctx, &req, MsgDatosIncompletos) {
		return
	}

	u, err := h.repo.Create(ctx.Request.Context(), req)

	if err != nil {
		RespondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"usuario": u})
}

// UpdateUsuario applies a partial update: only "nombre" and "email" keys
// present in the body are written. Other keys are ignored.
func (h *UsuariosHandler) UpdateUsuario(ctx *gin.Context) {
	id, ok := ParseID(ctx.Param("id"))
	if !ok {
		RespondRouteNotFound(ctx)
		return
	}

	var body map[string]json.RawMessage

	if err := ctx.ShouldBindJSON(&body); err != nil || len(body) == 0 {
		RespondBadRequest(ctx, MsgSinDatos)
		return
	}

	if _, ok := h.lookup(ctx, id); !ok {
		return
	}

	req, ok := updateRequestFrom(body)
	if !ok {
		RespondBadRequest(ctx, MsgDatosInvalidos)
		return
	}

	if req.Empty() {
		RespondBadRequest(ctx, MsgSinCampos)
		return
	}

	u, err := h.repo.Update(ctx.Request.Context(), id, req)

	if err != nil {
		if errors.Is(err, usuario.ErrNotFound) {
			RespondNotFound(ctx)
			return
		}
		RespondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"usuario": u})
}

func (h *UsuariosHandler) DeleteUsuario(ctx *gin.Context) {
	id, ok := ParseID(ctx.Param("id"))
	if !ok {
		RespondRouteNotFound(ctx)
		return
	}

	if _, ok := h.lookup(ctx, id); !ok {
		return
	}

	err := h.repo.Delete(ctx.Request.Context(), id)

	if err != nil {
		if errors.Is(err, usuario.ErrNotFound) {
			RespondNotFound(ctx)
			return
		}
		RespondError(ctx, err)
		return
	}

	RespondMessage(ctx, http.StatusOK, MsgUsuarioEliminado)
}

// lookup writes the 404/500 response itself when it returns false.
func (h *UsuariosHandler) lookup(ctx *gin.Context, id int64) (usuario.Usuario, bool) {
	u, err := h.repo.GetByID(ctx.Request.Context(), id)

	if err != nil {
		if errors.Is(err, usuario.ErrNotFound) {
			RespondNotFound(ctx)
			return usuario.Usuario{}, false
		}
		RespondError(ctx, err)
		return usuario.Usuario{}, false
	}

	return u, true
}

// updateRequestFrom picks the recognized keys out of body. A recognized key
// holding anything but a JSON string is rejected.
func updateRequestFrom(body map[string]json.RawMessage) (usuario.UpdateUsuarioRequest, bool) {
	var req usuario.UpdateUsuarioRequest

	fields := []struct {
		key string
		dst **string
	}{
		{"nombre", &req.Nombre},
		{"email", &req.Email},
	}

	for _, f := range fields {
		raw, present := body[f.key]
		if !present {
			continue
		}

		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return usuario.UpdateUsuarioRequest{}, false
		}

		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return usuario.UpdateUsuarioRequest{}, false
		}
		*f.dst = &s
	}

	return req, true
}
