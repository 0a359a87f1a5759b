package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	MsgUsuarioNoEncontrado = "Usuario no encontrado"
	MsgRecursoNoEncontrado = "Recurso no encontrado"
	MsgMetodoNoPermitido   = "Método no permitido"
	MsgDatosIncompletos    = "Datos incompletos"
	MsgSinDatos            = "Sin datos para actualizar"
	MsgSinCampos           = "Sin campos válidos para actualizar"
	MsgDatosInvalidos      = "Datos inválidos"
	MsgUsuarioEliminado    = "Usuario eliminado correctamente"
)

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

// RespondMessage writes the {"mensaje": ...} body used for validation and
// not-found outcomes.
func RespondMessage(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"mensaje": message})
}

func RespondBadRequest(ctx *gin.Context, message string) {
	RespondMessage(ctx, http.StatusBadRequest, message)
}

func RespondNotFound(ctx *gin.Context) {
	RespondMessage(ctx, http.StatusNotFound, MsgUsuarioNoEncontrado)
}

// RespondRouteNotFound is the body for unknown routes and malformed ids.
func RespondRouteNotFound(ctx *gin.Context) {
	RespondMessage(ctx, http.StatusNotFound, MsgRecursoNoEncontrado)
}

// RespondMethodNotAllowed answers a known path called with a method it does
// not serve.
func RespondMethodNotAllowed(ctx *gin.Context) {
	RespondMessage(ctx, http.StatusMethodNotAllowed, MsgMetodoNoPermitido)
}

// RespondError reports a storage failure with the underlying error text.
func RespondError(ctx *gin.Context, err error) {
	slog.Default().ErrorContext(ctx.Request.Context(), "request_failed",
		"route", ctx.FullPath(),
		"request_id", requestIDFrom(ctx),
		"err", err,
	)

	ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
