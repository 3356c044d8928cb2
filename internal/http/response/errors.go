package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/platform/apierr"
)

// FromError maps service errors onto API errors. Errors already carrying an
// apierr.Error keep their status and code.
func FromError(err error) *apierr.Error {
	var ae *apierr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, types.ErrNotFound):
		return apierr.New(http.StatusNotFound, apierr.CodeNotFound, err)
	case errors.Is(err, types.ErrVersionConflict):
		return apierr.New(http.StatusConflict, apierr.CodeVersionConflict, err)
	case errors.Is(err, types.ErrInvalidTransition):
		return apierr.New(http.StatusConflict, apierr.CodeInvalidTransition, err)
	case errors.Is(err, types.ErrPreconditionFailed):
		return apierr.New(http.StatusPreconditionFailed, apierr.CodePreconditionFailed, err)
	case errors.Is(err, types.ErrMissingPayload):
		return apierr.New(http.StatusUnprocessableEntity, apierr.CodeMissingPayload, err)
	case errors.Is(err, types.ErrUnknownMode):
		return apierr.New(http.StatusBadRequest, apierr.CodeUnknownMode, err)
	case errors.Is(err, types.ErrGenerationFailed):
		return apierr.New(http.StatusBadGateway, apierr.CodeGenerationFailed, err)
	case errors.Is(err, context.DeadlineExceeded):
		return apierr.New(http.StatusGatewayTimeout, apierr.CodeGenerationFailed, err)
	case errors.Is(err, context.Canceled):
		return apierr.New(499, apierr.CodeInternal, err)
	}
	return apierr.Internal(err)
}

// RespondServiceError writes err using the FromError mapping.
func RespondServiceError(c *gin.Context, err error) {
	ae := FromError(err)
	if ae == nil {
		ae = apierr.Internal(errors.New("unknown error"))
	}
	RespondError(c, ae.Status, ae.Code, ae)
}
