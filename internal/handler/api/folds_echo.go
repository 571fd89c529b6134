package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"TFoldSV/internal/domain/models"
	"TFoldSV/internal/usecase"
	xhttp "TFoldSV/pkg/http"
	xlogger "TFoldSV/pkg/logger"
)

// reportGenerator is the use case surface the handler calls.
type reportGenerator interface {
	Generate(ctx context.Context, req models.FoldReportRequest) (*models.FoldReport, error)
	Options() models.FoldOptions
}

var _ reportGenerator = (*usecase.FoldReportUseCase)(nil)

// FoldsEchoHandler serves fold reports over HTTP.
type FoldsEchoHandler struct {
	logger  *xlogger.Logger
	reports reportGenerator
}

func NewFoldsEchoHandler(logger *xlogger.Logger, reports *usecase.FoldReportUseCase) *FoldsEchoHandler {
	return &FoldsEchoHandler{logger: logger, reports: reports}
}

func (h *FoldsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/folds")
	g.POST("/report", h.Report)
	g.GET("/options", h.Options)
}

// Report runs (or serves from cache) one fold-divergence report.
func (h *FoldsEchoHandler) Report(c echo.Context) error {
	req := &models.FoldReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.reports.Generate(c.Request().Context(), *req)
	if err != nil {
		appErr := toAppError(err)
		if appErr.Status >= 500 {
			h.logger.Error("fold report usecase error", xlogger.Error(err))
		} else {
			h.logger.Debug("fold report rejected", xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, res)
}

// Options lists accepted parameter values.
func (h *FoldsEchoHandler) Options(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return xhttp.SuccessResponse(c, h.reports.Options())
}

func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrConfig):
		return xhttp.NewAppError("ERR_CONFIG", "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrSchema):
		return xhttp.NewAppError("ERR_SCHEMA", "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrResampleDirection):
		return xhttp.NewAppError("ERR_RESAMPLE_DIRECTION", "interval", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.Is(err, models.ErrDegenerateSample):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.GatewayTimeoutError("report timed out").WithError(err)
	default:
		return xhttp.InternalError("report failed").WithError(err)
	}
}
