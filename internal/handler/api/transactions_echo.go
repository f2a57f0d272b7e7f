package api

import (
	"context"
	"errors"

	models "KiranaCash/internal/domain/models"
	mid "KiranaCash/internal/middleware"
	xhttp "KiranaCash/pkg/http"
	xlogger "KiranaCash/pkg/logger"

	"github.com/labstack/echo/v4"
)

// maxIngestBatch bounds one POST body.
const maxIngestBatch = 5000

// TransactionsEchoHandler accepts POS transactions over HTTP and feeds them
// into the ingest pipeline.
type TransactionsEchoHandler struct {
	logger *xlogger.Logger
	proc   mid.Proc
}

func NewTransactionsEchoHandler(logger *xlogger.Logger, proc mid.Proc) *TransactionsEchoHandler {
	return &TransactionsEchoHandler{logger: logger, proc: proc}
}

func (h *TransactionsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/transactions", h.Ingest)
}

type ingestResult struct {
	Accepted int               `json:"accepted"`
	Rejected []ingestRejection `json:"rejected,omitempty"`
}

type ingestRejection struct {
	Index int    `json:"index"`
	ID    string `json:"transaction_id,omitempty"`
	Error string `json:"error"`
}

func (h *TransactionsEchoHandler) Ingest(c echo.Context) error {
	var txs []*models.Transaction
	if err := c.Bind(&txs); err != nil {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{Code: xhttp.CodeInvalidBody, Message: "body must be a JSON array of transactions"}})
	}
	if len(txs) > maxIngestBatch {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("at most %d transactions per request", maxIngestBatch))
	}

	res := ingestResult{}
	ctx := c.Request().Context()
	for i, t := range txs {
		err := h.proc.Process(ctx, t)
		switch {
		case err == nil:
			res.Accepted++
		case errors.Is(err, mid.ErrInvalidTransaction):
			rej := ingestRejection{Index: i, Error: err.Error()}
			if t != nil {
				rej.ID = t.ID
			}
			res.Rejected = append(res.Rejected, rej)
		case errors.Is(err, context.Canceled):
			return err
		default:
			// Buffered for retry by the pipeline.
			h.logger.Warn("transaction buffered", xlogger.Error(err))
			res.Accepted++
		}
	}
	if res.Accepted == 0 && len(res.Rejected) > 0 {
		return xhttp.UnprocessableResponse(c, res)
	}
	return xhttp.AcceptedResponse(c, res)
}
