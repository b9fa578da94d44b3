package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jmehdipour/visa-crm/internal/repository"
	"github.com/jmehdipour/visa-crm/internal/util"
)

const sentAtLayout = "2006-01-02 15:04:05 MST"

type sendLogView struct {
	ID           int64  `json:"id"`
	RunID        string `json:"run_id"`
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	Message      string `json:"message"`
	Status       string `json:"status"`
	Outcome      string `json:"outcome"`
	SentAt       string `json:"sent_at"` // business timezone
}

func informedCustomersHandler(h Handlers) echo.HandlerFunc {
	return func(c echo.Context) error {
		f := repository.SendLogFilter{Limit: 500}

		switch c.QueryParam("filter") {
		case "", "all":
		case "today":
			from, to := util.DayBounds(h.Now(), h.Location)
			f.From, f.To = &from, &to
		default:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid filter"})
		}

		rows, err := h.SendLogs.List(c.Request().Context(), f)
		if err != nil {
			h.Log.Error("list send logs failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		out := make([]sendLogView, 0, len(rows))
		for _, r := range rows {
			out = append(out, sendLogView{
				ID:           r.ID,
				RunID:        r.RunID,
				CustomerName: r.CustomerName,
				Phone:        r.Phone,
				Message:      r.Message,
				Status:       r.Status,
				Outcome:      r.Outcome.String(),
				SentAt:       r.SentAt.In(h.Location).Format(sentAtLayout),
			})
		}
		return c.JSON(http.StatusOK, out)
	}
}
