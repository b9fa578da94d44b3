package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jmehdipour/visa-crm/internal/importer"
	"github.com/jmehdipour/visa-crm/internal/model"
	"github.com/jmehdipour/visa-crm/internal/util"
)

const uploadField = "excel-file"

type commitReq struct {
	Data []model.ImportRecord `json:"data"`
}

func errorList(c echo.Context, code int, msgs ...string) error {
	return c.JSON(code, map[string][]string{"errors": msgs})
}

func importPreviewHandler(h Handlers) echo.HandlerFunc {
	return func(c echo.Context) error {
		fh, err := c.FormFile(uploadField)
		if err != nil {
			return errorList(c, http.StatusBadRequest, "No file part")
		}
		if fh.Filename == "" {
			return errorList(c, http.StatusBadRequest, "No selected file")
		}

		file, err := fh.Open()
		if err != nil {
			return errorList(c, http.StatusBadRequest, "Could not read uploaded file")
		}
		defer file.Close()

		today, _ := util.ParseDate(util.Today(h.Now(), h.Location))
		preview, err := importer.Parse(file, today)
		if err != nil {
			var mc *importer.MissingColumnsError
			if errors.As(err, &mc) {
				return errorList(c, http.StatusBadRequest, "Missing columns: "+strings.Join(mc.Columns, ", "))
			}
			h.Log.Error("spreadsheet processing failed", zap.String("file", fh.Filename), zap.Error(err))
			return errorList(c, http.StatusInternalServerError, fmt.Sprintf("Error processing Excel file: %v", err))
		}

		h.Log.Info("import preview generated",
			zap.String("file", fh.Filename),
			zap.Int("valid", len(preview.DataToPreview)),
			zap.Int("errors", len(preview.Errors)),
		)
		return c.JSON(http.StatusOK, preview)
	}
}

func commitImportHandler(h Handlers) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req commitReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if len(req.Data) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "No data to import"})
		}

		res, err := importer.Commit(c.Request().Context(), h.Customers, req.Data, h.Log)
		if err != nil {
			h.Log.Error("commit import failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]any{"success": false, "error": "import aborted"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"success":  true,
			"imported": res.Imported,
			"skipped":  res.Skipped,
		})
	}
}
