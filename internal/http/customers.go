package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jmehdipour/visa-crm/internal/model"
	"github.com/jmehdipour/visa-crm/internal/repository"
	"github.com/jmehdipour/visa-crm/internal/util"
)

type customerView struct {
	ID             int64   `json:"id"`
	CustomerName   string  `json:"customer_name"`
	VisaType       string  `json:"visa_type"`
	VisaExpiryDate string  `json:"visa_expiry_date"`
	CountryCode    *string `json:"country_code"`
	PhoneNumber    *string `json:"phone_number"`
}

type createCustomerReq struct {
	Name        string `json:"name"`
	VisaType    string `json:"visa_type"`
	ExpiryDate  string `json:"expiry_date"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone"`
}

func failure(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]any{"success": false, "error": msg})
}

func listCustomersHandler(h Handlers) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := h.Customers.List(c.Request().Context())
		if err != nil {
			h.Log.Error("list customers failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		out := make([]customerView, 0, len(rows))
		for _, r := range rows {
			out = append(out, customerView{
				ID:             r.ID,
				CustomerName:   r.CustomerName,
				VisaType:       r.VisaType,
				VisaExpiryDate: r.ExpiryDate(),
				CountryCode:    r.CountryCode,
				PhoneNumber:    r.PhoneNumber,
			})
		}
		return c.JSON(http.StatusOK, out)
	}
}

func createCustomerHandler(h Handlers) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createCustomerReq
		if err := c.Bind(&req); err != nil {
			return failure(c, http.StatusBadRequest, "bad request")
		}

		// Normalize
		req.Name = strings.TrimSpace(req.Name)
		req.VisaType = strings.TrimSpace(req.VisaType)
		req.ExpiryDate = strings.TrimSpace(req.ExpiryDate)

		if req.Name == "" || req.VisaType == "" || req.ExpiryDate == "" {
			return failure(c, http.StatusBadRequest, "Missing required fields (Name, Visa Type, Expiry Date)")
		}

		expiry, err := util.ParseDate(req.ExpiryDate)
		if err != nil {
			return failure(c, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD.")
		}
		today, _ := util.ParseDate(util.Today(h.Now(), h.Location))
		if !expiry.After(today) {
			return failure(c, http.StatusBadRequest, "Expiry date must be in the future.")
		}

		id, err := h.Customers.Insert(c.Request().Context(), model.Customer{
			CustomerName:   req.Name,
			VisaType:       req.VisaType,
			VisaExpiryDate: expiry,
			CountryCode:    model.StrPtr(req.CountryCode),
			PhoneNumber:    model.StrPtr(util.DigitsOnly(req.Phone)),
		})
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateCustomer) {
				return failure(c, http.StatusConflict, "Customer with this name and expiry date already exists.")
			}
			h.Log.Error("insert customer failed", zap.String("customer", req.Name), zap.Error(err))
			return failure(c, http.StatusInternalServerError, "db error")
		}

		return c.JSON(http.StatusCreated, map[string]any{"success": true, "id": id})
	}
}

func deleteCustomerHandler(h Handlers) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			return failure(c, http.StatusBadRequest, "invalid id")
		}

		if err := h.Customers.Delete(c.Request().Context(), id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return failure(c, http.StatusNotFound, "Customer not found")
			}
			h.Log.Error("delete customer failed", zap.Int64("id", id), zap.Error(err))
			return failure(c, http.StatusInternalServerError, "db error")
		}

		return c.JSON(http.StatusOK, map[string]any{"success": true})
	}
}
