package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/facturalia/verifactu-api/internal/application/dto"
	appvf "github.com/facturalia/verifactu-api/internal/application/verifactu"
	"github.com/facturalia/verifactu-api/internal/domain"
)

// VerifactuHandler expone el ciclo de envío, la anulación, la reconciliación
// y las lecturas del registro VERI*FACTU.
type VerifactuHandler struct {
	submit    *appvf.SubmitUseCase
	reconcile *appvf.ReconcileUseCase
	records   *appvf.RecordUseCase
}

// NewVerifactuHandler construye el handler inyectando los casos de uso.
func NewVerifactuHandler(submit *appvf.SubmitUseCase, reconcile *appvf.ReconcileUseCase,
	records *appvf.RecordUseCase) *VerifactuHandler {

	return &VerifactuHandler{submit: submit, reconcile: reconcile, records: records}
}

// SubmitPending godoc
// @Summary      Enviar las facturas pendientes de la empresa a la AEAT
// @Tags         verifactu
// @Produce      json
// @Param        id   path  string  true  "ID de la empresa"
// @Success      200  {object}  dto.SubmissionReport
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/verifactu/companies/{id}/submit [post]
func (h *VerifactuHandler) SubmitPending(c *fiber.Ctx) error {
	report, err := h.submit.SubmitPending(c.Context(), c.Params("id"))
	if err != nil {
		return verifactuError(c, err)
	}
	return c.JSON(report)
}

// Reconcile godoc
// @Summary      Reconciliar la cadena local contra el libro de la AEAT
// @Tags         verifactu
// @Produce      json
// @Param        id   path  string  true  "ID de la empresa"
// @Success      200  {object}  dto.ReconcileReport
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/verifactu/companies/{id}/reconcile [post]
func (h *VerifactuHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.reconcile.Reconcile(c.Context(), c.Params("id"))
	if err != nil {
		return verifactuError(c, err)
	}
	return c.JSON(report)
}

// CancelInvoice godoc
// @Summary      Anular ante la AEAT una factura ya registrada
// @Tags         verifactu
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {object}  dto.InvoiceRecordResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/verifactu/invoices/{id}/cancel [post]
func (h *VerifactuHandler) CancelInvoice(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	invoiceID := c.Params("id")
	if err := h.submit.CancelInvoice(c.Context(), companyID, invoiceID); err != nil {
		return verifactuError(c, err)
	}
	record, err := h.records.GetInvoiceRecord(companyID, invoiceID)
	if err != nil {
		return verifactuError(c, err)
	}
	return c.JSON(record)
}

// GetRecord godoc
// @Summary      Estado e historial de eslabones de una factura
// @Tags         verifactu
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {object}  dto.InvoiceRecordResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/verifactu/invoices/{id}/record [get]
func (h *VerifactuHandler) GetRecord(c *fiber.Ctx) error {
	record, err := h.records.GetInvoiceRecord(GetCompanyID(c), c.Params("id"))
	if err != nil {
		return verifactuError(c, err)
	}
	return c.JSON(record)
}

// GetQR godoc
// @Summary      URL de cotejo para el QR tributario de una factura
// @Tags         verifactu
// @Produce      json
// @Param        id   path  string  true  "ID de la factura"
// @Success      200  {object}  dto.QRResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/verifactu/invoices/{id}/qr [get]
func (h *VerifactuHandler) GetQR(c *fiber.Ctx) error {
	qr, err := h.records.GetInvoiceQR(GetCompanyID(c), c.Params("id"))
	if err != nil {
		return verifactuError(c, err)
	}
	return c.JSON(qr)
}

// verifactuError traduce los errores de dominio del ciclo a códigos HTTP.
func verifactuError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrChainBusy):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CHAIN_BUSY", Message: "hay un ciclo de envío en curso para la empresa"})
	case errors.Is(err, domain.ErrChainDivergence):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CHAIN_DIVERGENCE", Message: err.Error()})
	case errors.Is(err, domain.ErrVerifactuDisabled):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "VERIFACTU_DISABLED", Message: "VERI*FACTU no habilitado para la empresa"})
	case errors.Is(err, domain.ErrMissingCertificate):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "MISSING_CERT", Message: "certificado AEAT no configurado"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
