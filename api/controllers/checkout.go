package controllers

import (
	"net/http"
	"strings"

	"github.com/pharmacare/pharmacare-backend/api/middleware"
	"github.com/pharmacare/pharmacare-backend/api/responses"
	"github.com/pharmacare/pharmacare-backend/api/validators"
	checkoutsvc "github.com/pharmacare/pharmacare-backend/internal/checkout"
	"github.com/pharmacare/pharmacare-backend/internal/prescriptions"
	"github.com/pharmacare/pharmacare-backend/pkg/config"
	pkgerrors "github.com/pharmacare/pharmacare-backend/pkg/errors"
	"github.com/pharmacare/pharmacare-backend/pkg/logger"
)

const (
	maxNameLen    = 200
	maxEmailLen   = 254
	maxAddressLen = 1000
	maxPhoneLen   = 50
	maxNotesLen   = 2000

	prescriptionFormField = "prescription"
)

// Checkout converts the customer's cart into an order. The request arrives
// as multipart form data so a prescription file can ride along with the
// shipping fields.
func Checkout(svc checkoutsvc.Service, cfg config.PrescriptionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		// One megabyte of form fields on top of the configured file cap.
		if err := r.ParseMultipartForm(cfg.MaxSizeBytes + 1<<20); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()

		input := checkoutsvc.PlaceOrderInput{
			FullName:        validators.SanitizeString(r.FormValue("full_name"), maxNameLen),
			Email:           validators.SanitizeString(r.FormValue("email"), maxEmailLen),
			ShippingAddress: validators.SanitizeString(r.FormValue("shipping_address"), maxAddressLen),
			Phone:           validators.SanitizeString(r.FormValue("phone"), maxPhoneLen),
		}
		if notes := validators.SanitizeString(r.FormValue("notes"), maxNotesLen); notes != "" {
			input.Notes = &notes
		}

		file, header, err := r.FormFile(prescriptionFormField)
		switch {
		case err == nil:
			defer file.Close()
			input.Prescription = &prescriptions.Upload{
				Reader:      file,
				ContentType: strings.TrimSpace(header.Header.Get("Content-Type")),
				Size:        header.Size,
			}
		case err == http.ErrMissingFile:
			// Prescription-free carts go through without a file.
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid prescription upload"))
			return
		}

		confirmation, err := svc.PlaceOrder(r.Context(), middleware.UserUUIDFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, confirmation)
	}
}
