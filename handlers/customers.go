package handlers

import (
	"fmt"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog/log"

	"quotebuilder/services"
)

// CustomerItem is the JSON shape of a stored customer.
type CustomerItem struct {
	ID string `json:"id"`
	services.Customer
	Created string `json:"created"`
}

func customerFromRecord(r *core.Record) CustomerItem {
	return CustomerItem{
		ID: r.Id,
		Customer: services.Customer{
			Name:    r.GetString("name"),
			Email:   r.GetString("email"),
			Phone:   r.GetString("phone"),
			Address: r.GetString("address"),
			Status:  r.GetString("status"),
			Notes:   r.GetString("notes"),
		},
		Created: r.GetDateTime("created").String(),
	}
}

func applyCustomer(record *core.Record, contractorID string, c services.Customer) {
	record.Set("contractor", contractorID)
	record.Set("name", c.Name)
	record.Set("email", c.Email)
	record.Set("phone", c.Phone)
	record.Set("address", c.Address)
	record.Set("status", c.Status)
	record.Set("notes", c.Notes)
}

// existingEmails returns the emails already on file for a contractor.
func existingEmails(app core.App, contractorID string) (map[string]bool, error) {
	records, err := app.FindRecordsByFilter(
		"customers",
		"contractor = {:contractor} && email != ''",
		"",
		0,
		0,
		map[string]any{"contractor": contractorID},
	)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(records))
	for _, r := range records {
		out[r.GetString("email")] = true
	}
	return out, nil
}

// HandleCustomersByContractor handles GET /quote/v2/customers/by-contractor?contractorId=
func HandleCustomersByContractor(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		contractorID := contractorFrom(e)
		if contractorID == "" {
			return respondInvalid(e, http.StatusBadRequest, "Missing contractor", map[string]string{"contractorId": "required"})
		}

		records, err := app.FindRecordsByFilter(
			"customers",
			"contractor = {:contractor}",
			"-created",
			0,
			0,
			map[string]any{"contractor": contractorID},
		)
		if err != nil {
			return respondServerError(e, "customers: HandleCustomersByContractor: query failed", err)
		}

		out := make([]CustomerItem, 0, len(records))
		for _, r := range records {
			out = append(out, customerFromRecord(r))
		}
		return respondOK(e, out, "")
	}
}

// HandleAddCustomer handles POST /quote/v2/add-customer
func HandleAddCustomer(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var req struct {
			services.Customer
			ContractorID string `json:"contractorId"`
		}
		if err := e.BindBody(&req); err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Invalid request body", nil)
		}

		contractorID := req.ContractorID
		if contractorID == "" {
			contractorID = contractorFrom(e)
		}
		if contractorID == "" {
			return respondInvalid(e, http.StatusBadRequest, "Missing contractor", map[string]string{"contractorId": "required"})
		}

		c := req.Customer.Normalize()
		if err := c.Validate(); err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Please fix the errors below", fieldErrors(err))
		}

		if c.Email != "" {
			emails, err := existingEmails(app, contractorID)
			if err != nil {
				return respondServerError(e, "customers: HandleAddCustomer: email lookup failed", err)
			}
			if emails[c.Email] {
				return respondInvalid(e, http.StatusConflict, "A customer with this email already exists",
					map[string]string{"email": "already exists"})
			}
		}

		col, err := app.FindCollectionByNameOrId("customers")
		if err != nil {
			return respondServerError(e, "customers: HandleAddCustomer: could not find customers collection", err)
		}
		record := core.NewRecord(col)
		applyCustomer(record, contractorID, c)
		if err := app.Save(record); err != nil {
			return respondServerError(e, "customers: HandleAddCustomer: could not save customer", err)
		}

		log.Info().Str("customer", record.Id).Str("contractor", contractorID).Msg("customers: HandleAddCustomer: created")
		return respondOK(e, customerFromRecord(record), "Customer added")
	}
}

// HandleUploadCustomers handles POST /quote/v2/upload-customers
// Validates a .csv or .xlsx upload row by row. Nothing is saved unless every
// row is valid. With ?report=xlsx a failing upload answers with the error
// report spreadsheet instead of JSON.
func HandleUploadCustomers(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		contractorID := contractorFrom(e)
		if contractorID == "" {
			return respondInvalid(e, http.StatusBadRequest, "Missing contractor", map[string]string{"contractorId": "required"})
		}

		// Parse multipart form (max 10MB)
		if err := e.Request.ParseMultipartForm(10 << 20); err != nil {
			return respondInvalid(e, http.StatusBadRequest, "File too large or invalid form data", nil)
		}
		file, header, err := e.Request.FormFile("file")
		if err != nil {
			return respondInvalid(e, http.StatusBadRequest, "Please select a file to upload", nil)
		}
		defer file.Close()

		result, err := services.ParseCustomerFile(file, header.Filename)
		if err != nil {
			log.Warn().Err(err).Str("file", header.Filename).Msg("customers: HandleUploadCustomers: parse failed")
			return respondInvalid(e, http.StatusBadRequest, err.Error(), nil)
		}

		emails, err := existingEmails(app, contractorID)
		if err != nil {
			return respondServerError(e, "customers: HandleUploadCustomers: email lookup failed", err)
		}
		for i, c := range result.Customers {
			if c.Email != "" && emails[c.Email] {
				result.Errors = append(result.Errors, services.ValidationError{
					Row:     0,
					Field:   "Email",
					Message: fmt.Sprintf("%s is already a customer (entry %d)", c.Email, i+1),
				})
				result.ErrorRows++
				result.ValidRows--
			}
		}

		if len(result.Errors) > 0 {
			if e.Request.URL.Query().Get("report") == "xlsx" {
				report, err := services.GenerateErrorReport(result.Errors)
				if err != nil {
					return respondServerError(e, "customers: HandleUploadCustomers: error report failed", err)
				}
				e.Response.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
				e.Response.Header().Set("Content-Disposition", `attachment; filename="customer_import_errors.xlsx"`)
				e.Response.WriteHeader(http.StatusUnprocessableEntity)
				_, err = e.Response.Write(report)
				return err
			}
			SetToast(e, "warning", "Some rows have errors. Nothing was imported.")
			return e.JSON(http.StatusUnprocessableEntity, ApiResponse{
				Success: false,
				Error:   "Some rows have errors. Nothing was imported.",
				Data:    result,
			})
		}

		col, err := app.FindCollectionByNameOrId("customers")
		if err != nil {
			return respondServerError(e, "customers: HandleUploadCustomers: could not find customers collection", err)
		}
		err = app.RunInTransaction(func(txApp core.App) error {
			for _, c := range result.Customers {
				record := core.NewRecord(col)
				applyCustomer(record, contractorID, c)
				if err := txApp.Save(record); err != nil {
					return fmt.Errorf("save %q: %w", c.Name, err)
				}
			}
			return nil
		})
		if err != nil {
			return respondServerError(e, "customers: HandleUploadCustomers: import failed", err)
		}

		log.Info().Int("imported", len(result.Customers)).Str("contractor", contractorID).
			Msg("customers: HandleUploadCustomers: import complete")
		return respondOK(e, result, fmt.Sprintf("Imported %d customers", len(result.Customers)))
	}
}

// HandleCustomerTemplate handles GET /quote/v2/customers/template
func HandleCustomerTemplate() func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		data, err := services.GenerateCustomerTemplate()
		if err != nil {
			return respondServerError(e, "customers: HandleCustomerTemplate: generate failed", err)
		}
		e.Response.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		e.Response.Header().Set("Content-Disposition", `attachment; filename="customer_import_template.xlsx"`)
		_, err = e.Response.Write(data)
		return err
	}
}
