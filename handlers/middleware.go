package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog/log"
)

type contextKey string

const ContractorKey contextKey = "contractorId"

const contractorHeader = "X-Contractor-Id"

// GetContractorID extracts the contractor id from the request context.
func GetContractorID(r *http.Request) string {
	if val, ok := r.Context().Value(ContractorKey).(string); ok {
		return val
	}
	return ""
}

// ContractorMiddleware reads the contractor identity from the X-Contractor-Id
// header, falling back to the contractorId query parameter, and stores it in
// the request context so handlers can scope their queries.
func ContractorMiddleware() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		id := strings.TrimSpace(e.Request.Header.Get(contractorHeader))
		if id == "" {
			id = strings.TrimSpace(e.Request.URL.Query().Get("contractorId"))
		}

		if id != "" {
			log.Debug().Str("contractor", id).Str("path", e.Request.URL.Path).Msg("middleware: ContractorMiddleware")
			ctx := context.WithValue(e.Request.Context(), ContractorKey, id)
			e.Request = e.Request.WithContext(ctx)
		}

		return e.Next()
	}
}

// contractorFrom returns the contractor id for the request, preferring the
// value placed in the context by ContractorMiddleware.
func contractorFrom(e *core.RequestEvent) string {
	if id := GetContractorID(e.Request); id != "" {
		return id
	}
	if id := strings.TrimSpace(e.Request.Header.Get(contractorHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(e.Request.URL.Query().Get("contractorId"))
}
