package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketbase/pocketbase/core"
)

func TestGetContractorID_FromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), ContractorKey, "c-42"))

	if got := GetContractorID(req); got != "c-42" {
		t.Errorf("GetContractorID() = %q, want c-42", got)
	}
}

func TestGetContractorID_NotInContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetContractorID(req); got != "" {
		t.Errorf("expected empty contractor, got %q", got)
	}
}

func TestContractorFrom(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		header string
		want   string
	}{
		{"header", "/", "c-header", "c-header"},
		{"query", "/?contractorId=c-query", "", "c-query"},
		{"header wins", "/?contractorId=c-query", "c-header", "c-header"},
		{"none", "/", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				req.Header.Set("X-Contractor-Id", tt.header)
			}
			e := &core.RequestEvent{}
			e.Request = req
			e.Response = httptest.NewRecorder()

			if got := contractorFrom(e); got != tt.want {
				t.Errorf("contractorFrom() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContractorMiddleware_StoresID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/meeting/scheduled?contractorId=c-7", nil)
	e := &core.RequestEvent{}
	e.Request = req
	e.Response = httptest.NewRecorder()

	if err := ContractorMiddleware()(e); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if got := GetContractorID(e.Request); got != "c-7" {
		t.Errorf("context contractor = %q, want c-7", got)
	}
}
