package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xuri/excelize/v2"

	"obra/internal"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, message string) error {
	return writeJSON(w, status, &errorResponse{Error: message})
}

// writeError maps caller mistakes to 400 and everything else to 500.
func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, internal.ErrInvalidInput) {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSONError(w, http.StatusInternalServerError, err.Error())
}

func writeWorkbook(w http.ResponseWriter, f *excelize.File, name string) error {
	defer f.Close()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	return f.Write(w)
}
