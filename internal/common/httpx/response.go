package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"restaurant-pos/internal/domain"
)

// Envelope is the {success, data, error} wrapper every JSON endpoint returns.
type Envelope struct {
	Success bool     `json:"success"`
	Data    any      `json:"data,omitempty"`
	Error   *Problem `json:"error,omitempty"`
}

// Problem is a trimmed RFC 7807 body.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func OK(w http.ResponseWriter, data any) { WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data}) }

func Created(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

func WriteProblem(w http.ResponseWriter, code int, typ, detail string) {
	WriteJSON(w, code, Envelope{Error: &Problem{
		Type:   typ,
		Title:  http.StatusText(code),
		Status: code,
		Detail: detail,
	}})
}

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

// WriteError maps the domain error kinds onto HTTP statuses. Errors outside
// those kinds are answered with a fixed message; their text only reaches the
// request log.
func WriteError(w http.ResponseWriter, err error) {
	code, typ := StatusFor(err)
	if code == http.StatusInternalServerError {
		if rec, ok := w.(*statusRecorder); ok {
			rec.err = err
		}
		WriteProblem(w, code, typ, "internal server error")
		return
	}
	WriteProblem(w, code, typ, err.Error())
}

func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		return http.StatusNotFound, "item_not_found"
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusUnprocessableEntity, "empty_cart"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// DecodeJSON reads a request body of at most MaxBodyBytes into v, reporting
// malformed or oversized bodies as invalid input.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(domain.ErrInvalidInput, err)
	}
	return nil
}

// PathInt reads an integer path value such as {id}.
func PathInt(r *http.Request, key string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(key))
	if err != nil {
		return 0, errors.Join(domain.ErrInvalidInput, err)
	}
	return n, nil
}

// AtoiDefault parses s, falling back to d when s is empty or malformed.
func AtoiDefault(s string, d int) int {
	if s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return n
}
