package respond

import (
	"encoding/json"
	"net/http"
)

func JSON(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

// Error writes {"error": message} and, when details is non-empty, {"details": details}.
func Error(w http.ResponseWriter, r *http.Request, code int, message string, details ...string) {
	body := map[string]string{"error": message}
	if len(details) > 0 && details[0] != "" {
		body["details"] = details[0]
	}
	JSON(w, r, code, body)
}

// Decode reads a JSON body into dst, rejecting unknown fields and trailing data.
func Decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}

type decodeError string

func (e decodeError) Error() string { return string(e) }

const errTrailingData = decodeError("unexpected data after JSON body")
