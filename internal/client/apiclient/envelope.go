package apiclient

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Envelope is the conventional response wrapper {status, message, data}.
type Envelope[T any] struct {
	Status  Status              `json:"status"`
	Message string              `json:"message"`
	Data    T                   `json:"data"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Status is the envelope status field. Backends send it as a boolean, a
// number or a string; the raw text is kept.
type Status string

func (s *Status) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Status(str)
		return nil
	}
	if string(data) == "null" {
		*s = ""
		return nil
	}
	*s = Status(data)
	return nil
}

func (s Status) MarshalJSON() ([]byte, error) {
	switch {
	case s == "":
		return []byte("null"), nil
	case s == "true" || s == "false":
		return []byte(s), nil
	}
	if _, err := strconv.ParseFloat(string(s), 64); err == nil {
		return []byte(s), nil
	}
	return json.Marshal(string(s))
}

// OK reports a success status: true, a 2xx number, or "success"/"ok".
func (s Status) OK() bool {
	str := strings.ToLower(strings.TrimSpace(string(s)))
	switch str {
	case "true", "success", "ok":
		return true
	}
	if n, err := strconv.Atoi(str); err == nil {
		return n >= 200 && n < 300
	}
	return false
}

// errorBody is the tolerant view of a non-2xx body. message counts only when
// it is a string; errors accepts lists or single strings per field.
type errorBody struct {
	Message string
	Errors  map[string][]string
}

func parseErrorBody(body []byte) errorBody {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return errorBody{}
	}

	var eb errorBody
	if m, ok := raw["message"]; ok {
		var msg string
		if json.Unmarshal(m, &msg) == nil {
			eb.Message = msg
		}
	}
	if e, ok := raw["errors"]; ok {
		eb.Errors = parseFieldErrors(e)
	}
	return eb
}

func parseFieldErrors(data json.RawMessage) map[string][]string {
	var lists map[string][]string
	if json.Unmarshal(data, &lists) == nil {
		return lists
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(data, &fields) != nil {
		return nil
	}

	out := make(map[string][]string, len(fields))
	for field, v := range fields {
		var single string
		if json.Unmarshal(v, &single) == nil {
			out[field] = []string{single}
			continue
		}
		var list []string
		if json.Unmarshal(v, &list) == nil {
			out[field] = list
		}
	}
	return out
}
