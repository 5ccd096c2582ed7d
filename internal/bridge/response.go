package bridge

// Results is the decoded top-level array the bridge returns for mutating
// calls, one element per attribute it tried to apply. Kept raw so callers
// see exactly what the device said.
type Results []any

// APIError is one device-reported error object extracted from a result
// element
type APIError struct {
	Type        int
	Address     string
	Description string
}

// classify scans a decoded response for device-reported errors. A single
// error element fails the whole call and the complete array is kept as the
// error payload. A body that is not an array carries no error elements and
// counts as success. Classification is stateless: it looks only at the
// response in hand.
func classify(decoded any) (Status, Results) {
	arr, ok := decoded.([]any)
	if !ok {
		return StatusOK, nil
	}
	for _, elem := range arr {
		obj, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		if _, found := obj["error"]; found {
			return StatusError, Results(arr)
		}
	}
	return StatusOK, nil
}

// Errors extracts the typed error objects from the payload
func (r Results) Errors() []APIError {
	var out []APIError
	for _, elem := range r {
		obj, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		raw, ok := obj["error"].(map[string]any)
		if !ok {
			continue
		}
		var e APIError
		if t, ok := raw["type"].(float64); ok {
			e.Type = int(t)
		}
		if s, ok := raw["address"].(string); ok {
			e.Address = s
		}
		if s, ok := raw["description"].(string); ok {
			e.Description = s
		}
		out = append(out, e)
	}
	return out
}

// ErrorDescriptions returns the human-readable side of Errors
func (r Results) ErrorDescriptions() []string {
	errs := r.Errors()
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Description)
	}
	return out
}
