package command

import (
	"encoding/json"
	"fmt"
)

// Registry returns the command table keyed by command name.
func Registry() map[string]Command {
	return map[string]Command{
		"run": {
			Name:         "run",
			Summary:      "execute code and print the raw outcome",
			Method:       "POST",
			PathTemplate: "/api/v1/run",
			Fields: []Field{
				{Name: "source_code", Aliases: []string{"code"}, Prompt: "Source code", Type: FieldString},
				{Name: "source_file", Aliases: []string{"file"}, Prompt: "Source file path", Type: FieldFile},
				{Name: "language_id", Aliases: []string{"lang"}, Prompt: "Language id", Type: FieldInt, Required: true},
				{Name: "stdin", Prompt: "Stdin", Type: FieldString},
			},
		},
		"validate": {
			Name:         "validate",
			Summary:      "validate code against test cases",
			Method:       "POST",
			PathTemplate: "/api/v1/validate",
			Fields: []Field{
				{Name: "source_code", Aliases: []string{"code"}, Prompt: "Source code", Type: FieldString},
				{Name: "source_file", Aliases: []string{"file"}, Prompt: "Source file path", Type: FieldFile},
				{Name: "source_key", Aliases: []string{"key"}, Prompt: "Source object key", Type: FieldString},
				{Name: "language_id", Aliases: []string{"lang"}, Prompt: "Language id", Type: FieldInt, Required: true},
				{Name: "cases_json", Aliases: []string{"cases"}, Prompt: "Test cases JSON", Type: FieldJSON},
				{Name: "cases_file", Prompt: "Test cases file path", Type: FieldFile},
			},
		},
		"health": {
			Name:         "health",
			Summary:      "probe the service and its dependencies",
			Method:       "GET",
			PathTemplate: "/healthz",
		},
	}
}

// BuildRequest turns a command plus params into a concrete HTTP request.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	params.Canonicalize(cmd.Fields)

	var body []byte
	if cmd.Method != "GET" {
		payload, err := buildPayload(cmd, params)
		if err != nil {
			return RequestSpec{}, err
		}
		if payload != nil {
			body, err = json.Marshal(payload)
			if err != nil {
				return RequestSpec{}, fmt.Errorf("marshal request body failed: %w", err)
			}
		}
	}

	return RequestSpec{
		Method: cmd.Method,
		Path:   cmd.PathTemplate,
		Body:   body,
	}, nil
}

func buildPayload(cmd Command, params Params) (interface{}, error) {
	switch cmd.Name {
	case "run":
		return buildRunPayload(params)
	case "validate":
		return buildValidatePayload(params)
	default:
		return nil, nil
	}
}

func buildRunPayload(params Params) (interface{}, error) {
	code, err := resolveSourceParam(params)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, fmt.Errorf("source_code or source_file is required")
	}
	languageID, err := ParseInt(params.Get("language_id"))
	if err != nil {
		return nil, fmt.Errorf("invalid language_id: %w", err)
	}
	return map[string]interface{}{
		"source_code": code,
		"language_id": languageID,
		"stdin":       params.Get("stdin"),
	}, nil
}

func buildValidatePayload(params Params) (interface{}, error) {
	code, err := resolveSourceParam(params)
	if err != nil {
		return nil, err
	}
	sourceKey := params.Get("source_key")
	if code == "" && sourceKey == "" {
		return nil, fmt.Errorf("source_code, source_file, or source_key is required")
	}
	languageID, err := ParseInt(params.Get("language_id"))
	if err != nil {
		return nil, fmt.Errorf("invalid language_id: %w", err)
	}
	cases, err := resolveCasesParam(params)
	if err != nil {
		return nil, err
	}
	payload := map[string]interface{}{
		"language_id": languageID,
		"test_cases":  cases,
	}
	if code != "" {
		payload["source_code"] = code
	} else {
		payload["source_key"] = sourceKey
	}
	return payload, nil
}

func resolveSourceParam(params Params) (string, error) {
	if code := params.Get("source_code"); code != "" {
		return code, nil
	}
	if path := params.Get("source_file"); path != "" {
		return ReadFile(path)
	}
	return "", nil
}

func resolveCasesParam(params Params) (json.RawMessage, error) {
	raw := params.Get("cases_json")
	if raw == "" {
		path := params.Get("cases_file")
		if path == "" {
			return nil, fmt.Errorf("cases_json or cases_file is required")
		}
		content, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		raw = content
	}
	return ParseJSON(raw)
}
