package scanning

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrNoJSON is returned when an LLM reply holds no JSON object.
var ErrNoJSON = errors.New("no JSON object found in response")

const transcriptSchemaURL = "transcript.json"

// transcriptSchema is the shape LLM backends are asked to reply with.
const transcriptSchema = `{
  "type": "object",
  "required": ["text"],
  "properties": {
    "text": {"type": "string"},
    "date": {"type": ["string", "null"]},
    "confidence": {
      "type": ["object", "null"],
      "additionalProperties": {"type": ["number", "null"], "minimum": 0, "maximum": 100}
    }
  }
}`

var compiledTranscriptSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(transcriptSchemaURL, strings.NewReader(transcriptSchema)); err != nil {
		return nil, fmt.Errorf("adding schema: %w", err)
	}
	schema, err := compiler.Compile(transcriptSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return schema, nil
})

type llmTranscript struct {
	Text       string              `json:"text"`
	Date       *string             `json:"date"`
	Confidence map[string]*float64 `json:"confidence"`
}

// parseTranscriptJSON turns an LLM reply into a Transcript. The reply may be
// wrapped in a markdown code block or surrounded by prose.
func parseTranscriptJSON(reply string, engine string) (*Transcript, error) {
	raw, err := extractJSONObject(reply)
	if err != nil {
		return nil, err
	}

	schema, err := compiledTranscriptSchema()
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validating transcript: %w", err)
	}

	var data llmTranscript
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	t := &Transcript{
		Text:   strings.TrimSpace(data.Text),
		Engine: engine,
	}
	if data.Date != nil {
		t.DateHint = strings.TrimSpace(*data.Date)
	}
	for name, v := range data.Confidence {
		if v == nil {
			continue
		}
		if name == "overall" {
			t.Confidence = *v
			continue
		}
		if t.Fields == nil {
			t.Fields = make(map[string]float64)
		}
		t.Fields[name] = *v
	}
	return t, nil
}

func extractJSONObject(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return nil, ErrNoJSON
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return nil, fmt.Errorf("invalid JSON object in response: %w", ErrNoJSON)
	}
	return bytes.TrimSpace([]byte(text[start : end+1])), nil
}
