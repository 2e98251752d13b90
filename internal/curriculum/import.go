package curriculum

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-planner/internal/platform/validate"
)

// ErrInvalidDocument is returned when a parser document cannot be imported.
var ErrInvalidDocument = errors.New("invalid syllabus document")

const defaultClass = "Unknown"

// parsedSchema accepts both shapes produced by the syllabus parser service:
// multi-subject {"class", "subjects": {name: [topics]}} and the older
// single-subject {"class", "subject", "topics"}.
const parsedSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "class":    {"type": "string"},
    "filename": {"type": "string"},
    "subject":  {"type": "string", "minLength": 1},
    "topics":   {"type": "array", "items": {"type": "string"}},
    "subjects": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {"type": "array", "items": {"type": "string"}}
    },
    "items": {"type": "array"}
  },
  "anyOf": [
    {"required": ["subjects"]},
    {"required": ["subject", "topics"]}
  ]
}`

var parsedDocument = validate.MustCompile("parsed-syllabus", parsedSchema)

type parsedSyllabus struct {
	Class    string          `json:"class"`
	Filename string          `json:"filename"`
	Subject  string          `json:"subject"`
	Topics   []string        `json:"topics"`
	Subjects orderedSubjects `json:"subjects"`
}

type parsedSubject struct {
	Name   string
	Topics []string
}

// orderedSubjects keeps subjects in document order; a plain map would lose it
// and with it the order topics are scheduled in.
type orderedSubjects []parsedSubject

func (o *orderedSubjects) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("subjects: expected object")
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("subjects: expected string key")
		}
		var topics []string
		if err := dec.Decode(&topics); err != nil {
			return fmt.Errorf("subjects[%s]: %w", name, err)
		}
		*o = append(*o, parsedSubject{Name: name, Topics: topics})
	}
	_, err = dec.Token()
	return err
}

// ImportParsed turns a parser service document into a syllabus and its
// ordered topics. Every topic gets a fresh ID and medium difficulty; blank
// topic names are skipped.
func ImportParsed(doc []byte) (Syllabus, []Topic, error) {
	if err := parsedDocument.Validate(doc); err != nil {
		return Syllabus{}, nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var parsed parsedSyllabus
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return Syllabus{}, nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	subjects := []parsedSubject(parsed.Subjects)
	if len(subjects) == 0 {
		subjects = []parsedSubject{{Name: parsed.Subject, Topics: parsed.Topics}}
	}

	class := cleanName(parsed.Class)
	if class == "" {
		class = defaultClass
	}

	syl := Syllabus{
		ID:       uuid.NewString(),
		Name:     class,
		Class:    class,
		Filename: parsed.Filename,
	}
	for _, ps := range subjects {
		subj := Subject{Name: cleanName(ps.Name)}
		for _, name := range ps.Topics {
			name = cleanName(name)
			if name == "" {
				continue
			}
			subj.Topics = append(subj.Topics, Topic{
				ID:         uuid.NewString(),
				SyllabusID: syl.ID,
				Subject:    subj.Name,
				Name:       name,
				Difficulty: DifficultyMedium,
			})
		}
		syl.Subjects = append(syl.Subjects, subj)
	}

	topics := syl.Topics()
	if len(topics) == 0 {
		return Syllabus{}, nil, fmt.Errorf("%w: no topics found", ErrInvalidDocument)
	}
	return syl, topics, nil
}
