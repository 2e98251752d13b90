package curriculum

// Difficulty rates how demanding a topic is to study.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Topic is a unit of study content taken from a syllabus.
type Topic struct {
	ID         string     `yaml:"id" json:"id"`
	SyllabusID string     `yaml:"syllabus_id" json:"syllabus_id,omitempty"`
	Subject    string     `yaml:"subject" json:"subject"`
	Name       string     `yaml:"name" json:"name"`
	Difficulty Difficulty `yaml:"difficulty" json:"difficulty"`
}

// Syllabus represents an uploaded or catalogued syllabus for one class.
type Syllabus struct {
	ID       string    `yaml:"id" json:"id"`
	Name     string    `yaml:"name" json:"name"`
	Class    string    `yaml:"class" json:"class"`
	Filename string    `yaml:"filename" json:"filename,omitempty"`
	Subjects []Subject `yaml:"subjects" json:"subjects"`
}

// Subject represents a subject within a syllabus (e.g., Physics).
type Subject struct {
	Name   string  `yaml:"name" json:"name"`
	Topics []Topic `yaml:"topics" json:"topics"`
}

// Topics flattens the syllabus in subject order. SyllabusID and Subject are
// filled in from the enclosing syllabus and subject.
func (s Syllabus) Topics() []Topic {
	var topics []Topic
	for _, subj := range s.Subjects {
		for _, t := range subj.Topics {
			t.SyllabusID = s.ID
			if t.Subject == "" {
				t.Subject = subj.Name
			}
			topics = append(topics, t)
		}
	}
	return topics
}
