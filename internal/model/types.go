// Package model defines shared data structures.
package model

import "time"

// Config defines suite practice settings resolved from flags and the config file.
type Config struct {
	Categories     []string
	Type           string
	PartTimeout    time.Duration
	SurfaceCmd     []string
	StorePath      string
	MaxRecords     int
	LogLevel       string
	BaseExamID     string
	MetadataSource string
}

// PartRef identifies one part of a suite sequence.
type PartRef struct {
	ExamID   string `json:"examId"`
	Label    string `json:"label,omitempty"`
	Title    string `json:"title,omitempty"`
	Category string `json:"category,omitempty"`
}

// ExamIndexEntry is one exam in the stored exam index.
type ExamIndexEntry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Type     string `json:"type,omitempty"`
	Category string `json:"category,omitempty"`
	Path     string `json:"path,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// ScoreInfo summarizes correctness for a part or a whole suite.
type ScoreInfo struct {
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Accuracy   float64 `json:"accuracy"`
	Percentage int     `json:"percentage"`
	Source     string  `json:"source,omitempty"`
}

// AnswerComparison compares a user answer with the expected one.
type AnswerComparison struct {
	UserAnswer    any  `json:"userAnswer"`
	CorrectAnswer any  `json:"correctAnswer"`
	IsCorrect     bool `json:"isCorrect"`
}

// SpellingError records a misspelled word for vocabulary review.
type SpellingError struct {
	Word       string `json:"word"`
	UserInput  string `json:"userInput"`
	QuestionID string `json:"questionId"`
	SuiteID    string `json:"suiteId,omitempty"`
	ExamID     string `json:"examId"`
	Timestamp  int64  `json:"timestamp"`
	ErrorCount int    `json:"errorCount"`
	Source     string `json:"source,omitempty"`
}

// PartResult is the normalized result of one completed part.
type PartResult struct {
	SuiteID          string                      `json:"suiteId"`
	ExamID           string                      `json:"examId"`
	Title            string                      `json:"title,omitempty"`
	Category         string                      `json:"category,omitempty"`
	Duration         float64                     `json:"duration"`
	ScoreInfo        ScoreInfo                   `json:"scoreInfo"`
	Answers          map[string]any              `json:"answers"`
	CorrectAnswers   map[string]any              `json:"correctAnswers"`
	AnswerComparison map[string]AnswerComparison `json:"answerComparison"`
	SpellingErrors   []SpellingError             `json:"spellingErrors"`
	Timestamp        int64                       `json:"timestamp"`
}

// PayloadScore is the score block reported by a part. Numeric fields are lenient.
type PayloadScore struct {
	Correct    Number                      `json:"correct"`
	Total      Number                      `json:"total"`
	Accuracy   Number                      `json:"accuracy"`
	Percentage Number                      `json:"percentage"`
	Source     string                      `json:"source,omitempty"`
	Details    map[string]AnswerComparison `json:"details,omitempty"`
}

// PartPayload is the completion payload a part reports when finished.
type PartPayload struct {
	SessionID        string                      `json:"sessionId,omitempty"`
	ExamID           string                      `json:"examId,omitempty"`
	SuiteID          string                      `json:"suiteId,omitempty"`
	SuiteSessionID   string                      `json:"suiteSessionId,omitempty"`
	Duration         Number                      `json:"duration"`
	ScoreInfo        PayloadScore                `json:"scoreInfo"`
	Answers          map[string]any              `json:"answers,omitempty"`
	CorrectAnswers   map[string]any              `json:"correctAnswers,omitempty"`
	AnswerComparison map[string]AnswerComparison `json:"answerComparison,omitempty"`
	SpellingErrors   []SpellingError             `json:"spellingErrors,omitempty"`
	Metadata         map[string]any              `json:"metadata,omitempty"`
}

// PracticeRecord is one entry of the practice_records collection.
// A suite produces a single record with MultiSuite set and one SuiteEntries
// item per part.
type PracticeRecord struct {
	ID               string                      `json:"id"`
	ExamID           string                      `json:"examId"`
	Title            string                      `json:"title"`
	Type             string                      `json:"type"`
	MultiSuite       bool                        `json:"multiSuite"`
	SuiteMode        bool                        `json:"suiteMode,omitempty"`
	Frequency        string                      `json:"frequency,omitempty"`
	Date             time.Time                   `json:"date"`
	StartTime        time.Time                   `json:"startTime"`
	EndTime          time.Time                   `json:"endTime"`
	Duration         float64                     `json:"duration"`
	TotalQuestions   int                         `json:"totalQuestions"`
	CorrectAnswers   int                         `json:"correctAnswers"`
	Accuracy         float64                     `json:"accuracy"`
	Percentage       int                         `json:"percentage"`
	ScoreInfo        ScoreInfo                   `json:"scoreInfo"`
	Answers          map[string]any              `json:"answers"`
	AnswerComparison map[string]AnswerComparison `json:"answerComparison"`
	SpellingErrors   []SpellingError             `json:"spellingErrors"`
	SuiteEntries     []PartResult                `json:"suiteEntries,omitempty"`
	SuiteSequence    int                         `json:"suiteSequence,omitempty"`
	SessionID        string                      `json:"sessionId,omitempty"`
	Source           string                      `json:"source,omitempty"`
	Metadata         map[string]any              `json:"metadata,omitempty"`
}
