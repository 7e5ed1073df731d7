package models

import (
	"time"
)

type Exam struct {
	ID              string    `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	TotalQuestions  int       `json:"total_questions" db:"total_questions"`
	IsPublished     bool      `json:"is_published" db:"is_published"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type Question struct {
	ID            string    `json:"id" db:"id"`
	ExamID        string    `json:"exam_id" db:"exam_id"`
	Text          string    `json:"text" db:"question_text"`
	OptionA       string    `json:"option_a" db:"option_a"`
	OptionB       string    `json:"option_b" db:"option_b"`
	OptionC       string    `json:"option_c" db:"option_c"`
	OptionD       string    `json:"option_d" db:"option_d"`
	CorrectOption string    `json:"-" db:"correct_option"`
	Marks         int       `json:"marks" db:"marks"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type Answer struct {
	ID             string `json:"id" db:"id"`
	AttemptID      string `json:"attempt_id" db:"attempt_id"`
	QuestionID     string `json:"question_id" db:"question_id"`
	SelectedOption string `json:"selected_option" db:"selected_option"`
	IsCorrect      bool   `json:"is_correct" db:"is_correct"`
}

// Grade maps final marks to the letter scale used on result pages.
func Grade(marks float64) string {
	switch {
	case marks >= 16:
		return "A"
	case marks >= 12:
		return "B"
	case marks >= 8:
		return "C"
	default:
		return "F"
	}
}
