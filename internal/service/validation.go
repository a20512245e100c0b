package service

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Motaplivia/tudinhoo/internal/model"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Empty is left to required_if.
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return value == "" || clockPattern.MatchString(value)
	})
	return v
}

// ValidationError is a user input problem detected before any store call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// TaskInput is the form used to create or edit a task.
type TaskInput struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Urgency     string     `json:"urgency"`
	DueDate     *time.Time `json:"dueDate"`
	IsFullDay   bool       `json:"isFullDay"`
	StartTime   string     `json:"startTime" validate:"required_if=IsFullDay false,clock"`
	EndTime     string     `json:"endTime" validate:"required_if=IsFullDay false,clock"`
	Completed   bool       `json:"completed"`
}

var fieldMessages = map[string]string{
	"Title":       "O título da tarefa é obrigatório",
	"Description": "A descrição é muito longa",
	"StartTime":   "Defina os horários de início e término",
	"EndTime":     "Defina os horários de início e término",
}

// toTask validates the input and builds an unsaved task. now fills a missing due date.
func (in TaskInput) toTask(now time.Time) (*model.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.StartTime = strings.TrimSpace(in.StartTime)
	in.EndTime = strings.TrimSpace(in.EndTime)

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := verrs[0].Field()
			msg, ok := fieldMessages[field]
			if !ok {
				msg = "Dados da tarefa inválidos"
			}
			return nil, &ValidationError{Field: field, Message: msg}
		}
		return nil, err
	}

	urgency, err := model.ParseUrgency(in.Urgency)
	if err != nil {
		return nil, &ValidationError{Field: "Urgency", Message: "Urgência inválida"}
	}

	due := now
	if in.DueDate != nil && !in.DueDate.IsZero() {
		due = *in.DueDate
	}

	task := &model.Task{
		Title:       in.Title,
		Description: in.Description,
		Urgency:     urgency,
		DueDate:     due,
		IsFullDay:   in.IsFullDay,
		Completed:   in.Completed,
	}
	if !in.IsFullDay {
		task.StartTime = in.StartTime
		task.EndTime = in.EndTime
	}
	return task, nil
}
