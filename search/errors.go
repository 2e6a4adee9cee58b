package search

import (
	"context"
	"errors"
	"fmt"

	"terminy/nfz"
	"terminy/spreadsheet"
)

var (
	// ErrValidation is returned when a required filter is missing.
	ErrValidation = errors.New("validation error")
	// ErrSuperseded is returned to a caller whose result was discarded
	// because a newer request started in the meantime.
	ErrSuperseded = errors.New("request superseded by a newer one")
)

type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s is required", ErrValidation, e.Field)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Message turns an error into the text shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var validation *ValidationError
	var apiErr *nfz.Error
	switch {
	case errors.As(err, &validation):
		if validation.Field == "region" {
			return "Wybierz województwo"
		}
		return "Uzupełnij wymagane pola"
	case errors.As(err, &apiErr):
		return apiErr.Message()
	case errors.Is(err, spreadsheet.ErrHTMLPayload):
		return "Plik z danymi jest chwilowo niedostępny. Spróbuj ponownie później."
	case errors.Is(err, spreadsheet.ErrNotAnArchive), errors.Is(err, spreadsheet.ErrMissingWorksheet):
		return "Nieprawidłowy format pliku z danymi"
	case errors.Is(err, spreadsheet.ErrHeaderNotFound), errors.Is(err, spreadsheet.ErrMissingRequiredColumns):
		return "Nieoczekiwany układ arkusza z danymi"
	case errors.Is(err, context.Canceled), errors.Is(err, ErrSuperseded):
		return "Wyszukiwanie przerwane"
	case errors.Is(err, context.DeadlineExceeded):
		return "Przekroczono czas oczekiwania na odpowiedź"
	default:
		return fmt.Sprintf("Błąd pobierania danych: %s", err)
	}
}
