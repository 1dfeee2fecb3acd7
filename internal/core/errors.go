package core

import (
	"errors"
	"fmt"
)

var (
	// ErrLoad matches every *LoadError through errors.Is.
	ErrLoad = errors.New("load failed")
	// ErrMissingColumn matches every *MissingColumnError through errors.Is.
	ErrMissingColumn = errors.New("missing column")
	// ErrNoData is returned when no workbook is available to analyse.
	ErrNoData = errors.New("no data loaded")
	// ErrUnknownMode is returned for chart modes outside the fixed set.
	ErrUnknownMode = errors.New("unknown chart mode")
)

// LoadError describes why a workbook could not be loaded. Row is the
// 1-based spreadsheet row (header is row 1); zero when not row specific.
type LoadError struct {
	Source string
	Sheet  string
	Column string
	Row    int
	Err    error
}

func (e *LoadError) Error() string {
	msg := "load"
	if e.Source != "" {
		msg += " " + e.Source
	}
	if e.Sheet != "" {
		msg += fmt.Sprintf(": sheet %q", e.Sheet)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	if e.Row > 0 {
		msg += fmt.Sprintf(" row %d", e.Row)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// MissingColumnError is raised when the joined table lacks a column a chart needs.
type MissingColumnError struct {
	Mode   string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("chart %q requires column %q", e.Mode, e.Column)
}

func (e *MissingColumnError) Is(target error) bool { return target == ErrMissingColumn }

// UserMessage converts any failure into the single message shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var le *LoadError
	var mc *MissingColumnError
	switch {
	case errors.Is(err, ErrNoData):
		return "Por favor, suba un archivo Excel para comenzar el análisis."
	case errors.As(err, &le):
		return "Error al cargar el archivo Excel: " + le.Error()
	case errors.As(err, &mc):
		return "No se puede generar el gráfico: falta la columna " + mc.Column
	case errors.Is(err, ErrUnknownMode):
		return "Tipo de gráfico no válido"
	default:
		return "Error inesperado: " + err.Error()
	}
}
