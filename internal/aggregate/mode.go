package aggregate

import (
	"fmt"
	"strconv"
	"strings"

	"analizador/internal/core"
)

// Mode selects one of the fixed chart variants.
type Mode int

const (
	QualityByMonth Mode = iota + 1
	QualityByOrigin
	ValueByQuality
	ValueByMonth
	QualityByFamily
	MeanValueByOriginQuality
)

type modeInfo struct {
	label    string
	slug     string
	title    string
	required []string
}

var modes = map[Mode]modeInfo{
	QualityByMonth: {
		label:    "Distribución de Calidad por Mes",
		slug:     "calidad-mes",
		title:    "Proporción de valores de CALIDAD por Mes",
		required: []string{core.ColMonth, core.ColQuality},
	},
	QualityByOrigin: {
		label:    "Distribución de Calidad por Origen",
		slug:     "calidad-origen",
		title:    "Proporción de valores de CALIDAD por Origen",
		required: []string{core.ColOrigin, core.ColQuality},
	},
	ValueByQuality: {
		label:    "Distribución de Valores por Calidad",
		slug:     "valor-calidad",
		title:    "Distribución de Valores por Calidad",
		required: []string{core.ColQuality, core.ColValue},
	},
	ValueByMonth: {
		label:    "Valor por Mes",
		slug:     "valor-mes",
		title:    "Valor por Mes",
		required: []string{core.ColMonth, core.ColValue},
	},
	QualityByFamily: {
		label:    "Distribución de Calidad por Familia",
		slug:     "calidad-familia",
		title:    "Distribución de Calidad por Familia",
		required: []string{core.ColFamily, core.ColQuality},
	},
	MeanValueByOriginQuality: {
		label:    "Valor Promedio por Origen y Calidad",
		slug:     "valor-origen-calidad",
		title:    "Valor Promedio por Origen y Calidad",
		required: []string{core.ColOrigin, core.ColQuality, core.ColValue},
	},
}

// Modes lists every mode in dropdown order.
func Modes() []Mode {
	return []Mode{QualityByMonth, QualityByOrigin, ValueByQuality, ValueByMonth, QualityByFamily, MeanValueByOriginQuality}
}

// Valid reports whether m is one of the six modes.
func (m Mode) Valid() bool {
	_, ok := modes[m]
	return ok
}

// Label is the exact dropdown text.
func (m Mode) Label() string { return modes[m].label }

// Slug is the URL form of the mode.
func (m Mode) Slug() string { return modes[m].slug }

// Title is the chart title.
func (m Mode) Title() string { return modes[m].title }

// Required lists the joined-table columns the mode reads.
func (m Mode) Required() []string { return append([]string(nil), modes[m].required...) }

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return m.Slug()
}

// ParseMode accepts a label, a slug or a 1-based index.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if m := Mode(n); m.Valid() {
			return m, nil
		}
		return 0, fmt.Errorf("%w: %s", core.ErrUnknownMode, s)
	}
	for _, m := range Modes() {
		info := modes[m]
		if s == info.label || strings.EqualFold(s, info.slug) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", core.ErrUnknownMode, s)
}

// MarshalText lets modes travel as slugs in JSON.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", core.ErrUnknownMode, int(m))
	}
	return []byte(m.Slug()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
