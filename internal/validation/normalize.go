package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Artexxx/employee-registry/internal/dto"
)

// dateLayouts — допустимые форматы joining_date. Месяц и день могут быть без ведущего нуля.
// Числовые форматы со слешем трактуются как месяц/день/год.
var dateLayouts = []string{
	"2006-1-2",
	"2006-1-2T15:04:05",
	"2006-1-2T15:04:05Z07:00",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04:05Z07:00",
	"2006/1/2",
	"2006.1.2",
	"20060102",
	"1/2/2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
}

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidSkills = errors.New("invalid skills")
)

// NormalizeDate приводит дату к виду YYYY-MM-DD. Часовой пояс не учитывается:
// берётся календарная дата в том виде, в каком она записана.
func NormalizeDate(in dto.DateInput) (string, error) {
	switch in.Kind {
	case dto.DateNative:
		if in.Time.IsZero() {
			return "", fmt.Errorf("%w: zero time", ErrInvalidDate)
		}
		return in.Time.Format(time.DateOnly), nil
	case dto.DateText:
		t, err := ParseDate(in.Text)
		if err != nil {
			return "", err
		}
		return t.Format(time.DateOnly), nil
	default:
		return "", fmt.Errorf("%w: unknown input kind", ErrInvalidDate)
	}
}

func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidDate)
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: unsupported format %q", ErrInvalidDate, s)
}

// NormalizeSkills режет строку по запятым, обрезает пробелы и выбрасывает пустые токены.
// К массиву применяются те же правила, порядок сохраняется.
func NormalizeSkills(in dto.SkillsInput) ([]string, error) {
	var tokens []string

	switch in.Kind {
	case dto.SkillsCSV:
		tokens = strings.Split(in.CSV, ",")
	case dto.SkillsList:
		tokens = in.List
	default:
		return nil, fmt.Errorf("%w: unknown input kind", ErrInvalidSkills)
	}

	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}

	return out, nil
}
