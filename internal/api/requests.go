// internal/api/requests.go
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/libranexus/discovery/internal/discovery"
	"github.com/libranexus/discovery/internal/report"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// maxBodyBytes bounds advanced search request bodies.
const maxBodyBytes = 1 << 20

// AdvancedSearchRequest is the body of POST /search/advanced. Empty strings
// are treated as absent.
type AdvancedSearchRequest struct {
	Title         *string `json:"title" validate:"omitempty,max=200"`
	Author        *string `json:"author" validate:"omitempty,max=200"`
	Category      *string `json:"category" validate:"omitempty,max=100"`
	ISBN          *string `json:"isbn" validate:"omitempty,max=20"`
	YearMin       *int    `json:"publication_year_min" validate:"omitempty,gte=0,lte=9999"`
	YearMax       *int    `json:"publication_year_max" validate:"omitempty,gte=0,lte=9999"`
	AvailableOnly bool    `json:"available_only"`
}

func (req AdvancedSearchRequest) criteria() discovery.Criteria {
	return discovery.Criteria{
		Title:         nonEmpty(req.Title),
		Author:        nonEmpty(req.Author),
		Category:      nonEmpty(req.Category),
		ISBN:          nonEmpty(req.ISBN),
		YearMin:       req.YearMin,
		YearMax:       req.YearMax,
		AvailableOnly: req.AvailableOnly,
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

type SuggestionsRequest struct {
	Query string `validate:"min=2,max=100"`
	Type  string `validate:"omitempty,oneof=all titles authors categories"`
}

type TextSearchRequest struct {
	Query string `validate:"min=3,max=200"`
}

type LimitRequest struct {
	Limit int `validate:"min=1,max=50"`
}

// parsePeriod reads start_date and end_date as RFC 3339 timestamps or plain
// dates. A plain end date covers the whole day.
func parsePeriod(r *http.Request) (report.Period, error) {
	var p report.Period
	q := r.URL.Query()

	if raw := q.Get("start_date"); raw != "" {
		t, _, err := parseTime(raw)
		if err != nil {
			return p, fmt.Errorf("start_date: %w", err)
		}
		p.StartDate = &t
	}
	if raw := q.Get("end_date"); raw != "" {
		t, dateOnly, err := parseTime(raw)
		if err != nil {
			return p, fmt.Errorf("end_date: %w", err)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		p.EndDate = &t
	}
	return p, nil
}

func parseTime(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("expected RFC 3339 timestamp or YYYY-MM-DD date, got %q", raw)
	}
	return t, true, nil
}

// fieldError describes one failed validation rule.
type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// validationError wraps validator failures for the response details.
type validationError struct {
	fields []fieldError
}

func (e *validationError) Error() string {
	parts := make([]string, len(e.fields))
	for i, f := range e.fields {
		parts[i] = fmt.Sprintf("%s failed %s", f.Field, f.Rule)
	}
	return strings.Join(parts, "; ")
}

func validateRequest(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &validationError{}
	for _, fe := range verrs {
		out.fields = append(out.fields, fieldError{
			Field: strings.ToLower(fe.Field()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// intParam reads an integer query parameter, returning def when it is absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}
