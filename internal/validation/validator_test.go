package validation

import (
	"testing"
	"time"

	"github.com/mroshb/friend_calendar/pkg/errors"
)

type sample struct {
	Name     string  `json:"name" validate:"required,max=10"`
	Time     *string `json:"time" validate:"omitnil,clock"`
	Color    string  `json:"color" validate:"omitempty,color6"`
	Date     string  `json:"date" validate:"required,date"`
	Username string  `json:"username" validate:"omitempty,username"`
	Nested   *nested `json:"nested" validate:"omitnil"`
}

type nested struct {
	Frequency string `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	Interval  *int   `json:"interval" validate:"omitnil,min=1"`
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     sample
		wantField string
	}{
		{
			name:  "Valid",
			input: sample{Name: "ok", Time: strPtr("23:59"), Color: "#A0b1C2", Date: "2026-10-16"},
		},
		{
			name:  "Midnight",
			input: sample{Name: "ok", Time: strPtr("00:00"), Date: "2026-10-16"},
		},
		{
			name:      "Hour out of range",
			input:     sample{Name: "ok", Time: strPtr("25:00"), Date: "2026-10-16"},
			wantField: "time",
		},
		{
			name:      "Single digit hour",
			input:     sample{Name: "ok", Time: strPtr("9:30"), Date: "2026-10-16"},
			wantField: "time",
		},
		{
			name:      "Missing name",
			input:     sample{Date: "2026-10-16"},
			wantField: "name",
		},
		{
			name:      "Name too long",
			input:     sample{Name: "abcdefghijk", Date: "2026-10-16"},
			wantField: "name",
		},
		{
			name:      "Short color",
			input:     sample{Name: "ok", Color: "#fff", Date: "2026-10-16"},
			wantField: "color",
		},
		{
			name:      "Bad date",
			input:     sample{Name: "ok", Date: "16/10/2026"},
			wantField: "date",
		},
		{
			name:      "Bad username",
			input:     sample{Name: "ok", Date: "2026-10-16", Username: "bob smith"},
			wantField: "username",
		},
		{
			name:      "Unknown frequency",
			input:     sample{Name: "ok", Date: "2026-10-16", Nested: &nested{Frequency: "yearly"}},
			wantField: "nested.frequency",
		},
		{
			name:      "Zero interval",
			input:     sample{Name: "ok", Date: "2026-10-16", Nested: &nested{Frequency: "daily", Interval: intPtr(0)}},
			wantField: "nested.interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Struct() error = %v", err)
				}
				return
			}

			if !errors.Is(err, errors.ErrCodeValidation) {
				t.Fatalf("Struct() error = %v, want VALIDATION_ERROR", err)
			}
			appErr := err.(*errors.AppError)
			if _, ok := appErr.Fields[tt.wantField]; !ok {
				t.Errorf("Fields = %v, want key %q", appErr.Fields, tt.wantField)
			}
		})
	}
}

type patch struct {
	Time       *string `json:"time" validate:"omitempty,len=0|clock"`
	CalendarID *uint   `json:"calendarId"`
	Detach     bool    `json:"detach" validate:"excluded_with=CalendarID"`
}

func TestStruct_ClearableFields(t *testing.T) {
	id := uint(3)

	if err := Struct(patch{Time: strPtr("")}); err != nil {
		t.Errorf("empty time: Struct() error = %v", err)
	}
	if err := Struct(patch{Time: strPtr("08:15"), Detach: true}); err != nil {
		t.Errorf("detach alone: Struct() error = %v", err)
	}

	err := Struct(patch{Time: strPtr("8:15")})
	appErr, ok := err.(*errors.AppError)
	if !ok {
		t.Fatalf("Struct() error = %v, want AppError", err)
	}
	if got := appErr.Fields["time"]; got != "must be empty or a 24-hour time formatted HH:MM" {
		t.Errorf("Fields[time] = %q", got)
	}

	err = Struct(patch{CalendarID: &id, Detach: true})
	appErr, ok = err.(*errors.AppError)
	if !ok {
		t.Fatalf("Struct() error = %v, want AppError", err)
	}
	if got := appErr.Fields["detach"]; got != "cannot be combined with calendarId" {
		t.Errorf("Fields[detach] = %q", got)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{input: "2026-10-16", want: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)},
		{input: "2026-10-16T23:30:00+02:00", want: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)},
		{input: "2026-02-30", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDateOf(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 20:00 UTC on the 15th is already the 16th in Tokyo.
	instant := time.Date(2026, 10, 15, 20, 0, 0, 0, time.UTC)

	if got := DateOf(instant, tokyo); !got.Equal(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DateOf() = %v", got)
	}
	if got := DateOf(instant, time.UTC); !got.Equal(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DateOf() = %v", got)
	}
}
