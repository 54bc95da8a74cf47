package events

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/humon/server/internal/model"
)

// ValidationError carries one human-readable message per failed field.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// eventFields is the merged event state that must hold before a write. Field
// order fixes the order of reported errors.
type eventFields struct {
	Lat       *float64   `label:"Lat" validate:"required,latitude"`
	Lon       *float64   `label:"Lon" validate:"required,longitude"`
	Name      string     `label:"Name" validate:"notblank"`
	StartedAt *time.Time `label:"Started at" validate:"required"`
	EndedAt   *time.Time `label:"Ended at" validate:"omitempty,gtefield=StartedAt"`
	Address   string
}

func fieldsFromEvent(e model.Event) eventFields {
	lat, lon, startedAt := e.Lat, e.Lon, e.StartedAt
	f := eventFields{
		Lat:       &lat,
		Lon:       &lon,
		Name:      e.Name,
		StartedAt: &startedAt,
		Address:   e.Address,
	}
	if e.EndedAt != nil {
		endedAt := *e.EndedAt
		f.EndedAt = &endedAt
	}
	return f
}

// apply merges the fields present in in; a present null clears the field.
func (f *eventFields) apply(in EventInput) {
	if in.Name.Set {
		f.Name = ""
		if in.Name.Value != nil {
			f.Name = strings.TrimSpace(*in.Name.Value)
		}
	}
	if in.Address.Set {
		f.Address = ""
		if in.Address.Value != nil {
			f.Address = strings.TrimSpace(*in.Address.Value)
		}
	}
	if in.Lat.Set {
		f.Lat = in.Lat.Value
	}
	if in.Lon.Set {
		f.Lon = in.Lon.Value
	}
	if in.StartedAt.Set {
		f.StartedAt = utc(in.StartedAt.Value)
	}
	if in.EndedAt.Set {
		f.EndedAt = utc(in.EndedAt.Value)
	}
}

// event builds the model; only call after validation passed.
func (f eventFields) event(id, ownerID int64) model.Event {
	return model.Event{
		ID:        id,
		Name:      f.Name,
		Address:   f.Address,
		Lat:       *f.Lat,
		Lon:       *f.Lon,
		StartedAt: *f.StartedAt,
		EndedAt:   f.EndedAt,
		OwnerID:   ownerID,
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// NearestParams are the proximity query parameters; nil means absent.
type NearestParams struct {
	Lat    *float64 `label:"Lat" validate:"required,latitude"`
	Lon    *float64 `label:"Lon" validate:"required,longitude"`
	Radius *float64 `label:"Radius" validate:"required,gt=0"`
}

// NearestParamsFromQuery reads lat, lon and radius from a query string. Values
// that are present but not numbers are reported as a ValidationError.
func NearestParamsFromQuery(q url.Values) (NearestParams, error) {
	var (
		p    NearestParams
		errs []string
	)
	parse := func(key, label string, dst **float64) {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, label+" is not a number")
			return
		}
		*dst = &v
	}
	parse("lat", "Lat", &p.Lat)
	parse("lon", "Lon", &p.Lon)
	parse("radius", "Radius", &p.Radius)

	if len(errs) > 0 {
		return NearestParams{}, &ValidationError{Errors: errs}
	}
	return p, nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank: %v", err))
	}
	v.RegisterTagNameFunc(labelOf)
	return v
}

func labelOf(f reflect.StructField) string {
	if label := f.Tag.Get("label"); label != "" {
		return label
	}
	return f.Name
}

// check validates s and converts validator output into a ValidationError.
func check(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	blank := make(map[string]bool)
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" || fe.Tag() == "notblank" {
			blank[fe.StructField()] = true
		}
		// An end before a missing start is reported as the missing start only.
		if fe.Tag() == "gtefield" && blank[fe.Param()] {
			continue
		}
		msgs = append(msgs, message(s, fe))
	}
	return &ValidationError{Errors: msgs}
}

func message(s any, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fe.Field() + " can't be blank"
	case "latitude":
		return fe.Field() + " must be between -90 and 90"
	case "longitude":
		return fe.Field() + " must be between -180 and 180"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gtefield":
		other := fe.Param()
		if sf, ok := reflect.TypeOf(s).FieldByName(other); ok {
			other = labelOf(sf)
		}
		return fmt.Sprintf("%s can't be before %s", fe.Field(), strings.ToLower(other))
	default:
		return fe.Field() + " is invalid"
	}
}
