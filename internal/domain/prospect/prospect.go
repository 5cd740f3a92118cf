// Package prospect contains the scouted athlete model and the list query types.
package prospect

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Position is the field position of an athlete.
type Position string

const (
	Delantero      Position = "Delantero"
	Centrocampista Position = "Centrocampista"
	Defensa        Position = "Defensa"
	Portero        Position = "Portero"
	Portera        Position = "Portera"
)

// Positions lists every known position in display order.
var Positions = []Position{Delantero, Centrocampista, Defensa, Portero, Portera} //nolint:gochecknoglobals // read-only enum table

// Valid reports whether p is a known position.
func (p Position) Valid() bool {
	for _, known := range Positions {
		if p == known {
			return true
		}
	}
	return false
}

// Status is the contractual status of an athlete.
type Status string

const (
	Libre      Status = "Libre"
	Contratado Status = "Contratado"
	Observado  Status = "Observado"
	Pendiente  Status = "Pendiente"
)

// Statuses lists every known status in display order.
var Statuses = []Status{Libre, Contratado, Observado, Pendiente} //nolint:gochecknoglobals // read-only enum table

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Ratings holds the 0-100 evaluation scores. Zero means unrated.
type Ratings struct {
	OvrGeneral      int `json:"ovrGeneral"      validate:"min=0,max=100"`
	OvrFisico       int `json:"ovrFisico"       validate:"min=0,max=100"`
	OvrTecnico      int `json:"ovrTecnico"      validate:"min=0,max=100"`
	OverCompetencia int `json:"overCompetencia" validate:"min=0,max=100"`
	Potencia        int `json:"potencia"        validate:"min=0,max=100"`
	Resistencia     int `json:"resistencia"     validate:"min=0,max=100"`
	Fuerza          int `json:"fuerza"          validate:"min=0,max=100"`
	Agilidad        int `json:"agilidad"        validate:"min=0,max=100"`
	Velocidad       int `json:"velocidad"       validate:"min=0,max=100"`
	Flexibilidad    int `json:"flexibilidad"    validate:"min=0,max=100"`
}

// Validate checks every score lies in 0-100.
func (r Ratings) Validate() error {
	return validateStruct(r)
}

// Prospect is a scouted athlete as returned by the backend.
type Prospect struct {
	SessionID    string   `json:"sessionID,omitempty"`
	LegacyID     string   `json:"_id,omitempty"`
	Name         string   `json:"name"`
	Age          int      `json:"age,omitempty"`
	YearOfBirth  int      `json:"yearOfbirth,omitempty"`
	BirthdayDate string   `json:"birthdayDate,omitempty"`
	Position     Position `json:"position,omitempty"`
	Club         string   `json:"club,omitempty"`
	Talla        float64  `json:"talla,omitempty"`
	Status       Status   `json:"status,omitempty"`
	Ratings
	ImgData string `json:"imgData,omitempty"`
	Videos  string `json:"videos,omitempty"`
	// FullAccess drives the premium badge only.
	FullAccess bool   `json:"fullaccess"`
	Notes      string `json:"notes,omitempty"`
}

// ID returns the row identity: sessionID, or the legacy _id for old payloads.
func (p Prospect) ID() string {
	if p.SessionID != "" {
		return p.SessionID
	}
	return p.LegacyID
}

// AgeOn returns the provided age, else derives it from birthdayDate or yearOfbirth.
// Returns 0 when nothing is known.
func (p Prospect) AgeOn(now time.Time) int {
	if p.Age > 0 {
		return p.Age
	}
	if p.BirthdayDate != "" {
		if born, err := time.Parse(time.DateOnly, p.BirthdayDate); err == nil {
			age := now.Year() - born.Year()
			if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
				age--
			}
			return max(age, 0)
		}
	}
	if p.YearOfBirth > 0 {
		return max(now.Year()-p.YearOfBirth, 0)
	}
	return 0
}

// Draft is the input of a create call.
type Draft struct {
	Name         string   `json:"name"                   validate:"required,max=120"`
	YearOfBirth  int      `json:"yearOfbirth,omitempty"  validate:"omitempty,min=1900,max=2100"`
	BirthdayDate string   `json:"birthdayDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Position     Position `json:"position"               validate:"required,position"`
	Club         string   `json:"club,omitempty"         validate:"max=120"`
	Talla        float64  `json:"talla,omitempty"        validate:"omitempty,gt=0,lt=3"`
	Status       Status   `json:"status,omitempty"       validate:"omitempty,status"`
	Ratings
	ImgData string `json:"imgData,omitempty" validate:"omitempty,url"`
}

// Validate checks the draft before it is sent.
func (d Draft) Validate() error {
	return validateStruct(d)
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name         *string   `json:"name,omitempty"         validate:"omitempty,min=1,max=120"`
	YearOfBirth  *int      `json:"yearOfbirth,omitempty"  validate:"omitempty,min=1900,max=2100"`
	BirthdayDate *string   `json:"birthdayDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Position     *Position `json:"position,omitempty"     validate:"omitempty,position"`
	Club         *string   `json:"club,omitempty"         validate:"omitempty,max=120"`
	Talla        *float64  `json:"talla,omitempty"        validate:"omitempty,gt=0,lt=3"`
	ImgData      *string   `json:"imgData,omitempty"      validate:"omitempty,url"`
}

// Validate checks the patch before it is sent.
func (p Patch) Validate() error {
	return validateStruct(p)
}

// ApplyTo returns target with the non-nil fields of p copied in.
func (p Patch) ApplyTo(target Prospect) Prospect {
	if p.Name != nil {
		target.Name = *p.Name
	}
	if p.YearOfBirth != nil {
		target.YearOfBirth = *p.YearOfBirth
	}
	if p.BirthdayDate != nil {
		target.BirthdayDate = *p.BirthdayDate
	}
	if p.Position != nil {
		target.Position = *p.Position
	}
	if p.Club != nil {
		target.Club = *p.Club
	}
	if p.Talla != nil {
		target.Talla = *p.Talla
	}
	if p.ImgData != nil {
		target.ImgData = *p.ImgData
	}
	return target
}

// VideoUpload is the backend answer to a video upload.
type VideoUpload struct {
	VideoURL string `json:"videoUrl"`
}

var validate = newValidator() //nolint:gochecknoglobals // validator caches struct metadata

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	_ = v.RegisterValidation("position", func(fl validator.FieldLevel) bool {
		return Position(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	})
	return v
}

// jsonName reports fields by their wire name.
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

func validateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
