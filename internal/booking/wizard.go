// Package booking implements the repair booking wizard.  The wizard is a
// linear three step form (device and service, location and schedule,
// contact) followed by a success state.  Navigation is forward and back
// only; the schedule step asks for an address only when the chosen delivery
// type needs one.
package booking

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/smartfix/internal/model"
)

// Step is a wizard state.
type Step int

const (
	StepDevice Step = iota + 1
	StepSchedule
	StepContact
	StepSuccess
)

func (s Step) String() string {
	switch s {
	case StepDevice:
		return "device"
	case StepSchedule:
		return "schedule"
	case StepContact:
		return "contact"
	case StepSuccess:
		return "success"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

var (
	ErrNoNextStep   = errors.New("no next step")
	ErrNoPrevStep   = errors.New("no previous step")
	ErrIncomplete   = errors.New("booking is incomplete")
	ErrPastSchedule = errors.New("scheduled date is in the past")
)

// ValidationError lists the invalid fields of one step.
type ValidationError struct {
	Step   Step
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("%s step: invalid %s", e.Step, strings.Join(keys, ", "))
}

// DeviceDetails is step 1.
type DeviceDetails struct {
	Device           model.Device   `json:"device"`
	ServiceID        string         `json:"service_id" validate:"required"`
	IssueDescription string         `json:"issue_description" validate:"required,min=5,max=2000"`
	Priority         model.Priority `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

// ScheduleDetails is step 2.  Address is only checked when the delivery type
// requires one.
type ScheduleDetails struct {
	DeliveryType string        `json:"delivery_type" validate:"required"`
	Address      model.Address `json:"address"`
	Date         string        `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string        `json:"time" validate:"required,datetime=15:04"`
}

// ContactDetails is step 3.
type ContactDetails struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,min=7,max=32"`
	Notes string `json:"notes" validate:"max=2000"`
}

// Request is the composed booking-creation payload.
type Request struct {
	Device           model.Device
	ServiceID        string
	IssueDescription string
	Priority         model.Priority
	Delivery         DeliveryType
	Address          *model.Address
	ScheduledDate    string
	ScheduledTime    string
	Name             string
	Email            string
	Phone            string
	Notes            string
	UserID           string // authenticated submitter, empty for guests
}

// Creator stores a booking built from a Request.
type Creator interface {
	Create(ctx context.Context, req Request) (model.Booking, error)
}

var validate = newValidator()

// newValidator reports fields under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Wizard holds the state of one booking flow.  It is not safe for
// concurrent use.
type Wizard struct {
	step     Step
	Device   DeviceDetails
	Schedule ScheduleDetails
	Contact  ContactDetails
	UserID   string

	lastErr error
	booking model.Booking
	now     func() time.Time
}

// NewWizard starts a wizard on the device step.
func NewWizard() *Wizard {
	return &Wizard{step: StepDevice, now: time.Now}
}

func (w *Wizard) Step() Step { return w.step }

// Err is the error of the last failed submission.
func (w *Wizard) Err() error { return w.lastErr }

// Booking is the stored booking once the wizard reached StepSuccess.
func (w *Wizard) Booking() model.Booking { return w.booking }

// AddressRequired reports whether the schedule step must collect an address.
func (w *Wizard) AddressRequired() bool {
	d, ok := LookupDeliveryType(w.Schedule.DeliveryType)
	return ok && d.RequiresAddress
}

// Next validates the current step and advances.  The contact step has no
// next step; it is left through Submit.
func (w *Wizard) Next() error {
	if w.step != StepDevice && w.step != StepSchedule {
		return ErrNoNextStep
	}
	if err := w.check(w.step); err != nil {
		return err
	}
	w.step++
	return nil
}

// Back returns to the previous step.  Entered values are kept.
func (w *Wizard) Back() error {
	if w.step != StepSchedule && w.step != StepContact {
		return ErrNoPrevStep
	}
	w.step--
	return nil
}

// CanSubmit is true on the contact step when all three steps are valid.
func (w *Wizard) CanSubmit() bool {
	if w.step != StepContact {
		return false
	}
	for _, s := range []Step{StepDevice, StepSchedule, StepContact} {
		if w.check(s) != nil {
			return false
		}
	}
	return true
}

// Submit composes the three steps into one Request and hands it to c.  When
// CanSubmit is false c is not called.  A creation failure keeps the wizard on
// the contact step so the caller can retry.
func (w *Wizard) Submit(ctx context.Context, c Creator) (model.Booking, error) {
	if w.step != StepContact {
		return model.Booking{}, ErrIncomplete
	}
	for _, s := range []Step{StepDevice, StepSchedule, StepContact} {
		if err := w.check(s); err != nil {
			return model.Booking{}, err
		}
	}
	b, err := c.Create(ctx, w.request())
	if err != nil {
		w.lastErr = err
		return model.Booking{}, err
	}
	w.lastErr = nil
	w.booking = b
	w.step = StepSuccess
	return b, nil
}

func (w *Wizard) request() Request {
	d, _ := LookupDeliveryType(w.Schedule.DeliveryType)
	req := Request{
		Device:           w.Device.Device,
		ServiceID:        strings.TrimSpace(w.Device.ServiceID),
		IssueDescription: strings.TrimSpace(w.Device.IssueDescription),
		Priority:         w.Device.Priority,
		Delivery:         d,
		ScheduledDate:    w.Schedule.Date,
		ScheduledTime:    w.Schedule.Time,
		Name:             strings.TrimSpace(w.Contact.Name),
		Email:            strings.ToLower(strings.TrimSpace(w.Contact.Email)),
		Phone:            strings.TrimSpace(w.Contact.Phone),
		Notes:            strings.TrimSpace(w.Contact.Notes),
		UserID:           w.UserID,
	}
	if req.Priority == "" {
		req.Priority = model.PriorityNormal
	}
	if d.RequiresAddress {
		addr := w.Schedule.Address
		req.Address = &addr
	}
	return req
}

func (w *Wizard) check(s Step) error {
	var err error
	switch s {
	case StepDevice:
		err = validate.Struct(w.Device)
	case StepSchedule:
		err = w.checkSchedule()
	case StepContact:
		err = validate.Struct(w.Contact)
	}
	return asValidationError(s, err)
}

func (w *Wizard) checkSchedule() error {
	if err := validate.Struct(w.Schedule.withoutAddress()); err != nil {
		return err
	}
	d, ok := LookupDeliveryType(w.Schedule.DeliveryType)
	if !ok {
		return &ValidationError{Step: StepSchedule, Fields: map[string]string{"delivery_type": "unknown"}}
	}
	if d.RequiresAddress {
		if err := validate.Struct(w.Schedule.Address); err != nil {
			return err
		}
	}
	day, _ := time.Parse("2006-01-02", w.Schedule.Date)
	today := w.now().UTC().Truncate(24 * time.Hour)
	if day.Before(today) {
		return ErrPastSchedule
	}
	return nil
}

// withoutAddress hides the address from the struct validator; it is checked
// separately depending on the delivery type.
func (s ScheduleDetails) withoutAddress() any {
	return struct {
		DeliveryType string `json:"delivery_type" validate:"required"`
		Date         string `json:"date" validate:"required,datetime=2006-01-02"`
		Time         string `json:"time" validate:"required,datetime=15:04"`
	}{s.DeliveryType, s.Date, s.Time}
}

func asValidationError(s Step, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		ve.Step = s
		return ve
	}
	var fe validator.ValidationErrors
	if !errors.As(err, &fe) {
		return err
	}
	out := &ValidationError{Step: s, Fields: make(map[string]string, len(fe))}
	for _, f := range fe {
		out.Fields[f.Field()] = f.Tag()
	}
	return out
}
