// Package users is the client for the /usuarios resource plus the
// registration flow's client-side validation.
package users

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	nonstd "github.com/go-playground/validator/v10/non-standard/validators"
	"go.uber.org/multierr"

	"github.com/racoonius-programmer/levelup-storefront/internal/session"
	"github.com/racoonius-programmer/levelup-storefront/pkg/config"
	pkgerrors "github.com/racoonius-programmer/levelup-storefront/pkg/errors"
	"github.com/racoonius-programmer/levelup-storefront/pkg/security"
)

const birthDateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	if err := v.RegisterValidation("adult18", isAdult); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("notblank", nonstd.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// isAdult accepts a yyyy-mm-dd date at least 18 years in the past.
func isAdult(fl validator.FieldLevel) bool {
	born, err := time.Parse(birthDateLayout, fl.Field().String())
	if err != nil {
		return false
	}
	return !time.Now().Before(born.AddDate(18, 0, 0))
}

// User is the backend's account record.
type User struct {
	ID               string       `json:"id"`
	Username         string       `json:"username"`
	Email            string       `json:"correo"`
	Password         string       `json:"contrasena,omitempty"`
	Role             session.Role `json:"rol"`
	DiscountEligible bool         `json:"descuento"`
	BirthDate        string       `json:"fechaNacimiento,omitempty"`
	Avatar           string       `json:"avatar,omitempty"`
}

// Identity projects the account into the session-scoped record.
func (u User) Identity() session.Identity {
	return session.Identity{
		Username:         u.Username,
		Email:            u.Email,
		Role:             u.Role,
		DiscountEligible: u.DiscountEligible,
		Avatar:           u.Avatar,
	}
}

// Registration is the sign-up form payload. Validation happens before
// any network call.
type Registration struct {
	Username        string `json:"username" validate:"required,notblank"`
	Email           string `json:"correo" validate:"required,email"`
	Password        string `json:"contrasena" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmarContrasena" validate:"eqfield=Password"`
	BirthDate       string `json:"fechaNacimiento" validate:"required,adult18"`
	Avatar          string `json:"avatar"`
}

// ValidateRegistration checks every field and aggregates the failures,
// so a caller can surface all of them at once. The details payload maps
// each offending wire field to its message.
func ValidateRegistration(reg Registration) error {
	err := validate.Struct(reg)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "registration rejected")
	}

	details := map[string]string{}
	var errs error
	for _, fieldErr := range fieldErrs {
		message := validationMessage(fieldErr)
		details[fieldErr.Field()] = message
		errs = multierr.Append(errs, fmt.Errorf("%s %s", fieldErr.Field(), message))
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, errs, "registration rejected").
		WithDetails(details)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "eqfield":
		return "does not match the password"
	case "adult18":
		return fmt.Sprintf("must be a %s date of someone 18 or older", birthDateLayout)
	}
	return "is invalid"
}

// Messages flattens a validation error's details into sorted
// field-prefixed lines for user-facing display.
func Messages(err error) []string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return nil
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(details))
	for field, message := range details {
		out = append(out, field+" "+message)
	}
	sort.Strings(out)
	return out
}

type restClient interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, in, out any) error
	Put(ctx context.Context, path string, in, out any) error
	Delete(ctx context.Context, path string) error
}

// Client exposes the /usuarios operations.
type Client struct {
	rest     restClient
	password config.PasswordConfig
}

func NewClient(rest restClient, password config.PasswordConfig) (*Client, error) {
	if rest == nil {
		return nil, fmt.Errorf("rest client is required")
	}
	return &Client{rest: rest, password: password}, nil
}

func (c *Client) List(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.rest.Get(ctx, "/usuarios", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id string) (User, error) {
	var out User
	if err := c.rest.Get(ctx, "/usuarios/"+url.PathEscape(id), &out); err != nil {
		return User{}, err
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, user User) (User, error) {
	var out User
	if err := c.rest.Post(ctx, "/usuarios", user, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, id string, user User) (User, error) {
	var out User
	if err := c.rest.Put(ctx, "/usuarios/"+url.PathEscape(id), user, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.rest.Delete(ctx, "/usuarios/"+url.PathEscape(id))
}

// Register validates the payload, rejects an already-registered email,
// and creates the account with the default user role. The password is
// hashed before it leaves this process.
func (c *Client) Register(ctx context.Context, reg Registration) (User, error) {
	if err := ValidateRegistration(reg); err != nil {
		return User{}, err
	}

	existing, err := c.List(ctx)
	if err != nil {
		return User{}, err
	}
	wanted := strings.ToLower(strings.TrimSpace(reg.Email))
	for _, u := range existing {
		if strings.ToLower(u.Email) == wanted {
			return User{}, pkgerrors.New(pkgerrors.CodeConflict, "correo ya registrado")
		}
	}

	hashed, err := security.HashPassword(reg.Password, c.password)
	if err != nil {
		return User{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	return c.Create(ctx, User{
		Username:  strings.TrimSpace(reg.Username),
		Email:     strings.TrimSpace(reg.Email),
		Password:  hashed,
		Role:      session.RoleUser,
		BirthDate: reg.BirthDate,
		Avatar:    reg.Avatar,
	})
}
