package users

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/racoonius-programmer/levelup-storefront/internal/session"
	"github.com/racoonius-programmer/levelup-storefront/pkg/config"
	pkgerrors "github.com/racoonius-programmer/levelup-storefront/pkg/errors"
	"github.com/racoonius-programmer/levelup-storefront/pkg/security"
)

type stubRest struct {
	getFn    func(ctx context.Context, path string, out any) error
	postFn   func(ctx context.Context, path string, in, out any) error
	putFn    func(ctx context.Context, path string, in, out any) error
	deleteFn func(ctx context.Context, path string) error
}

func (s *stubRest) Get(ctx context.Context, path string, out any) error {
	return s.getFn(ctx, path, out)
}

func (s *stubRest) Post(ctx context.Context, path string, in, out any) error {
	return s.postFn(ctx, path, in, out)
}

func (s *stubRest) Put(ctx context.Context, path string, in, out any) error {
	return s.putFn(ctx, path, in, out)
}

func (s *stubRest) Delete(ctx context.Context, path string) error {
	return s.deleteFn(ctx, path)
}

func fastPassword() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
}

func validRegistration() Registration {
	return Registration{
		Username:        "racoonius",
		Email:           "racoonius@duocuc.cl",
		Password:        "s3creta",
		ConfirmPassword: "s3creta",
		BirthDate:       time.Now().AddDate(-26, 0, 0).Format("2006-01-02"),
	}
}

func validationDetails(t *testing.T, err error) map[string]string {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation code, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", pkgerrors.As(err).Details())
	}
	return details
}

func TestValidateRegistrationAccepts(t *testing.T) {
	if err := ValidateRegistration(validRegistration()); err != nil {
		t.Fatalf("expected valid registration, got %v", err)
	}
}

func TestValidateRegistrationMatrix(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Registration)
		wantField string
		wantMsg   string
	}{
		{
			name:      "blank username",
			mutate:    func(r *Registration) { r.Username = "  " },
			wantField: "username",
			wantMsg:   "is required",
		},
		{
			name:      "missing email",
			mutate:    func(r *Registration) { r.Email = "" },
			wantField: "correo",
			wantMsg:   "is required",
		},
		{
			name:      "malformed email",
			mutate:    func(r *Registration) { r.Email = "not-an-email" },
			wantField: "correo",
			wantMsg:   "must be a valid email",
		},
		{
			name:      "short password",
			mutate:    func(r *Registration) { r.Password = "abc"; r.ConfirmPassword = "abc" },
			wantField: "contrasena",
			wantMsg:   "at least 6 characters",
		},
		{
			name:      "confirmation mismatch",
			mutate:    func(r *Registration) { r.ConfirmPassword = "otra" },
			wantField: "confirmarContrasena",
			wantMsg:   "does not match",
		},
		{
			name:      "missing birth date",
			mutate:    func(r *Registration) { r.BirthDate = "" },
			wantField: "fechaNacimiento",
			wantMsg:   "is required",
		},
		{
			name:      "unparseable birth date",
			mutate:    func(r *Registration) { r.BirthDate = "15/03/2000" },
			wantField: "fechaNacimiento",
			wantMsg:   "18 or older",
		},
		{
			name:      "under eighteen",
			mutate:    func(r *Registration) { r.BirthDate = time.Now().AddDate(-10, 0, 0).Format("2006-01-02") },
			wantField: "fechaNacimiento",
			wantMsg:   "18 or older",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reg := validRegistration()
			tc.mutate(&reg)

			details := validationDetails(t, ValidateRegistration(reg))
			message, ok := details[tc.wantField]
			if !ok {
				t.Fatalf("expected a failure on %q, got %v", tc.wantField, details)
			}
			if !strings.Contains(message, tc.wantMsg) {
				t.Fatalf("expected message containing %q, got %q", tc.wantMsg, message)
			}
		})
	}
}

func TestValidateRegistrationAggregatesAllFailures(t *testing.T) {
	details := validationDetails(t, ValidateRegistration(Registration{}))
	for _, field := range []string{"username", "correo", "contrasena", "fechaNacimiento"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("expected %q reported among %v", field, details)
		}
	}

	messages := Messages(ValidateRegistration(Registration{}))
	if len(messages) < 4 {
		t.Fatalf("expected every field failure listed, got %v", messages)
	}
}

func TestEighteenthBirthdayBoundary(t *testing.T) {
	reg := validRegistration()
	reg.BirthDate = time.Now().AddDate(-18, 0, 0).Format("2006-01-02")
	if err := ValidateRegistration(reg); err != nil {
		t.Fatalf("expected exact 18th birthday accepted, got %v", err)
	}

	reg.BirthDate = time.Now().AddDate(-18, 0, 1).Format("2006-01-02")
	if err := ValidateRegistration(reg); err == nil {
		t.Fatal("expected one day short of 18 rejected")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	rest := &stubRest{
		getFn: func(_ context.Context, path string, out any) error {
			if path != "/usuarios" {
				t.Fatalf("unexpected path %s", path)
			}
			*out.(*[]User) = []User{{ID: "1", Email: "Racoonius@duocuc.cl"}}
			return nil
		},
		postFn: func(_ context.Context, _ string, _, _ any) error {
			t.Fatal("create must not be called for a duplicate email")
			return nil
		},
	}
	client, err := NewClient(rest, fastPassword())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.Register(context.Background(), validRegistration())
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterCreatesUserRole(t *testing.T) {
	var created User
	rest := &stubRest{
		getFn: func(_ context.Context, _ string, out any) error {
			*out.(*[]User) = nil
			return nil
		},
		postFn: func(_ context.Context, path string, in, out any) error {
			if path != "/usuarios" {
				t.Fatalf("unexpected path %s", path)
			}
			created = in.(User)
			saved := created
			saved.ID = "7"
			saved.Password = ""
			*out.(*User) = saved
			return nil
		},
	}
	client, err := NewClient(rest, fastPassword())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, err := client.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Role != session.RoleUser {
		t.Fatalf("expected default user role, got %q", created.Role)
	}
	if user.ID != "7" {
		t.Fatalf("expected server id kept, got %q", user.ID)
	}
}

func TestRegisterHashesPasswordBeforeSending(t *testing.T) {
	var created User
	rest := &stubRest{
		getFn: func(_ context.Context, _ string, out any) error {
			*out.(*[]User) = nil
			return nil
		},
		postFn: func(_ context.Context, _ string, in, out any) error {
			created = in.(User)
			*out.(*User) = created
			return nil
		},
	}
	client, err := NewClient(rest, fastPassword())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := client.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Password == "s3creta" {
		t.Fatal("plaintext password must never be sent")
	}
	if !strings.HasPrefix(created.Password, "$argon2id$") {
		t.Fatalf("expected argon2id hash, got %q", created.Password)
	}
	ok, err := security.VerifyPassword("s3creta", created.Password)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Fatal("expected the sent hash to verify against the original password")
	}
}

func TestRegisterSkipsNetworkOnInvalidPayload(t *testing.T) {
	rest := &stubRest{
		getFn: func(_ context.Context, _ string, _ any) error {
			t.Fatal("listing must not be called for an invalid payload")
			return nil
		},
	}
	client, err := NewClient(rest, fastPassword())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.Register(context.Background(), Registration{})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetEscapesID(t *testing.T) {
	var captured string
	rest := &stubRest{
		getFn: func(_ context.Context, path string, out any) error {
			captured = path
			*out.(*User) = User{ID: "a/b"}
			return nil
		},
	}
	client, _ := NewClient(rest, fastPassword())

	if _, err := client.Get(context.Background(), "a/b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured != "/usuarios/a%2Fb" {
		t.Fatalf("expected escaped path, got %s", captured)
	}
}

func TestIdentityProjection(t *testing.T) {
	user := User{
		Username:         "racoonius",
		Email:            "racoonius@duocuc.cl",
		Role:             session.RoleAdmin,
		DiscountEligible: true,
		Avatar:           "avatar.png",
	}

	identity := user.Identity()
	if !identity.IsAdmin() || !identity.DiscountEligible || identity.Username != "racoonius" {
		t.Fatalf("unexpected projection: %+v", identity)
	}
}
