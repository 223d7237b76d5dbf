package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"shopmall/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func newTestUserService(repo *mockUserRepository) UserService {
	return NewUserService(repo, testSecret, time.Hour)
}

func TestProperty_RegistrationHashesPasswords(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("passwords are stored as bcrypt hashes, never plaintext", prop.ForAll(
		func(local string, password string) bool {
			repo := newMockUserRepository()
			service := newTestUserService(repo)

			user, err := service.Register(context.Background(), RegisterInput{
				Email:    local + "@example.com",
				Password: password,
				Name:     "테스트",
				Phone:    "010-0000-0000",
			})
			if err != nil {
				return true
			}

			if user.PasswordHash == password {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) >= 8 && len(s) <= 60 }),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	repo := newMockUserRepository()
	service := newTestUserService(repo)
	ctx := context.Background()

	input := RegisterInput{
		Email:    "dup@example.com",
		Password: "password123",
		Name:     "테스트",
		Phone:    "010-0000-0000",
	}
	if _, err := service.Register(ctx, input); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	var conflict *ConflictError
	if _, err := service.Register(ctx, input); !errors.As(err, &conflict) {
		t.Errorf("second Register(): err = %v, want ConflictError", err)
	}
}

func TestRegister_DefaultsToCustomer(t *testing.T) {
	repo := newMockUserRepository()
	service := newTestUserService(repo)

	user, err := service.Register(context.Background(), RegisterInput{
		Email:    "c@example.com",
		Password: "password123",
		Name:     "고객",
		Phone:    "010-0000-0000",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.UserType != domain.UserTypeCustomer {
		t.Errorf("user type = %s, want %s", user.UserType, domain.UserTypeCustomer)
	}
}

func TestLogin_ReturnsTokenWithClaims(t *testing.T) {
	repo := newMockUserRepository()
	service := newTestUserService(repo)
	ctx := context.Background()

	registered, err := service.Register(ctx, RegisterInput{
		Email:    "login@example.com",
		Password: "password123",
		Name:     "테스트",
		Phone:    "010-0000-0000",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := service.Login(ctx, "login@example.com", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.User.ID != registered.ID {
		t.Error("login returned a different user")
	}
	if !result.ExpiresAt.After(time.Now()) {
		t.Error("token expiry should be in the future")
	}

	parsed, err := jwt.Parse(result.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token does not parse: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["user_id"] != registered.ID.String() {
		t.Errorf("user_id claim = %v, want %s", claims["user_id"], registered.ID)
	}
	if claims["role"] != "customer" {
		t.Errorf("role claim = %v, want customer", claims["role"])
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	repo := newMockUserRepository()
	service := newTestUserService(repo)
	ctx := context.Background()

	if _, err := service.Register(ctx, RegisterInput{
		Email:    "who@example.com",
		Password: "password123",
		Name:     "테스트",
		Phone:    "010-0000-0000",
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, err := service.Login(ctx, "who@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := service.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestUpdateUser_RehashesChangedPassword(t *testing.T) {
	repo := newMockUserRepository()
	service := newTestUserService(repo)
	ctx := context.Background()

	user, err := service.Register(ctx, RegisterInput{
		Email:    "u@example.com",
		Password: "password123",
		Name:     "테스트",
		Phone:    "010-0000-0000",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	newPassword := "another-secret"
	updated, err := service.Update(ctx, user.ID, UpdateUserInput{Password: &newPassword})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte(newPassword)) != nil {
		t.Error("updated hash should match the new password")
	}
	if _, err := service.Login(ctx, "u@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("old password should no longer log in")
	}
}
