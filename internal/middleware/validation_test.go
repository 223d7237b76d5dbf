package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// signupRequest mirrors the shape of a registration payload.
type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
}

func decodeSignup(t *testing.T, body map[string]interface{}) error {
	t.Helper()

	raw, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/api/users", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	var out signupRequest
	return DecodeAndValidate(req, &out)
}

func TestProperty_MissingRequiredFieldsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("payloads missing required fields fail validation", prop.ForAll(
		func(withEmail bool, withPassword bool, withName bool) bool {
			body := make(map[string]interface{})
			if withEmail {
				body["email"] = "buyer@example.com"
			}
			if withPassword {
				body["password"] = "changeme123"
			}
			if withName {
				body["name"] = "홍길동"
			}

			err := decodeSignup(t, body)

			if withEmail && withPassword && withName {
				return err == nil
			}
			return err != nil
		},
		gen.Bool(),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ShortPasswordsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("passwords below the minimum length fail validation", prop.ForAll(
		func(length int) bool {
			body := map[string]interface{}{
				"email":    "buyer@example.com",
				"password": strings.Repeat("x", length),
				"name":     "홍길동",
			}

			err := decodeSignup(t, body)

			if length >= 8 {
				return err == nil
			}
			return err != nil
		},
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestFormatValidationErrorsNamesTheField(t *testing.T) {
	err := decodeSignup(t, map[string]interface{}{
		"email":    "not-an-email",
		"password": "changeme123",
		"name":     "홍길동",
	})
	if err == nil {
		t.Fatal("expected a validation error for a malformed email")
	}

	messages := FormatValidationErrors(err)
	if len(messages) == 0 {
		t.Fatal("expected at least one formatted message")
	}
	for _, m := range messages {
		parts := strings.SplitN(m, ":", 2)
		if len(parts) != 2 || parts[0] == "" || strings.TrimSpace(parts[1]) == "" {
			t.Fatalf("message %q is not in field: message form", m)
		}
	}
	if !strings.HasPrefix(messages[0], "Email:") {
		t.Fatalf("expected the email field to be named, got %q", messages[0])
	}
}

func TestDecodeAndValidateRejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/users", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")

	var out signupRequest
	if err := DecodeAndValidate(req, &out); err == nil {
		t.Fatal("expected a decode error for malformed JSON")
	}
}
