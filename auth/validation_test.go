package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thriftyclothings/storefront/auth"
)

func TestValidator_ValidateEmail(t *testing.T) {
	v := auth.NewValidator()

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, v.ValidateEmail("ada@example.com"))
		require.NoError(t, v.ValidateEmail("  ada@example.com  "))
	})

	t.Run("missing", func(t *testing.T) {
		err := v.ValidateEmail(" ")
		var ve *auth.ValidationError
		require.ErrorAs(t, err, &ve)
		require.Equal(t, "email", ve.Field)
		require.Equal(t, "Email is required", ve.Message)
	})

	t.Run("malformed", func(t *testing.T) {
		for _, email := range []string{"ada", "ada@", "Ada <ada@example.com>"} {
			err := v.ValidateEmail(email)
			require.Error(t, err, email)
			require.Contains(t, err.Error(), "valid email")
		}
	})
}

func TestValidator_ValidateLoginForm(t *testing.T) {
	v := auth.NewValidator()

	require.NoError(t, v.ValidateLoginForm("ada@example.com", "x"))

	err := v.ValidateLoginForm("ada@example.com", "")
	var ve *auth.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "password", ve.Field)
}

func TestValidator_ValidateRegistrationForm(t *testing.T) {
	v := auth.NewValidator()

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, v.ValidateRegistrationForm("Ada", "ada@example.com", "secret1", "secret1"))
	})

	t.Run("passwords differ", func(t *testing.T) {
		err := v.ValidateRegistrationForm("Ada", "ada@example.com", "secret1", "secret2")
		require.EqualError(t, err, "confirmPassword: Passwords do not match")
	})

	t.Run("short password", func(t *testing.T) {
		err := v.ValidateRegistrationForm("Ada", "ada@example.com", "abc", "abc")
		require.EqualError(t, err, "password: Password must be at least 6 characters long")
	})

	t.Run("missing name", func(t *testing.T) {
		err := v.ValidateRegistrationForm("", "ada@example.com", "secret1", "secret1")
		require.Error(t, err)
	})
}
