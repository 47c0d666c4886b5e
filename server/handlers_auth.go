package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/thriftyclothings/storefront/apiclient"
)

// LoginPageHandler displays the login form (GET /login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData(r, "Sign in")
		data.Email = r.URL.Query().Get("email")
		s.render(w, "login.html", data)
	}
}

// LoginSubmissionHandler processes the login form. Failures re-render the
// form with an inline message.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := strings.TrimSpace(r.FormValue("email"))
		password := r.FormValue("password")

		renderError := func(message string) {
			data := s.pageData(r, "Sign in")
			data.Error = message
			data.Email = email
			s.render(w, "login.html", data)
		}

		if err := s.validator.ValidateLoginForm(email, password); err != nil {
			renderError(formErrorMessage(err))
			return
		}

		if _, err := s.auth.Login(r.Context(), email, password); err != nil {
			if backendCode(err) == apiclient.CodeEmailNotVerified {
				redirectSuccess(w, r, RouteVerifyEmail+"?email="+url.QueryEscape(email))
				return
			}
			logFlowFailure(err, "login", email)
			renderError(formErrorMessage(err))
			return
		}
		redirectSuccess(w, r, RouteLanding)
	}
}

// RegisterPageHandler displays the sign-up form (GET /register)
func (s *Server) RegisterPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, "register.html", s.pageData(r, "Create an account"))
	}
}

// RegisterSubmissionHandler processes the sign-up form
func (s *Server) RegisterSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		name := strings.TrimSpace(r.FormValue("name"))
		email := strings.TrimSpace(r.FormValue("email"))
		password := r.FormValue("password")
		confirm := r.FormValue("confirmPassword")

		renderError := func(message string) {
			data := s.pageData(r, "Create an account")
			data.Error = message
			data.Email = email
			data.Name = name
			s.render(w, "register.html", data)
		}

		if err := s.validator.ValidateRegistrationForm(name, email, password, confirm); err != nil {
			renderError(formErrorMessage(err))
			return
		}

		if _, err := s.auth.Register(r.Context(), email, password, name); err != nil {
			logFlowFailure(err, "registration", email)
			renderError(formErrorMessage(err))
			return
		}
		redirectSuccess(w, r, RouteVerifyEmail+"?email="+url.QueryEscape(email))
	}
}

// LogoutHandler ends the session (POST /logout). It always succeeds.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.auth.Logout(r.Context())
		redirectSuccess(w, r, RouteLogin)
	}
}

// ForgotPasswordGetHandler displays the password reset request form
func (s *Server) ForgotPasswordGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, "forgot_password.html", s.pageData(r, "Reset password"))
	}
}

// ForgotPasswordPostHandler asks the identity provider for a reset mail
func (s *Server) ForgotPasswordPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := strings.TrimSpace(r.FormValue("email"))

		data := s.pageData(r, "Reset password")
		data.Email = email
		if err := s.validator.ValidateEmail(email); err != nil {
			data.Error = formErrorMessage(err)
		} else if err := s.auth.SendPasswordReset(r.Context(), email); err != nil {
			data.Error = formErrorMessage(err)
		} else {
			data.Notice = "Password reset email sent! Check your inbox."
		}
		s.render(w, "forgot_password.html", data)
	}
}

// VerifyEmailHandler tells the user to check their inbox
func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData(r, "Verify your email")
		data.Email = r.URL.Query().Get("email")
		if data.Email == "" {
			if id := s.auth.Current(); id != nil {
				data.Email = id.Email
			}
		}
		s.render(w, "verify_email.html", data)
	}
}

// ResendVerificationHandler mails a new verification link
func (s *Server) ResendVerificationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData(r, "Verify your email")
		if id := s.auth.Current(); id != nil {
			data.Email = id.Email
		}
		if err := s.auth.ResendVerification(r.Context()); err != nil {
			data.Error = formErrorMessage(err)
		} else {
			data.Notice = "Verification email sent! Please check your inbox."
		}
		s.render(w, "verify_email.html", data)
	}
}
