package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thriftyclothings/storefront/users"
)

func (s *Server) initRoutes() {
	page := s.PageHandler
	get := func(path string, h http.HandlerFunc, mw ...middleware) {
		chain := append([]middleware{s.NavigationMiddleware}, mw...)
		s.RegisterRouteHandler("GET "+path, ChainMiddleware(h, s.HTMLMiddleWare(chain...)...))
	}
	post := func(path string, h http.HandlerFunc) {
		s.RegisterRouteHandler("POST "+path, ChainMiddleware(h, s.HTMLMiddleWare()...))
	}

	// LANDING
	get(RouteLanding+"{$}", page("Welcome"), s.publicOnly())

	// PUBLIC PAGES
	get(RouteHome, page("Home"))
	get(RouteProducts, page("Products"))
	get(RouteAbout, page("About"))
	get(RouteContact, page("Contact"))
	get(RouteChangePassword, page("Change password"))
	get(RouteResetPassword, page("Reset password"))

	// LOGIN, REGISTER & LOGOUT
	get(RouteLogin, s.LoginPageHandler())
	post(RouteLogin, s.LoginSubmissionHandler())
	get(RouteRegister, s.RegisterPageHandler())
	post(RouteRegister, s.RegisterSubmissionHandler())
	post(RouteLogout, s.LogoutHandler())

	// PASSWORD RESET & EMAIL VERIFICATION
	get(RouteForgotPassword, s.ForgotPasswordGetHandler())
	post(RouteForgotPassword, s.ForgotPasswordPostHandler())
	get(RouteVerifyEmail, s.VerifyEmailHandler())
	post(RouteResendVerification, s.ResendVerificationHandler())

	// SIGNED-IN PAGES
	get(RouteProfile, page("Profile"), s.requireUser())
	get(RouteProfileAddresses, page("Addresses"), s.requireUser())
	get(RouteProfileWishlist, page("Wishlist"), s.requireUser())
	get(RouteCart, page("Cart"), s.requireUser())
	get(RouteSellerApply, page("Become a seller"), s.requireUser())

	// SELLER
	get(RouteSellerDashboard, page("Seller dashboard"), s.requireAnyRole(users.RoleSeller, users.RoleAdmin))

	// ADMIN
	admin := s.requireRole(users.RoleAdmin)
	get(RouteAdminDashboard, page("Admin dashboard"), admin)
	get(RouteAdminUsers, page("Users"), admin)
	get(RouteAdminProducts, page("Products"), admin)
	get(RouteAdminProductUpload, page("Upload product"), admin)
	get(RouteAdminProductEdit, page("Edit product"), admin)
	get(RouteAdminWebsite, page("Website content"), admin)
	get(RouteAdminSellers, page("Sellers"), admin)
	get(RouteAdminOrders, page("Orders"), admin)

	// SYSTEM
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.SystemMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// NOT FOUND
	get(RouteLanding, s.NotFoundHandler(), s.catchAll())
}
