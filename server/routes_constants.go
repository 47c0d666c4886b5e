package server

// Route path constants
// All storefront routes are defined here to ensure consistency and prevent typos
const (
	// Public Routes
	RouteLanding  = "/"
	RouteHome     = "/home"
	RouteProducts = "/products"
	RouteAbout    = "/about"
	RouteContact  = "/contact"

	// Auth Routes - Login, Register & Logout
	RouteLogin    = "/login"
	RouteRegister = "/register"
	RouteLogout   = "/logout"

	// Auth Routes - Password Management
	RouteChangePassword = "/change-password"
	RouteForgotPassword = "/forgot-password"
	RouteResetPassword  = "/reset-password"

	// Auth Routes - Email Verification
	RouteVerifyEmail        = "/verify-email"
	RouteResendVerification = "/verify-email/resend"

	// Signed-in Routes
	RouteProfile          = "/profile"
	RouteProfileAddresses = "/profile/addresses"
	RouteProfileWishlist  = "/profile/wishlist"
	RouteCart             = "/cart"
	RouteSellerApply      = "/seller/apply"

	// Seller Routes
	RouteSellerDashboard = "/seller"

	// Admin Routes
	RouteAdminDashboard     = "/admin"
	RouteAdminUsers         = "/admin/users"
	RouteAdminProducts      = "/admin/products"
	RouteAdminProductUpload = "/admin/products/upload"
	RouteAdminProductEdit   = "/admin/products/edit/{productId}"
	RouteAdminWebsite       = "/admin/website"
	RouteAdminSellers       = "/admin/sellers"
	RouteAdminOrders        = "/admin/orders"

	// System Routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
