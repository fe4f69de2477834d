package instrumentation

// Metric label values.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusNotFound = "not_found"

	StepRegister  = "register"
	StepAuthorize = "authorize"
	StepCallback  = "callback"
	StepToken     = "token"
	StepRefresh   = "refresh"

	OAuthResultSuccess       = "success"
	OAuthResultError         = "error"
	OAuthResultInvalidGrant  = "invalid_grant"
	OAuthResultUpstreamError = "upstream_error"

	// Bearer validation outcomes at /mcp.
	ValidationValid   = "valid"
	ValidationMissing = "missing"
	ValidationInvalid = "invalid"
	ValidationExpired = "expired"
)
