package security

import (
	"net/http"
	"strconv"
)

// HSTSPolicy describes the Strict-Transport-Security header, which is only
// sent over TLS.
type HSTSPolicy struct {
	MaxAge            int // seconds; zero disables the header
	IncludeSubdomains bool
	Preload           bool
}

func (p HSTSPolicy) value() string {
	v := "max-age=" + strconv.Itoa(p.MaxAge)
	if p.IncludeSubdomains {
		v += "; includeSubDomains"
	}
	if p.Preload {
		v += "; preload"
	}
	return v
}

// HeadersConfig lists the headers stamped on every API response. Empty
// values are left out.
type HeadersConfig struct {
	CSP  string
	HSTS HSTSPolicy

	FrameOptions       string
	ContentTypeOptions string
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
	OpenerPolicy       string
	EmbedderPolicy     string
	ResourcePolicy     string
	CacheControl       string
}

// DefaultHeadersConfig suits a JSON API read by a separate frontend.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: "default-src 'none'; frame-ancestors 'none'",
		HSTS: HSTSPolicy{
			MaxAge:            365 * 24 * 60 * 60,
			IncludeSubdomains: true,
			Preload:           true,
		},
		FrameOptions:       "DENY",
		ContentTypeOptions: "nosniff",
		XSSProtection:      "0",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		PermissionsPolicy:  "geolocation=(), microphone=(), camera=(), payment=()",
		OpenerPolicy:       "same-origin",
		EmbedderPolicy:     "require-corp",
		// The frontend lives on another origin
		ResourcePolicy: "cross-origin",
		CacheControl:   "no-store",
	}
}

type header struct {
	name, value string
}

// HeadersMiddleware applies a HeadersConfig to every response.
type HeadersMiddleware struct {
	static []header
	hsts   string
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	candidates := []header{
		{"X-Content-Type-Options", config.ContentTypeOptions},
		{"X-Frame-Options", config.FrameOptions},
		{"X-XSS-Protection", config.XSSProtection},
		{"Content-Security-Policy", config.CSP},
		{"Referrer-Policy", config.ReferrerPolicy},
		{"Permissions-Policy", config.PermissionsPolicy},
		{"Cross-Origin-Opener-Policy", config.OpenerPolicy},
		{"Cross-Origin-Embedder-Policy", config.EmbedderPolicy},
		{"Cross-Origin-Resource-Policy", config.ResourcePolicy},
		{"Cache-Control", config.CacheControl},
	}

	m := &HeadersMiddleware{}
	for _, h := range candidates {
		if h.value != "" {
			m.static = append(m.static, h)
		}
	}
	if config.HSTS.MaxAge > 0 {
		m.hsts = config.HSTS.value()
	}
	return m
}

// Middleware sets the headers before the handler writes anything.
func (m *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		for _, h := range m.static {
			headers.Set(h.name, h.value)
		}
		if r.TLS != nil && m.hsts != "" {
			headers.Set("Strict-Transport-Security", m.hsts)
		}
		next.ServeHTTP(w, r)
	})
}
