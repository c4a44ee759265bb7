package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/toolinger/toolinger/internal/config"
)

// SecurityConfig describes the response headers applied to every route.
type SecurityConfig struct {
	CSP                 *CSPConfig
	HSTS                *HSTSConfig
	XFrameOptions       string
	XContentTypeNoSniff bool
	ReferrerPolicy      string
	PermissionsPolicy   string
}

// CSPConfig holds Content Security Policy sources per directive.
type CSPConfig struct {
	DefaultSrc              []string
	ScriptSrc               []string
	StyleSrc                []string
	ImgSrc                  []string
	ConnectSrc              []string
	FontSrc                 []string
	ObjectSrc               []string
	FrameSrc                []string
	FrameAncestors          []string
	BaseURI                 []string
	FormAction              []string
	UpgradeInsecureRequests bool
}

// HSTSConfig holds Strict-Transport-Security settings.
type HSTSConfig struct {
	MaxAge            int
	IncludeSubDomains bool
	Preload           bool
}

// DefaultSecurityConfig allows the page's own scripts and styles, the inline
// style blocks articles carry, and images from any https source.
func DefaultSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		CSP: &CSPConfig{
			DefaultSrc:     []string{"'self'"},
			ScriptSrc:      []string{"'self'"},
			StyleSrc:       []string{"'self'", "'unsafe-inline'"},
			ImgSrc:         []string{"'self'", "data:", "https:"},
			ConnectSrc:     []string{"'self'", "ws:", "wss:"},
			FontSrc:        []string{"'self'", "https:"},
			ObjectSrc:      []string{"'none'"},
			FrameSrc:       []string{"'none'"},
			FrameAncestors: []string{"'none'"},
			BaseURI:        []string{"'self'"},
			FormAction:     []string{"'self'"},
		},
		HSTS: &HSTSConfig{
			MaxAge:            31536000,
			IncludeSubDomains: true,
		},
		XFrameOptions:       "DENY",
		XContentTypeNoSniff: true,
		ReferrerPolicy:      "strict-origin-when-cross-origin",
		PermissionsPolicy:   "camera=(), microphone=(), geolocation=(), payment=()",
	}
}

// ProductionSecurityConfig tightens the defaults for HTTPS deployments.
func ProductionSecurityConfig() *SecurityConfig {
	cfg := DefaultSecurityConfig()
	cfg.CSP.ConnectSrc = []string{"'self'", "wss:"}
	cfg.CSP.UpgradeInsecureRequests = true
	cfg.HSTS.Preload = true
	return cfg
}

// SecurityConfigFromAppConfig picks the header set for the environment.
func SecurityConfigFromAppConfig(cfg *config.Config) *SecurityConfig {
	if cfg != nil && cfg.Server.IsProduction() {
		return ProductionSecurityConfig()
	}
	return DefaultSecurityConfig()
}

// SecurityMiddleware sets the configured headers before calling next.
func SecurityMiddleware(secConfig *SecurityConfig) func(http.Handler) http.Handler {
	if secConfig == nil {
		secConfig = DefaultSecurityConfig()
	}
	csp := ""
	if secConfig.CSP != nil {
		csp = buildCSPHeader(secConfig.CSP)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if csp != "" {
				h.Set("Content-Security-Policy", csp)
			}
			if secConfig.HSTS != nil && r.TLS != nil {
				h.Set("Strict-Transport-Security", buildHSTSHeader(secConfig.HSTS))
			}
			if secConfig.XFrameOptions != "" {
				h.Set("X-Frame-Options", secConfig.XFrameOptions)
			}
			if secConfig.XContentTypeNoSniff {
				h.Set("X-Content-Type-Options", "nosniff")
			}
			if secConfig.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", secConfig.ReferrerPolicy)
			}
			if secConfig.PermissionsPolicy != "" {
				h.Set("Permissions-Policy", secConfig.PermissionsPolicy)
			}
			h.Set("Cross-Origin-Opener-Policy", "same-origin")

			next.ServeHTTP(w, r)
		})
	}
}

func buildCSPHeader(csp *CSPConfig) string {
	var directives []string

	add := func(name string, values []string) {
		if len(values) > 0 {
			directives = append(directives, fmt.Sprintf("%s %s", name, strings.Join(values, " ")))
		}
	}

	add("default-src", csp.DefaultSrc)
	add("script-src", csp.ScriptSrc)
	add("style-src", csp.StyleSrc)
	add("img-src", csp.ImgSrc)
	add("connect-src", csp.ConnectSrc)
	add("font-src", csp.FontSrc)
	add("object-src", csp.ObjectSrc)
	add("frame-src", csp.FrameSrc)
	add("frame-ancestors", csp.FrameAncestors)
	add("base-uri", csp.BaseURI)
	add("form-action", csp.FormAction)

	if csp.UpgradeInsecureRequests {
		directives = append(directives, "upgrade-insecure-requests")
	}

	return strings.Join(directives, "; ")
}

func buildHSTSHeader(hsts *HSTSConfig) string {
	header := fmt.Sprintf("max-age=%d", hsts.MaxAge)
	if hsts.IncludeSubDomains {
		header += "; includeSubDomains"
	}
	if hsts.Preload {
		header += "; preload"
	}
	return header
}
