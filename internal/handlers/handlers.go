package handlers

import (
	"github.com/gofiber/fiber/v3"

	"permitscope/internal/config"
	"permitscope/internal/session"
)

// SessionCookie is the cookie carrying the visitor's session ID.
const SessionCookie = "permitscope_session"

// SessionMiddleware resolves the visitor's session state from the cookie,
// creating a fresh session when the cookie is absent or expired, and
// stores it in locals for downstream handlers.
func SessionMiddleware(mgr *session.Manager) fiber.Handler {
	return func(c fiber.Ctx) error {
		s := mgr.GetOrCreate(c.Cookies(SessionCookie))
		if s.ID != c.Cookies(SessionCookie) {
			c.Cookie(&fiber.Cookie{
				Name:     SessionCookie,
				Value:    s.ID,
				Path:     "/",
				HTTPOnly: true,
				SameSite: "Lax",
			})
		}
		c.Locals("session", s)
		return c.Next()
	}
}

// SessionFromCtx returns the session state set by SessionMiddleware.
func SessionFromCtx(c fiber.Ctx) *session.State {
	s, _ := c.Locals("session").(*session.State)
	return s
}

// BrandingData contains site branding information for templates.
type BrandingData struct {
	SiteTitle   string
	SiteTagline string
	SiteFooter  string
}

// GetBrandingData returns branding data from config for template rendering.
func GetBrandingData(cfg *config.Config) BrandingData {
	return BrandingData{
		SiteTitle:   cfg.SiteTitle,
		SiteTagline: cfg.SiteTagline,
		SiteFooter:  cfg.SiteFooter,
	}
}

// MergeBranding adds branding data to a fiber.Map for template rendering.
func MergeBranding(data fiber.Map, cfg *config.Config) fiber.Map {
	branding := GetBrandingData(cfg)
	data["SiteTitle"] = branding.SiteTitle
	data["SiteTagline"] = branding.SiteTagline
	data["SiteFooter"] = branding.SiteFooter
	return data
}
