package liquid

import (
	"fmt"
	"html"
	"strings"

	"github.com/osteele/liquid/render"
)

// formEndpoints maps a form type to its submit action.
var formEndpoints = map[string]string{
	"contact":             "/contact",
	"newsletter":          "/newsletter",
	"product":             "/cart/add",
	"login":               "/account/login",
	"register":            "/account/register",
	"recover_password":    "/account/recover",
	"customer":            "/customer",
	"storefront_password": "/password",
}

// formClasses maps a form type to its CSS class. Types not present
// use the generic "form" class.
var formClasses = map[string]string{
	"contact":             "contact-form",
	"newsletter":          "newsletter-form",
	"product":             "product-form",
	"login":               "login-form",
	"register":            "register-form",
	"recover_password":    "recover-form",
	"customer":            "customer-form",
	"storefront_password": "storefront-password-form",
}

// formTag implements {% form 'type' %}: it wraps the body in a form
// element pointing at the storefront endpoint for the type, with the
// hidden fields each endpoint expects.
func (e *Engine) formTag(c render.Context) (string, error) {
	formType, attrs := parseFormArgs(c)

	action, known := formEndpoints[formType]
	if !known {
		action = "/contact"
	}
	class := formClasses[formType]
	if class == "" {
		class = "form"
	}

	body, err := c.InnerString()
	if err != nil {
		e.stateLogger(state(c)).Warn(renderCtx(c), err, "form body failed to render", "form_type", formType)
		body = ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<form method="post" action="%s" id="%s-form" class="%s"`,
		html.EscapeString(action), html.EscapeString(formType), html.EscapeString(class))
	for _, attr := range attrs {
		fmt.Fprintf(&b, ` %s="%s"`, attr.key, html.EscapeString(attr.value))
	}
	b.WriteString(">\n")

	fmt.Fprintf(&b, "  <input type=\"hidden\" name=\"form_type\" value=\"%s\" />\n", html.EscapeString(formType))
	b.WriteString("  <input type=\"hidden\" name=\"utf8\" value=\"✓\" />\n")
	for _, f := range hiddenFields(formType) {
		fmt.Fprintf(&b, "  <input type=\"hidden\" name=\"%s\" value=\"%s\" />\n",
			html.EscapeString(f.key), html.EscapeString(f.value))
	}

	b.WriteString(body)
	b.WriteString("\n</form>")
	return b.String(), nil
}

type formField struct {
	key   string
	value string
}

// hiddenFields returns the type-specific hidden inputs beyond
// form_type and utf8.
func hiddenFields(formType string) []formField {
	switch formType {
	case "contact":
		return []formField{{"contact[subject]", "General Inquiry"}}
	case "newsletter":
		return []formField{{"contact[tags]", "newsletter"}}
	case "product":
		return []formField{{"return_to", "/cart"}}
	case "login":
		return []formField{{"checkout_url", ""}}
	default:
		return nil
	}
}

// parseFormArgs reads the form type and any extra `key: 'value'`
// attributes that go onto the form element.
func parseFormArgs(c render.Context) (string, []formField) {
	parts := strings.Split(c.TagArgs(), ",")
	formType := unquote(strings.TrimSpace(parts[0]))
	if formType == "" {
		formType = "contact"
	}

	var attrs []formField
	for _, part := range parts[1:] {
		key, val, found := strings.Cut(part, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		attrs = append(attrs, formField{key, unquote(strings.TrimSpace(val))})
	}
	return formType, attrs
}
