// Package vars resolves {{path.to.value}} placeholders against a
// variable context. Substitution never fails: unresolved tokens are
// left verbatim in the output and reported through Validate's
// diagnostic list so demo scripts degrade visibly instead of crashing.
package vars

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// tokenPattern matches {{ dotted.path }} tokens. No arithmetic, no
// conditionals; a token is a dotted identifier chain only.
var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)\s*\}\}`)

// aliases expands bare shortcut tokens into fully dotted paths. The
// expansion is purely textual, runs once before substitution, and
// never rescans its own output.
var aliases = map[string]string{
	"name":     "user.first",
	"email":    "user.email",
	"customer": "customer.name",
}

// Substitute resolves placeholders in text against ctx. Unresolved
// tokens are returned verbatim.
func Substitute(text string, ctx map[string]any) string {
	out, _ := run(text, ctx)
	return out
}

// Validate is the dry-run entry point: it returns the substituted text
// together with the dotted paths of every token that did not resolve.
func Validate(text string, ctx map[string]any) (string, []string) {
	return run(text, ctx)
}

func run(text string, ctx map[string]any) (string, []string) {
	expanded := expandAliases(text)

	var unresolved []string
	out := tokenPattern.ReplaceAllStringFunc(expanded, func(token string) string {
		path := tokenPattern.FindStringSubmatch(token)[1]
		if val, ok := resolve(path, ctx); ok {
			return val
		}
		unresolved = append(unresolved, path)
		return token
	})
	return out, unresolved
}

func expandAliases(text string) string {
	return tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		path := tokenPattern.FindStringSubmatch(token)[1]
		if full, ok := aliases[path]; ok {
			return "{{" + full + "}}"
		}
		return token
	})
}

// resolve walks the dotted path through ctx. Missing intermediate keys
// short-circuit to unresolved. Leaf keys under "user" are derived from
// profile metadata instead of looked up directly.
func resolve(path string, ctx map[string]any) (string, bool) {
	parts := strings.Split(path, ".")

	if len(parts) == 2 && parts[0] == "user" {
		if val, ok := deriveUserField(ctx, parts[1]); ok {
			return val, true
		}
	}

	var cursor any = ctx
	for _, part := range parts {
		m, ok := cursor.(map[string]any)
		if !ok {
			return "", false
		}
		cursor, ok = m[part]
		if !ok {
			return "", false
		}
	}
	return format(cursor), true
}

// deriveUserField reproduces the profile fallback chains the demo
// scripts depend on. For "first" the chain is: explicit first/given
// name, first token of the full name, capitalized local part of the
// email address, and finally the literal "User".
func deriveUserField(ctx map[string]any, leaf string) (string, bool) {
	profile, _ := ctx["user"].(map[string]any)

	switch leaf {
	case "first":
		if v := str(profile, "first"); v != "" {
			return v, true
		}
		if v := str(profile, "given_name"); v != "" {
			return v, true
		}
		if tokens := nameTokens(profile); len(tokens) > 0 {
			return tokens[0], true
		}
		if local := emailLocal(profile); local != "" {
			return capitalize(local), true
		}
		return "User", true

	case "last":
		if v := str(profile, "last"); v != "" {
			return v, true
		}
		if v := str(profile, "family_name"); v != "" {
			return v, true
		}
		if tokens := nameTokens(profile); len(tokens) > 1 {
			return tokens[len(tokens)-1], true
		}
		return "", false

	case "full_name":
		if tokens := nameTokens(profile); len(tokens) > 0 {
			return strings.Join(tokens, " "), true
		}
		given, family := str(profile, "given_name"), str(profile, "family_name")
		if given != "" || family != "" {
			return strings.TrimSpace(given + " " + family), true
		}
		if first, ok := deriveUserField(ctx, "first"); ok {
			return first, true
		}
		return "", false

	case "email":
		if v := str(profile, "email"); v != "" {
			return v, true
		}
		return "", false
	}

	return "", false
}

func nameTokens(profile map[string]any) []string {
	for _, key := range []string{"name", "full_name"} {
		if v := str(profile, key); v != "" {
			return strings.Fields(v)
		}
	}
	return nil
}

func emailLocal(profile map[string]any) string {
	email := str(profile, "email")
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return ""
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func format(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
