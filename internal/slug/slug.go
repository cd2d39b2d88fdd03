// Package slug turns event titles into URL identifiers.  Accented
// characters are folded to ASCII ("Taller de Programación" becomes
// "taller-de-programacion") and collisions are resolved with a numeric
// suffix.  Slugs are never all digits, since numeric refs name events by
// ID.
package slug

import (
    "context"
    "strconv"
    "strings"
    "unicode"

    "golang.org/x/text/runes"
    "golang.org/x/text/transform"
    "golang.org/x/text/unicode/norm"
)

// MaxLen bounds the base slug so suffixed variants fit in the column.
const MaxLen = 180

// Make builds the base slug for a title.  An empty result falls back to
// "evento" and an all-digit one is prefixed ("2025" becomes "evento-2025").
func Make(title string) string {
    t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
    folded, _, err := transform.String(t, title)
    if err != nil {
        folded = title
    }
    var b strings.Builder
    dash := false
    for _, r := range strings.ToLower(folded) {
        switch {
        case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
            b.WriteRune(r)
            dash = false
        case r == 'ñ':
            b.WriteRune('n')
            dash = false
        default:
            if b.Len() > 0 && !dash {
                b.WriteByte('-')
                dash = true
            }
        }
    }
    s := strings.TrimRight(b.String(), "-")
    if s == "" {
        return "evento"
    }
    if allDigits(s) {
        s = "evento-" + s
    }
    if len(s) > MaxLen {
        s = strings.TrimRight(s[:MaxLen], "-")
    }
    return s
}

func allDigits(s string) bool {
    for i := 0; i < len(s); i++ {
        if s[i] < '0' || s[i] > '9' {
            return false
        }
    }
    return true
}

// ExistsFunc reports whether a slug is already taken.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Unique returns the base slug for title, or the first free variant
// base-2, base-3, ... according to exists.
func Unique(ctx context.Context, title string, exists ExistsFunc) (string, error) {
    base := Make(title)
    candidate := base
    for n := 2; ; n++ {
        taken, err := exists(ctx, candidate)
        if err != nil {
            return "", err
        }
        if !taken {
            return candidate, nil
        }
        candidate = base + "-" + strconv.Itoa(n)
    }
}
