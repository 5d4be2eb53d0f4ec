// Package catalog holds the pure URL and naming rules of the target shop:
// category keys, product identifiers and image file names.
package catalog

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"shopscraper/pkg/errors"
)

var productIDPattern = regexp.MustCompile(`/products/([^/]+)/`)

// maxNameLength caps sanitized image names
const maxNameLength = 80

// DeriveCategoryKey returns the path after the locale prefix with any
// trailing slash removed, e.g. "https://site/ca/en/men/tops/" -> "men/tops".
func DeriveCategoryKey(rawURL, localePrefix string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", errors.ErrInvalidCategoryURL, rawURL, err)
	}

	rest, ok := strings.CutPrefix(u.Path, localePrefix)
	if !ok {
		return "", fmt.Errorf("%w: %q does not start with %q", errors.ErrInvalidCategoryURL, rawURL, localePrefix)
	}

	key := strings.Trim(rest, "/")
	if key == "" {
		return "", fmt.Errorf("%w: %q has no category path", errors.ErrInvalidCategoryURL, rawURL)
	}
	return key, nil
}

// ExtractProductID returns the segment following /products/ in a product
// URL, or "" when the URL has none.
func ExtractProductID(productURL string) string {
	m := productIDPattern.FindStringSubmatch(productURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// SanitizeName turns a product name into a file name safe on every
// platform. Returns "" when nothing usable is left.
func SanitizeName(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}

	out := strings.TrimSuffix(b.String(), "-")
	if runes := []rune(out); len(runes) > maxNameLength {
		out = strings.TrimSuffix(string(runes[:maxNameLength]), "-")
	}
	return out
}

// ImageName picks the file name for a product image. Products with an id
// use the id. Without one, the sanitized name is suffixed with the grid
// position, since names repeat within a category; item-<position> is used
// when the name sanitizes to nothing.
func ImageName(productID, productName string, position int) string {
	if productID != "" {
		return productID
	}
	if s := SanitizeName(productName); s != "" {
		return fmt.Sprintf("%s-%d", s, position)
	}
	return fmt.Sprintf("item-%d", position)
}
