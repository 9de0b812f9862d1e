package slug

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// transliterator folds common accented Latin letters to ASCII.
var transliterator = strings.NewReplacer(
	"ç", "c", "ğ", "g", "ı", "i", "ö", "o", "ş", "s", "ü", "u",
	"á", "a", "à", "a", "â", "a", "ä", "a", "ã", "a", "å", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "î", "i", "ï", "i",
	"ó", "o", "ò", "o", "ô", "o", "õ", "o", "ø", "o",
	"ú", "u", "ù", "u", "û", "u",
	"ñ", "n", "ß", "ss", "æ", "ae", "œ", "oe",
	"&", " and ",
)

// Generate creates a URL-friendly slug from name:
//
//   - "Çocuk Ürünleri" → "cocuk-urunleri"
//   - "Café & Bistro" → "cafe-and-bistro"
//   - "Hello   World!" → "hello-world"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = transliterator.Replace(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// WithSuffix appends a short disambiguating suffix, used when the plain slug
// is already taken by another product.
func WithSuffix(slug, suffix string) string {
	suffix = Generate(suffix)
	if suffix == "" {
		return slug
	}
	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}
