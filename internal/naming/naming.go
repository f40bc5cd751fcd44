// Package naming converts schema and query identifiers to host-language
// names.
package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Casers keep state, so each call builds its own.
func title(w string) string {
	return cases.Title(language.English, cases.NoLower).String(w)
}

func lower(w string) string {
	return cases.Lower(language.English).String(w)
}

// words splits an identifier on underscores, dashes, dots and spaces.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Pascal converts "user_posts" to "UserPosts". Inner capitals are kept,
// so "getUser" becomes "GetUser".
func Pascal(s string) string {
	parts := words(s)
	for i, w := range parts {
		if isUpper(w) {
			w = lower(w)
		}
		parts[i] = title(w)
	}
	return strings.Join(parts, "")
}

// Camel converts "created_at" to "createdAt".
func Camel(s string) string {
	parts := words(s)
	for i, w := range parts {
		if i == 0 {
			parts[i] = lowerFirst(w)
			continue
		}
		if isUpper(w) {
			w = lower(w)
		}
		parts[i] = title(w)
	}
	return strings.Join(parts, "")
}

// Snake converts "GetUser" to "get_user".
func Snake(s string) string {
	var b strings.Builder
	prev := rune(0)
	for _, w := range words(s) {
		if b.Len() > 0 {
			b.WriteByte('_')
			prev = '_'
		}
		runes := []rune(w)
		for i, r := range runes {
			if unicode.IsUpper(r) && i > 0 && prev != '_' &&
				(unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prev = r
		}
	}
	return b.String()
}

func isUpper(w string) bool {
	hasLetter := false
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// lowerFirst lowercases the leading run of capitals, "URLPath" -> "urlPath".
func lowerFirst(w string) string {
	if isUpper(w) {
		return lower(w)
	}
	runes := []rune(w)
	for i := 0; i < len(runes); i++ {
		if !unicode.IsUpper(runes[i]) {
			break
		}
		if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			break
		}
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// words PHP does not accept as a class name, in lowercase
var reservedClassNames = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`
		abstract and array as break callable case catch class clone const
		continue declare default do echo else elseif empty enddeclare endfor
		endforeach endif endswitch endwhile enum eval exit extends final
		finally fn for foreach function global goto if implements include
		include_once instanceof insteadof interface isset list match namespace
		new or print private protected public readonly require require_once
		return static switch throw trait try unset use var while xor yield
		bool false float int iterable mixed never null numeric object parent
		resource self string true void`) {
		reservedClassNames[w] = true
	}
}

// IsReservedClass reports whether name cannot name a PHP class.
func IsReservedClass(name string) bool {
	return reservedClassNames[strings.ToLower(name)]
}

// Class is Pascal made safe for a PHP class name: "2fa_codes" becomes
// "_2faCodes" and "list" becomes "ListRow".
func Class(s string) string {
	name := Pascal(s)
	if name == "" {
		return "Row"
	}
	if unicode.IsDigit([]rune(name)[0]) {
		name = "_" + name
	}
	if IsReservedClass(name) {
		name += "Row"
	}
	return name
}
