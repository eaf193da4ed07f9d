package types

import (
	"fmt"
	"strings"
)

// Language identifies one of the supported source languages.
// The set is closed: every switch over Language is expected to be exhaustive.
type Language uint8

const (
	LanguageUnknown Language = iota
	Python
	Java
	JavaScript
	Go
	Rust
	Cpp
)

// Languages lists every supported language in a stable order.
var Languages = []Language{Python, Java, JavaScript, Go, Rust, Cpp}

// String returns the LSP language identifier for the language
func (l Language) String() string {
	switch l {
	case Python:
		return "python"
	case Java:
		return "java"
	case JavaScript:
		return "javascript"
	case Go:
		return "go"
	case Rust:
		return "rust"
	case Cpp:
		return "cpp"
	default:
		return "unknown"
	}
}

// ShortName is the name used in file names and dataset records ("js" rather than "javascript").
func (l Language) ShortName() string {
	if l == JavaScript {
		return "js"
	}
	return l.String()
}

// Extensions returns the file extensions handled for the language
func (l Language) Extensions() []string {
	switch l {
	case Python:
		return []string{".py"}
	case Java:
		return []string{".java"}
	case JavaScript:
		return []string{".js"}
	case Go:
		return []string{".go"}
	case Rust:
		return []string{".rs"}
	case Cpp:
		return []string{".c", ".cpp", ".cxx", ".cc"}
	default:
		return nil
	}
}

// ParseLanguage maps a user supplied name to a Language.
func ParseLanguage(name string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "python", "py":
		return Python, nil
	case "java":
		return Java, nil
	case "javascript", "js":
		return JavaScript, nil
	case "go", "golang":
		return Go, nil
	case "rust", "rs":
		return Rust, nil
	case "cpp", "c++", "c":
		return Cpp, nil
	default:
		return LanguageUnknown, fmt.Errorf("unsupported language %q", name)
	}
}
