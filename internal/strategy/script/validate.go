package script

import (
	"fmt"
	"regexp"
	"strings"
)

// Violation is a single static-validation finding in script source.
type Violation struct {
	// Code is a stable machine-readable violation code.
	Code string `json:"code"`
	// Message describes the denied capability.
	Message string `json:"message"`
	// Line is the 1-based source line of the finding (0 when unknown).
	Line int `json:"line"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s (line %d): %s", v.Code, v.Line, v.Message)
}

type denyRule struct {
	code    string
	pattern *regexp.Regexp
	message string
}

// denyRules is the capability denylist applied to script source before a
// script may transition to Ready. The interpreter itself exposes no
// ambient authority; the scan rejects scripts that even reference denied
// capability groups so that defects surface at load time with line
// numbers instead of as runtime faults.
var denyRules = []denyRule{
	{"SBX001", regexp.MustCompile(`\b(child_process|process\s*\.|os\s*\.|exec\s*\(|spawn\s*\()`), "process/OS control is not available to strategies"},
	{"SBX002", regexp.MustCompile(`\b(XMLHttpRequest|fetch\s*\(|WebSocket|socket|http\s*\.|net\s*\.)`), "networking is not available to strategies"},
	{"SBX003", regexp.MustCompile(`\b(fs\s*\.|readFile|writeFile|open\s*\(|openSync)`), "filesystem access is not available to strategies"},
	{"SBX004", regexp.MustCompile(`\b(Worker|SharedArrayBuffer|Atomics|setInterval\s*\(|setTimeout\s*\()`), "concurrency primitives are not available to strategies"},
	{"SBX005", regexp.MustCompile(`\b(WebAssembly|ffi|Buffer\s*\.)`), "low-level memory and foreign-function access is not available to strategies"},
	{"SBX006", regexp.MustCompile(`\b(structuredClone|serialize|deserialize)\s*\(`), "object serialization primitives are not available to strategies"},
	{"SBX007", regexp.MustCompile(`\b(Reflect\s*\.|Proxy\s*\()`), "reflection is not available to strategies"},
	{"SBX008", regexp.MustCompile(`\beval\s*\(|\bnew\s+Function\b|\bFunction\s*\(`), "dynamic code execution is not available to strategies"},
	{"SBX009", regexp.MustCompile(`__proto__|\.constructor\b|\bprototype\s*\[`), "prototype and constructor access could escape the sandbox"},
	{"SBX010", regexp.MustCompile(`\brequire\s*\(|^\s*import\s`), "module imports are not available to strategies"},
	{"SBX011", regexp.MustCompile(`\bprompt\s*\(|\breadline\b`), "interactive input is not available to strategies"},
	{"SBX012", regexp.MustCompile(`\bglobalThis\b`), "global object access is not available to strategies"},
}

// ScanSource statically scans script source text against the capability
// denylist, reporting each finding with a code, message, and best-effort
// line number. Any violation blocks the transition to Ready.
func ScanSource(source string) []Violation {
	var violations []Violation

	for lineNo, line := range strings.Split(source, "\n") {
		for _, rule := range denyRules {
			if rule.pattern.MatchString(line) {
				violations = append(violations, Violation{
					Code:    rule.code,
					Message: rule.message,
					Line:    lineNo + 1,
				})
			}
		}
	}

	return violations
}
