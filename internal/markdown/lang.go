// Package markdown converts between Markdown text and the remote block
// model, in both directions. The two directions are written as exact
// inverses over the supported construct set so that push→pull round trips
// do not generate spurious diffs.
package markdown

import "strings"

// extLanguage maps code-file extensions to remote code-block languages.
// Files with these extensions are pushed as a single code block.
var extLanguage = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".sh":   "bash",
	".html": "html",
	".css":  "css",
	".java": "java",
	".cpp":  "c++",
	".c":    "c",
	".go":   "go",
	".rs":   "rust",
	".rb":   "ruby",
	".php":  "php",
	".sql":  "sql",
	".xml":  "xml",
}

// imageExtensions are binary image files skipped entirely on push.
var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".svg": true, ".webp": true, ".ico": true, ".tiff": true, ".tif": true,
}

// fenceAliases normalizes fence language tags to remote language names.
var fenceAliases = map[string]string{
	"":           "plain text",
	"txt":        "plain text",
	"text":       "plain text",
	"plain_text": "plain text",
	"sh":         "bash",
	"zsh":        "bash",
	"py":         "python",
	"js":         "javascript",
	"ts":         "typescript",
	"yml":        "yaml",
	"md":         "markdown",
	"json5":      "json",
}

// supportedLanguages is the remote's code-language whitelist.
var supportedLanguages = map[string]bool{}

func init() {
	for _, l := range []string{
		"abap", "abc", "agda", "arduino", "ascii art", "assembly", "bash",
		"basic", "bnf", "c", "c#", "c++", "clojure", "coffeescript", "coq",
		"css", "dart", "dhall", "diff", "docker", "ebnf", "elixir", "elm",
		"erlang", "f#", "flow", "fortran", "gherkin", "glsl", "go", "graphql",
		"groovy", "haskell", "hcl", "html", "idris", "java", "javascript",
		"json", "julia", "kotlin", "latex", "less", "lisp", "livescript",
		"llvm ir", "lua", "makefile", "markdown", "markup", "matlab",
		"mathematica", "mermaid", "nix", "notion formula", "objective-c",
		"ocaml", "pascal", "perl", "php", "plain text", "powershell",
		"prolog", "protobuf", "purescript", "python", "r", "racket", "reason",
		"ruby", "rust", "sass", "scala", "scheme", "scss", "shell",
		"smalltalk", "solidity", "sql", "swift", "toml", "typescript",
		"vb.net", "verilog", "vhdl", "visual basic", "webassembly", "xml",
		"yaml",
	} {
		supportedLanguages[l] = true
	}
}

// CodeLanguageForExt returns the code-block language for a file extension
// and whether the extension marks a code file.
func CodeLanguageForExt(ext string) (string, bool) {
	lang, ok := extLanguage[strings.ToLower(ext)]
	return lang, ok
}

// IsImageExt reports whether ext names an image file skipped on push.
func IsImageExt(ext string) bool {
	return imageExtensions[strings.ToLower(ext)]
}

// normalizeFenceLang maps a fence tag to a supported remote language,
// falling back to plain text for anything unknown.
func normalizeFenceLang(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if mapped, ok := fenceAliases[tag]; ok {
		return mapped
	}
	if supportedLanguages[tag] {
		return tag
	}
	return "plain text"
}

// fenceTag is the inverse of normalizeFenceLang for rendering.
func fenceTag(language string) string {
	if language == "plain text" {
		return ""
	}
	return language
}
