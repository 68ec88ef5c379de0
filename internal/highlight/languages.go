package highlight

import (
	"path"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// Language identifies one of the supported source languages.
// The zero value means "no language": text is rendered without token spans.
type Language string

// Supported languages.
const (
	Go         Language = "go"
	Rust       Language = "rust"
	C          Language = "c"
	Cpp        Language = "cpp"
	CSharp     Language = "csharp"
	Java       Language = "java"
	Kotlin     Language = "kotlin"
	Scala      Language = "scala"
	Swift      Language = "swift"
	Dart       Language = "dart"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Python     Language = "python"
	Ruby       Language = "ruby"
	Perl       Language = "perl"
	PHP        Language = "php"
	Lua        Language = "lua"
	Shell      Language = "shell"
	PowerShell Language = "powershell"
	SQL        Language = "sql"
	Haskell    Language = "haskell"
	OCaml      Language = "ocaml"
	Elixir     Language = "elixir"
	Erlang     Language = "erlang"
	Clojure    Language = "clojure"
	Lisp       Language = "lisp"
	R          Language = "r"
	Zig        Language = "zig"
	Nim        Language = "nim"
	JSON       Language = "json"
	YAML       Language = "yaml"
	TOML       Language = "toml"
	CSS        Language = "css"
	HTML       Language = "html"
	XML        Language = "xml"
	Makefile   Language = "makefile"
	Dockerfile Language = "dockerfile"
	Protobuf   Language = "protobuf"
	GraphQL    Language = "graphql"
)

type langDef struct {
	aliases    []string
	extensions []string
	filenames  []string
	lex        *lexSpec
}

func words(s string) map[string]bool {
	m := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		m[w] = true
	}
	return m
}

var (
	cComments    = []string{"//"}
	cBlock       = []delim{{"/*", "*/"}}
	hashComments = []string{"#"}

	cKeywords = "auto break case char const continue default do double else enum extern float for goto if inline int long register restrict return short signed sizeof static struct switch typedef union unsigned void volatile while NULL true false bool _Bool"
)

var languages = map[Language]langDef{
	Go: {
		aliases: []string{"go", "golang"}, extensions: []string{".go"},
		lex: &lexSpec{lineComments: cComments, blockComments: cBlock, quotes: `"'`, rawQuotes: "`", charQuote: true,
			keywords: words("break case chan const continue default defer else fallthrough for func go goto if import interface map package range return select struct switch type var nil true false iota")},
	},
	Rust: {
		aliases: []string{"rust", "rs"}, extensions: []string{".rs"},
		lex: &lexSpec{lineComments: cComments, blockComments: cBlock, nestedBlocks: true, quotes: `"'`, multiline: `"`, charQuote: true,
			keywords: words("as async await break const continue crate dyn else enum extern false fn for if impl in let loop match mod move mut pub ref return self Self static struct super trait true type unsafe use where while")},
	},
	C: {
		aliases: []string{"c", "h"}, extensions: []string{".c", ".h"},
		lex: &lexSpec{lineComments: cComments, blockComments: cBlock, quotes: `"'`, charQuote: true, identStart: "#",
			keywords: words(cKeywords + " #include #define #ifdef #ifndef #endif #if #else #elif #undef #pragma")},
	},
	Cpp: {
		aliases: []string{"cpp", "c++", "cxx", "cc", "hpp"}, extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh", ".hxx", ".ipp"},
		lex: &lexSpec{lineComments: cComments, blockComments: cBlock, quotes: `"'`, charQuote: true, identStart: "#",
			keywords: words(cKeywords + " class namespace template typename public private protected virtual override final new delete this throw try catch using constexpr noexcept nullptr operator friend explicit mutable decltype auto static_cast dynamic_cast reinterpret_cast const_cast #include #define #ifdef #ifndef #endif #if #else #elif #pragma")},
	},
	CSharp: {
		aliases: []string{"csharp", "cs", "c#"}, extensions: []string{".cs"},
		lex: &lexSpec{lineComments: cComments, blockComments: cBlock, quotes: `"'`, charQuote: true, identStart: "@",
			keywords: words("abstract as async await base bool break byte case catch char checked class const continue decimal default delegate do double else enum event explicit extern false finally fixed float for foreach get goto if implicit in int interface internal is lock long namespace new null object operator out override params private protected public readonly record ref return sbyte sealed set short sizeof static string struct switch this throw true try typeof uint ulong unchecked unsafe ushort using var virtual void volatile while yield")},
	},
	Java: {
		aliases: []string{"java"}, extensions: []string{".java"},
		lex: &lexSpec{lineComments: cComments, blockComments: cBlock, quotes: `"'`, charQuote: true,
			keywords: words("abstract assert boolean break byte case catch char class const continue default do double else enum extends final finally float for goto if implements import instanceof int interface long native new null package private protected public record return short static strictfp super switch synchronized this throw throws transient true false try var void volatile while yield")},
	},
	Kotlin: {
		aliases: []string{"kotlin", "kt", "kts"}, extensions: []string{".kt", ".kts"},
		lex: &lexSpec{lineComments: cComments, blockComments: cBlock, nestedBlocks: true, quotes: `"'`, charQuote: true,
			keywords: words("as break class continue do else false for fun if in interface is null object package return super this throw true try typealias typeof val var when while by catch constructor companion data enum finally get import init internal lateinit open override private protected public sealed set suspend")},
	},
	Scala: {
		aliases: []string{"scala"}, extensions: []string{".scala", ".sc"},
		lex: &lexSpec{lineComments: cComments, blockComments: cBlock, nestedBlocks: true, quotes: `"'`, charQuote: true,
			keywords: words("abstract case catch class def do else extends false final finally for forSome given if implicit import lazy match new null object override package private protected return sealed super then this throw trait true try type using val var while with yield")},
	},
	Swift: {
		aliases: []string{"swift"}, extensions: []string{".swift"},
		lex: &lexSpec{lineComments: cComments, blockComments: cBlock, nestedBlocks: true, quotes: `"`,
			keywords: words("associatedtype class deinit enum extension fileprivate func import init inout internal let open operator private protocol public rethrows static struct subscript typealias var break case continue default defer do else fallthrough for guard if in repeat return switch where while as catch false is nil self Self super throw throws true try async await")},
	},
	Dart: {
		aliases: []string{"dart"}, extensions: []string{".dart"},
		lex: &lexSpec{lineComments: cComments, blockComments: cBlock, quotes: `"'`, identStart: "$",
			keywords: words("abstract as assert async await break case catch class const continue default do dynamic else enum export extends external factory false final finally for get if implements import in is late library mixin new null on operator part required rethrow return set static super switch this throw true try typedef var void while with yield")},
	},
	JavaScript: {
		aliases: []string{"javascript", "js", "jsx", "node", "mjs", "cjs"}, extensions: []string{".js", ".mjs", ".cjs", ".jsx"},
		lex: &lexSpec{lineComments: cComments, blockComments: cBlock, quotes: `"'`, rawQuotes: "`", identStart: "$",
			keywords: words(jsKeywords)},
	},
	TypeScript: {
		aliases: []string{"typescript", "ts", "tsx"}, extensions: []string{".ts", ".tsx", ".mts", ".cts"},
		lex: &lexSpec{lineComments: cComments, blockComments: cBlock, quotes: `"'`, rawQuotes: "`", identStart: "$",
			keywords: words(jsKeywords + " abstract any boolean declare enum implements interface keyof namespace never number private protected public readonly string type unknown")},
	},
	Python: {
		aliases: []string{"python", "py", "python3", "py3", "pyw"}, extensions: []string{".py", ".pyw", ".pyi"},
		lex: &lexSpec{lineComments: hashComments, quotes: `"'`, tripleQuotes: true, identStart: "@",
			keywords: words("False None True and as assert async await break class continue def del elif else except finally for from global if import in is lambda nonlocal not or pass raise return try while with yield match case self")},
	},
	Ruby: {
		aliases: []string{"ruby", "rb"}, extensions: []string{".rb", ".rake", ".gemspec"}, filenames: []string{"Gemfile", "Rakefile"},
		lex: &lexSpec{lineComments: hashComments, blockComments: []delim{{"=begin", "=end"}}, quotes: `"'`, multiline: `"'`, identStart: "@$:", identExtra: "?!",
			keywords: words("BEGIN END alias and begin break case class def defined? do else elsif end ensure false for if in module next nil not or redo rescue retry return self super then true undef unless until when while yield require attr_reader attr_accessor")},
	},
	Perl: {
		aliases: []string{"perl", "pl", "pm"}, extensions: []string{".pl", ".pm", ".t"},
		lex: &lexSpec{lineComments: hashComments, quotes: `"'`, multiline: `"'`, identStart: "$@%",
			keywords: words("my our local sub return if elsif else unless while until for foreach do last next redo use no package require bless undef eq ne lt gt le ge and or not print")},
	},
	PHP: {
		aliases: []string{"php"}, extensions: []string{".php"},
		lex: &lexSpec{lineComments: []string{"//", "#"}, blockComments: cBlock, quotes: `"'`, multiline: `"'`, identStart: "$",
			keywords: words("abstract and array as break callable case catch class clone const continue declare default do echo else elseif empty enddeclare endfor endforeach endif endswitch endwhile enum extends final finally fn for foreach function global goto if implements include include_once instanceof insteadof interface isset list match namespace new null or print private protected public readonly require require_once return static switch throw trait true false try unset use var while yield")},
	},
	Lua: {
		aliases: []string{"lua"}, extensions: []string{".lua"},
		lex: &lexSpec{lineComments: []string{"--"}, blockComments: []delim{{"--[[", "]]"}}, quotes: `"'`,
			keywords: words("and break do else elseif end false for function goto if in local nil not or repeat return then true until while")},
	},
	Shell: {
		aliases: []string{"shell", "sh", "bash", "zsh", "ksh", "fish", "shellscript"}, extensions: []string{".sh", ".bash", ".zsh", ".ksh", ".fish"},
		lex: &lexSpec{lineComments: hashComments, commentBoundary: true, quotes: `"'`, multiline: `"'`, rawQuotes: "`", identStart: "$", identExtra: "-",
			keywords: words("if then else elif fi case esac for select while until do done in function return local export readonly declare unset shift break continue exit echo set source alias")},
	},
	PowerShell: {
		aliases: []string{"powershell", "ps1", "pwsh", "posh"}, extensions: []string{".ps1", ".psm1", ".psd1"},
		lex: &lexSpec{lineComments: hashComments, blockComments: []delim{{"<#", "#>"}}, quotes: `"'`, multiline: `"'`, identStart: "$", identExtra: "-", foldCase: true,
			keywords: words("begin break catch class continue data do dynamicparam else elseif end exit filter finally for foreach from function if in param process return switch throw trap try until using var while")},
	},
	SQL: {
		aliases: []string{"sql", "mysql", "postgresql", "postgres", "sqlite", "plpgsql"}, extensions: []string{".sql"},
		lex: &lexSpec{lineComments: []string{"--"}, blockComments: cBlock, quotes: `'"`, multiline: `'`, foldCase: true,
			keywords: words("select from where insert into values update set delete create table drop alter add column index view primary key foreign references not null unique default and or in is like between join inner left right outer full on as group by order having limit offset union all distinct case when then else end exists begin commit rollback transaction returning with asc desc true false integer text varchar boolean")},
	},
	Haskell: {
		aliases: []string{"haskell", "hs"}, extensions: []string{".hs", ".lhs"},
		lex: &lexSpec{lineComments: []string{"--"}, blockComments: []delim{{"{-", "-}"}}, nestedBlocks: true, quotes: `"`,
			keywords: words("case class data default deriving do else foreign if import in infix infixl infixr instance let module newtype of then type where qualified as hiding")},
	},
	OCaml: {
		aliases: []string{"ocaml", "ml"}, extensions: []string{".ml", ".mli"},
		lex: &lexSpec{blockComments: []delim{{"(*", "*)"}}, nestedBlocks: true, quotes: `"`, multiline: `"`,
			keywords: words("and as assert begin class constraint do done downto else end exception external false for fun function functor if in include inherit initializer lazy let match method module mutable new object of open or private rec sig struct then to true try type val virtual when while with")},
	},
	Elixir: {
		aliases: []string{"elixir", "ex", "exs"}, extensions: []string{".ex", ".exs"},
		lex: &lexSpec{lineComments: hashComments, quotes: `"'`, multiline: `"'`, tripleQuotes: true, identStart: ":@", identExtra: "?!",
			keywords: words("after and case catch cond def defmacro defmodule defp defprotocol defimpl defstruct do else end false fn for if import in nil not or quote raise receive require rescue true try unless unquote use when with alias")},
	},
	Erlang: {
		aliases: []string{"erlang", "erl"}, extensions: []string{".erl", ".hrl"},
		lex: &lexSpec{lineComments: []string{"%"}, quotes: `"'`,
			keywords: words("after and andalso band begin bnot bor bsl bsr bxor case catch cond div end fun if let not of or orelse receive rem try when xor module export import record define")},
	},
	Clojure: {
		aliases: []string{"clojure", "clj", "cljs", "cljc", "edn"}, extensions: []string{".clj", ".cljs", ".cljc", ".edn"},
		lex: &lexSpec{lineComments: []string{";"}, quotes: `"`, multiline: `"`, identStart: ":", identExtra: "-?!*+<>=/.'",
			keywords: words("def defn defn- defmacro defprotocol defrecord deftype fn if do let loop recur quote var throw try catch finally when when-not cond case ns require import nil true false")},
	},
	Lisp: {
		aliases: []string{"lisp", "common-lisp", "cl", "elisp", "emacs-lisp", "el", "scheme", "scm", "racket"}, extensions: []string{".lisp", ".lsp", ".cl", ".el", ".scm", ".ss", ".rkt"},
		lex: &lexSpec{lineComments: []string{";"}, blockComments: []delim{{"#|", "|#"}}, nestedBlocks: true, quotes: `"`, multiline: `"`, identStart: ":", identExtra: "-?!*+<>=/",
			keywords: words("defun defmacro defvar defparameter defconstant define lambda let let* if cond when unless progn setq setf loop do and or not quote nil t else begin")},
	},
	R: {
		aliases: []string{"r", "rscript", "splus"}, extensions: []string{".r", ".rmd"},
		lex: &lexSpec{lineComments: hashComments, quotes: `"'`, multiline: `"'`, identExtra: ".",
			keywords: words("if else repeat while function for in next break TRUE FALSE NULL Inf NaN NA return library require")},
	},
	Zig: {
		aliases: []string{"zig"}, extensions: []string{".zig"},
		lex: &lexSpec{lineComments: cComments, quotes: `"'`, charQuote: true, identStart: "@",
			keywords: words("align allowzero and anyframe anytype asm async await break catch comptime const continue defer else enum errdefer error export extern fn for if inline noalias nosuspend or orelse packed pub resume return struct suspend switch test threadlocal try union unreachable usingnamespace var volatile while true false null undefined")},
	},
	Nim: {
		aliases: []string{"nim", "nimrod"}, extensions: []string{".nim", ".nims"},
		lex: &lexSpec{lineComments: hashComments, blockComments: []delim{{"#[", "]#"}}, nestedBlocks: true, quotes: `"'`, tripleQuotes: true, charQuote: true,
			keywords: words("addr and as asm bind block break case cast concept const continue converter defer discard distinct div do elif else end enum except export finally for from func if import in include interface is isnot iterator let macro method mixin mod nil not notin object of or out proc ptr raise ref return shl shr static template try tuple type using var when while xor yield true false")},
	},
	JSON: {
		aliases: []string{"json", "jsonc", "json5"}, extensions: []string{".json", ".jsonc", ".json5"}, filenames: []string{".babelrc", ".eslintrc"},
		lex: &lexSpec{lineComments: cComments, blockComments: cBlock, quotes: `"`,
			keywords: words("true false null")},
	},
	YAML: {
		aliases: []string{"yaml", "yml"}, extensions: []string{".yaml", ".yml"},
		lex: &lexSpec{lineComments: hashComments, commentBoundary: true, quotes: `"'`, identExtra: "-",
			keywords: words("true false null yes no on off True False Null")},
	},
	TOML: {
		aliases: []string{"toml"}, extensions: []string{".toml"}, filenames: []string{"Cargo.lock", "Pipfile"},
		lex: &lexSpec{lineComments: hashComments, quotes: `"'`, tripleQuotes: true, identExtra: "-",
			keywords: words("true false inf nan")},
	},
	CSS: {
		aliases: []string{"css", "scss", "sass", "less"}, extensions: []string{".css", ".scss", ".sass", ".less"},
		lex: &lexSpec{lineComments: nil, blockComments: cBlock, quotes: `"'`, identStart: "@$-", identExtra: "-",
			keywords: words("@media @import @font-face @keyframes @supports @mixin @include @extend @use !important inherit initial unset none auto")},
	},
	HTML: {
		aliases: []string{"html", "htm", "xhtml", "vue", "svelte"}, extensions: []string{".html", ".htm", ".xhtml", ".vue", ".svelte"},
		lex: &lexSpec{blockComments: []delim{{"<!--", "-->"}}, quotes: `"'`, multiline: `"'`, identExtra: "-:", foldCase: true,
			keywords: words("html head body title meta link script style div span a p ul ol li table tr td th img form input button template section header footer nav main article")},
	},
	XML: {
		aliases: []string{"xml", "svg", "xsl", "xslt", "plist", "rss"}, extensions: []string{".xml", ".svg", ".xsl", ".xslt", ".plist", ".rss", ".csproj", ".xaml"},
		lex: &lexSpec{blockComments: []delim{{"<!--", "-->"}, {"<![CDATA[", "]]>"}}, quotes: `"'`, multiline: `"'`, identExtra: "-:.",
			keywords: words("xml version encoding xmlns")},
	},
	Makefile: {
		aliases: []string{"makefile", "make", "mk", "bsdmake"}, extensions: []string{".mk", ".mak"}, filenames: []string{"Makefile", "makefile", "GNUmakefile"},
		lex: &lexSpec{lineComments: hashComments, quotes: `"'`, identStart: "$.", identExtra: "-",
			keywords: words("ifeq ifneq ifdef ifndef else endif include define endef export override .PHONY .DEFAULT .SUFFIXES")},
	},
	Dockerfile: {
		aliases: []string{"dockerfile", "docker", "containerfile"}, extensions: []string{".dockerfile"}, filenames: []string{"Dockerfile", "Containerfile"},
		lex: &lexSpec{lineComments: hashComments, commentBoundary: true, quotes: `"'`, identStart: "$", identExtra: "-", foldCase: true,
			keywords: words("from as run cmd label maintainer expose env add copy entrypoint volume user workdir arg onbuild stopsignal healthcheck shell")},
	},
	Protobuf: {
		aliases: []string{"protobuf", "proto", "proto3"}, extensions: []string{".proto"},
		lex: &lexSpec{lineComments: cComments, blockComments: cBlock, quotes: `"'`,
			keywords: words("syntax package import option message enum service rpc returns stream repeated optional required reserved oneof map extend true false double float int32 int64 uint32 uint64 sint32 sint64 fixed32 fixed64 sfixed32 sfixed64 bool string bytes")},
	},
	GraphQL: {
		aliases: []string{"graphql", "gql"}, extensions: []string{".graphql", ".gql", ".graphqls"},
		lex: &lexSpec{lineComments: hashComments, quotes: `"`, tripleQuotes: true, identStart: "$@",
			keywords: words("query mutation subscription fragment on type interface union enum input scalar schema extend directive implements true false null")},
	},
}

const jsKeywords = "async await break case catch class const continue debugger default delete do else export extends false finally for from function get if import in instanceof let new null of return set static super switch this throw true try typeof undefined var void while with yield"

var (
	aliasIndex    = map[string]Language{}
	extIndex      = map[string]Language{}
	filenameIndex = map[string]Language{}
)

func init() {
	for lang, def := range languages {
		aliasIndex[string(lang)] = lang
		for _, a := range def.aliases {
			aliasIndex[a] = lang
		}
		for _, e := range def.extensions {
			extIndex[e] = lang
		}
		for _, f := range def.filenames {
			filenameIndex[f] = lang
		}
	}
}

// Supported returns every supported language, sorted by tag.
func Supported() []Language {
	out := make([]Language, 0, len(languages))
	for lang := range languages {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsSupported reports whether lang has a lexer.
func (l Language) IsSupported() bool {
	_, ok := languages[l]
	return ok
}

// Lookup maps a language name or alias (as written after a Markdown code
// fence) to a supported Language. Names unknown to the local table are
// resolved through chroma's lexer registry so that any alias chroma knows for
// a supported language is accepted too.
func Lookup(name string) (Language, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", false
	}
	if lang, ok := aliasIndex[name]; ok {
		return lang, true
	}
	if lexer := lexers.Get(name); lexer != nil {
		return fromChroma(lexer.Config().Name, lexer.Config().Aliases)
	}
	return "", false
}

// Detect determines the language of a file from its name and, for files
// without a known extension, a "#!" interpreter line in head.
func Detect(filename string, head []byte) (Language, bool) {
	base := path.Base(filename)
	if lang, ok := filenameIndex[base]; ok {
		return lang, true
	}
	if strings.HasPrefix(base, "Dockerfile.") || strings.HasSuffix(base, ".Dockerfile") {
		return Dockerfile, true
	}
	if ext := strings.ToLower(path.Ext(base)); ext != "" {
		if lang, ok := extIndex[ext]; ok {
			return lang, true
		}
	}
	if lang, ok := detectShebang(head); ok {
		return lang, true
	}
	if lexer := lexers.Match(base); lexer != nil {
		return fromChroma(lexer.Config().Name, lexer.Config().Aliases)
	}
	return "", false
}

func fromChroma(name string, aliases []string) (Language, bool) {
	if lang, ok := aliasIndex[strings.ToLower(name)]; ok {
		return lang, true
	}
	for _, a := range aliases {
		if lang, ok := aliasIndex[strings.ToLower(a)]; ok {
			return lang, true
		}
	}
	return "", false
}

// detectShebang reads "#!/usr/bin/env python3" style interpreter lines.
func detectShebang(head []byte) (Language, bool) {
	if len(head) < 3 || head[0] != '#' || head[1] != '!' {
		return "", false
	}
	line := string(head[2:])
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}
	interp := path.Base(fields[0])
	if interp == "env" {
		interp = ""
		for _, f := range fields[1:] {
			if !strings.HasPrefix(f, "-") {
				interp = f
				break
			}
		}
	}
	interp = strings.TrimRight(interp, "0123456789.")
	if lang, ok := aliasIndex[interp]; ok {
		return lang, true
	}
	return "", false
}
