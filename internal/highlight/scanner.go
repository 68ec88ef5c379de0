package highlight

import (
	"strings"
	"unicode/utf8"
)

// TokenClass is the styling class of a token.
type TokenClass uint8

// Token classes.
const (
	Plain TokenClass = iota
	Keyword
	String
	Comment
	Number
	Identifier
	Punctuation
)

var classNames = [...]string{
	Plain:       "plain",
	Keyword:     "keyword",
	String:      "string",
	Comment:     "comment",
	Number:      "number",
	Identifier:  "identifier",
	Punctuation: "punctuation",
}

func (c TokenClass) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "plain"
}

// Token is a span of source text with its class.
type Token struct {
	Class TokenClass
	Text  string
}

type delim struct {
	open, close string
}

// lexSpec holds the lexical rules of one language.
type lexSpec struct {
	lineComments  []string
	blockComments []delim
	nestedBlocks  bool
	// commentBoundary requires a line comment marker to follow whitespace or
	// start a line ("a#b" is not a comment in shell).
	commentBoundary bool

	quotes       string // string delimiters with backslash escapes, single line
	multiline    string // subset of quotes allowed to span lines
	rawQuotes    string // delimiters without escapes, may span lines
	tripleQuotes bool   // """ and ''' strings
	charQuote    bool   // ' opens a string only around a single character

	identStart string // extra bytes that may start an identifier
	identExtra string // extra bytes that may continue an identifier
	keywords   map[string]bool
	foldCase   bool
}

const punctuation = "{}[]()<>;:,.+-*/%=!&|^~?@#\\"

// maxCharLiteral bounds the lookahead for a closing quote of a character
// literal such as '\u{1F600}'.
const maxCharLiteral = 12

// Tokenize splits src into tokens using the lexical rules of lang. Adjacent
// tokens of the same class are merged. For an unsupported language the whole
// input is a single Plain token. Concatenating the token texts always yields
// src, and the running time is linear in len(src). A leading byte order mark
// is a Plain token of its own.
func Tokenize(src string, lang Language) []Token {
	def, ok := languages[lang]
	if !ok || def.lex == nil {
		if src == "" {
			return nil
		}
		return []Token{{Class: Plain, Text: src}}
	}
	s := scanner{src: src, spec: def.lex}
	return s.run()
}

type scanner struct {
	src    string
	spec   *lexSpec
	tokens []Token
}

func (s *scanner) emit(class TokenClass, start, end int) {
	if n := len(s.tokens); n > 0 && s.tokens[n-1].Class == class {
		prev := &s.tokens[n-1]
		// tokens are contiguous slices of src, so merging is a reslice
		prev.Text = s.src[start-len(prev.Text) : end]
		return
	}
	s.tokens = append(s.tokens, Token{Class: class, Text: s.src[start:end]})
}

func (s *scanner) run() []Token {
	src := s.src
	i := 0
	if strings.HasPrefix(src, bom) {
		s.emit(Plain, 0, len(bom))
		i = len(bom)
	}
	for i < len(src) {
		class, j := s.next(i)
		if j <= i {
			j = i + 1
		}
		s.emit(class, i, j)
		i = j
	}
	return s.tokens
}

// next classifies the token starting at i and returns its class and end.
func (s *scanner) next(i int) (TokenClass, int) {
	src, spec := s.src, s.spec
	c := src[i]

	if isSpace(c) {
		j := i + 1
		for j < len(src) && isSpace(src[j]) {
			j++
		}
		return Plain, j
	}

	for _, b := range spec.blockComments {
		if strings.HasPrefix(src[i:], b.open) {
			return Comment, s.blockEnd(i, b)
		}
	}
	for _, lc := range spec.lineComments {
		if strings.HasPrefix(src[i:], lc) && (!spec.commentBoundary || i == 0 || isSpace(src[i-1])) {
			if k := strings.IndexByte(src[i:], '\n'); k >= 0 {
				return Comment, i + k
			}
			return Comment, len(src)
		}
	}

	if spec.tripleQuotes && (c == '"' || c == '\'') && strings.HasPrefix(src[i:], strings.Repeat(string(c), 3)) {
		q := src[i : i+3]
		if k := strings.Index(src[i+3:], q); k >= 0 {
			return String, i + 3 + k + 3
		}
		return String, len(src)
	}
	if strings.IndexByte(spec.rawQuotes, c) >= 0 {
		if k := strings.IndexByte(src[i+1:], c); k >= 0 {
			return String, i + 1 + k + 1
		}
		return String, len(src)
	}
	if strings.IndexByte(spec.quotes, c) >= 0 {
		if c == '\'' && spec.charQuote {
			if end, ok := s.charLiteral(i); ok {
				return String, end
			}
			return Punctuation, i + 1
		}
		return String, s.stringEnd(i, c, strings.IndexByte(spec.multiline, c) >= 0)
	}

	if isDigit(c) {
		return Number, s.numberEnd(i)
	}
	if s.isIdentStart(c) {
		j := i + 1
		for j < len(src) && s.isIdentPart(src[j]) {
			j++
		}
		word := src[i:j]
		if spec.foldCase {
			word = strings.ToLower(word)
		}
		if spec.keywords[word] {
			return Keyword, j
		}
		return Identifier, j
	}
	if strings.IndexByte(punctuation, c) >= 0 {
		return Punctuation, i + 1
	}
	return Plain, i + 1
}

func (s *scanner) blockEnd(i int, b delim) int {
	src := s.src
	if !s.spec.nestedBlocks {
		if k := strings.Index(src[i+len(b.open):], b.close); k >= 0 {
			return i + len(b.open) + k + len(b.close)
		}
		return len(src)
	}
	depth := 0
	j := i
	for j < len(src) {
		switch {
		case strings.HasPrefix(src[j:], b.open):
			depth++
			j += len(b.open)
		case strings.HasPrefix(src[j:], b.close):
			depth--
			j += len(b.close)
			if depth == 0 {
				return j
			}
		default:
			j++
		}
	}
	return len(src)
}

func (s *scanner) stringEnd(i int, quote byte, multiline bool) int {
	src := s.src
	j := i + 1
	for j < len(src) {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case quote:
			return j + 1
		case '\n':
			if !multiline {
				return j
			}
		}
		j++
	}
	return len(src)
}

// charLiteral reports whether the quote at i starts a character literal
// ('a', '\n', '\u{1F600}') rather than, say, a Rust lifetime.
func (s *scanner) charLiteral(i int) (int, bool) {
	src := s.src
	j := i + 1
	if j >= len(src) {
		return 0, false
	}
	if src[j] != '\\' {
		_, size := utf8.DecodeRuneInString(src[j:])
		if end := j + size; end < len(src) && src[end] == '\'' && src[j] != '\'' {
			return end + 1, true
		}
		return 0, false
	}
	for j += 2; j < len(src) && j-i <= maxCharLiteral; j++ {
		switch src[j] {
		case '\'':
			return j + 1, true
		case '\n':
			return 0, false
		}
	}
	return 0, false
}

func (s *scanner) numberEnd(i int) int {
	src := s.src
	hex := strings.HasPrefix(src[i:], "0x") || strings.HasPrefix(src[i:], "0X")
	seenDot := false
	j := i + 1
	for j < len(src) {
		c := src[j]
		switch {
		case isDigit(c) || isLetter(c) || c == '_':
		case c == '.' && !seenDot && j+1 < len(src) && isDigit(src[j+1]):
			seenDot = true
		case (c == '+' || c == '-') && !hex && (src[j-1] == 'e' || src[j-1] == 'E'):
		default:
			return j
		}
		j++
	}
	return j
}

func (s *scanner) isIdentStart(c byte) bool {
	return isLetter(c) || c == '_' || c >= 0x80 || strings.IndexByte(s.spec.identStart, c) >= 0
}

func (s *scanner) isIdentPart(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_' || c >= 0x80 || strings.IndexByte(s.spec.identExtra, c) >= 0
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isLetter(c byte) bool { return (c|0x20) >= 'a' && (c|0x20) <= 'z' }
