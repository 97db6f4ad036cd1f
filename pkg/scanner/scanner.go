// Package scanner turns Lox source text into a sequence of tokens.
package scanner

import (
	"strconv"
	"unicode/utf8"

	"github.com/lemonberrylabs/glox/pkg/diag"
	"github.com/lemonberrylabs/glox/pkg/token"
)

// Scanner tokenizes Lox source in a single left-to-right pass.
type Scanner struct {
	input    string
	start    int // first byte of the token being scanned
	pos      int // next unread byte
	line     int
	tokens   []token.Token
	reporter diag.Reporter
}

// New creates a scanner for source. Lexical errors go to reporter.
func New(source string, reporter diag.Reporter) *Scanner {
	return &Scanner{input: source, line: 1, reporter: reporter}
}

// ScanTokens scans the entire input and returns all tokens. The result
// always ends with a single EOF token, even when errors were reported.
func (s *Scanner) ScanTokens() []token.Token {
	for !s.atEnd() {
		s.start = s.pos
		s.next()
	}
	s.tokens = append(s.tokens, token.Token{Type: token.EOF, Line: s.line})
	return s.tokens
}

// next scans one token starting at s.start.
func (s *Scanner) next() {
	ch := s.advance()

	switch ch {
	case '(':
		s.add(token.LeftParen)
	case ')':
		s.add(token.RightParen)
	case '{':
		s.add(token.LeftBrace)
	case '}':
		s.add(token.RightBrace)
	case ',':
		s.add(token.Comma)
	case '.':
		s.add(token.Dot)
	case '-':
		s.add(token.Minus)
	case '+':
		s.add(token.Plus)
	case ';':
		s.add(token.Semicolon)
	case '*':
		s.add(token.Star)

	// Two-character operators take precedence over their prefixes
	case '!':
		s.addEither('=', token.BangEqual, token.Bang)
	case '=':
		s.addEither('=', token.EqualEqual, token.Equal)
	case '<':
		s.addEither('=', token.LessEqual, token.Less)
	case '>':
		s.addEither('=', token.GreaterEqual, token.Greater)

	case '/':
		if s.match('/') {
			for s.peek() != '\n' && !s.atEnd() {
				s.pos++
			}
			return
		}
		s.add(token.Slash)

	case ' ', '\r', '\t':
	case '\n':
		s.line++

	case '"', '\'':
		s.readString(ch)

	default:
		switch {
		case isDigit(ch):
			s.readNumber()
		case isIdentStart(ch):
			s.readIdentifier()
		default:
			// One diagnostic per character, not per byte.
			_, size := utf8.DecodeRuneInString(s.input[s.start:])
			s.pos = s.start + size
			s.reporter.Error(s.line, "Unexpected character.")
		}
	}
}

// readString reads a quoted string literal. The opening quote has been consumed.
func (s *Scanner) readString(quote byte) {
	for s.peek() != quote && !s.atEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.pos++
	}

	if s.atEnd() {
		s.reporter.Error(s.line, "Unterminated string.")
		return
	}

	s.pos++ // closing quote
	s.addLiteral(token.String, s.input[s.start+1:s.pos-1])
}

// readNumber reads digits with an optional fractional part.
func (s *Scanner) readNumber() {
	for isDigit(s.peek()) {
		s.pos++
	}

	// A trailing '.' with no digits after it is left for the Dot token
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.pos++
		for isDigit(s.peek()) {
			s.pos++
		}
	}

	raw := s.input[s.start:s.pos]
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.reporter.Error(s.line, "Invalid number.")
		return
	}
	s.addLiteral(token.Number, f)
}

// readIdentifier reads an identifier or keyword.
func (s *Scanner) readIdentifier() {
	for isIdentPart(s.peek()) {
		s.pos++
	}
	s.add(token.Lookup(s.input[s.start:s.pos]))
}

func (s *Scanner) addEither(second byte, two, one token.Type) {
	if s.match(second) {
		s.add(two)
		return
	}
	s.add(one)
}

func (s *Scanner) add(tt token.Type) {
	s.addLiteral(tt, nil)
}

func (s *Scanner) addLiteral(tt token.Type, literal any) {
	s.tokens = append(s.tokens, token.Token{
		Type:    tt,
		Lexeme:  s.input[s.start:s.pos],
		Literal: literal,
		Line:    s.line,
	})
}

func (s *Scanner) atEnd() bool {
	return s.pos >= len(s.input)
}

func (s *Scanner) advance() byte {
	ch := s.input[s.pos]
	s.pos++
	return ch
}

// match consumes the next byte if it equals want.
func (s *Scanner) match(want byte) bool {
	if s.atEnd() || s.input[s.pos] != want {
		return false
	}
	s.pos++
	return true
}

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.input[s.pos]
}

func (s *Scanner) peekNext() byte {
	if s.pos+1 >= len(s.input) {
		return 0
	}
	return s.input[s.pos+1]
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
