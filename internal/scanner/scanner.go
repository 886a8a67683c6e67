package scanner

import (
	"fmt"

	"rlox/internal/token"
)

// ScanError is a malformed-source diagnostic. It carries no token; the
// parser consumes it as if it were one (reports it, then asks for
// another token) per spec §4.1/§7.
type ScanError struct {
	Line    int
	Message string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("[line %d] %s", e.Line, e.Message)
}

// Scanner streams tokens on demand from a source string. Cursor state is
// byte-oriented (start/current), matching the teacher's lexer shape.
type Scanner struct {
	source  string
	start   int
	current int
	line    int
}

func New(source string) *Scanner {
	return &Scanner{source: source, start: 0, current: 0, line: 1}
}

// ScanToken returns the next token, or a ScanError if the source at the
// cursor is malformed. On EOF it keeps returning an Eof token forever
// (idempotent terminal state, spec §4.1).
func (s *Scanner) ScanToken() (token.Token, *ScanError) {
	s.skipWhitespace()
	s.start = s.current

	if s.isAtEnd() {
		return s.makeToken(token.EOF), nil
	}

	c := s.advance()

	if isAlpha(c) {
		return s.identifier(), nil
	}
	if isDigit(c) {
		return s.number(), nil
	}

	switch c {
	case '(':
		return s.makeToken(token.LPAREN), nil
	case ')':
		return s.makeToken(token.RPAREN), nil
	case '{':
		return s.makeToken(token.LBRACE), nil
	case '}':
		return s.makeToken(token.RBRACE), nil
	case ';':
		return s.makeToken(token.SEMI), nil
	case ',':
		return s.makeToken(token.COMMA), nil
	case '.':
		return s.makeToken(token.DOT), nil
	case '-':
		return s.makeToken(token.MINUS), nil
	case '+':
		return s.makeToken(token.PLUS), nil
	case '/':
		return s.makeToken(token.SLASH), nil
	case '*':
		return s.makeToken(token.STAR), nil
	case '!':
		return s.makeToken(s.ifMatch('=', token.BANG_EQUAL, token.BANG)), nil
	case '=':
		return s.makeToken(s.ifMatch('=', token.EQUAL_EQUAL, token.EQUAL)), nil
	case '<':
		return s.makeToken(s.ifMatch('=', token.LESS_EQUAL, token.LESS)), nil
	case '>':
		return s.makeToken(s.ifMatch('=', token.GREATER_EQUAL, token.GREATER)), nil
	case '"':
		return s.string()
	}

	return token.Token{}, s.errorf("Unexpected character.")
}

func (s *Scanner) ifMatch(expected byte, ifMatched, otherwise token.TokenType) token.TokenType {
	if s.match(expected) {
		return ifMatched
	}
	return otherwise
}

func (s *Scanner) skipWhitespace() {
	for {
		if s.isAtEnd() {
			return
		}
		switch s.peek() {
		case ' ', '\t', '\r':
			s.advance()
		case '\n':
			s.line++
			s.advance()
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.isAtEnd() {
					s.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *Scanner) string() (token.Token, *ScanError) {
	for s.peek() != '"' && !s.isAtEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}
	if s.isAtEnd() {
		return token.Token{}, s.errorf("Unterminated string.")
	}
	s.advance() // the closing quote
	return s.makeToken(token.STRING), nil
}

func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance() // the '.'
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	return s.makeToken(token.NUMBER)
}

func (s *Scanner) identifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	return s.makeToken(s.identifierType())
}

// identifierType dispatches on the first letter before falling back to
// Identifier, the way original_source/src/scanner/identifier_identifier.rs
// does — cheaper than a hash lookup for this few keywords (spec §4.1).
func (s *Scanner) identifierType() token.TokenType {
	lexeme := s.source[s.start:s.current]

	rest := func(suffix string, kind token.TokenType) token.TokenType {
		if lexeme[1:] == suffix {
			return kind
		}
		return token.IDENTIFIER
	}

	switch lexeme[0] {
	case 'a':
		return rest("nd", token.AND)
	case 'c':
		return rest("lass", token.CLASS)
	case 'e':
		return rest("lse", token.ELSE)
	case 'f':
		if len(lexeme) > 1 {
			switch lexeme[1] {
			case 'a':
				return rest2(lexeme, "false", token.FALSE)
			case 'o':
				return rest2(lexeme, "for", token.FOR)
			case 'u':
				return rest2(lexeme, "fun", token.FUN)
			}
		}
	case 'i':
		return rest("f", token.IF)
	case 'n':
		return rest("il", token.NIL)
	case 'o':
		return rest("r", token.OR)
	case 'p':
		return rest("rint", token.PRINT)
	case 'r':
		return rest("eturn", token.RETURN)
	case 's':
		return rest("uper", token.SUPER)
	case 't':
		if len(lexeme) > 1 {
			switch lexeme[1] {
			case 'h':
				return rest2(lexeme, "this", token.THIS)
			case 'r':
				return rest2(lexeme, "true", token.TRUE)
			}
		}
	case 'v':
		return rest("ar", token.VAR)
	case 'w':
		return rest("hile", token.WHILE)
	}
	return token.IDENTIFIER
}

// rest2 checks the full lexeme against a complete keyword (used under the
// second-letter branches, where the first letter alone doesn't
// disambiguate, e.g. "false" vs "for" vs "fun").
func rest2(lexeme, full string, kind token.TokenType) token.TokenType {
	if lexeme == full {
		return kind
	}
	return token.IDENTIFIER
}

func (s *Scanner) isAtEnd() bool {
	return s.current >= len(s.source)
}

func (s *Scanner) advance() byte {
	c := s.source[s.current]
	s.current++
	return c
}

func (s *Scanner) peek() byte {
	if s.isAtEnd() {
		return 0
	}
	return s.source[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.source) {
		return 0
	}
	return s.source[s.current+1]
}

func (s *Scanner) match(expected byte) bool {
	if s.isAtEnd() || s.source[s.current] != expected {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) makeToken(kind token.TokenType) token.Token {
	return token.Token{Type: kind, Lexeme: s.source[s.start:s.current], Line: s.line}
}

func (s *Scanner) errorf(format string, args ...interface{}) *ScanError {
	return &ScanError{Line: s.line, Message: fmt.Sprintf(format, args...)}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
