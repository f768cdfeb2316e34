package config

import (
	"fmt"
	"strings"
	"unicode"
)

// argvSplitter tokenizes one command line with POSIX-ish quoting.
type argvSplitter struct {
	argv    []string
	word    strings.Builder
	inWord  bool
	quote   rune
	escaped bool
}

// parseArgv splits a shell-like command string. A leading # disables it.
// Empty quoted words are kept so `cmd ""` passes an empty argument.
func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var s argvSplitter
	for _, r := range input {
		s.feed(r)
	}

	switch {
	case s.escaped:
		return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
	case s.quote != 0:
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}
	s.endWord()
	return s.argv, nil
}

func (s *argvSplitter) feed(r rune) {
	if s.escaped {
		s.escaped = false
		s.add(r)
		return
	}

	switch s.quote {
	case '\'':
		if r == '\'' {
			s.quote = 0
			return
		}
		s.add(r)
		return
	case '"':
		switch r {
		case '"':
			s.quote = 0
		case '\\':
			s.escaped = true
		default:
			s.add(r)
		}
		return
	}

	switch {
	case r == '\\':
		s.escaped = true
	case r == '\'' || r == '"':
		s.quote = r
		s.inWord = true
	case unicode.IsSpace(r):
		s.endWord()
	default:
		s.add(r)
	}
}

func (s *argvSplitter) add(r rune) {
	s.word.WriteRune(r)
	s.inWord = true
}

func (s *argvSplitter) endWord() {
	if !s.inWord {
		return
	}
	s.argv = append(s.argv, s.word.String())
	s.word.Reset()
	s.inWord = false
}
