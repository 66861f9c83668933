package steam

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"unicode"
)

// KeyValues is a parsed VDF block: values are strings or nested KeyValues
type KeyValues map[string]any

// Block returns the nested block under key, or nil
func (kv KeyValues) Block(key string) KeyValues {
	b, _ := kv[key].(KeyValues)
	return b
}

// String returns the string value under key, or ""
func (kv KeyValues) String(key string) string {
	s, _ := kv[key].(string)
	return s
}

// ParseVDF reads Valve's KeyValues text format (libraryfolders.vdf, appmanifest_*.acf)
func ParseVDF(r io.Reader) (KeyValues, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(scanVDFTokens)
	var tokens []string
	for scanner.Scan() {
		tokens = append(tokens, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading vdf: %w", err)
	}

	p := &vdfParser{tokens: tokens}
	return p.block(true)
}

type vdfParser struct {
	tokens []string
	pos    int
}

// block reads pairs up to the closing brace, or to the end of input for the top level
func (p *vdfParser) block(top bool) (KeyValues, error) {
	kv := KeyValues{}
	for p.pos < len(p.tokens) {
		key := p.tokens[p.pos]
		p.pos++
		if key == "}" {
			if top {
				return nil, fmt.Errorf("vdf: unexpected '}'")
			}
			return kv, nil
		}
		if p.pos >= len(p.tokens) {
			return nil, fmt.Errorf("vdf: unexpected end after key %q", key)
		}

		value := p.tokens[p.pos]
		p.pos++
		if value != "{" {
			kv[key] = value
			continue
		}
		inner, err := p.block(false)
		if err != nil {
			return nil, err
		}
		kv[key] = inner
	}
	if !top {
		return nil, fmt.Errorf("vdf: unclosed block")
	}
	return kv, nil
}

// scanVDFTokens splits on quoted strings, bare words and braces. // comments are skipped.
func scanVDFTokens(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) {
		if unicode.IsSpace(rune(data[start])) {
			start++
			continue
		}
		if bytes.HasPrefix(data[start:], []byte("//")) {
			nl := bytes.IndexByte(data[start:], '\n')
			if nl < 0 {
				if atEOF {
					return len(data), nil, nil
				}
				return start, nil, nil
			}
			start += nl
			continue
		}
		break
	}
	if start == len(data) {
		return start, nil, nil
	}

	rest := data[start:]
	switch rest[0] {
	case '{', '}':
		return start + 1, rest[:1], nil
	case '"':
		for i := 1; i < len(rest); i++ {
			if rest[i] == '\\' {
				i++
				continue
			}
			if rest[i] == '"' {
				if i == 1 {
					return start + 2, rest[1:1], nil // "" must stay a token
				}
				return start + i + 1, []byte(unquote(rest[:i+1])), nil
			}
		}
		if atEOF {
			return 0, nil, fmt.Errorf("vdf: unclosed quote")
		}
		return start, nil, nil
	}

	i := 0
	for i < len(rest) && !unicode.IsSpace(rune(rest[i])) && rest[i] != '"' && rest[i] != '{' && rest[i] != '}' {
		i++
	}
	if i == len(rest) && !atEOF {
		return start, nil, nil
	}
	return start + i, rest[:i], nil
}

// unquote resolves the escapes Steam writes in paths (\\ and \"), keeping the raw text otherwise
func unquote(q []byte) string {
	if s, err := strconv.Unquote(string(q)); err == nil {
		return s
	}
	return string(q[1 : len(q)-1])
}
