package ir

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON for hashing and golden snapshots.
//
// Differences from encoding/json:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping, U+2028/U+2029 emitted literally
//  3. Strings are NFC normalized
//  4. No floats and no null
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		writeCanonicalString(buf, val)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case []string:
		buf.WriteByte('[')
		for i, s := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, s)
		}
		buf.WriteByte(']')
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		buf.WriteByte('{')
		for i, k := range sortedKeys(val) {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString escapes only quote, backslash and control characters.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range norm.NFC.String(s) {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

// sortedKeys orders keys by UTF-16 code units as RFC 8785 requires.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return lessUTF16(keys[i], keys[j])
	})
	return keys
}

func lessUTF16(a, b string) bool {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}

// Snapshot converts a resolved package into the canonical map used for fingerprints and
// golden files. It records names, roles, parser state successors with extraction widths,
// and control call targets.
func Snapshot(p *ResolvedPackage) map[string]any {
	typeArgs := make([]string, len(p.TypeArgs))
	for i, t := range p.TypeArgs {
		typeArgs[i] = t.String()
	}
	stages := make([]any, len(p.Stages))
	for i, s := range p.Stages {
		m := map[string]any{
			"param":     s.Param,
			"role_type": s.RoleType.String(),
		}
		if s.HasRole {
			m["role"] = s.Role.String()
		}
		if s.Decl != nil {
			m["decl"] = s.Decl.Name
			m["kind"] = s.Decl.Kind.String()
		}
		if s.Parser != nil {
			states := make([]any, len(s.Parser.States))
			for j := range s.Parser.States {
				st := &s.Parser.States[j]
				next := st.Select.Targets()
				if next == nil {
					next = []string{}
				}
				states[j] = map[string]any{
					"name":            st.Name,
					"extracted_width": st.ExtractedWidth(),
					"next":            next,
				}
			}
			m["states"] = states
		}
		if s.Control != nil {
			calls := make([]string, len(s.Control.Calls))
			for j, c := range s.Control.Calls {
				calls[j] = c.Target
			}
			m["calls"] = calls
			if len(s.Control.Tables) > 0 {
				m["tables"] = snapshotTables(s.Control.Tables)
			}
		}
		stages[i] = m
	}
	return map[string]any{
		"name":      p.Name,
		"package":   p.Package,
		"type_args": typeArgs,
		"stages":    stages,
	}
}

func snapshotTables(tables []TableModel) []any {
	out := make([]any, len(tables))
	for i, t := range tables {
		keys := make([]string, len(t.Keys))
		for j, k := range t.Keys {
			keys[j] = k.Expr + ":" + k.MatchKind
		}
		actions := make([]string, len(t.Actions))
		for j, a := range t.Actions {
			actions[j] = a.Name
		}
		m := map[string]any{"name": t.Name, "keys": keys, "actions": actions}
		if t.DefaultAction != "" {
			m["default_action"] = t.DefaultAction
		}
		out[i] = m
	}
	return out
}
