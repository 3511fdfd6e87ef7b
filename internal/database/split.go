package database

import "strings"

// SplitStatements breaks a schema or data dump into individual statements.
//
// Statements end at a semicolon that is outside quotes ('…', "…", `…`) and
// outside comments (-- to end of line, /* … */). A doubled quote character
// inside a quoted run is an escaped quote. Comments are dropped, blank
// statements are skipped and a trailing statement without a semicolon is
// kept.
func SplitStatements(dump string) []string {
	var (
		stmts []string
		cur   strings.Builder
		quote byte // current quote char, 0 when outside quotes
	)

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(dump); i++ {
		c := dump[i]

		if quote != 0 {
			cur.WriteByte(c)
			if c == quote {
				if i+1 < len(dump) && dump[i+1] == quote {
					cur.WriteByte(dump[i+1])
					i++
					continue
				}
				quote = 0
			}
			continue
		}

		switch {
		case c == '\'' || c == '"' || c == '`':
			quote = c
			cur.WriteByte(c)
		case c == '-' && i+1 < len(dump) && dump[i+1] == '-':
			end := strings.IndexByte(dump[i:], '\n')
			if end < 0 {
				i = len(dump)
			} else {
				i += end
				cur.WriteByte('\n')
			}
		case c == '/' && i+1 < len(dump) && dump[i+1] == '*':
			end := strings.Index(dump[i+2:], "*/")
			if end < 0 {
				i = len(dump)
			} else {
				i += end + 3
				cur.WriteByte(' ')
			}
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()

	return stmts
}
