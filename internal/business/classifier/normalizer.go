package classifier

import (
	"html"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Normalize 将不可信文本转换为稳定的比较形式：
// NFKC → 反复 URL 解码 → HTML 实体反转义 → 去除 NUL → 压缩空白 → 小写
//
// 整条链路迭代到不动点，因此 Normalize(Normalize(x)) == Normalize(x)。
// 百分号解码失败（结果不是合法 UTF-8）时停止解码，保留已解码的部分，不返回错误。
func Normalize(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	// 有变化的一轮里解码会让串变短，轮数按输入长度给上限即可保证收敛
	rounds := 4*len(s) + 8
	for i := 0; i < rounds; i++ {
		next := normalizeOnce(s)
		if next == s {
			return s
		}
		s = next
	}
	return s
}

func normalizeOnce(s string) string {
	s = norm.NFKC.String(s)
	s = percentDecode(s)
	s = htmlUnescape(s)
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}

// htmlUnescape 反复反转义直到不再变化，&amp;amp;... 多层嵌套一次剥完
func htmlUnescape(s string) string {
	for strings.Contains(s, "&") {
		next := html.UnescapeString(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// percentDecode 反复解码 %XX 直到不再变化
// 非法的 %序列 原样保留；解码出非法 UTF-8 视为失败，返回上一轮结果
func percentDecode(s string) string {
	for {
		next, changed := unescapeOnce(s)
		if !changed {
			return s
		}
		if !utf8.ValidString(next) {
			return s
		}
		s = next
	}
}

func unescapeOnce(s string) (string, bool) {
	if !strings.Contains(s, "%") {
		return s, false
	}

	var b strings.Builder
	b.Grow(len(s))
	changed := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			changed = true
			continue
		}
		b.WriteByte(c)
	}
	return b.String(), changed
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// truncateRunes 按字符数截断
func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
