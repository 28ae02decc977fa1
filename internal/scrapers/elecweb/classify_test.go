package elecweb

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected PageKind
	}{
		{name: "frameset", body: fakeFrameset, expected: PAGE_FRAMED_REPORT},
		{
			name:     "setup in script",
			body:     `<html><body><table></table><script>alert('初次登录');</script></body></html>`,
			expected: PAGE_SETUP_REQUIRED,
		},
		{
			name:     "setup beats frameset",
			body:     `<html><head><title>系统设置</title></head><frameset><frame name="stuMainFrame" src="a.aspx"/></frameset></html>`,
			expected: PAGE_SETUP_REQUIRED,
		},
		{
			name:     "flat table",
			body:     `<html><body><table><tr><td>1</td></tr></table></body></html>`,
			expected: PAGE_FLAT_REPORT,
		},
		{
			name:     "flat link",
			body:     `<html><body><a href="HouseElec.aspx">用电信息</a></body></html>`,
			expected: PAGE_FLAT_REPORT,
		},
		{
			name:     "anchor without href",
			body:     `<html><body><a name="top">密码错误</a></body></html>`,
			expected: PAGE_UNRECOGNIZED,
		},
		{
			name: "rejected wizard in table",
			body: `<html><body><table><tr><td><form><input type="hidden" name="__VIEWSTATE" value="a"/>` +
				`<select name="ddlFangJian"><option value="D1-0101">101</option></select>` +
				`<input name="txtStuPwd" type="password"/></form></td></tr>` +
				`<tr><td><a href="index.htm">首页</a><a href="help.htm">帮助</a></td></tr></table>` +
				`<script>alert('密码错误');</script></body></html>`,
			expected: PAGE_UNRECOGNIZED,
		},
		{
			name:     "setup page listing rooms",
			body:     `<html><body><select name="ddlFangJian"></select><script>alert('初次登录');</script></body></html>`,
			expected: PAGE_SETUP_REQUIRED,
		},
		{name: "empty", body: "", expected: PAGE_UNRECOGNIZED},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			doc := parseDocument(t, test.body)
			require.Equal(t, test.expected, Classify(doc, []byte(test.body)))
		})
	}
}

func TestPageKindString(t *testing.T) {
	require.Equal(t, "framed-report", PAGE_FRAMED_REPORT.String())
	require.Equal(t, "unrecognized", PageKind(42).String())
}

func TestClassifyLegacyCharset(t *testing.T) {
	body, err := simplifiedchinese.GBK.NewEncoder().String(
		`<html><head><meta http-equiv="Content-Type" content="text/html; charset=gb2312"></head>` +
			`<body><script>alert('初次登录');</script></body></html>`,
	)
	require.NoError(t, err)

	page := &Page{ContentType: "text/html; charset=gb2312", Body: []byte(body)}
	doc, err := page.Document()
	require.NoError(t, err)
	require.Equal(t, PAGE_SETUP_REQUIRED, Classify(doc, page.Body))
}
