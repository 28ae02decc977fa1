package elecweb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const gridPage = `<html><body><form>
<table id="gvElecInfo">
	<tr><th>日期</th><th>起始读数</th><th>结束读数</th><th>用电量</th><th>备注</th></tr>
	<tr><td>2025-11-01</td><td>1</td><td>2</td><td> 1.5 </td><td></td></tr>
	<tr><td>2025-11-02</td><td>2</td><td>2</td><td>&nbsp;</td><td>停电</td></tr>
	<tr><td>2025-11-03</td><td>2</td><td>3</td></tr>
	<tr><td>2025-11-04</td><td>3</td><td>5</td><td>abc</td><td></td></tr>
	<tr><td>2025-11-05</td><td>5</td><td>6</td><td>1.0</td><td><a href="javascript:__doPostBack('gvElecInfo','Page$Next')">下一页</a></td></tr>
	<tr><td colspan="5"><table><tr>
		<td>1</td><td>2</td><td>3</td><td>4</td><td><a href="javascript:__doPostBack('gvElecInfo','Page$Next')">下一页</a></td>
	</tr></table></td></tr>
</table>
</form></body></html>`

func TestParseGrid(t *testing.T) {
	page := ParseGrid(parseDocument(t, gridPage), DefaultUsageColumn)

	require.True(t, page.Found)
	require.True(t, page.HasNext)
	require.Equal(t, []string{"日期", "起始读数", "结束读数", "用电量", "备注"}, page.Headers)
	require.Equal(t, [][]string{
		{"2025-11-01", "1", "2", "1.5", ""},
		{"2025-11-04", "3", "5", "abc", ""},
	}, page.Rows)
}

func TestParseGridWithoutGrid(t *testing.T) {
	page := ParseGrid(parseDocument(t, `<html><body><table><tr><td>无数据</td></tr></table></body></html>`), DefaultUsageColumn)
	require.False(t, page.Found)
	require.False(t, page.HasNext)
	require.Empty(t, page.Rows)
}

func TestParseGridLastPage(t *testing.T) {
	body := `<table id="gvElecInfo">
		<tr><td>2025-12-01</td><td>1</td><td>2</td><td>3.25</td><td></td><td>extra</td></tr>
	</table>`
	page := ParseGrid(parseDocument(t, body), DefaultUsageColumn)
	require.True(t, page.Found)
	require.False(t, page.HasNext)
	require.Nil(t, page.Headers)
	require.Len(t, page.Rows, 1)
	require.Len(t, page.Rows[0], 6)
}

func TestParseGridFlatPagerRow(t *testing.T) {
	body := `<table id="gvElecInfo">
		<tr><td>2025-12-01</td><td>1</td><td>2</td><td>3.25</td><td></td></tr>
		<tr><td>1</td><td>2</td><td>3</td><td>4</td><td><a href="javascript:__doPostBack('gvElecInfo','Page$Next')">下一页</a></td></tr>
	</table>`
	page := ParseGrid(parseDocument(t, body), DefaultUsageColumn)
	require.True(t, page.HasNext)
	require.Equal(t, [][]string{{"2025-12-01", "1", "2", "3.25", ""}}, page.Rows)
}
